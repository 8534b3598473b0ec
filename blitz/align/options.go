// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package align

import (
	"fmt"
	"math"
)

// ScoringOptions contains all options in path scoring and selection.
type ScoringOptions struct {
	MatchReward     int // score of an exactly matched base
	MismatchPenalty int // penalty of a mismatched base
	GapOpenPenalty  int // fixed penalty of a gap between two nodes

	MaxGap     int // maximum gap between two nodes, in query or target
	MaxOverlap int // maximum overlap between two nodes, in query or target
	MaxGapCost int // cap of the distance part of a gap cost

	MinPathScore     int     // minimum path score, 0 for auto
	MinQueryCoverage float64 // minimum percentage of the query in a path
	MaxPaths         int     // maximum paths to report per query
}

// DefaultScoringOptions is the default value of ScoringOptions.
var DefaultScoringOptions = ScoringOptions{
	MatchReward:     1,
	MismatchPenalty: 2,
	GapOpenPenalty:  3,

	MaxGap:     100,
	MaxOverlap: 10,
	MaxGapCost: 20,

	MinPathScore:     0,
	MinQueryCoverage: 50,
	MaxPaths:         1,
}

// CheckScoringOptions checks the values of ScoringOptions.
func CheckScoringOptions(opt *ScoringOptions) error {
	if opt.MatchReward < 1 {
		return fmt.Errorf("invalid match reward: %d, should be >= 1", opt.MatchReward)
	}
	if opt.MismatchPenalty < 0 {
		return fmt.Errorf("invalid mismatch penalty: %d, should be >= 0", opt.MismatchPenalty)
	}
	if opt.GapOpenPenalty < 0 {
		return fmt.Errorf("invalid gap open penalty: %d, should be >= 0", opt.GapOpenPenalty)
	}
	if opt.MaxGap < 1 {
		return fmt.Errorf("invalid max gap: %d, should be >= 1", opt.MaxGap)
	}
	if opt.MaxOverlap < 0 {
		return fmt.Errorf("invalid max overlap: %d, should be >= 0", opt.MaxOverlap)
	}
	if opt.MaxGapCost < 0 {
		return fmt.Errorf("invalid max gap cost: %d, should be >= 0", opt.MaxGapCost)
	}
	if opt.MinPathScore < 0 {
		return fmt.Errorf("invalid min path score: %d, should be >= 0 (0 for auto)", opt.MinPathScore)
	}
	if opt.MinQueryCoverage < 0 || opt.MinQueryCoverage > 100 {
		return fmt.Errorf("invalid min query coverage: %f, valid range: [0, 100]", opt.MinQueryCoverage)
	}
	if opt.MaxPaths < 1 {
		return fmt.Errorf("invalid max paths: %d, should be >= 1", opt.MaxPaths)
	}
	return nil
}

// AutoMinPathScore derives a minimum path score from the query length.
func AutoMinPathScore(qlen int, reward int) int {
	if qlen <= 5 {
		return 0
	}
	return ((qlen - 5) * reward) / 3
}

// MinScore returns the minimum path score for a query of length qlen.
func (opt *ScoringOptions) MinScore(qlen int) int {
	if opt.MinPathScore > 0 {
		return opt.MinPathScore
	}
	return AutoMinPathScore(qlen, opt.MatchReward)
}

// MinAligned returns the minimum number of aligned query bases of a path.
func (opt *ScoringOptions) MinAligned(qlen int) int {
	return int(math.Ceil(float64(qlen) * opt.MinQueryCoverage / 100))
}

// MaxScore is the best score a query of length qlen can reach.
func (opt *ScoringOptions) MaxScore(qlen int) int {
	return qlen * opt.MatchReward
}

// PairingOptions contains options for reconciling paired-end mates.
type PairingOptions struct {
	MaxInsert int // maximum distance between the target starts of two mates
	Tolerance int // extra distance allowed beyond MaxInsert
}

// DefaultPairingOptions is the default value of PairingOptions.
var DefaultPairingOptions = PairingOptions{
	MaxInsert: 1000,
	Tolerance: 10,
}

// CheckPairingOptions checks the values of PairingOptions.
func CheckPairingOptions(opt *PairingOptions) error {
	if opt.MaxInsert < 1 {
		return fmt.Errorf("invalid max insert size: %d, should be >= 1", opt.MaxInsert)
	}
	if opt.Tolerance < 0 {
		return fmt.Errorf("invalid insert size tolerance: %d, should be >= 0", opt.Tolerance)
	}
	return nil
}
