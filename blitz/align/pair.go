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

// Candidate is a selected path of one mate.
type Candidate struct {
	Head     int // index of the head node
	TargetID int
	TStart   int
	Strand   Strand
	Score    int
	MaxScore int // best possible score of the mate, for normalization
}

// NewCandidate creates a candidate from a selected head node.
func NewCandidate(ns *Nodes, head int, maxScore int) Candidate {
	n := &ns.Nodes[head]
	return Candidate{
		Head:     head,
		TargetID: n.TargetID,
		TStart:   n.TStart,
		Strand:   n.Strand,
		Score:    n.Score,
		MaxScore: maxScore,
	}
}

// Pair is a reconciled pair of mate candidates.
type Pair struct {
	I, J     int // indexes in the two candidate lists
	Distance int // distance between the target starts
}

// ReconcilePairs chooses one candidate from each mate. The two candidates
// must hit the same target on opposite strands, with target starts no more
// than MaxInsert+Tolerance apart. Among admissible pairs, the one with the
// highest sum of normalized scores wins, then the one with the smaller
// distance, then the one found first.
// ok is false if there is no admissible pair.
func ReconcilePairs(c1, c2 []Candidate, opt *PairingOptions) (p Pair, ok bool) {
	maxDist := opt.MaxInsert + opt.Tolerance

	var a, b *Candidate
	var d int
	var num, den int64 // the best combined score as a fraction
	var n, m int64
	var cmp int
	for i := range c1 {
		a = &c1[i]
		for j := range c2 {
			b = &c2[j]
			if a.TargetID != b.TargetID || a.Strand == b.Strand {
				continue
			}
			d = a.TStart - b.TStart
			if d < 0 {
				d = -d
			}
			if d > maxDist {
				continue
			}

			n, m = combined(a, b)
			if !ok {
				p, ok = Pair{I: i, J: j, Distance: d}, true
				num, den = n, m
				continue
			}

			cmp = compareFrac(n, m, num, den)
			if cmp > 0 || (cmp == 0 && d < p.Distance) {
				p = Pair{I: i, J: j, Distance: d}
				num, den = n, m
			}
		}
	}
	return p, ok
}

// combined returns s1/m1 + s2/m2 as a fraction.
func combined(a, b *Candidate) (num, den int64) {
	m1, m2 := int64(a.MaxScore), int64(b.MaxScore)
	if m1 < 1 {
		m1 = 1
	}
	if m2 < 1 {
		m2 = 1
	}
	return int64(a.Score)*m2 + int64(b.Score)*m1, m1 * m2
}

func compareFrac(n1, d1, n2, d2 int64) int {
	x, y := n1*d2, n2*d1
	if x > y {
		return 1
	}
	if x < y {
		return -1
	}
	return 0
}
