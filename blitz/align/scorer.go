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

import "math"

// Scorer computes, for each node, the best score of any path starting at
// it, and records the successor on that path.
//
// Nodes must be sorted with Nodes.Sort. A successor always has a greater
// query start, hence a greater index in the same partition, so scores are
// evaluated from the end of a partition backwards without recursion.
type Scorer struct {
	opt *ScoringOptions
}

// NewScorer creates a new Scorer.
func NewScorer(opt *ScoringOptions) *Scorer {
	return &Scorer{opt: opt}
}

// NodeScore is the score of a node on its own, floored at 0.
func (s *Scorer) NodeScore(n *MatchNode) int {
	v := (n.Len-n.Mismatches)*s.opt.MatchReward - n.Mismatches*s.opt.MismatchPenalty
	if v < 0 {
		return 0
	}
	return v
}

// Link checks if b can follow a on a path. It returns the cost of the gap
// between them and the number of overlapped bases that b shares with a.
//
// If a and b overlap on either axis, the overlap is abs(min(qGap, tGap))
// and both gaps are shifted by it, which is a heuristic for asymmetric
// overlaps.
func (s *Scorer) Link(a, b *MatchNode) (cost int, overlap int, ok bool) {
	if b.QStart <= a.QStart || b.Strand != a.Strand || b.TargetID != a.TargetID {
		return 0, 0, false
	}
	opt := s.opt
	qGap := b.QStart - a.QEnd()
	tGap := b.TStart - a.TEnd()
	if qGap < -opt.MaxOverlap || qGap > opt.MaxGap ||
		tGap < -opt.MaxOverlap || tGap > opt.MaxGap {
		return 0, 0, false
	}

	if qGap < 0 || tGap < 0 {
		if qGap < tGap {
			overlap = -qGap
		} else {
			overlap = -tGap
		}
		if overlap >= b.Len {
			return 0, 0, false
		}
		qGap += overlap
		tGap += overlap
	}

	if qGap == 0 && tGap == 0 {
		return 0, overlap, true
	}

	d := int(math.Sqrt(float64(qGap*qGap + tGap*tGap)))
	if d > opt.MaxGapCost {
		d = opt.MaxGapCost
	}
	return opt.GapOpenPenalty + d, overlap, true
}

// Score returns the best score of any path starting at the i-th node.
// Results are memoized in the nodes until Nodes.ResetScores is called.
// Consumed nodes score 0.
func (s *Scorer) Score(ns *Nodes, i int) int {
	n := &ns.Nodes[i]
	if n.Consumed {
		return 0
	}
	if n.Scored {
		return n.Score
	}

	p := ns.PartitionOf(i)
	var nd *MatchNode
	for j := p.End - 1; j >= i; j-- {
		nd = &ns.Nodes[j]
		if nd.Consumed || nd.Scored {
			continue
		}
		s.evaluate(ns, j, p.End)
	}
	return n.Score
}

// ScoreAll scores all unconsumed nodes.
func (s *Scorer) ScoreAll(ns *Nodes) {
	for _, p := range ns.parts {
		if p.End > p.Start {
			s.Score(ns, p.Start)
		}
	}
}

// evaluate scores the j-th node, all its possible successors must have
// been scored.
func (s *Scorer) evaluate(ns *Nodes, j, end int) {
	cur := &ns.Nodes[j]
	base := s.NodeScore(cur)
	best, next := base, 0

	reward := s.opt.MatchReward
	limit := cur.QEnd() + s.opt.MaxGap

	var nb *MatchNode
	var cost, overlap, v int
	var ok bool
	for k := j + 1; k < end; k++ {
		nb = &ns.Nodes[k]
		if nb.QStart > limit { // sorted by query start
			break
		}
		if nb.Consumed {
			continue
		}
		cost, overlap, ok = s.Link(cur, nb)
		if !ok {
			continue
		}

		v = base - overlap*reward + nb.Score - cost
		if v < 0 {
			v = 0
		}
		if v > best { // the first one wins in a tie
			best, next = v, k+1
		}
	}

	cur.Score = best
	cur.Next = next
	cur.Scored = true
}
