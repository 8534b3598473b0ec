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

// Selector repeatedly extracts the best path from a node store.
type Selector struct {
	opt    *ScoringOptions
	scorer *Scorer

	path []int
}

// NewSelector creates a new Selector.
func NewSelector(opt *ScoringOptions) *Selector {
	return &Selector{
		opt:    opt,
		scorer: NewScorer(opt),
		path:   make([]int, 0, 64),
	}
}

// Scorer returns the scorer used by the selector.
func (sel *Selector) Scorer() *Scorer { return sel.scorer }

// Select finds up to maxPaths non-overlapping paths for a query of length
// qlen and appends their heads to heads, highest score first.
// Nodes of selected paths are marked consumed and heads are flagged.
//
// A path is reported only if its score reaches the minimum path score and
// it covers at least the minimum percentage of the query. Nodes of a path
// failing the coverage check will not head a path in this call, but can
// still be part of other paths.
func (sel *Selector) Select(ns *Nodes, qlen int, maxPaths int, heads []int) []int {
	heads = heads[:0]
	if ns.Len() == 0 || maxPaths < 1 {
		return heads
	}

	minScore := sel.opt.MinScore(qlen)
	minAligned := sel.opt.MinAligned(qlen)
	scorer := sel.scorer
	nodes := ns.Nodes

	var best, bi, score, aligned int
	var ok bool
	var n *MatchNode
	for len(heads) < maxPaths {
		ns.ResetScores()

		best, bi = 0, -1
		for i := range nodes {
			n = &nodes[i]
			if n.Consumed || n.rejected {
				continue
			}
			score = scorer.Score(ns, i)
			if score > best {
				best, bi = score, i
			}
		}
		if bi < 0 || best < minScore {
			break
		}

		sel.path, ok = ns.Path(bi, sel.path)
		if !ok { // bounded walk in release builds
			for _, i := range sel.path {
				nodes[i].rejected = true
			}
			continue
		}

		aligned = alignedLength(nodes, sel.path)
		if aligned < minAligned {
			for _, i := range sel.path {
				nodes[i].rejected = true
			}
			continue
		}

		for _, i := range sel.path {
			nodes[i].Consumed = true
		}
		nodes[bi].Head = true
		heads = append(heads, bi)
	}

	for i := range nodes {
		nodes[i].rejected = false
	}
	return heads
}

// alignedLength returns the number of query bases covered by a path.
func alignedLength(nodes []MatchNode, path []int) int {
	var aligned, end int
	var n *MatchNode
	for k, i := range path {
		n = &nodes[i]
		if k == 0 || n.QStart >= end {
			aligned += n.Len
		} else if n.QEnd() > end {
			aligned += n.QEnd() - end
		}
		if n.QEnd() > end {
			end = n.QEnd()
		}
	}
	return aligned
}
