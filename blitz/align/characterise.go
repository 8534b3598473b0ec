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

// PathStats summarises a path.
type PathStats struct {
	NumNodes int

	QStart, QEnd int // 0-based, end exclusive
	TStart, TEnd int

	Matches    int
	Mismatches int

	QNumInsert  int // gaps in the query, i.e., bases missing in the target
	QBaseInsert int
	TNumInsert  int // gaps in the target
	TBaseInsert int

	Score int
}

// AlignedLen returns the number of aligned bases.
func (s *PathStats) AlignedLen() int { return s.Matches + s.Mismatches }

// Identity returns the percentage of matched bases in aligned bases.
func (s *PathStats) Identity() float64 {
	if s.AlignedLen() == 0 {
		return 0
	}
	return float64(s.Matches) * 100 / float64(s.AlignedLen())
}

// Characteriser walks paths and computes their stats.
type Characteriser struct {
	path []int
}

// NewCharacteriser creates a new Characteriser.
func NewCharacteriser() *Characteriser {
	return &Characteriser{path: make([]int, 0, 64)}
}

// Characterise computes the stats of the path starting at head.
// It returns stats with NumNodes == 0 if the chain is invalid, or if
// consecutive nodes still overlap.
func (ch *Characteriser) Characterise(ns *Nodes, head int) (s PathStats) {
	var ok bool
	ch.path, ok = ns.Path(head, ch.path)
	if !ok {
		return PathStats{}
	}
	return characterise(ns.Nodes, ch.path)
}

// Path returns the node indices walked by the last call of Characterise.
func (ch *Characteriser) Path() []int { return ch.path }

// Characterise computes the stats of the path starting at head.
func Characterise(ns *Nodes, head int) PathStats {
	return NewCharacteriser().Characterise(ns, head)
}

func characterise(nodes []MatchNode, path []int) (s PathStats) {
	var a, b *MatchNode
	var dq, dt int

	a = &nodes[path[0]]
	s.QStart, s.TStart = a.QStart, a.TStart
	s.Score = a.Score
	for k, i := range path {
		b = &nodes[i]
		if k > 0 {
			dq = b.QStart - a.QEnd()
			dt = b.TStart - a.TEnd()
			if dq < 0 || dt < 0 {
				return PathStats{}
			}
			if dq > 0 {
				s.QNumInsert++
				s.QBaseInsert += dq
			}
			if dt > 0 {
				s.TNumInsert++
				s.TBaseInsert += dt
			}
		}
		s.Matches += b.Len - b.Mismatches
		s.Mismatches += b.Mismatches
		a = b
	}
	s.QEnd, s.TEnd = a.QEnd(), a.TEnd()
	s.NumNodes = len(path)
	return s
}
