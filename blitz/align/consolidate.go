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

import "github.com/shenwei356/blitz/blitz/target"

// BaseFetcher returns a base of a target sequence, 0 for out of range.
type BaseFetcher interface {
	BaseAt(targetID, pos int) byte
}

// Consolidator closes 1-base gaps between consecutive nodes of a path and
// merges collinear nodes. It is owned by a single worker.
type Consolidator struct {
	rc []byte // reverse complement of the current query
}

// NewConsolidator creates a new Consolidator.
func NewConsolidator() *Consolidator {
	return &Consolidator{rc: make([]byte, 0, 1024)}
}

// Consolidate adjusts the nodes of the path starting at head in place and
// returns the number of nodes left in the path. The query is never
// modified. Nodes dropped from the chain stay consumed.
//
// For every pair of consecutive nodes a and b:
//   - an overlap is trimmed from the start of b;
//   - a gap of one base on both axes is filled by extending a, then a
//     and b are merged;
//   - a gap of one base on one axis is moved forward while a matches on
//     the bases of b, then a takes the disputed base as a mismatch;
//   - adjacent nodes on the same diagonal are merged.
//
// Running it again on a consolidated path changes nothing.
func (c *Consolidator) Consolidate(ns *Nodes, head int, query []byte, tgt BaseFetcher) int {
	nodes := ns.Nodes
	if head < 0 || head >= len(nodes) {
		return 0
	}
	p := ns.PartitionOf(head)

	q := query
	if nodes[head].Strand == Reverse {
		c.rc = target.RCTo(c.rc, query)
		q = c.rc
	}

	var a, b *MatchNode
	var dq, dt, ov, next int
	i, n := head, 1
	for {
		a = &nodes[i]
		if a.Next == 0 {
			break
		}
		next = a.Next - 1
		if next <= i || next >= p.End {
			internalError("successor %d of node %d is outside partition [%d, %d)", next, i, p.Start, p.End)
			a.Next = 0
			break
		}
		b = &nodes[next]

		dq = b.QStart - a.QEnd()
		dt = b.TStart - a.TEnd()

		if dq < 0 || dt < 0 { // overlap
			if dq < dt {
				ov = -dq
			} else {
				ov = -dt
			}
			if ov >= b.Len {
				a.Next = b.Next
				continue
			}
			b.QStart += ov
			b.TStart += ov
			b.Len -= ov
			b.Mismatches = countMismatches(q, tgt, b)
			dq += ov
			dt += ov
		}

		switch {
		case dq == 0 && dt == 0:
			merge(a, b)
			continue
		case dq == 1 && dt == 1:
			if !same(q[a.QEnd()], tgt.BaseAt(a.TargetID, a.TEnd())) {
				a.Mismatches++
			}
			a.Len++
			merge(a, b)
			continue
		case (dq == 0 && dt == 1) || (dq == 1 && dt == 0):
			if slide(q, tgt, a, b) { // b is absorbed
				a.Next = b.Next
				continue
			}
		}

		i = next
		n++
	}

	return n
}

// slide extends a onto the first bases of b while they match on a's
// diagonal. The disputed base left after that goes to a as a mismatch and
// is cut from b. Nothing moves if a already ends with a mismatch. It
// returns true if b becomes empty.
func slide(q []byte, tgt BaseFetcher, a, b *MatchNode) bool {
	if !same(q[a.QEnd()-1], tgt.BaseAt(a.TargetID, a.TEnd()-1)) {
		return false
	}

	for b.Len > 0 && a.QEnd() < len(q) &&
		same(q[a.QEnd()], tgt.BaseAt(a.TargetID, a.TEnd())) {
		shift(q, tgt, a, b)
	}
	if b.Len == 0 {
		return true
	}

	if b.Len > 1 && a.QEnd() < len(q) {
		a.Mismatches++
		shift(q, tgt, a, b)
	}
	return false
}

// shift moves one base from the start of b to the end of a.
func shift(q []byte, tgt BaseFetcher, a, b *MatchNode) {
	if b.Mismatches > 0 && !same(q[b.QStart], tgt.BaseAt(b.TargetID, b.TStart)) {
		b.Mismatches--
	}
	a.Len++
	b.QStart++
	b.TStart++
	b.Len--
}

func merge(a, b *MatchNode) {
	a.Len += b.Len
	a.Mismatches += b.Mismatches
	a.Next = b.Next
}

func countMismatches(q []byte, tgt BaseFetcher, n *MatchNode) int {
	var m int
	for k := 0; k < n.Len; k++ {
		if !same(q[n.QStart+k], tgt.BaseAt(n.TargetID, n.TStart+k)) {
			m++
		}
	}
	return m
}

// same tells if two bases are identical, case-insensitive. N never matches.
func same(x, y byte) bool {
	x &= 0xDF
	y &= 0xDF
	return x == y && x != 'N' && x != 0
}
