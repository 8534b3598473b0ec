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

package seed

import (
	"github.com/shenwei356/blitz/blitz/align"
	"github.com/shenwei356/blitz/blitz/target"
)

// Locator finds match nodes of queries. It is owned by a single worker.
type Locator struct {
	idx *Index
	opt *Options

	covered map[uint64]int // target index << 32 | diagonal -> query end
}

// NewLocator creates a Locator on an index.
func NewLocator(idx *Index) *Locator {
	return &Locator{
		idx:     idx,
		opt:     idx.opt,
		covered: make(map[uint64]int, 256),
	}
}

// Locate appends match nodes of the query on the allowed strands to nodes.
// Query positions of reverse-strand nodes are positions in the reverse
// complement of the query. At most maxIter k-mer occurrences are explored,
// truncated is true if the limit is reached. A maxIter of 0 means no limit.
func (l *Locator) Locate(query []byte, mode align.StrandMode, maxIter int, nodes *align.Nodes) (truncated bool) {
	if len(query) < l.idx.k {
		return false
	}

	var iter int
	if mode.Has(align.Forward) {
		iter, truncated = l.locate(query, align.Forward, iter, maxIter, nodes)
	}
	if !truncated && mode.Has(align.Reverse) {
		rc := target.PoolSeq.Get().(*[]byte)
		*rc = target.RCTo(*rc, query)
		_, truncated = l.locate(*rc, align.Reverse, iter, maxIter, nodes)
		target.PoolSeq.Put(rc)
	}
	return truncated
}

func (l *Locator) locate(q []byte, strand align.Strand, iter, maxIter int, nodes *align.Nodes) (int, bool) {
	clear(l.covered)

	idx := l.idx
	k := idx.k
	maxOcc := l.opt.MaxOcc

	var code, key uint64
	var valid, qpos, tid, tpos, diag int
	var qs, ts, length, mm int
	var end int
	var ok bool
	for i, b := range q {
		if !target.IsACGT(b) {
			valid, code = 0, 0
			continue
		}
		code = (code<<2 | uint64(target.Code2Bit(b))) & idx.mask
		valid++
		if valid < k {
			continue
		}
		qpos = i - k + 1

		locs := idx.Lookup(code)
		if len(locs) == 0 || len(locs) > maxOcc {
			continue
		}
		for _, loc := range locs {
			iter++
			if maxIter > 0 && iter > maxIter {
				return iter, true
			}

			tid, tpos = int(loc>>32), int(loc&0xffffffff)
			diag = tpos - qpos
			key = uint64(tid)<<32 | uint64(uint32(int32(diag)))
			end, ok = l.covered[key]
			if ok && qpos < end {
				continue
			}

			qs, ts, length, mm = l.extend(q, tid, qpos, tpos, end)
			l.covered[key] = qs + length
			nodes.Add(tid, ts, qs, length, mm, strand)
		}
	}
	return iter, false
}

// extend extends an exact k-mer match in both directions without gaps.
// A mismatch is accepted only if it is followed by enough exact matches.
// The extension to the left stops at the query position minQ.
func (l *Locator) extend(q []byte, tid, qpos, tpos, minQ int) (qs, ts, length, mm int) {
	tgt := l.idx.tgt
	tlen := tgt.SeqLen(tid)
	anchor := l.opt.ExtendAnchor
	k := l.idx.k

	match := func(i, j int) bool {
		return same(q[i], tgt.BaseAt(tid, j))
	}
	// anchored tells if the next n bases after (i, j) in direction d all match
	anchored := func(i, j, d int) bool {
		for a := 1; a <= anchor; a++ {
			i2, j2 := i+a*d, j+a*d
			if i2 < minQ || i2 >= len(q) || j2 < 0 || j2 >= tlen {
				return false
			}
			if !match(i2, j2) {
				return false
			}
		}
		return true
	}

	// right
	qe, te := qpos+k, tpos+k
	for qe < len(q) && te < tlen {
		if match(qe, te) {
			qe++
			te++
			continue
		}
		if !anchored(qe, te, 1) {
			break
		}
		mm++
		qe++
		te++
	}

	// left
	qs, ts = qpos, tpos
	for qs > minQ && ts > 0 {
		if match(qs-1, ts-1) {
			qs--
			ts--
			continue
		}
		if !anchored(qs-1, ts-1, -1) {
			break
		}
		mm++
		qs--
		ts--
	}

	return qs, ts, qe - qs, mm
}

func same(x, y byte) bool {
	x &= 0xDF
	y &= 0xDF
	return x == y && x != 'N' && x != 0
}
