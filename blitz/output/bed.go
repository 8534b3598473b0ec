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

package output

import (
	"bufio"
	"fmt"
)

// bedWriter writes BED12 records on targets.
type bedWriter struct {
	w       *bufio.Writer
	targets Targets
	ints    []int
}

func newBEDWriter(w *bufio.Writer, targets Targets) Writer {
	return &bedWriter{w: w, targets: targets, ints: make([]int, 0, 64)}
}

func (b *bedWriter) WriteHeader() error { return nil }

func (b *bedWriter) Write(a *Alignment) error {
	s := &a.Stats
	score := s.Score
	if score > 1000 {
		score = 1000
	}

	w := b.w
	fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%d\t%c\t%d\t%d\t0\t%d\t",
		a.TargetName, s.TStart, s.TEnd, a.Query.ID, score, a.Strand.Byte(),
		s.TStart, s.TEnd, len(a.Blocks))

	b.ints = b.ints[:0]
	for _, blk := range a.Blocks {
		b.ints = append(b.ints, blk.Len)
	}
	joinInts(w, b.ints)
	w.WriteByte('\t')

	b.ints = b.ints[:0]
	for _, blk := range a.Blocks {
		b.ints = append(b.ints, blk.TStart-s.TStart)
	}
	joinInts(w, b.ints)
	return w.WriteByte('\n')
}

func (b *bedWriter) WriteUnaligned(q *Query) error { return nil }

func (b *bedWriter) WritePair(a1, a2 *Alignment, q1, q2 *Query, proper bool) error {
	return pairAsSingles(b, a1, a2, q1, q2)
}

func (b *bedWriter) Flush() error { return b.w.Flush() }
