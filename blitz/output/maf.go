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

// mafWriter writes pairwise MAF blocks, the target first.
type mafWriter struct {
	w       *bufio.Writer
	targets Targets

	qText, tText []byte
	buf          []byte
}

func newMAFWriter(w *bufio.Writer, targets Targets) Writer {
	return &mafWriter{
		w:       w,
		targets: targets,
		qText:   make([]byte, 0, 1024),
		tText:   make([]byte, 0, 1024),
		buf:     make([]byte, 0, 1024),
	}
}

func (m *mafWriter) WriteHeader() error {
	_, err := m.w.WriteString("##maf version=1 scoring=blitz\n\n")
	return err
}

func (m *mafWriter) Write(a *Alignment) error {
	m.qText = m.qText[:0]
	m.tText = m.tText[:0]

	var err error
	var prev *Block
	var dq, dt int
	for i := range a.Blocks {
		b := &a.Blocks[i]
		if prev != nil {
			dq = b.QStart - (prev.QStart + prev.Len)
			dt = b.TStart - (prev.TStart + prev.Len)
			if dq > 0 {
				m.qText = a.querySeq(m.qText, b.QStart-dq, b.QStart)
				m.tText = appendGaps(m.tText, dq)
			}
			if dt > 0 {
				m.buf, err = m.targets.SubSeq(m.buf, a.TargetID, b.TStart-dt, dt)
				if err != nil {
					return err
				}
				m.tText = append(m.tText, m.buf...)
				m.qText = appendGaps(m.qText, dt)
			}
		}

		m.qText = a.querySeq(m.qText, b.QStart, b.QStart+b.Len)
		m.buf, err = m.targets.SubSeq(m.buf, a.TargetID, b.TStart, b.Len)
		if err != nil {
			return err
		}
		m.tText = append(m.tText, m.buf...)
		prev = b
	}

	s := &a.Stats
	w := m.w
	fmt.Fprintf(w, "a score=%d\n", s.Score)
	fmt.Fprintf(w, "s %s %d %d + %d %s\n", a.TargetName, s.TStart, s.TEnd-s.TStart, a.TargetLen, m.tText)
	fmt.Fprintf(w, "s %s %d %d %c %d %s\n\n", a.Query.ID, s.QStart, s.QEnd-s.QStart, a.Strand.Byte(), a.Query.Len(), m.qText)
	return nil
}

func appendGaps(dst []byte, n int) []byte {
	for i := 0; i < n; i++ {
		dst = append(dst, '-')
	}
	return dst
}

func (m *mafWriter) WriteUnaligned(q *Query) error { return nil }

func (m *mafWriter) WritePair(a1, a2 *Alignment, q1, q2 *Query, proper bool) error {
	return pairAsSingles(m, a1, a2, q1, q2)
}

func (m *mafWriter) Flush() error { return m.w.Flush() }
