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
	"bytes"
	"fmt"
)

const pslHeader = `psLayout version 3

match	mis- 	rep. 	N's	Q gap	Q gap	T gap	T gap	strand	Q        	Q   	Q    	Q  	T        	T   	T    	T  	block	blockSizes 	qStarts	 tStarts
     	match	match	   	count	bases	count	bases	      	name     	size	start	end	name     	size	start	end	count
---------------------------------------------------------------------------------------------------------------------------------------------------------------
`

// pslWriter writes PSL, or PSLX with sequences of blocks.
// qStarts of a reverse-strand alignment are on the reverse complement.
type pslWriter struct {
	w       *bufio.Writer
	targets Targets
	x       bool

	ints []int
	buf  []byte
}

func newPSLWriter(w *bufio.Writer, targets Targets, x bool) Writer {
	return &pslWriter{w: w, targets: targets, x: x, ints: make([]int, 0, 64), buf: make([]byte, 0, 1024)}
}

func (p *pslWriter) WriteHeader() error {
	_, err := p.w.WriteString(pslHeader)
	return err
}

func (p *pslWriter) Write(a *Alignment) error {
	s := &a.Stats

	var nCount int
	for _, b := range a.Blocks {
		for i := b.QStart; i < b.QStart+b.Len; i++ {
			if a.queryBase(i)&0xDF == 'N' {
				nCount++
			}
		}
	}

	w := p.w
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%c\t%s\t%d\t%d\t%d\t%s\t%d\t%d\t%d\t%d\t",
		s.Matches, s.Mismatches, 0, nCount,
		s.QNumInsert, s.QBaseInsert, s.TNumInsert, s.TBaseInsert,
		a.Strand.Byte(),
		a.Query.ID, a.Query.Len(), a.QStartFwd(), a.QEndFwd(),
		a.TargetName, a.TargetLen, s.TStart, s.TEnd,
		len(a.Blocks))

	p.ints = p.ints[:0]
	for _, b := range a.Blocks {
		p.ints = append(p.ints, b.Len)
	}
	joinInts(w, p.ints)
	w.WriteByte('\t')

	p.ints = p.ints[:0]
	for _, b := range a.Blocks {
		p.ints = append(p.ints, b.QStart)
	}
	joinInts(w, p.ints)
	w.WriteByte('\t')

	p.ints = p.ints[:0]
	for _, b := range a.Blocks {
		p.ints = append(p.ints, b.TStart)
	}
	joinInts(w, p.ints)

	if p.x {
		w.WriteByte('\t')
		for _, b := range a.Blocks {
			p.buf = a.querySeq(p.buf[:0], b.QStart, b.QStart+b.Len)
			w.Write(bytes.ToLower(p.buf))
			w.WriteByte(',')
		}
		w.WriteByte('\t')
		var err error
		for _, b := range a.Blocks {
			p.buf, err = p.targets.SubSeq(p.buf, a.TargetID, b.TStart, b.Len)
			if err != nil {
				return err
			}
			w.Write(bytes.ToLower(p.buf))
			w.WriteByte(',')
		}
	}

	return w.WriteByte('\n')
}

func (p *pslWriter) WriteUnaligned(q *Query) error { return nil }

func (p *pslWriter) WritePair(a1, a2 *Alignment, q1, q2 *Query, proper bool) error {
	return pairAsSingles(p, a1, a2, q1, q2)
}

func (p *pslWriter) Flush() error { return p.w.Flush() }
