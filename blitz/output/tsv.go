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

// tsvWriter writes one tab-delimited line per alignment, with 1-based
// positions on the forward strand of both sequences.
type tsvWriter struct {
	w       *bufio.Writer
	targets Targets
}

func newTSVWriter(w *bufio.Writer, targets Targets) Writer {
	return &tsvWriter{w: w, targets: targets}
}

func (t *tsvWriter) WriteHeader() error {
	_, err := fmt.Fprintln(t.w, "query\tqlen\tqstart\tqend\tstrand\ttarget\ttlen\ttstart\ttend\tscore\tmatches\tmismatches\tpident\tqcov\tnodes\tqgaps\tqgapbases\ttgaps\ttgapbases\trank")
	return err
}

func (t *tsvWriter) Write(a *Alignment) error {
	s := &a.Stats
	_, err := fmt.Fprintf(t.w, "%s\t%d\t%d\t%d\t%c\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.3f\t%.3f\t%d\t%d\t%d\t%d\t%d\t%d\n",
		a.Query.ID, a.Query.Len(), a.QStartFwd()+1, a.QEndFwd(), a.Strand.Byte(),
		a.TargetName, a.TargetLen, s.TStart+1, s.TEnd,
		s.Score, s.Matches, s.Mismatches, s.Identity(), a.QueryCoverage(), s.NumNodes,
		s.QNumInsert, s.QBaseInsert, s.TNumInsert, s.TBaseInsert, a.Rank)
	return err
}

// WriteUnaligned writes nothing, unaligned queries are only counted.
func (t *tsvWriter) WriteUnaligned(q *Query) error { return nil }

func (t *tsvWriter) WritePair(a1, a2 *Alignment, q1, q2 *Query, proper bool) error {
	return pairAsSingles(t, a1, a2, q1, q2)
}

func (t *tsvWriter) Flush() error { return t.w.Flush() }
