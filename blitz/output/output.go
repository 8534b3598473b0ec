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

// Package output writes alignments in several formats.
package output

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/blitz/blitz/align"
	"github.com/shenwei356/blitz/blitz/target"
)

// ErrHeaderNotWritten means Write is called before WriteHeader.
var ErrHeaderNotWritten = errors.New("output: header not written")

// Targets provides information of target sequences.
type Targets interface {
	Len() int
	ID(i int) string
	SeqLen(i int) int
	SubSeq(dst []byte, i, start, length int) ([]byte, error)
}

// Query is a query sequence.
type Query struct {
	ID   []byte
	Seq  []byte
	Qual []byte // Phred+33, optional
}

// Len returns the length of the query.
func (q *Query) Len() int { return len(q.Seq) }

// Block is an ungapped aligned segment. Query positions of a reverse-strand
// alignment are positions in the reverse complement of the query.
type Block struct {
	QStart     int
	TStart     int
	Len        int
	Mismatches int
}

// Alignment is a characterised path, ready for output.
type Alignment struct {
	Query *Query

	TargetID   int
	TargetName string
	TargetLen  int
	Strand     align.Strand

	Stats  align.PathStats // query positions on the aligned strand
	Blocks []Block

	Rank  int // 1-based rank among the paths of the query
	Paths int // number of paths of the query
}

// NewAlignment creates an alignment from a characterised path of nodes.
func NewAlignment(q *Query, targets Targets, ns *align.Nodes, path []int, stats align.PathStats, rank, paths int) *Alignment {
	n := &ns.Nodes[path[0]]
	a := &Alignment{
		Query:      q,
		TargetID:   n.TargetID,
		TargetName: targets.ID(n.TargetID),
		TargetLen:  targets.SeqLen(n.TargetID),
		Strand:     n.Strand,
		Stats:      stats,
		Blocks:     make([]Block, 0, len(path)),
		Rank:       rank,
		Paths:      paths,
	}
	for _, i := range path {
		n = &ns.Nodes[i]
		a.Blocks = append(a.Blocks, Block{QStart: n.QStart, TStart: n.TStart, Len: n.Len, Mismatches: n.Mismatches})
	}
	return a
}

// QStartFwd returns the 0-based start of the alignment on the query.
func (a *Alignment) QStartFwd() int {
	if a.Strand == align.Reverse {
		return a.Query.Len() - a.Stats.QEnd
	}
	return a.Stats.QStart
}

// QEndFwd returns the 0-based exclusive end of the alignment on the query.
func (a *Alignment) QEndFwd() int {
	if a.Strand == align.Reverse {
		return a.Query.Len() - a.Stats.QStart
	}
	return a.Stats.QEnd
}

// QueryCoverage returns the percentage of query bases in blocks.
func (a *Alignment) QueryCoverage() float64 {
	if a.Query.Len() == 0 {
		return 0
	}
	return float64(a.Stats.AlignedLen()) * 100 / float64(a.Query.Len())
}

// EditDistance is the number of mismatches plus inserted and deleted bases.
func (a *Alignment) EditDistance() int {
	return a.Stats.Mismatches + a.Stats.QBaseInsert + a.Stats.TBaseInsert
}

// queryBase returns the query base at pos on the aligned strand.
func (a *Alignment) queryBase(pos int) byte {
	if a.Strand == align.Reverse {
		return target.Complement(a.Query.Seq[a.Query.Len()-1-pos])
	}
	return a.Query.Seq[pos]
}

// querySeq appends query bases [start, end) on the aligned strand to dst.
func (a *Alignment) querySeq(dst []byte, start, end int) []byte {
	for p := start; p < end; p++ {
		dst = append(dst, a.queryBase(p))
	}
	return dst
}

// Writer writes alignments. Writers are not safe for concurrent use,
// callers serialize all calls.
type Writer interface {
	WriteHeader() error
	Write(a *Alignment) error
	WriteUnaligned(q *Query) error
	// WritePair writes the two mates, a nil alignment means unaligned.
	// proper reports whether the mates are a reconciled proper pair.
	WritePair(a1, a2 *Alignment, q1, q2 *Query, proper bool) error
	Flush() error
}

type newWriterFunc func(w *bufio.Writer, targets Targets) Writer

var formats = map[string]newWriterFunc{
	"tsv":  newTSVWriter,
	"psl":  func(w *bufio.Writer, targets Targets) Writer { return newPSLWriter(w, targets, false) },
	"pslx": func(w *bufio.Writer, targets Targets) Writer { return newPSLWriter(w, targets, true) },
	"bed":  newBEDWriter,
	"maf":  newMAFWriter,
	"sam":  newSAMWriter,
}

// Formats returns the supported output formats.
func Formats() []string {
	list := make([]string, 0, len(formats))
	for f := range formats {
		list = append(list, f)
	}
	sort.Strings(list)
	return list
}

// New creates a Writer of the format.
func New(format string, w io.Writer, targets Targets) (Writer, error) {
	fn, ok := formats[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unsupported output format: %s, available: %s", format, strings.Join(Formats(), ", "))
	}
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriterSize(w, 65536)
	}
	return fn(bw, targets), nil
}

// pairAsSingles writes mates of a pair as independent records.
func pairAsSingles(w Writer, a1, a2 *Alignment, q1, q2 *Query) error {
	var err error
	for i, a := range []*Alignment{a1, a2} {
		if a != nil {
			err = w.Write(a)
		} else {
			err = w.WriteUnaligned([]*Query{q1, q2}[i])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// joinInts writes "1,2,3," like UCSC formats.
func joinInts(w *bufio.Writer, vals []int) {
	for _, v := range vals {
		fmt.Fprintf(w, "%d,", v)
	}
}
