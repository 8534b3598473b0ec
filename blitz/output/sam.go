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

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
	"github.com/shenwei356/blitz/blitz/align"
	"github.com/shenwei356/blitz/blitz/target"
)

// samWriter writes SAM records with biogo/hts.
type samWriter struct {
	w       *bufio.Writer
	targets Targets

	refs []*sam.Reference
	sw   *sam.Writer

	seq, qual []byte
	cigar     []sam.CigarOp
}

func newSAMWriter(w *bufio.Writer, targets Targets) Writer {
	return &samWriter{
		w:       w,
		targets: targets,
		seq:     make([]byte, 0, 1024),
		qual:    make([]byte, 0, 1024),
		cigar:   make([]sam.CigarOp, 0, 64),
	}
}

func (s *samWriter) WriteHeader() error {
	n := s.targets.Len()
	s.refs = make([]*sam.Reference, n)
	var err error
	for i := 0; i < n; i++ {
		s.refs[i], err = sam.NewReference(s.targets.ID(i), "", "", s.targets.SeqLen(i), nil, nil)
		if err != nil {
			return errors.Wrapf(err, "sam reference: %s", s.targets.ID(i))
		}
	}
	h, err := sam.NewHeader(nil, s.refs)
	if err != nil {
		return err
	}
	s.sw, err = sam.NewWriter(s.w, h, sam.FlagDecimal)
	return err
}

// seqQual prepares SEQ and QUAL of a query on a strand.
func (s *samWriter) seqQual(q *Query, strand align.Strand) {
	s.seq = append(s.seq[:0], q.Seq...)
	s.qual = s.qual[:0]
	if len(q.Qual) == len(q.Seq) {
		for _, v := range q.Qual {
			s.qual = append(s.qual, v-33)
		}
	} else {
		for range q.Seq {
			s.qual = append(s.qual, 0xff)
		}
	}
	if strand == align.Reverse {
		target.RC(s.seq)
		for i, j := 0, len(s.qual)-1; i < j; i, j = i+1, j-1 {
			s.qual[i], s.qual[j] = s.qual[j], s.qual[i]
		}
	}
}

func (s *samWriter) cigarOf(a *Alignment) []sam.CigarOp {
	co := s.cigar[:0]
	st := &a.Stats
	if st.QStart > 0 {
		co = append(co, sam.NewCigarOp(sam.CigarSoftClipped, st.QStart))
	}
	var prev *Block
	var dq, dt int
	for i := range a.Blocks {
		b := &a.Blocks[i]
		if prev != nil {
			dq = b.QStart - (prev.QStart + prev.Len)
			dt = b.TStart - (prev.TStart + prev.Len)
			if dq > 0 {
				co = append(co, sam.NewCigarOp(sam.CigarInsertion, dq))
			}
			if dt > 0 {
				co = append(co, sam.NewCigarOp(sam.CigarDeletion, dt))
			}
		}
		co = append(co, sam.NewCigarOp(sam.CigarMatch, b.Len))
		prev = b
	}
	if tail := a.Query.Len() - st.QEnd; tail > 0 {
		co = append(co, sam.NewCigarOp(sam.CigarSoftClipped, tail))
	}
	s.cigar = co
	return co
}

func (s *samWriter) record(a *Alignment) (*sam.Record, error) {
	s.seqQual(a.Query, a.Strand)

	nm, err := sam.NewAux(sam.NewTag("NM"), int32(a.EditDistance()))
	if err != nil {
		return nil, err
	}
	as, err := sam.NewAux(sam.NewTag("AS"), int32(a.Stats.Score))
	if err != nil {
		return nil, err
	}

	var mapq byte = 60
	if a.Rank > 1 {
		mapq = 0
	} else if a.Paths > 1 {
		mapq = 3
	}

	r, err := sam.NewRecord(string(a.Query.ID), s.refs[a.TargetID], nil,
		a.Stats.TStart, -1, 0, mapq, s.cigarOf(a), s.seq, s.qual, []sam.Aux{nm, as})
	if err != nil {
		return nil, errors.Wrapf(err, "sam record of %s", a.Query.ID)
	}
	// the record keeps the slices, which are reused for the next one
	r.Cigar = append(sam.Cigar(nil), r.Cigar...)
	r.Qual = append([]byte(nil), r.Qual...)
	if a.Strand == align.Reverse {
		r.Flags |= sam.Reverse
	}
	if a.Rank > 1 {
		r.Flags |= sam.Secondary
	}
	return r, nil
}

func (s *samWriter) unmapped(q *Query) (*sam.Record, error) {
	s.seqQual(q, align.Forward)
	r, err := sam.NewRecord(string(q.ID), nil, nil, -1, -1, 0, 0, nil, s.seq, s.qual, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "sam record of %s", q.ID)
	}
	r.Qual = append([]byte(nil), r.Qual...)
	r.Flags |= sam.Unmapped
	return r, nil
}

func (s *samWriter) Write(a *Alignment) error {
	if s.sw == nil {
		return ErrHeaderNotWritten
	}
	r, err := s.record(a)
	if err != nil {
		return err
	}
	return s.sw.Write(r)
}

func (s *samWriter) WriteUnaligned(q *Query) error {
	if s.sw == nil {
		return ErrHeaderNotWritten
	}
	r, err := s.unmapped(q)
	if err != nil {
		return err
	}
	return s.sw.Write(r)
}

// WritePair writes two mates with mate fields filled. ProperPair and TLEN
// are only set for a proper pair with both mates aligned to the same target.
func (s *samWriter) WritePair(a1, a2 *Alignment, q1, q2 *Query, proper bool) error {
	if s.sw == nil {
		return ErrHeaderNotWritten
	}

	var r1, r2 *sam.Record
	var err error
	if a1 != nil {
		r1, err = s.record(a1)
	} else {
		r1, err = s.unmapped(q1)
	}
	if err != nil {
		return err
	}
	if a2 != nil {
		r2, err = s.record(a2)
	} else {
		r2, err = s.unmapped(q2)
	}
	if err != nil {
		return err
	}

	r1.Flags |= sam.Paired | sam.Read1
	r2.Flags |= sam.Paired | sam.Read2
	setMate(r1, r2)
	setMate(r2, r1)

	if proper && a1 != nil && a2 != nil && a1.TargetID == a2.TargetID {
		r1.Flags |= sam.ProperPair
		r2.Flags |= sam.ProperPair

		start, end := r1.Pos, r1.End()
		if r2.Pos < start {
			start = r2.Pos
		}
		if e := r2.End(); e > end {
			end = e
		}
		if r1.Pos <= r2.Pos {
			r1.TempLen, r2.TempLen = end-start, start-end
		} else {
			r1.TempLen, r2.TempLen = start-end, end-start
		}
	}

	if err = s.sw.Write(r1); err != nil {
		return err
	}
	return s.sw.Write(r2)
}

func setMate(r, mate *sam.Record) {
	if mate.Flags&sam.Unmapped != 0 {
		r.Flags |= sam.MateUnmapped
		if r.Flags&sam.Unmapped == 0 { // place the unmapped mate with r
			mate.Ref, mate.Pos = r.Ref, r.Pos
			r.MateRef, r.MatePos = r.Ref, r.Pos
		}
		return
	}
	r.MateRef, r.MatePos = mate.Ref, mate.Pos
	if mate.Flags&sam.Reverse != 0 {
		r.Flags |= sam.MateReverse
	}
}

func (s *samWriter) Flush() error { return s.w.Flush() }
