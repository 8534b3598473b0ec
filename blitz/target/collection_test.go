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

package target

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestTwoBit(t *testing.T) {
	seqs := []string{"A", "AC", "ACG", "ACGT", "ACGTTGCAC", "TTTTTTTTTTTTTTTTTTTTTTTTG"}
	var b2, s []byte
	for _, seq := range seqs {
		b2 = Seq2TwoBit(b2, []byte(seq))
		if len(b2) != (len(seq)+3)/4 {
			t.Errorf("unexpected packed length for %s: %d", seq, len(b2))
		}
		s = TwoBit2Seq(s, b2, 0, len(seq))
		if string(s) != seq {
			t.Errorf("expected %s, returned %s", seq, s)
		}

		if len(seq) > 2 {
			s = TwoBit2Seq(s, b2, 1, len(seq)-2)
			if string(s) != seq[1:len(seq)-1] {
				t.Errorf("expected %s, returned %s", seq[1:len(seq)-1], s)
			}
		}
	}
}

func TestRC(t *testing.T) {
	s := []byte("ACGTNacgtn")
	rc := RCTo(nil, s)
	if string(rc) != "nacgtNACGT" {
		t.Errorf("unexpected reverse complement: %s", rc)
	}
	RC(rc)
	if !bytes.Equal(rc, s) {
		t.Errorf("reverse complement twice should be identical: %s", rc)
	}
}

func TestCollection(t *testing.T) {
	c := NewCollection()

	if _, err := c.Add("empty", nil); !errors.Is(err, ErrEmptySeq) {
		t.Errorf("expected ErrEmptySeq, returned %v", err)
	}

	i, err := c.Add("chr1", []byte("ACGTNNACGTacgt"))
	if err != nil {
		t.Error(err)
		return
	}
	j, err := c.Add("chr2", []byte("GGGGCCCCA"))
	if err != nil {
		t.Error(err)
		return
	}
	if _, err = c.Add("chr1", []byte("A")); !errors.Is(err, ErrDuplicatedID) {
		t.Errorf("expected ErrDuplicatedID, returned %v", err)
	}

	if c.Len() != 2 || c.TotalBases() != 23 {
		t.Errorf("unexpected size: %d seqs, %d bases", c.Len(), c.TotalBases())
	}
	if c.Index("chr2") != j || c.Index("chr3") != -1 || c.ID(i) != "chr1" || c.SeqLen(j) != 9 {
		t.Errorf("unexpected id lookup")
	}

	if c.NumAmbiguous(i) != 2 || c.NumAmbiguous(j) != 0 {
		t.Errorf("unexpected ambiguous bases: %d, %d", c.NumAmbiguous(i), c.NumAmbiguous(j))
	}
	if c.BaseAt(i, 4) != 'N' || c.BaseAt(i, 3) != 'T' || c.BaseAt(i, 10) != 'A' {
		t.Errorf("unexpected bases")
	}
	if c.BaseAt(i, 100) != 0 || c.BaseAt(5, 0) != 0 {
		t.Errorf("out-of-range bases should be 0")
	}

	s, err := c.SubSeq(nil, i, 2, 8)
	if err != nil {
		t.Error(err)
		return
	}
	if string(s) != "GTNNACGT" {
		t.Errorf("unexpected subsequence: %s", s)
	}
	if _, err = c.SubSeq(nil, j, 5, 5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, returned %v", err)
	}
}
