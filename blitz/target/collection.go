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

// Package target stores target sequences in 2-bit packed form.
package target

import (
	"github.com/pkg/errors"
	"github.com/willf/bitset"
)

// ErrEmptySeq means the sequence is empty.
var ErrEmptySeq = errors.New("target: empty seq")

// ErrOutOfRange means the position or the target index is out of range.
var ErrOutOfRange = errors.New("target: out of range")

// ErrDuplicatedID means a target ID is added twice.
var ErrDuplicatedID = errors.New("target: duplicated sequence id")

// Collection is an in-memory collection of target sequences.
// It is read-only and safe for concurrent use once loading is finished.
type Collection struct {
	ids   []string
	idx   map[string]int
	lens  []int
	seqs  [][]byte         // 2-bit packed
	ambig []*bitset.BitSet // positions of non-ACGT bases, nil if none

	total int
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		ids:   make([]string, 0, 1024),
		idx:   make(map[string]int, 1024),
		lens:  make([]int, 0, 1024),
		seqs:  make([][]byte, 0, 1024),
		ambig: make([]*bitset.BitSet, 0, 1024),
	}
}

// Add appends a sequence and returns its index.
func (c *Collection) Add(id string, s []byte) (int, error) {
	if len(s) == 0 {
		return -1, ErrEmptySeq
	}
	if _, ok := c.idx[id]; ok {
		return -1, errors.Wrap(ErrDuplicatedID, id)
	}

	var mask *bitset.BitSet
	for i, b := range s {
		if IsACGT(b) {
			continue
		}
		if mask == nil {
			mask = bitset.New(uint(len(s)))
		}
		mask.Set(uint(i))
	}

	i := len(c.ids)
	c.ids = append(c.ids, id)
	c.idx[id] = i
	c.lens = append(c.lens, len(s))
	c.seqs = append(c.seqs, Seq2TwoBit(make([]byte, 0, (len(s)+3)>>2), s))
	c.ambig = append(c.ambig, mask)
	c.total += len(s)
	return i, nil
}

// Len returns the number of sequences.
func (c *Collection) Len() int { return len(c.ids) }

// TotalBases returns the sum of sequence lengths.
func (c *Collection) TotalBases() int { return c.total }

// ID returns the ID of the i-th sequence.
func (c *Collection) ID(i int) string { return c.ids[i] }

// SeqLen returns the length of the i-th sequence.
func (c *Collection) SeqLen(i int) int { return c.lens[i] }

// Index returns the index of a sequence ID, or -1.
func (c *Collection) Index(id string) int {
	if i, ok := c.idx[id]; ok {
		return i
	}
	return -1
}

// Ambiguous tells if the base at pos of the i-th sequence is not A/C/G/T.
func (c *Collection) Ambiguous(i, pos int) bool {
	m := c.ambig[i]
	return m != nil && m.Test(uint(pos))
}

// NumAmbiguous returns the number of non-ACGT bases in the i-th sequence.
func (c *Collection) NumAmbiguous(i int) int {
	if m := c.ambig[i]; m != nil {
		return int(m.Count())
	}
	return 0
}

// BaseAt returns the base at pos of the i-th sequence, ambiguous bases
// are returned as 'N'. It returns 0 for an out-of-range position.
func (c *Collection) BaseAt(i, pos int) byte {
	if i < 0 || i >= len(c.ids) || pos < 0 || pos >= c.lens[i] {
		return 0
	}
	if c.Ambiguous(i, pos) {
		return 'N'
	}
	return bit2base[c.seqs[i][pos>>2]>>(6-((pos&3)<<1))&3]
}

// Code returns the 2-bit code at pos of the i-th sequence.
// Callers check Ambiguous themselves.
func (c *Collection) Code(i, pos int) uint8 {
	return c.seqs[i][pos>>2] >> (6 - ((pos & 3) << 1)) & 3
}

// SubSeq appends bases [start, start+length) of the i-th sequence to dst.
func (c *Collection) SubSeq(dst []byte, i, start, length int) ([]byte, error) {
	if i < 0 || i >= len(c.ids) || start < 0 || length < 0 || start+length > c.lens[i] {
		return dst[:0], ErrOutOfRange
	}
	dst = TwoBit2Seq(dst, c.seqs[i], start, length)
	if m := c.ambig[i]; m != nil {
		for j := range dst {
			if m.Test(uint(start + j)) {
				dst[j] = 'N'
			}
		}
	}
	return dst, nil
}
