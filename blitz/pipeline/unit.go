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

package pipeline

import "sync"

// QueryUnit is one work item, a query or a pair of mates.
type QueryUnit struct {
	ID   []byte
	Seq  []byte
	Qual []byte

	Paired bool
	ID2    []byte
	Seq2   []byte
	Qual2  []byte
}

// Reset clears the data for the next round of using.
func (u *QueryUnit) Reset() {
	u.ID = u.ID[:0]
	u.Seq = u.Seq[:0]
	u.Qual = u.Qual[:0]
	u.Paired = false
	u.ID2 = u.ID2[:0]
	u.Seq2 = u.Seq2[:0]
	u.Qual2 = u.Qual2[:0]
}

var poolQueryUnit = &sync.Pool{New: func() interface{} {
	return &QueryUnit{
		ID:   make([]byte, 0, 128),
		Seq:  make([]byte, 0, 1<<10),
		Qual: make([]byte, 0, 1<<10),
	}
}}

// GetQueryUnit returns an empty QueryUnit from the object pool.
func GetQueryUnit() *QueryUnit {
	u := poolQueryUnit.Get().(*QueryUnit)
	u.Reset()
	return u
}

// RecycleQueryUnit returns a QueryUnit to the object pool.
func RecycleQueryUnit(u *QueryUnit) {
	poolQueryUnit.Put(u)
}
