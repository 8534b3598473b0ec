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

package align

import "testing"

func TestReconcilePairs(t *testing.T) {
	opt := DefaultPairingOptions

	tests := []struct {
		name   string
		c1, c2 []Candidate
		ok     bool
		i, j   int
	}{
		{
			name: "same target and opposite strands",
			c1: []Candidate{
				{TargetID: 0, TStart: 1000, Strand: Forward, Score: 90, MaxScore: 100},
				{TargetID: 1, TStart: 500, Strand: Forward, Score: 95, MaxScore: 100},
			},
			c2: []Candidate{
				{TargetID: 0, TStart: 1200, Strand: Reverse, Score: 80, MaxScore: 100},
				{TargetID: 1, TStart: 5000, Strand: Reverse, Score: 100, MaxScore: 100},
			},
			ok: true, i: 0, j: 0,
		},
		{
			name: "smaller distance in a tie",
			c1: []Candidate{
				{TargetID: 0, TStart: 1000, Strand: Forward, Score: 50, MaxScore: 100},
			},
			c2: []Candidate{
				{TargetID: 0, TStart: 1300, Strand: Reverse, Score: 50, MaxScore: 100},
				{TargetID: 0, TStart: 1100, Strand: Reverse, Score: 50, MaxScore: 100},
			},
			ok: true, i: 0, j: 1,
		},
		{
			name: "normalized scores",
			c1: []Candidate{
				{TargetID: 0, TStart: 1000, Strand: Reverse, Score: 50, MaxScore: 100},
			},
			c2: []Candidate{
				{TargetID: 0, TStart: 1100, Strand: Forward, Score: 150, MaxScore: 200},
				{TargetID: 0, TStart: 1500, Strand: Forward, Score: 80, MaxScore: 100},
			},
			ok: true, i: 0, j: 1,
		},
		{
			name: "same strand",
			c1: []Candidate{
				{TargetID: 0, TStart: 1000, Strand: Forward, Score: 50, MaxScore: 100},
			},
			c2: []Candidate{
				{TargetID: 0, TStart: 1100, Strand: Forward, Score: 50, MaxScore: 100},
			},
		},
		{
			name: "within the tolerance",
			c1: []Candidate{
				{TargetID: 0, TStart: 1000, Strand: Forward, Score: 50, MaxScore: 100},
			},
			c2: []Candidate{
				{TargetID: 0, TStart: 2011, Strand: Reverse, Score: 100, MaxScore: 100},
				{TargetID: 0, TStart: 2010, Strand: Reverse, Score: 10, MaxScore: 100},
			},
			ok: true, i: 0, j: 1,
		},
		{
			name: "one mate unaligned",
			c1: []Candidate{
				{TargetID: 0, TStart: 1000, Strand: Forward, Score: 50, MaxScore: 100},
			},
		},
	}

	for _, test := range tests {
		p, ok := ReconcilePairs(test.c1, test.c2, &opt)
		if ok != test.ok {
			t.Errorf("%s: expected %v, returned %v", test.name, test.ok, ok)
			continue
		}
		if ok && (p.I != test.i || p.J != test.j) {
			t.Errorf("%s: expected pair (%d, %d), returned (%d, %d)", test.name, test.i, test.j, p.I, p.J)
		}
	}
}

func TestNewCandidate(t *testing.T) {
	ns := NewNodes(0)
	ns.Add(3, 100, 0, 20, 0, Reverse)
	ns.Sort()
	ns.Nodes[0].Score = 20

	c := NewCandidate(ns, 0, 50)
	if c.TargetID != 3 || c.TStart != 100 || c.Strand != Reverse || c.Score != 20 || c.MaxScore != 50 {
		t.Errorf("unexpected candidate: %+v", c)
	}
}
