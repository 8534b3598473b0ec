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

import (
	"bytes"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/shenwei356/blitz/blitz/target"
)

type testTargets [][]byte

func (s testTargets) BaseAt(i, pos int) byte {
	if i < 0 || i >= len(s) || pos < 0 || pos >= len(s[i]) {
		return 0
	}
	return s[i][pos]
}

const q20 = "GATTACAGATTACAGATTAC"

// two nodes: t100-119 vs q0-19, and t121-140 vs q20-39
func twoNodesWithTargetGap(strand Strand) *Nodes {
	ns := NewNodes(0)
	ns.Add(0, 100, 0, 20, 0, strand)
	ns.Add(0, 121, 20, 20, 0, strand)
	ns.Sort()
	ns.Nodes[0].Next = 2
	return ns
}

func TestConsolidateGapMatched(t *testing.T) {
	query := []byte(q20 + strings.Repeat("A", 20))
	tgt := testTargets{[]byte(strings.Repeat("C", 100) + q20 + strings.Repeat("A", 21) + "CCCCCCCCCC")}

	ns := twoNodesWithTargetGap(Forward)
	c := NewConsolidator()
	n := c.Consolidate(ns, 0, query, tgt)
	if n != 1 {
		t.Errorf("expected 1 node, returned %d", n)
		return
	}
	a := ns.Nodes[0]
	if a.Len != 40 || a.Mismatches != 0 || a.Next != 0 {
		t.Errorf("unexpected merged node: %s", a)
	}

	s := Characterise(ns, 0)
	if s.NumNodes != 1 || s.QEnd != 40 || s.TEnd != 140 || s.TNumInsert != 0 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestConsolidateGapMismatched(t *testing.T) {
	query := []byte(q20 + "C" + strings.Repeat("A", 19))
	tgt := testTargets{[]byte(strings.Repeat("C", 100) + q20 + "G" + "C" + strings.Repeat("A", 19) + "CCCCCCCCCC")}

	ns := twoNodesWithTargetGap(Forward)
	c := NewConsolidator()
	n := c.Consolidate(ns, 0, query, tgt)
	if n != 2 {
		t.Errorf("expected 2 nodes, returned %d", n)
		return
	}
	a, b := ns.Nodes[0], ns.Nodes[1]
	if a.Len != 21 || a.Mismatches != 1 || b.Len != 19 || b.Mismatches != 0 {
		t.Errorf("unexpected nodes: %s, %s", a, b)
	}
	if a.Len+b.Len != 40 || a.Mismatches+b.Mismatches != 1 {
		t.Errorf("unexpected nodes: %s, %s", a, b)
	}
	if b.QStart != a.QEnd() || b.QStart != 21 || b.TStart != 122 {
		t.Errorf("the nodes should be adjacent in the query: %s, %s", a, b)
	}

	s := Characterise(ns, 0)
	if s.NumNodes != 2 || s.TNumInsert != 1 || s.TBaseInsert != 1 || s.QNumInsert != 0 || s.Mismatches != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}

	snapshot := append([]MatchNode(nil), ns.Nodes...)
	c.Consolidate(ns, 0, query, tgt)
	if !reflect.DeepEqual(snapshot, ns.Nodes) {
		t.Errorf("consolidating twice changes the nodes: %s, %s", ns.Nodes[0], ns.Nodes[1])
	}
}

func TestConsolidateQueryGapMismatched(t *testing.T) {
	query := []byte(q20 + "G" + "C" + strings.Repeat("A", 19))
	tgt := testTargets{[]byte(strings.Repeat("C", 100) + q20 + "C" + strings.Repeat("A", 19) + "CCCCCCCCCC")}

	ns := NewNodes(0)
	ns.Add(0, 100, 0, 20, 0, Forward)
	ns.Add(0, 120, 21, 20, 0, Forward)
	ns.Sort()
	ns.Nodes[0].Next = 2

	c := NewConsolidator()
	if n := c.Consolidate(ns, 0, query, tgt); n != 2 {
		t.Errorf("expected 2 nodes, returned %d", n)
		return
	}
	a, b := ns.Nodes[0], ns.Nodes[1]
	if a.Len != 21 || a.Mismatches != 1 || b.Len != 19 || b.Mismatches != 0 {
		t.Errorf("unexpected nodes: %s, %s", a, b)
	}
	if b.TStart != a.TEnd() || b.QStart != a.QEnd()+1 {
		t.Errorf("the nodes should be adjacent in the target: %s, %s", a, b)
	}
}

func TestConsolidateMismatchedEndKept(t *testing.T) {
	// the first node already ends with a mismatch
	query := []byte(q20 + "T" + strings.Repeat("A", 19))
	tgt := testTargets{[]byte(strings.Repeat("C", 100) + q20[:19] + "G" + "C" + "T" + strings.Repeat("A", 19) + "CCCCCCCCCC")}

	ns := NewNodes(0)
	ns.Add(0, 100, 0, 20, 1, Forward)
	ns.Add(0, 121, 20, 20, 0, Forward)
	ns.Sort()
	ns.Nodes[0].Next = 2

	c := NewConsolidator()
	if n := c.Consolidate(ns, 0, query, tgt); n != 2 {
		t.Errorf("expected 2 nodes, returned %d", n)
		return
	}
	a, b := ns.Nodes[0], ns.Nodes[1]
	if a.Len != 20 || a.Mismatches != 1 || b.Len != 20 || b.Mismatches != 0 || b.TStart != 121 || b.QStart != 20 {
		t.Errorf("unexpected nodes: %s, %s", a, b)
	}
}

func TestConsolidateBothGaps(t *testing.T) {
	query := []byte(q20 + "G" + strings.Repeat("A", 19))
	tgt := testTargets{[]byte(strings.Repeat("C", 100) + q20 + "T" + strings.Repeat("A", 19) + "CCCCCCCCCC")}

	ns := NewNodes(0)
	ns.Add(0, 100, 0, 20, 0, Forward)
	ns.Add(0, 121, 21, 19, 0, Forward)
	ns.Sort()
	ns.Nodes[0].Next = 2

	c := NewConsolidator()
	if n := c.Consolidate(ns, 0, query, tgt); n != 1 {
		t.Errorf("expected 1 node, returned %d", n)
		return
	}
	if a := ns.Nodes[0]; a.Len != 40 || a.Mismatches != 1 {
		t.Errorf("unexpected node: %s", a)
	}
}

func TestConsolidateOverlap(t *testing.T) {
	query := []byte(q20 + q20)
	tgt := testTargets{[]byte(strings.Repeat("C", 100) + q20 + q20 + "CCCCCCCCCC")}

	ns := NewNodes(0)
	ns.Add(0, 100, 0, 20, 0, Forward)
	ns.Add(0, 115, 15, 25, 0, Forward)
	ns.Sort()
	ns.Nodes[0].Next = 2

	c := NewConsolidator()
	if n := c.Consolidate(ns, 0, query, tgt); n != 1 {
		t.Errorf("expected 1 node, returned %d", n)
		return
	}
	if a := ns.Nodes[0]; a.Len != 40 || a.Mismatches != 0 {
		t.Errorf("unexpected node: %s", a)
	}
}

func TestConsolidateReverseStrand(t *testing.T) {
	rc := []byte(q20 + strings.Repeat("A", 20))
	query := target.RCTo(nil, rc)
	original := append([]byte(nil), query...)
	tgt := testTargets{[]byte(strings.Repeat("C", 100) + q20 + strings.Repeat("A", 21) + "CCCCCCCCCC")}

	ns := twoNodesWithTargetGap(Reverse)
	c := NewConsolidator()
	if n := c.Consolidate(ns, 0, query, tgt); n != 1 {
		t.Errorf("expected 1 node, returned %d", n)
	}
	if !bytes.Equal(query, original) {
		t.Errorf("the query should not be modified")
	}
}

func TestConsolidateIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	opt := DefaultScoringOptions
	opt.MinQueryCoverage = 10
	qlen := 300
	bases := []byte("ACGT")

	randSeq := func(n int) []byte {
		s := make([]byte, n)
		for i := range s {
			s[i] = bases[r.Intn(4)]
		}
		return s
	}

	sel := NewSelector(&opt)
	c := NewConsolidator()
	var heads, path []int
	for round := 0; round < 30; round++ {
		query := randSeq(qlen)
		tgt := testTargets{randSeq(2000), randSeq(2000)}
		// make the targets similar to the query around the diagonals
		for _, s := range tgt {
			copy(s[1000:], query)
			for i := 0; i < 15; i++ {
				s[1000+r.Intn(qlen)] = bases[r.Intn(4)]
			}
		}

		ns := randomNodes(r, qlen, 80)
		heads = sel.Select(ns, qlen, 3, heads)
		for _, h := range heads {
			c.Consolidate(ns, h, query, tgt)
			snapshot := append([]MatchNode(nil), ns.Nodes...)

			c.Consolidate(ns, h, query, tgt)
			if !reflect.DeepEqual(snapshot, ns.Nodes) {
				t.Errorf("round %d: consolidating twice changes the path of head %d", round, h)
			}

			var ok bool
			path, ok = ns.Path(h, path)
			if !ok {
				t.Errorf("round %d: invalid path", round)
				continue
			}
			var a, b *MatchNode
			for k := 1; k < len(path); k++ {
				a, b = &ns.Nodes[path[k-1]], &ns.Nodes[path[k]]
				if b.QStart < a.QEnd() {
					t.Errorf("round %d: overlapped nodes: %s, %s", round, a, b)
				}
				if b.Len <= 0 {
					t.Errorf("round %d: empty node: %s", round, b)
				}
			}
			if s := Characterise(ns, h); s.NumNodes != len(path) {
				t.Errorf("round %d: path of head %d can not be characterised", round, h)
			}
		}
	}
}
