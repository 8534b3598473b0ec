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
	"fmt"

	"github.com/twotwotwo/sorts"
)

// Strand is the orientation of a query relative to the target.
type Strand uint8

const (
	// Forward means the query matches the positive strand of the target.
	Forward Strand = iota
	// Reverse means the reverse complement of the query matches the target.
	Reverse
)

// Byte returns '+' or '-'.
func (s Strand) Byte() byte {
	if s == Reverse {
		return '-'
	}
	return '+'
}

func (s Strand) String() string {
	return string(s.Byte())
}

// StrandMode restricts the strands searched for a query.
type StrandMode uint8

const (
	BothStrands StrandMode = iota
	ForwardOnly
	ReverseOnly
)

// ParseStrandMode parses "both", "+"/"forward" or "-"/"reverse".
func ParseStrandMode(s string) (StrandMode, error) {
	switch s {
	case "both", "either", "*", "":
		return BothStrands, nil
	case "+", "forward", "fwd":
		return ForwardOnly, nil
	case "-", "reverse", "rev":
		return ReverseOnly, nil
	}
	return BothStrands, fmt.Errorf("invalid strand: %s, available: both, forward, reverse", s)
}

// Has tells if the strand is allowed.
func (m StrandMode) Has(s Strand) bool {
	switch m {
	case ForwardOnly:
		return s == Forward
	case ReverseOnly:
		return s == Reverse
	}
	return true
}

// MatchNode is a candidate matching segment between a query and a target.
// Query offsets of a reverse-strand node are positions in the reverse
// complement of the query.
type MatchNode struct {
	TargetID   int
	TStart     int // 0-based
	QStart     int // 0-based
	Len        int
	Mismatches int
	Strand     Strand

	Consumed bool // claimed by a reported path
	Scored   bool // Score and Next are valid
	Head     bool // first node of a reported path
	Score    int  // best score of any path starting here
	Next     int  // successor index + 1, 0 for none

	rejected bool // failed the coverage check in the current selection
	part     int  // partition index
}

// QEnd returns the exclusive end of the node in the query.
func (n *MatchNode) QEnd() int { return n.QStart + n.Len }

// TEnd returns the exclusive end of the node in the target.
func (n *MatchNode) TEnd() int { return n.TStart + n.Len }

// Diagonal returns TStart - QStart.
func (n *MatchNode) Diagonal() int { return n.TStart - n.QStart }

func (n MatchNode) String() string {
	return fmt.Sprintf("t%d:%d-%d vs q%d-%d len:%d, mismatches:%d, strand:%c, score:%d, next:%d",
		n.TargetID, n.TStart+1, n.TStart+n.Len, n.QStart+1, n.QStart+n.Len,
		n.Len, n.Mismatches, n.Strand.Byte(), n.Score, n.Next)
}

// Partition is a half-open range of nodes sharing a target and a strand.
type Partition struct {
	Start, End int
}

// Nodes is the node store of one query (or one mate). It is owned by a
// single worker and reused across queries.
type Nodes struct {
	Nodes []MatchNode
	parts []Partition
}

// NewNodes creates a node store with the given initial capacity.
func NewNodes(capacity int) *Nodes {
	if capacity < 16 {
		capacity = 16
	}
	return &Nodes{
		Nodes: make([]MatchNode, 0, capacity),
		parts: make([]Partition, 0, 8),
	}
}

// Reset empties the store but keeps the allocated memory.
func (ns *Nodes) Reset() {
	ns.Nodes = ns.Nodes[:0]
	ns.parts = ns.parts[:0]
}

// Len returns the number of nodes.
func (ns *Nodes) Len() int { return len(ns.Nodes) }

// Add appends a node with cleared scoring fields.
func (ns *Nodes) Add(targetID, tStart, qStart, length, mismatches int, strand Strand) {
	ns.Nodes = append(ns.Nodes, MatchNode{
		TargetID:   targetID,
		TStart:     tStart,
		QStart:     qStart,
		Len:        length,
		Mismatches: mismatches,
		Strand:     strand,
	})
}

// Sort orders nodes by (target, strand, query start, target start)
// and computes partitions. It must be called before scoring.
func (ns *Nodes) Sort() {
	sorts.Quicksort(byPosition(ns.Nodes))

	ns.parts = ns.parts[:0]
	var start int
	nodes := ns.Nodes
	for i := range nodes {
		if i > 0 && (nodes[i].TargetID != nodes[i-1].TargetID || nodes[i].Strand != nodes[i-1].Strand) {
			ns.parts = append(ns.parts, Partition{Start: start, End: i})
			start = i
		}
		nodes[i].part = len(ns.parts)
	}
	if len(nodes) > 0 {
		ns.parts = append(ns.parts, Partition{Start: start, End: len(nodes)})
	}
}

// Partitions returns the partitions computed by Sort.
func (ns *Nodes) Partitions() []Partition { return ns.parts }

// PartitionOf returns the partition of the i-th node.
func (ns *Nodes) PartitionOf(i int) Partition {
	return ns.parts[ns.Nodes[i].part]
}

// ResetScores clears transient scoring fields of unconsumed nodes.
func (ns *Nodes) ResetScores() {
	var n *MatchNode
	for i := range ns.Nodes {
		n = &ns.Nodes[i]
		if n.Consumed {
			continue
		}
		n.Scored = false
		n.Score = 0
		n.Next = 0
		n.Head = false
	}
}

// Path appends the node indices of the path starting at head to dst.
// ok is false if the chain leaves the head's partition or loops.
func (ns *Nodes) Path(head int, dst []int) (path []int, ok bool) {
	path = dst[:0]
	if head < 0 || head >= len(ns.Nodes) {
		return path, false
	}
	p := ns.PartitionOf(head)
	i := head
	for {
		path = append(path, i)
		next := ns.Nodes[i].Next
		if next == 0 {
			return path, true
		}
		next--
		if next <= i || next >= p.End {
			internalError("successor %d of node %d is outside partition [%d, %d)", next, i, p.Start, p.End)
			return path, false
		}
		i = next
	}
}

type byPosition []MatchNode

func (s byPosition) Len() int      { return len(s) }
func (s byPosition) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byPosition) Less(i, j int) bool {
	a, b := &s[i], &s[j]
	if a.TargetID != b.TargetID {
		return a.TargetID < b.TargetID
	}
	if a.Strand != b.Strand {
		return a.Strand < b.Strand
	}
	if a.QStart != b.QStart {
		return a.QStart < b.QStart
	}
	return a.TStart < b.TStart
}
