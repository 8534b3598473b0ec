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

import (
	"fmt"

	"github.com/shenwei356/blitz/blitz/align"
	"github.com/shenwei356/blitz/blitz/output"
	"github.com/shenwei356/blitz/blitz/region"
	"github.com/shenwei356/blitz/blitz/seed"
	"github.com/shenwei356/blitz/blitz/target"
)

// WorkerOptions contains the options of query processing.
type WorkerOptions struct {
	Scoring align.ScoringOptions
	Pairing align.PairingOptions

	Strand  align.StrandMode
	MaxIter int // maximum seed occurrences explored per query, 0 for no limit

	MinQueryLen int // shorter queries are reported as unaligned, 0 for k
	MaxQueryLen int // longer queries are reported as unaligned, 0 for no limit
}

// DefaultWorkerOptions is the default value of WorkerOptions.
var DefaultWorkerOptions = WorkerOptions{
	Scoring: align.DefaultScoringOptions,
	Pairing: align.DefaultPairingOptions,

	Strand:  align.BothStrands,
	MaxIter: 10000,
}

// CheckWorkerOptions checks the options.
func CheckWorkerOptions(opt *WorkerOptions) error {
	if err := align.CheckScoringOptions(&opt.Scoring); err != nil {
		return err
	}
	if err := align.CheckPairingOptions(&opt.Pairing); err != nil {
		return err
	}
	if opt.MaxIter < 0 {
		return fmt.Errorf("invalid max iterations: %d, should be >= 0", opt.MaxIter)
	}
	if opt.MinQueryLen < 0 || opt.MaxQueryLen < 0 ||
		(opt.MaxQueryLen > 0 && opt.MaxQueryLen < opt.MinQueryLen) {
		return fmt.Errorf("invalid query length range: [%d, %d]", opt.MinQueryLen, opt.MaxQueryLen)
	}
	return nil
}

// Processor processes work items dequeued by a worker goroutine.
type Processor interface {
	Process(pc *Context, u *QueryUnit) error
}

// mate holds the per-mate buffers of a worker.
type mate struct {
	q      output.Query
	nodes  *align.Nodes
	heads  []int
	cands  []align.Candidate
	hasAny bool // any nodes found
}

// Worker aligns queries. All buffers are owned by the worker, one worker
// per goroutine.
type Worker struct {
	opt     *WorkerOptions
	targets *target.Collection
	regions *region.Filter

	locator *seed.Locator
	sel     *align.Selector
	cons    *align.Consolidator
	ch      *align.Characteriser

	minQueryLen int

	m1, m2 mate
	alns   []*output.Alignment
}

// NewWorker creates a worker on a k-mer index. regions can be nil.
func NewWorker(idx *seed.Index, regions *region.Filter, opt *WorkerOptions) *Worker {
	w := &Worker{
		opt:     opt,
		targets: idx.Targets(),
		regions: regions,
		locator: seed.NewLocator(idx),
		sel:     align.NewSelector(&opt.Scoring),
		cons:    align.NewConsolidator(),
		ch:      align.NewCharacteriser(),
		alns:    make([]*output.Alignment, 0, 8),
	}
	w.minQueryLen = opt.MinQueryLen
	if w.minQueryLen == 0 {
		w.minQueryLen = idx.K()
	}
	for _, m := range []*mate{&w.m1, &w.m2} {
		m.nodes = align.NewNodes(1024)
		m.heads = make([]int, 0, 8)
		m.cands = make([]align.Candidate, 0, 8)
	}
	return w
}

// Process aligns a query or a pair of mates and writes the results.
func (w *Worker) Process(pc *Context, u *QueryUnit) error {
	if u.Paired {
		return w.processPair(pc, u)
	}
	return w.process(pc, u)
}

// seedAndSelect finds nodes of a mate and selects up to maxPaths paths.
func (w *Worker) seedAndSelect(pc *Context, m *mate, maxPaths int) {
	m.nodes.Reset()
	m.heads = m.heads[:0]
	m.hasAny = false

	qlen := m.q.Len()
	if qlen < w.minQueryLen || (w.opt.MaxQueryLen > 0 && qlen > w.opt.MaxQueryLen) {
		pc.Skipped.Add(1)
		return
	}

	if w.locator.Locate(m.q.Seq, w.opt.Strand, w.opt.MaxIter, m.nodes) {
		pc.Truncated.Add(1)
	}
	if m.nodes.Len() == 0 {
		return
	}
	m.hasAny = true

	m.nodes.Sort()
	m.heads = w.sel.Select(m.nodes, qlen, maxPaths, m.heads)
}

// finish consolidates and characterises the path of a head. It returns
// nil if the path can not be characterised or is in an excluded region.
func (w *Worker) finish(pc *Context, m *mate, head, rank, paths int) *output.Alignment {
	w.cons.Consolidate(m.nodes, head, m.q.Seq, w.targets)
	stats := w.ch.Characterise(m.nodes, head)
	if stats.NumNodes == 0 {
		return nil
	}
	n := &m.nodes.Nodes[head]
	if _, ok := w.regions.Excluded(n.TargetID, stats.TStart, stats.TEnd); ok {
		pc.Excluded.Add(1)
		return nil
	}
	return output.NewAlignment(&m.q, w.targets, m.nodes, w.ch.Path(), stats, rank, paths)
}

func (w *Worker) process(pc *Context, u *QueryUnit) error {
	m := &w.m1
	m.q = output.Query{ID: u.ID, Seq: u.Seq, Qual: u.Qual}

	w.seedAndSelect(pc, m, w.opt.Scoring.MaxPaths)

	w.alns = w.alns[:0]
	var a *output.Alignment
	for _, h := range m.heads {
		if a = w.finish(pc, m, h, len(w.alns)+1, len(m.heads)); a != nil {
			w.alns = append(w.alns, a)
		}
	}
	for _, a = range w.alns {
		a.Paths = len(w.alns)
	}

	pc.Processed.Add(1)
	if len(w.alns) == 0 {
		pc.Unaligned.Add(1)
	} else {
		pc.Aligned.Add(1)
		pc.Paths.Add(int64(len(w.alns)))
	}

	return pc.Output(func(out output.Writer) error {
		if len(w.alns) == 0 {
			return out.WriteUnaligned(&m.q)
		}
		for _, a := range w.alns {
			if err := out.Write(a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *Worker) processPair(pc *Context, u *QueryUnit) error {
	m1, m2 := &w.m1, &w.m2
	m1.q = output.Query{ID: u.ID, Seq: u.Seq, Qual: u.Qual}
	m2.q = output.Query{ID: u.ID2, Seq: u.Seq2, Qual: u.Qual2}

	// one more candidate than reported for better pairing
	maxPaths := w.opt.Scoring.MaxPaths + 1
	for _, m := range []*mate{m1, m2} {
		w.seedAndSelect(pc, m, maxPaths)
		m.cands = m.cands[:0]
		maxScore := w.opt.Scoring.MaxScore(m.q.Len())
		for _, h := range m.heads {
			m.cands = append(m.cands, align.NewCandidate(m.nodes, h, maxScore))
		}
	}

	pc.Pairs.Add(1)
	pc.Processed.Add(2)

	var a1, a2 *output.Alignment
	var proper bool
	if m1.hasAny || m2.hasAny {
		p, ok := align.ReconcilePairs(m1.cands, m2.cands, &w.opt.Pairing)
		if ok {
			a1 = w.finish(pc, m1, m1.cands[p.I].Head, 1, 1)
			a2 = w.finish(pc, m2, m2.cands[p.J].Head, 1, 1)
			if a1 != nil && a2 != nil {
				proper = true
				pc.ProperPairs.Add(1)
				pc.AddInsertSize(insertSize(a1, a2))
			}
		} else {
			if len(m1.heads) > 0 {
				a1 = w.finish(pc, m1, m1.heads[0], 1, len(m1.heads))
			}
			if len(m2.heads) > 0 {
				a2 = w.finish(pc, m2, m2.heads[0], 1, len(m2.heads))
			}
		}
	}

	for _, a := range []*output.Alignment{a1, a2} {
		if a == nil {
			pc.Unaligned.Add(1)
		} else {
			pc.Aligned.Add(1)
			pc.Paths.Add(1)
		}
	}

	return pc.Output(func(out output.Writer) error {
		return out.WritePair(a1, a2, &m1.q, &m2.q, proper)
	})
}

// insertSize returns the span of two mates on the target.
func insertSize(a1, a2 *output.Alignment) int {
	start, end := a1.Stats.TStart, a1.Stats.TEnd
	if a2.Stats.TStart < start {
		start = a2.Stats.TStart
	}
	if a2.Stats.TEnd > end {
		end = a2.Stats.TEnd
	}
	return end - start
}
