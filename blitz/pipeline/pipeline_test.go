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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestQueueBounded(t *testing.T) {
	q := NewQueue[int](2, nil)

	var pushed atomic.Int64
	go func() {
		for i := 1; i <= 4; i++ {
			if err := q.Push(i); err != nil {
				t.Errorf("push: %s", err)
				return
			}
			pushed.Add(1)
		}
		q.Close()
	}()

	time.Sleep(30 * time.Millisecond)
	if n := pushed.Load(); n != 2 {
		t.Errorf("the producer should block on a full queue, %d items pushed", n)
	}

	expected := 1
	for {
		if n := q.Len(); n > 2 {
			t.Errorf("%d items resident in a queue of capacity 2", n)
		}
		v, ok := q.Pop()
		if !ok {
			break
		}
		if v != expected {
			t.Errorf("expected %d, returned %d", expected, v)
		}
		expected++
		time.Sleep(5 * time.Millisecond)
	}
	if expected != 5 {
		t.Errorf("expected 4 items, returned %d", expected-1)
	}
	if q.Peak() > 2 || q.Peak() < 1 {
		t.Errorf("unexpected peak occupancy: %d", q.Peak())
	}
	if err := q.Push(5); err != ErrQueueClosed {
		t.Errorf("expected ErrQueueClosed, returned %v", err)
	}
}

func TestQueueTerminate(t *testing.T) {
	var terminate atomic.Bool
	full := NewQueue[int](2, &terminate)
	full.Push(1)
	full.Push(2)
	empty := NewQueue[int](2, &terminate)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := full.Push(3); err != ErrTerminated {
				t.Errorf("expected ErrTerminated, returned %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, ok := empty.Pop(); ok {
				t.Errorf("nothing should be popped")
			}
		}()
	}

	time.Sleep(40 * time.Millisecond)
	terminated := time.Now()
	terminate.Store(true)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("blocked calls did not return after termination")
	}
	if d := time.Since(terminated); d > MaxBackoff+100*time.Millisecond {
		t.Errorf("blocked calls returned %s after termination", d)
	}
	if full.Len() != 2 {
		t.Errorf("unexpected resident items: %d", full.Len())
	}
}

type countingProcessor struct {
	n   atomic.Int64
	err error
}

func (p *countingProcessor) Process(pc *Context, u *QueryUnit) error {
	p.n.Add(1)
	time.Sleep(time.Millisecond)
	return p.err
}

func newTestContext(t *testing.T, workers, size int) *Context {
	opt := DefaultOptions
	opt.NumWorkers = workers
	opt.QueueSize = size
	opt.ProgressInterval = 5 * time.Millisecond
	pc, err := NewContext(&opt, nil)
	if err != nil {
		t.Fatal(err)
	}
	return pc
}

func TestRun(t *testing.T) {
	pc := newTestContext(t, 4, 2)
	p := &countingProcessor{}

	load := func(pc *Context) error {
		for i := 0; i < 100; i++ {
			u := GetQueryUnit()
			u.ID = append(u.ID, 'q')
			if err := pc.Queue.Push(u); err != nil {
				return err
			}
		}
		return nil
	}

	var reports atomic.Int64
	err := Run(pc, load, []Processor{p, p, p, p}, func(pc *Context) { reports.Add(1) })
	if err != nil {
		t.Error(err)
	}
	if p.n.Load() != 100 {
		t.Errorf("expected 100 processed items, returned %d", p.n.Load())
	}
	if pc.Queue.Peak() > 2 {
		t.Errorf("unexpected peak occupancy: %d", pc.Queue.Peak())
	}
	if reports.Load() < 1 {
		t.Errorf("progress should be reported at least once")
	}
}

func TestRunError(t *testing.T) {
	pc := newTestContext(t, 2, 2)
	failure := errors.New("bad query")
	p := &countingProcessor{err: failure}

	load := func(pc *Context) error {
		for i := 0; i < 100; i++ {
			if err := pc.Queue.Push(GetQueryUnit()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := Run(pc, load, []Processor{p, p}, nil); err != failure {
		t.Errorf("expected %v, returned %v", failure, err)
	}
	if n := p.n.Load(); n > 2 {
		t.Errorf("workers should stop after an error, %d items processed", n)
	}

	// errors of the loader
	pc = newTestContext(t, 2, 2)
	load = func(pc *Context) error { return failure }
	if err := Run(pc, load, []Processor{&countingProcessor{}}, nil); errors.Cause(err) != failure {
		t.Errorf("expected %v, returned %v", failure, err)
	}
}

func TestRunTerminate(t *testing.T) {
	pc := newTestContext(t, 4, 2)
	p := &countingProcessor{}

	load := func(pc *Context) error {
		if err := pc.Queue.Push(GetQueryUnit()); err != nil {
			return err
		}
		for !pc.Terminated() {
			time.Sleep(time.Millisecond)
		}
		return ErrTerminated
	}

	ch := make(chan error, 1)
	go func() {
		ch <- Run(pc, load, []Processor{p, p, p, p}, nil)
	}()

	time.Sleep(30 * time.Millisecond)
	pc.Terminate()

	select {
	case err := <-ch:
		if err != ErrTerminated {
			t.Errorf("expected ErrTerminated, returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("workers did not exit after termination")
	}
}
