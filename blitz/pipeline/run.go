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
	"time"

	"github.com/pkg/errors"
)

// LoadFunc pushes all work items to the queue of the context.
type LoadFunc func(pc *Context) error

// Run runs one loader goroutine and one goroutine per processor, and waits
// for all of them. progress, if not nil, is called periodically and once
// at the end.
//
// Any error from the loader or a processor terminates the pipeline and is
// returned. ErrTerminated is returned if the pipeline is terminated
// without an error.
func Run(pc *Context, load LoadFunc, processors []Processor, progress func(pc *Context)) error {
	if len(processors) == 0 {
		return errors.New("pipeline: no workers")
	}

	var wg sync.WaitGroup

	// loader
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer pc.Queue.Close()
		if err := load(pc); err != nil && err != ErrTerminated {
			pc.Fail(errors.Wrap(err, "loading queries"))
		}
	}()

	// workers
	for _, p := range processors {
		wg.Add(1)
		go func(p Processor) {
			defer wg.Done()
			var u *QueryUnit
			var ok bool
			var err error
			for !pc.Terminated() {
				u, ok = pc.Queue.Pop()
				if !ok {
					return
				}
				err = p.Process(pc, u)
				RecycleQueryUnit(u)
				if err != nil {
					pc.Fail(err)
					return
				}
			}
		}(p)
	}

	// supervisor
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	if progress != nil && pc.Options.ProgressInterval > 0 {
		ticker := time.NewTicker(pc.Options.ProgressInterval)
	LOOP:
		for {
			select {
			case <-ticker.C:
				progress(pc)
			case <-done:
				break LOOP
			}
		}
		ticker.Stop()
	} else {
		<-done
	}
	if progress != nil {
		progress(pc)
	}

	if err := pc.Err(); err != nil {
		return err
	}
	if pc.Terminated() {
		return ErrTerminated
	}
	return nil
}
