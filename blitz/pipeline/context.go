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
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shenwei356/blitz/blitz/output"
)

// Options contains the options of the pipeline.
type Options struct {
	NumWorkers       int
	QueueSize        int           // 0 for 4 x NumWorkers
	ProgressInterval time.Duration // 0 for no progress report
}

// DefaultOptions is the default value of Options.
var DefaultOptions = Options{
	NumWorkers:       runtime.NumCPU(),
	QueueSize:        0,
	ProgressInterval: time.Second,
}

// CheckOptions checks the options.
func CheckOptions(opt *Options) error {
	if opt.NumWorkers < 1 {
		return fmt.Errorf("invalid number of workers: %d, should be >= 1", opt.NumWorkers)
	}
	if opt.QueueSize < 0 {
		return fmt.Errorf("invalid queue size: %d, should be >= 0", opt.QueueSize)
	}
	return nil
}

// Counters are progress counters shared by all workers.
type Counters struct {
	Processed atomic.Int64 // queries, mates counted separately
	Aligned   atomic.Int64
	Unaligned atomic.Int64
	Paths     atomic.Int64 // reported alignments

	Skipped   atomic.Int64 // too short or too long
	Truncated atomic.Int64 // seeding stopped at the maximum iterations
	Excluded  atomic.Int64 // alignments in excluded regions

	Pairs       atomic.Int64
	ProperPairs atomic.Int64
}

// Context is the state shared by the loader and all workers of one run.
type Context struct {
	Options *Options
	Queue   *Queue[*QueryUnit]
	Counters

	terminate atomic.Bool

	errMu sync.Mutex
	err   error

	outMu sync.Mutex
	out   output.Writer

	insMu   sync.Mutex
	inserts []int

	started time.Time
}

// NewContext creates a Context writing to out.
func NewContext(opt *Options, out output.Writer) (*Context, error) {
	if err := CheckOptions(opt); err != nil {
		return nil, err
	}
	size := opt.QueueSize
	if size == 0 {
		size = opt.NumWorkers << 2
	}
	pc := &Context{
		Options: opt,
		out:     out,
		inserts: make([]int, 0, 1024),
		started: time.Now(),
	}
	pc.Queue = NewQueue[*QueryUnit](size, &pc.terminate)
	return pc, nil
}

// Terminate asks the loader and all workers to stop as soon as possible.
func (pc *Context) Terminate() { pc.terminate.Store(true) }

// Terminated tells if the pipeline is terminated.
func (pc *Context) Terminated() bool { return pc.terminate.Load() }

// Fail records the first fatal error and terminates the pipeline.
func (pc *Context) Fail(err error) {
	pc.errMu.Lock()
	if pc.err == nil {
		pc.err = err
	}
	pc.errMu.Unlock()
	pc.Terminate()
}

// Err returns the first fatal error.
func (pc *Context) Err() error {
	pc.errMu.Lock()
	defer pc.errMu.Unlock()
	return pc.err
}

// Output runs fn with the output writer inside the output critical
// section. All records of a query are written in one call.
func (pc *Context) Output(fn func(w output.Writer) error) error {
	pc.outMu.Lock()
	defer pc.outMu.Unlock()
	return fn(pc.out)
}

// AddInsertSize records the insert size of a proper pair.
func (pc *Context) AddInsertSize(d int) {
	pc.insMu.Lock()
	pc.inserts = append(pc.inserts, d)
	pc.insMu.Unlock()
}

// InsertSizes returns the recorded insert sizes.
func (pc *Context) InsertSizes() []int {
	pc.insMu.Lock()
	defer pc.insMu.Unlock()
	return pc.inserts
}

// Elapsed returns the time since the context was created.
func (pc *Context) Elapsed() time.Duration { return time.Since(pc.started) }
