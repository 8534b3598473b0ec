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

// Package seed finds candidate match nodes of queries in target sequences
// with a sharded k-mer index.
package seed

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"

	"github.com/shenwei356/blitz/blitz/target"
	"github.com/zeebo/wyhash"
)

// Options contains all options of the k-mer index and the seed locator.
type Options struct {
	K            int // k-mer size
	MaxOcc       int // k-mers with more occurrences are not used as seeds
	Shards       int // number of shards of the k-mer index
	ExtendAnchor int // exact matches needed after a mismatch during extension

	NumCPUs int
}

// DefaultOptions is the default value of Options.
var DefaultOptions = Options{
	K:            16,
	MaxOcc:       500,
	Shards:       64,
	ExtendAnchor: 3,

	NumCPUs: runtime.NumCPU(),
}

// CheckOptions checks the options.
func CheckOptions(opt *Options) error {
	if opt.K < 8 || opt.K > 32 {
		return fmt.Errorf("invalid k value: %d, valid range: [8, 32]", opt.K)
	}
	if opt.MaxOcc < 1 {
		return fmt.Errorf("invalid max k-mer occurrences: %d, should be >= 1", opt.MaxOcc)
	}
	if opt.Shards < 1 || opt.Shards > 4096 {
		return fmt.Errorf("invalid shards: %d, valid range: [1, 4096]", opt.Shards)
	}
	if opt.ExtendAnchor < 1 {
		return fmt.Errorf("invalid extension anchor: %d, should be >= 1", opt.ExtendAnchor)
	}
	if opt.NumCPUs < 1 {
		return fmt.Errorf("invalid number of CPUs: %d, should be >= 1", opt.NumCPUs)
	}
	return nil
}

const hashSeed uint64 = 1

// Index maps k-mers of target sequences to their positions.
// It is read-only after building and safe for concurrent lookups.
type Index struct {
	opt  *Options
	k    int
	mask uint64

	tgt    *target.Collection
	shards []map[uint64][]uint64 // k-mer -> target index << 32 | position

	kmers int
}

// NewIndex builds an index of all k-mers of the target sequences,
// k-mers containing non-ACGT bases are skipped.
func NewIndex(tgt *target.Collection, opt *Options) (*Index, error) {
	if err := CheckOptions(opt); err != nil {
		return nil, err
	}

	idx := &Index{
		opt:    opt,
		k:      opt.K,
		mask:   uint64(1)<<(uint(opt.K)<<1) - 1,
		tgt:    tgt,
		shards: make([]map[uint64][]uint64, opt.Shards),
	}
	for i := range idx.shards {
		idx.shards[i] = make(map[uint64][]uint64, 1024)
	}

	// every worker fills its own shards, no locks needed.
	workers := opt.NumCPUs
	if workers > opt.Shards {
		workers = opt.Shards
	}
	counts := make([]int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			var shard int
			for i := 0; i < tgt.Len(); i++ {
				idx.walkKmers(i, func(code uint64, pos int) {
					shard = idx.shard(code)
					if shard%workers != w {
						return
					}
					idx.shards[shard][code] = append(idx.shards[shard][code], uint64(i)<<32|uint64(pos))
					counts[w]++
				})
			}
		}(w)
	}
	wg.Wait()

	for _, c := range counts {
		idx.kmers += c
	}
	return idx, nil
}

// K returns the k-mer size.
func (idx *Index) K() int { return idx.k }

// Targets returns the indexed target sequences.
func (idx *Index) Targets() *target.Collection { return idx.tgt }

// NumKmers returns the number of indexed k-mer occurrences.
func (idx *Index) NumKmers() int { return idx.kmers }

// Lookup returns positions of a k-mer, each being target index << 32 | position.
// The returned slice must not be modified.
func (idx *Index) Lookup(code uint64) []uint64 {
	return idx.shards[idx.shard(code)][code]
}

func (idx *Index) shard(code uint64) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], code)
	return int(wyhash.Hash(buf[:], hashSeed) % uint64(len(idx.shards)))
}

// walkKmers calls fn for every k-mer of the i-th target without
// ambiguous bases, with a rolling 2-bit code.
func (idx *Index) walkKmers(i int, fn func(code uint64, pos int)) {
	tgt := idx.tgt
	n := tgt.SeqLen(i)
	k := idx.k
	var code uint64
	var valid int // number of continuous valid bases
	for pos := 0; pos < n; pos++ {
		if tgt.Ambiguous(i, pos) {
			valid = 0
			code = 0
			continue
		}
		code = (code<<2 | uint64(tgt.Code(i, pos))) & idx.mask
		valid++
		if valid >= k {
			fn(code, pos-k+1)
		}
	}
}
