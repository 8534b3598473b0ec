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

// Package region excludes alignments falling in given target regions.
package region

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rdleal/intervalst/interval"
	"github.com/shenwei356/xopen"
)

// ErrInvalidBED means a BED record can not be parsed.
var ErrInvalidBED = errors.New("region: invalid BED record")

// TargetIndex maps a target sequence ID to its index, -1 for unknown ones.
type TargetIndex interface {
	Index(id string) int
}

// Filter holds excluded regions of target sequences.
type Filter struct {
	trees map[int]*interval.SearchTree[string, int]
	n     int
}

// NewFilter creates an empty filter.
func NewFilter() *Filter {
	return &Filter{trees: make(map[int]*interval.SearchTree[string, int], 8)}
}

// Add adds a half-open region [start, end) of the target with index tid.
func (f *Filter) Add(tid, start, end int, name string) error {
	if start < 0 || end <= start {
		return errors.Wrapf(ErrInvalidBED, "invalid region: %d-%d", start, end)
	}
	tree, ok := f.trees[tid]
	if !ok {
		tree = interval.NewSearchTree[string, int](func(x, y int) int { return x - y })
		f.trees[tid] = tree
	}
	// intervals in the tree are closed
	if err := tree.Insert(start, end-1, name); err != nil {
		return err
	}
	f.n++
	return nil
}

// Len returns the number of regions.
func (f *Filter) Len() int { return f.n }

// Excluded tells if the half-open span [start, end) of the target with
// index tid intersects any region, and returns the name of one region.
func (f *Filter) Excluded(tid, start, end int) (string, bool) {
	if f == nil || f.n == 0 || end <= start {
		return "", false
	}
	tree, ok := f.trees[tid]
	if !ok {
		return "", false
	}
	return tree.AnyIntersection(start, end-1)
}

// ReadBED reads regions from a BED file, the name column is optional.
// Records of unknown targets are skipped, the number of them is returned.
func ReadBED(file string, targets TargetIndex) (*Filter, int, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, 0, err
	}
	defer fh.Close()

	f := NewFilter()
	var skipped, lineNum int
	var line string
	var items []string
	var tid, start, end int
	var name string
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		lineNum++
		line = strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" || line[0] == '#' ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}

		items = strings.Split(line, "\t")
		if len(items) < 3 {
			return nil, 0, errors.Wrapf(ErrInvalidBED, "line %d: at least 3 columns needed", lineNum)
		}

		tid = targets.Index(items[0])
		if tid < 0 {
			skipped++
			continue
		}

		start, err = strconv.Atoi(items[1])
		if err != nil {
			return nil, 0, errors.Wrapf(ErrInvalidBED, "line %d: %s", lineNum, err)
		}
		end, err = strconv.Atoi(items[2])
		if err != nil {
			return nil, 0, errors.Wrapf(ErrInvalidBED, "line %d: %s", lineNum, err)
		}

		name = ""
		if len(items) > 3 {
			name = items[3]
		}
		if err = f.Add(tid, start, end, name); err != nil {
			return nil, 0, errors.Wrapf(err, "line %d", lineNum)
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, 0, err
	}

	return f, skipped, nil
}
