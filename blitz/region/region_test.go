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

package region

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

type names map[string]int

func (m names) Index(id string) int {
	if i, ok := m[id]; ok {
		return i
	}
	return -1
}

func TestFilter(t *testing.T) {
	f := NewFilter()
	if err := f.Add(0, 100, 200, "a"); err != nil {
		t.Error(err)
		return
	}
	if err := f.Add(1, 0, 10, "b"); err != nil {
		t.Error(err)
		return
	}
	if err := f.Add(1, 10, 5, "c"); !errors.Is(err, ErrInvalidBED) {
		t.Errorf("expected ErrInvalidBED, returned %v", err)
	}

	tests := []struct {
		tid, start, end int
		excluded        bool
	}{
		{0, 0, 100, false},
		{0, 0, 101, true},
		{0, 150, 160, true},
		{0, 199, 300, true},
		{0, 200, 300, false},
		{1, 9, 20, true},
		{1, 10, 20, false},
		{2, 0, 1000, false},
	}
	for _, test := range tests {
		_, ok := f.Excluded(test.tid, test.start, test.end)
		if ok != test.excluded {
			t.Errorf("%d:%d-%d: expected %v, returned %v", test.tid, test.start, test.end, test.excluded, ok)
		}
	}

	var empty *Filter
	if _, ok := empty.Excluded(0, 0, 100); ok {
		t.Errorf("a nil filter should exclude nothing")
	}
}

func TestReadBED(t *testing.T) {
	file := filepath.Join(t.TempDir(), "regions.bed")
	data := "track name=test\n# comment\nchr1\t100\t200\trepeat\nchr3\t0\t10\nchr2\t5\t15\n"
	if err := os.WriteFile(file, []byte(data), 0644); err != nil {
		t.Error(err)
		return
	}

	f, skipped, err := ReadBED(file, names{"chr1": 0, "chr2": 1})
	if err != nil {
		t.Error(err)
		return
	}
	if f.Len() != 2 || skipped != 1 {
		t.Errorf("expected 2 regions and 1 skipped, returned %d and %d", f.Len(), skipped)
	}
	if name, ok := f.Excluded(0, 150, 151); !ok || name != "repeat" {
		t.Errorf("unexpected result: %s, %v", name, ok)
	}
	if _, ok := f.Excluded(1, 0, 5); ok {
		t.Errorf("unexpected intersection")
	}

	bad := filepath.Join(t.TempDir(), "bad.bed")
	if err = os.WriteFile(bad, []byte("chr1\tx\t200\n"), 0644); err != nil {
		t.Error(err)
		return
	}
	if _, _, err = ReadBED(bad, names{"chr1": 0}); !errors.Is(err, ErrInvalidBED) {
		t.Errorf("expected ErrInvalidBED, returned %v", err)
	}
}
