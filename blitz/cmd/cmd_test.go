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

package cmd

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/blitz/blitz/pipeline"
	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

func writeFile(t *testing.T, file, content string) {
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestApplyConfig(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("match", 1, "")
	cmd.Flags().Int("mismatch", 2, "")
	cmd.Flags().Float64("min-qcov", 50, "")
	cmd.Flags().String("strand", "both", "")
	cmd.Flags().StringSlice("targets", nil, "")

	dir := t.TempDir()
	file := filepath.Join(dir, "blitz.toml")
	writeFile(t, file, `
match = 2
strand = "forward"
targets = ["a.fa", "b.fa"]

[filter]
min-qcov = 80.5
mismatch = 4
`)

	// given in the command line
	if err := cmd.Flags().Set("mismatch", "3"); err != nil {
		t.Fatal(err)
	}

	n, err := applyConfig(cmd, file)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("expected 4 flags set, returned %d", n)
	}

	if v, _ := cmd.Flags().GetInt("match"); v != 2 {
		t.Errorf("match: expected 2, returned %d", v)
	}
	if v, _ := cmd.Flags().GetInt("mismatch"); v != 3 {
		t.Errorf("mismatch: a flag in the command line should not be overridden, returned %d", v)
	}
	if v, _ := cmd.Flags().GetFloat64("min-qcov"); v != 80.5 {
		t.Errorf("min-qcov: expected 80.5, returned %f", v)
	}
	if v, _ := cmd.Flags().GetString("strand"); v != "forward" {
		t.Errorf("strand: expected forward, returned %s", v)
	}
	if v, _ := cmd.Flags().GetStringSlice("targets"); len(v) != 2 || v[0] != "a.fa" || v[1] != "b.fa" {
		t.Errorf("targets: expected [a.fa b.fa], returned %v", v)
	}

	writeFile(t, file, "max-gapp = 10\n")
	if _, err = applyConfig(cmd, file); errors.Cause(err) != ErrUnknownConfigKey {
		t.Errorf("expected ErrUnknownConfigKey, returned %v", err)
	}

	writeFile(t, file, "match = \n")
	if _, err = applyConfig(cmd, file); err == nil {
		t.Errorf("expected an error for an invalid TOML file")
	}
}

func TestInsertStats(t *testing.T) {
	mean, stdev, median := insertStats(nil)
	if mean != 0 || stdev != 0 || median != 0 {
		t.Errorf("expected zeros for no data")
	}

	mean, stdev, median = insertStats([]int{300})
	if mean != 300 || stdev != 0 || median != 300 {
		t.Errorf("unexpected values for one insert: %f, %f, %f", mean, stdev, median)
	}

	mean, stdev, median = insertStats([]int{400, 200, 300, 500, 100})
	if mean != 300 {
		t.Errorf("mean: expected 300, returned %f", mean)
	}
	if math.Abs(stdev-158.1139) > 0.001 {
		t.Errorf("stdev: expected 158.1139, returned %f", stdev)
	}
	if median != 300 {
		t.Errorf("median: expected 300, returned %f", median)
	}
}

func TestPlotInsertSizes(t *testing.T) {
	file := filepath.Join(t.TempDir(), "insert.png")
	if err := plotInsertSizes(nil, file, 10); err != ErrNoInsertSizes {
		t.Errorf("expected ErrNoInsertSizes, returned %v", err)
	}
	if err := plotInsertSizes([]int{300, 310, 290, 305, 450}, file, 10); err != nil {
		t.Error(err)
		return
	}
	if fi, err := os.Stat(file); err != nil || fi.Size() == 0 {
		t.Errorf("histogram not created: %v", err)
	}
}

func TestFormatFromFile(t *testing.T) {
	formats := []string{"bed", "maf", "psl", "pslx", "sam", "tsv"}
	for _, c := range []struct {
		file, format string
	}{
		{"-", ""},
		{"out.sam", "sam"},
		{"out.SAM.gz", "sam"},
		{"dir/out.pslx.zst", "pslx"},
		{"out.tsv.xz", "tsv"},
		{"out.txt", ""},
		{"out", ""},
	} {
		if f := formatFromFile(c.file, formats); f != c.format {
			t.Errorf("%s: expected %q, returned %q", c.file, c.format, f)
		}
	}
}

func TestTrimMateSuffix(t *testing.T) {
	for _, c := range []struct {
		id, trimmed string
	}{
		{"read1/1", "read1"},
		{"read1/2", "read1"},
		{"read1/3", "read1/3"},
		{"read1", "read1"},
		{"/1", "/1"},
	} {
		if s := string(trimMateSuffix([]byte(c.id))); s != c.trimmed {
			t.Errorf("%s: expected %s, returned %s", c.id, c.trimmed, s)
		}
	}
}

func TestOutStream(t *testing.T) {
	dir := t.TempDir()
	content := "query\tqlen\nq1\t150\n"
	for _, name := range []string{"out.tsv", "out.tsv.gz", "sub/out.tsv.zst"} {
		file := filepath.Join(dir, name)

		outfh, cw, w, err := outStream(file, -1)
		if err != nil {
			t.Errorf("%s: %s", name, err)
			continue
		}
		outfh.WriteString(content)
		outfh.Flush()
		if cw != nil {
			if err = cw.Close(); err != nil {
				t.Errorf("%s: %s", name, err)
			}
		}
		w.Close()

		fh, err := xopen.Ropen(file)
		if err != nil {
			t.Errorf("%s: %s", name, err)
			continue
		}
		data, err := io.ReadAll(fh)
		fh.Close()
		if err != nil {
			t.Errorf("%s: %s", name, err)
			continue
		}
		if string(data) != content {
			t.Errorf("%s: unexpected content: %q", name, data)
		}
	}
}

func TestGetFileListFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "a", "b"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"t1.fa", "a/t2.fasta.gz", "a/b/t3.fna", "a/readme.txt"} {
		writeFile(t, filepath.Join(dir, f), ">s\nACGT\n")
	}

	re := regexp.MustCompile(`(?i)\.(f[aq](st[aq])?|fna)(.gz)?$`)
	files, err := getFileListFromDir(dir, re, 2)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(files)
	expected := []string{
		filepath.Join(dir, "a", "b", "t3.fna"),
		filepath.Join(dir, "a", "t2.fasta.gz"),
		filepath.Join(dir, "t1.fa"),
	}
	if len(files) != len(expected) {
		t.Errorf("expected %d files, returned %d: %v", len(expected), len(files), files)
		return
	}
	for i, f := range files {
		if f != expected[i] {
			t.Errorf("expected %s, returned %s", expected[i], f)
		}
	}
}

func newLoaderContext(t *testing.T) *pipeline.Context {
	opt := pipeline.DefaultOptions
	opt.NumWorkers = 1
	opt.QueueSize = 16
	pc, err := pipeline.NewContext(&opt, nil)
	if err != nil {
		t.Fatal(err)
	}
	return pc
}

func drain(pc *pipeline.Context) []*pipeline.QueryUnit {
	pc.Queue.Close()
	units := make([]*pipeline.QueryUnit, 0, 4)
	for {
		u, ok := pc.Queue.Pop()
		if !ok {
			return units
		}
		units = append(units, u)
	}
}

func TestLoaders(t *testing.T) {
	dir := t.TempDir()
	file1 := filepath.Join(dir, "r_1.fq")
	file2 := filepath.Join(dir, "r_2.fq")
	file3 := filepath.Join(dir, "r_3.fq")
	writeFile(t, file1, "@p1/1\nacgtAC\n+\nIIIIII\n@p2/1\nGGGG\n+\nIIII\n")
	writeFile(t, file2, "@p1/2\nTTTT\n+\n####\n@p2/2\nCCCC\n+\nIIII\n")
	writeFile(t, file3, "@p1/2\nTTTT\n+\n####\n")

	// single
	pc := newLoaderContext(t)
	if err := singleLoader([]string{file1, file2})(pc); err != nil {
		t.Fatal(err)
	}
	units := drain(pc)
	if len(units) != 4 {
		t.Errorf("expected 4 queries, returned %d", len(units))
		return
	}
	if string(units[0].ID) != "p1/1" || string(units[0].Seq) != "ACGTAC" || string(units[0].Qual) != "IIIIII" || units[0].Paired {
		t.Errorf("unexpected query: %s %s %s", units[0].ID, units[0].Seq, units[0].Qual)
	}

	// paired
	pc = newLoaderContext(t)
	if err := pairedLoader([]string{file1}, []string{file2})(pc); err != nil {
		t.Fatal(err)
	}
	units = drain(pc)
	if len(units) != 2 {
		t.Errorf("expected 2 pairs, returned %d", len(units))
		return
	}
	u := units[1]
	if !u.Paired || string(u.ID) != "p2" || string(u.ID2) != "p2" ||
		string(u.Seq) != "GGGG" || string(u.Seq2) != "CCCC" {
		t.Errorf("unexpected pair: %s %s %s %s", u.ID, u.Seq, u.ID2, u.Seq2)
	}

	// unequal records
	pc = newLoaderContext(t)
	err := pairedLoader([]string{file1}, []string{file3})(pc)
	if errors.Cause(err) != ErrUnpairedMates {
		t.Errorf("expected ErrUnpairedMates, returned %v", err)
	}

	// unequal files
	pc = newLoaderContext(t)
	if err = pairedLoader([]string{file1, file2}, []string{file3})(pc); err == nil {
		t.Errorf("expected an error for unequal numbers of files")
	}
}

func TestLoadTargets(t *testing.T) {
	dir := t.TempDir()
	file1 := filepath.Join(dir, "t1.fa")
	file2 := filepath.Join(dir, "t2.fa")
	writeFile(t, file1, ">chr1 desc\nACGTNACGT\n")
	writeFile(t, file2, ">chr2\nGGGGCCCC\n")

	tgt, err := loadTargets([]string{file1, file2}, false)
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Len() != 2 || tgt.ID(0) != "chr1" || tgt.ID(1) != "chr2" || tgt.TotalBases() != 17 {
		t.Errorf("unexpected targets: %d sequences, %d bases", tgt.Len(), tgt.TotalBases())
	}
	if tgt.BaseAt(0, 4) != 'N' {
		t.Errorf("expected N at the ambiguous position")
	}

	writeFile(t, file2, ">chr1\nGGGGCCCC\n")
	if _, err = loadTargets([]string{file1, file2}, false); err == nil {
		t.Errorf("expected an error for duplicated IDs")
	}
}
