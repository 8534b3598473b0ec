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
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/blitz/blitz/pipeline"
	"github.com/shenwei356/blitz/blitz/target"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ErrUnpairedMates means the two mate files have different numbers of records.
var ErrUnpairedMates = errors.New("mate files have different numbers of records")

// loadTargets reads target sequences from (gzipped) FASTA/Q files.
func loadTargets(files []string, verbose bool) (*target.Collection, error) {
	seq.ValidateSeq = false

	var pbs *mpb.Progress
	var bar *mpb.Bar
	if verbose && len(files) > 1 {
		pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
		bar = pbs.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("loaded files: ", decor.WC{W: len("loaded files: "), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.EwmaETA(decor.ET_STYLE_GO, 3),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
	}

	tgt := target.NewCollection()
	var record *fastx.Record
	var t time.Time
	for _, file := range files {
		t = time.Now()
		fastxReader, err := fastx.NewReader(nil, file, "")
		if err != nil {
			return nil, errors.Wrapf(err, "reading target file: %s", file)
		}
		for {
			record, err = fastxReader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				fastxReader.Close()
				return nil, errors.Wrapf(err, "reading target file: %s", file)
			}
			if len(record.Seq.Seq) == 0 {
				continue
			}
			if _, err = tgt.Add(string(record.ID), record.Seq.Seq); err != nil {
				fastxReader.Close()
				return nil, errors.Wrapf(err, "adding target from %s", file)
			}
		}
		fastxReader.Close()

		if bar != nil {
			bar.EwmaIncrBy(1, time.Since(t))
		}
	}
	if pbs != nil {
		pbs.Wait()
	}

	if tgt.Len() == 0 {
		return nil, fmt.Errorf("no target sequences found")
	}
	return tgt, nil
}

// trimMateSuffix removes a trailing "/1" or "/2" from a read ID.
func trimMateSuffix(id []byte) []byte {
	n := len(id)
	if n > 2 && id[n-2] == '/' && (id[n-1] == '1' || id[n-1] == '2') {
		return id[:n-2]
	}
	return id
}

// upper converts bases to upper case in place.
func upper(s []byte) {
	for i, b := range s {
		if 'a' <= b && b <= 'z' {
			s[i] = b - 32
		}
	}
}

func fillUnit(id, s, qual *[]byte, record *fastx.Record) {
	*id = append(*id, record.ID...)
	n := len(*s)
	*s = append(*s, record.Seq.Seq...)
	upper((*s)[n:])
	*qual = append(*qual, record.Seq.Qual...)
}

// singleLoader pushes every record of the files as a query.
func singleLoader(files []string) pipeline.LoadFunc {
	return func(pc *pipeline.Context) error {
		seq.ValidateSeq = false

		var record *fastx.Record
		var u *pipeline.QueryUnit
		for _, file := range files {
			fastxReader, err := fastx.NewReader(nil, file, "")
			if err != nil {
				return errors.Wrapf(err, "reading query file: %s", file)
			}
			for {
				record, err = fastxReader.Read()
				if err != nil {
					if err == io.EOF {
						break
					}
					fastxReader.Close()
					return errors.Wrapf(err, "reading query file: %s", file)
				}

				u = pipeline.GetQueryUnit()
				fillUnit(&u.ID, &u.Seq, &u.Qual, record)
				if err = pc.Queue.Push(u); err != nil {
					pipeline.RecycleQueryUnit(u)
					fastxReader.Close()
					return err
				}
			}
			fastxReader.Close()
		}
		return nil
	}
}

// pairedLoader reads mates from two lists of files in lockstep.
func pairedLoader(files1, files2 []string) pipeline.LoadFunc {
	return func(pc *pipeline.Context) error {
		if len(files1) != len(files2) {
			return fmt.Errorf("numbers of mate-1 files (%d) and mate-2 files (%d) do not match", len(files1), len(files2))
		}
		seq.ValidateSeq = false

		for i, file1 := range files1 {
			if err := loadPair(pc, file1, files2[i]); err != nil {
				return err
			}
		}
		return nil
	}
}

func loadPair(pc *pipeline.Context, file1, file2 string) error {
	r1, err := fastx.NewReader(nil, file1, "")
	if err != nil {
		return errors.Wrapf(err, "reading query file: %s", file1)
	}
	defer r1.Close()
	r2, err := fastx.NewReader(nil, file2, "")
	if err != nil {
		return errors.Wrapf(err, "reading query file: %s", file2)
	}
	defer r2.Close()

	var rec1, rec2 *fastx.Record
	var err1, err2 error
	var u *pipeline.QueryUnit
	for {
		rec1, err1 = r1.Read()
		if err1 != nil && err1 != io.EOF {
			return errors.Wrapf(err1, "reading query file: %s", file1)
		}
		rec2, err2 = r2.Read()
		if err2 != nil && err2 != io.EOF {
			return errors.Wrapf(err2, "reading query file: %s", file2)
		}
		if err1 == io.EOF && err2 == io.EOF {
			return nil
		}
		if err1 == io.EOF || err2 == io.EOF {
			return errors.Wrapf(ErrUnpairedMates, "%s and %s", file1, file2)
		}

		u = pipeline.GetQueryUnit()
		u.Paired = true
		fillUnit(&u.ID, &u.Seq, &u.Qual, rec1)
		fillUnit(&u.ID2, &u.Seq2, &u.Qual2, rec2)
		u.ID = trimMateSuffix(u.ID)
		u.ID2 = trimMateSuffix(u.ID2)
		if err = pc.Queue.Push(u); err != nil {
			pipeline.RecycleQueryUnit(u)
			return err
		}
	}
}
