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
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/blitz/blitz/pipeline"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Summary is the statistics of an alignment run.
type Summary struct {
	RunID   string `toml:"run_id"`
	Version string `toml:"version"`
	Elapsed string `toml:"elapsed"`

	Targets     int `toml:"targets"`
	TargetBases int `toml:"target_bases"`
	Kmers       int `toml:"kmers"`

	Processed int64 `toml:"processed"`
	Aligned   int64 `toml:"aligned"`
	Unaligned int64 `toml:"unaligned"`
	Paths     int64 `toml:"paths"`
	Skipped   int64 `toml:"skipped"`
	Truncated int64 `toml:"truncated"`
	Excluded  int64 `toml:"excluded"`

	Pairs        int64   `toml:"pairs"`
	ProperPairs  int64   `toml:"proper_pairs"`
	InsertMean   float64 `toml:"insert_mean"`
	InsertStdev  float64 `toml:"insert_stdev"`
	InsertMedian float64 `toml:"insert_median"`

	QueuePeak int `toml:"queue_peak"`
}

// newSummary collects counters of a finished run.
func newSummary(pc *pipeline.Context) *Summary {
	s := &Summary{
		RunID:   uuid.New().String(),
		Version: VERSION,
		Elapsed: pc.Elapsed().Round(time.Millisecond).String(),

		Processed: pc.Processed.Load(),
		Aligned:   pc.Aligned.Load(),
		Unaligned: pc.Unaligned.Load(),
		Paths:     pc.Paths.Load(),
		Skipped:   pc.Skipped.Load(),
		Truncated: pc.Truncated.Load(),
		Excluded:  pc.Excluded.Load(),

		Pairs:       pc.Pairs.Load(),
		ProperPairs: pc.ProperPairs.Load(),

		QueuePeak: pc.Queue.Peak(),
	}
	s.InsertMean, s.InsertStdev, s.InsertMedian = insertStats(pc.InsertSizes())
	return s
}

// insertStats returns the mean, standard deviation and median.
func insertStats(sizes []int) (float64, float64, float64) {
	if len(sizes) == 0 {
		return 0, 0, 0
	}
	x := make([]float64, len(sizes))
	for i, v := range sizes {
		x[i] = float64(v)
	}
	sort.Float64s(x)

	median := stat.Quantile(0.5, stat.Empirical, x, nil)
	if len(x) == 1 {
		return x[0], 0, median
	}
	mean, stdev := stat.MeanStdDev(x, nil)
	return mean, stdev, median
}

func (s *Summary) log() {
	log.Infof("processed queries: %d, aligned: %d, unaligned: %d", s.Processed, s.Aligned, s.Unaligned)
	if s.Processed > 0 {
		log.Infof("  %.4f%% (%d/%d) queries aligned", float64(s.Aligned)/float64(s.Processed)*100, s.Aligned, s.Processed)
	}
	log.Infof("  reported alignments: %d", s.Paths)
	if s.Skipped > 0 {
		log.Infof("  skipped queries (too short or too long): %d", s.Skipped)
	}
	if s.Truncated > 0 {
		log.Warningf("  queries with seeding stopped at the maximum iterations: %d", s.Truncated)
	}
	if s.Excluded > 0 {
		log.Infof("  alignments in excluded regions: %d", s.Excluded)
	}
	if s.Pairs > 0 {
		log.Infof("pairs: %d, proper pairs: %d", s.Pairs, s.ProperPairs)
		if s.ProperPairs > 0 {
			log.Infof("  insert size: mean %.1f, stdev %.1f, median %.1f", s.InsertMean, s.InsertStdev, s.InsertMedian)
		}
	}
}

// write saves the summary in TOML format.
func (s *Summary) write(file string) error {
	w, err := os.Create(file)
	if err != nil {
		return errors.Wrapf(err, "writing summary file: %s", file)
	}
	if err = toml.NewEncoder(w).Encode(s); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing summary file: %s", file)
	}
	return w.Close()
}

// ErrNoInsertSizes means there is no proper pair for plotting.
var ErrNoInsertSizes = errors.New("no insert sizes to plot")

// plotInsertSizes saves a histogram of insert sizes, the image format is
// decided by the file extension.
func plotInsertSizes(sizes []int, file string, bins int) error {
	if len(sizes) == 0 {
		return ErrNoInsertSizes
	}
	values := make(plotter.Values, len(sizes))
	for i, v := range sizes {
		values[i] = float64(v)
	}

	p := plot.New()
	p.Title.Text = "Insert sizes of proper pairs"
	p.X.Label.Text = "Insert size (bp)"
	p.Y.Label.Text = "Pairs"

	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return errors.Wrap(err, "plotting insert sizes")
	}
	p.Add(h)

	return p.Save(6*vg.Inch, 4*vg.Inch, file)
}
