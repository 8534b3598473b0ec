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
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/blitz/blitz/align"
	"github.com/shenwei356/blitz/blitz/output"
	"github.com/shenwei356/blitz/blitz/pipeline"
	"github.com/shenwei356/blitz/blitz/region"
	"github.com/shenwei356/blitz/blitz/seed"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Align queries or read pairs against target sequences",
	Long: `Align queries or read pairs against target sequences

Attention:
  1. Input should be (gzipped) FASTA or FASTQ records from files or stdin.
  2. Target sequences are loaded into memory and indexed on every run.
  3. The order of queries in output might be different from the input.
  4. Paired-end reads (-2/--mate-file) are only supported with the SAM format.

How it works:
  1. Seeding. Exact k-mer hits between a query (both strands by default)
     and targets are extended ungapped into match nodes.
  2. Scoring. Match nodes of the same target and strand are chained, a
     node scores its matched bases minus mismatches, a link between two
     nodes costs a gap-open penalty plus the (capped) gap length.
  3. Selecting. The best paths are taken greedily, nodes of a taken path
     can not be used by other paths. A path should score >= --min-score
     (0 for ((qlen-5)*match)/3) and cover >= --min-qcov of the query.
  4. Consolidating. Single-base gaps between nodes of a path are closed
     by comparing bases of the query and the target.
  5. Pairing. For read pairs, the candidate paths of the two mates on the
     same target and opposite strands with the best normalized score
     within --max-insert are chosen.

Tips:
  1. Parameters can be saved in a TOML file (--config). Keys are flag
     names, tables are allowed for grouping, and flags given in the
     command line override the file.
  2. The output format is decided by -f/--format, or the extension of
     -o/--out-file, or tsv by default.

Output format (tsv):
  Tab-delimited format with 1-based positions, query positions are on
  the forward strand of the query.

    1.  query,      Query sequence ID.
    2.  qlen,       Query sequence length.
    3.  qstart,     Start of alignment in query sequence.
    4.  qend,       End of alignment in query sequence.
    5.  strand,     Strand of the query.
    6.  target,     Target sequence ID.
    7.  tlen,       Target sequence length.
    8.  tstart,     Start of alignment in target sequence.
    9.  tend,       End of alignment in target sequence.
    10. score,      Path score.
    11. matches,    Matched bases.
    12. mismatches, Mismatched bases.
    13. pident,     Percentage of identical matches.
    14. qcov,       Query coverage (percentage).
    15. nodes,      Number of match nodes in the path.
    16. qgaps,      Number of gaps in the query.
    17. qgapbases,  Bases in gaps of the query.
    18. tgaps,      Number of gaps in the target.
    19. tgapbases,  Bases in gaps of the target.
    20. rank,       Rank of the path for the query.

`,
	Run: func(cmd *cobra.Command, args []string) {
		var err error

		configFile := expandPath(getFlagString(cmd, "config"))
		var nConfig int
		if configFile != "" {
			nConfig, err = applyConfig(cmd, configFile)
			checkError(err)
		}

		opt := getOptions(cmd)

		outFile := expandPath(getFlagString(cmd, "out-file"))

		var fhLog *os.File
		if opt.Log2File {
			ro, err := filepath.Abs(outFile)
			if err != nil {
				checkError(fmt.Errorf("failed to check output file: %s", err))
			}
			rl, err := filepath.Abs(opt.LogFile)
			if err != nil {
				checkError(fmt.Errorf("failed to check log file: %s", err))
			}
			if ro == rl {
				checkError(fmt.Errorf("output file and log file should not be the same: %s", outFile))
			}
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		verbose := opt.Verbose
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------
		// options

		wopt := pipeline.DefaultWorkerOptions
		wopt.Scoring = align.ScoringOptions{
			MatchReward:     getFlagPositiveInt(cmd, "match"),
			MismatchPenalty: getFlagNonNegativeInt(cmd, "mismatch"),
			GapOpenPenalty:  getFlagNonNegativeInt(cmd, "gap-open"),

			MaxGap:     getFlagPositiveInt(cmd, "max-gap"),
			MaxOverlap: getFlagNonNegativeInt(cmd, "max-overlap"),
			MaxGapCost: getFlagNonNegativeInt(cmd, "max-gap-cost"),

			MinPathScore:     getFlagNonNegativeInt(cmd, "min-score"),
			MinQueryCoverage: getFlagNonNegativeFloat64(cmd, "min-qcov"),
			MaxPaths:         getFlagPositiveInt(cmd, "max-paths"),
		}
		wopt.Pairing = align.PairingOptions{
			MaxInsert: getFlagPositiveInt(cmd, "max-insert"),
			Tolerance: getFlagNonNegativeInt(cmd, "insert-tolerance"),
		}
		wopt.Strand, err = align.ParseStrandMode(getFlagString(cmd, "strand"))
		checkError(err)
		wopt.MaxIter = getFlagNonNegativeInt(cmd, "max-iter")
		wopt.MinQueryLen = getFlagNonNegativeInt(cmd, "min-qlen")
		wopt.MaxQueryLen = getFlagNonNegativeInt(cmd, "max-qlen")
		checkError(pipeline.CheckWorkerOptions(&wopt))

		sopt := seed.DefaultOptions
		sopt.K = getFlagPositiveInt(cmd, "kmer")
		sopt.MaxOcc = getFlagPositiveInt(cmd, "max-occ")
		sopt.ExtendAnchor = getFlagPositiveInt(cmd, "extend-anchor")
		sopt.NumCPUs = opt.NumCPUs
		checkError(seed.CheckOptions(&sopt))

		popt := pipeline.DefaultOptions
		popt.NumWorkers = opt.NumCPUs
		popt.QueueSize = getFlagNonNegativeInt(cmd, "queue-size")
		if !verbose {
			popt.ProgressInterval = 0
		}
		checkError(pipeline.CheckOptions(&popt))

		formats := output.Formats()
		format := strings.ToLower(getFlagString(cmd, "format"))
		if format == "" {
			format = formatFromFile(outFile, formats)
		}
		if format == "" {
			format = "tsv"
		}
		compressionLevel := getFlagInt(cmd, "compression-level")

		summaryFile := expandPath(getFlagString(cmd, "summary"))
		histFile := expandPath(getFlagString(cmd, "insert-hist"))
		histBins := getFlagPositiveInt(cmd, "insert-hist-bins")

		// ---------------------------------------------------------------
		// input files

		targetFiles := getFlagStringSlice(cmd, "targets")
		for i, file := range targetFiles {
			targetFiles[i] = expandPath(file)
		}
		inDir := expandPath(getFlagString(cmd, "in-dir"))
		if inDir != "" {
			isDir, err := pathutil.IsDir(inDir)
			if err != nil {
				checkError(errors.Wrapf(err, "checking -I/--in-dir"))
			}
			if !isDir {
				checkError(fmt.Errorf("value of -I/--in-dir should be a directory: %s", inDir))
			}

			reFileStr := getFlagString(cmd, "file-regexp")
			if !reIgnoreCase.MatchString(reFileStr) {
				reFileStr = reIgnoreCaseStr + reFileStr
			}
			reFile, err := regexp.Compile(reFileStr)
			checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))

			files, err := getFileListFromDir(inDir, reFile, opt.NumCPUs)
			checkError(errors.Wrapf(err, "walking dir: %s", inDir))
			if len(files) == 0 {
				log.Warningf("no files matching regular expression: %s", reFileStr)
			}
			targetFiles = append(targetFiles, files...)
		}
		if len(targetFiles) == 0 {
			checkError(fmt.Errorf("flag -t/--targets or -I/--in-dir needed"))
		}
		for _, file := range targetFiles {
			ok, err := pathutil.Exists(file)
			checkError(errors.Wrapf(err, "checking target file: %s", file))
			if !ok {
				checkError(fmt.Errorf("target file not found: %s", file))
			}
		}

		files := getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
		mateFiles := getFlagStringSlice(cmd, "mate-file")
		for i, file := range mateFiles {
			mateFiles[i] = expandPath(file)
		}
		paired := len(mateFiles) > 0
		if paired {
			if len(mateFiles) != len(files) {
				checkError(fmt.Errorf("numbers of query files (%d) and mate files (%d) do not match", len(files), len(mateFiles)))
			}
			if format != "sam" {
				checkError(fmt.Errorf("paired-end reads are only supported with the SAM format, given: %s", format))
			}
		}

		outFileClean := filepath.Clean(outFile)
		for _, file := range append(append(files, mateFiles...), targetFiles...) {
			if !isStdin(file) && filepath.Clean(file) == outFileClean {
				checkError(fmt.Errorf("out file should not be one of the input files"))
			}
		}

		if outputLog {
			log.Infof("blitz v%s", VERSION)
			log.Info("  https://github.com/shenwei356/blitz")
			log.Info()
			if nConfig > 0 {
				log.Infof("%d parameters set from file: %s", nConfig, configFile)
			}
			if len(files) == 1 && isStdin(files[0]) {
				log.Info("no query files given, reading from stdin")
			} else if paired {
				log.Infof("%d pair(s) of query files given", len(files))
			} else {
				log.Infof("%d query file(s) given", len(files))
			}
		}

		// ---------------------------------------------------------------
		// targets and index

		if outputLog {
			log.Infof("loading %d target file(s) ...", len(targetFiles))
		}
		tgt, err := loadTargets(targetFiles, verbose)
		checkError(err)
		if outputLog {
			log.Infof("  %d target sequences with %d bases loaded", tgt.Len(), tgt.TotalBases())
		}

		var regions *region.Filter
		if file := expandPath(getFlagString(cmd, "exclude-regions")); file != "" {
			var skipped int
			regions, skipped, err = region.ReadBED(file, tgt)
			checkError(err)
			if outputLog {
				log.Infof("%d excluded regions loaded from %s", regions.Len(), file)
				if skipped > 0 {
					log.Warningf("  %d regions on unknown targets are skipped", skipped)
				}
			}
		}

		timeIndex := time.Now()
		idx, err := seed.NewIndex(tgt, &sopt)
		checkError(err)
		if outputLog {
			log.Infof("%d distinct %d-mers indexed in %s", idx.NumKmers(), sopt.K, time.Since(timeIndex))
			log.Info()
		}

		// ---------------------------------------------------------------
		// aligning

		outfh, cw, w, err := outStream(outFile, compressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if cw != nil {
				checkError(cw.Close())
			}
			w.Close()
		}()

		writer, err := output.New(format, outfh, tgt)
		checkError(err)
		checkError(writer.WriteHeader())

		pc, err := pipeline.NewContext(&popt, writer)
		checkError(err)

		processors := make([]pipeline.Processor, opt.NumCPUs)
		for i := range processors {
			processors[i] = pipeline.NewWorker(idx, regions, &wopt)
		}

		var load pipeline.LoadFunc
		if paired {
			load = pairedLoader(files, mateFiles)
		} else {
			load = singleLoader(files)
		}

		if outputLog {
			log.Infof("aligning with %d threads, output format: %s", opt.NumCPUs, format)
		}

		var progress func(pc *pipeline.Context)
		if verbose {
			progress = func(pc *pipeline.Context) {
				n := pc.Processed.Load()
				speed := float64(n) / pc.Elapsed().Minutes()
				fmt.Fprintf(os.Stderr, "processed queries: %d, speed: %.3f queries per minute\r", n, speed)
			}
		}

		checkError(pipeline.Run(pc, load, processors, progress))
		checkError(writer.Flush())

		if verbose {
			fmt.Fprintln(os.Stderr)
		}

		// ---------------------------------------------------------------
		// summary

		summary := newSummary(pc)
		summary.Targets = tgt.Len()
		summary.TargetBases = tgt.TotalBases()
		summary.Kmers = idx.NumKmers()
		if outputLog {
			log.Info()
			summary.log()
			if !isStdin(outFile) {
				log.Infof("alignments saved to: %s", outFile)
			}
		}

		if summaryFile != "" {
			checkError(summary.write(summaryFile))
			if outputLog {
				log.Infof("summary saved to: %s", summaryFile)
			}
		}

		if histFile != "" {
			err = plotInsertSizes(pc.InsertSizes(), histFile, histBins)
			if err == ErrNoInsertSizes {
				log.Warningf("no proper pairs, insert size histogram is not created")
			} else {
				checkError(err)
				if outputLog {
					log.Infof("insert size histogram saved to: %s", histFile)
				}
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(alignCmd)

	// input

	alignCmd.Flags().StringSliceP("targets", "t", []string{},
		formatFlagUsage(`Target sequence file(s) in (gzipped) FASTA/Q format. Multiple values are separated by comma.`))

	alignCmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing target sequence files. Directory and file symlinks are followed.`))

	alignCmd.Flags().StringP("file-regexp", "r", `\.(f[aq](st[aq])?|fna)(.gz|.xz|.zst|.bz2)?$`,
		formatFlagUsage(`Regular expression for matching target files in -I/--in-dir, case ignored.`))

	alignCmd.Flags().StringSliceP("mate-file", "2", []string{},
		formatFlagUsage(`Mate-2 file(s) of paired-end reads, in the same order as the query (mate-1) files.`))

	alignCmd.Flags().StringP("exclude-regions", "x", "",
		formatFlagUsage(`BED file of target regions, alignments overlapping them are reported as unaligned.`))

	alignCmd.Flags().StringP("config", "c", "",
		formatFlagUsage(`Parameter file in TOML format, flags in the command line override values in it.`))

	// output

	alignCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports ".gz" and ".zst" suffixes ("-" for stdout).`))

	alignCmd.Flags().StringP("format", "f", "",
		formatFlagUsage(fmt.Sprintf(`Output format, available: %s. By default, it is decided by the extension of -o/--out-file, or tsv.`,
			strings.Join(output.Formats(), ", "))))

	alignCmd.Flags().IntP("compression-level", "", -1,
		formatFlagUsage(`Compression level of gzip or zstd output.`))

	alignCmd.Flags().StringP("summary", "", "",
		formatFlagUsage(`Save the run summary to a TOML file.`))

	alignCmd.Flags().StringP("insert-hist", "", "",
		formatFlagUsage(`Plot the histogram of insert sizes of proper pairs, the image format is decided by the extension (.png, .pdf, .svg).`))

	alignCmd.Flags().IntP("insert-hist-bins", "", 50,
		formatFlagUsage(`Number of bins of the insert size histogram.`))

	// seeding

	alignCmd.Flags().IntP("kmer", "k", seed.DefaultOptions.K,
		formatFlagUsage(`K-mer size of seeds, in the range of [8, 32].`))

	alignCmd.Flags().IntP("max-occ", "", seed.DefaultOptions.MaxOcc,
		formatFlagUsage(`K-mers with more occurrences in targets are not used as seeds.`))

	alignCmd.Flags().IntP("extend-anchor", "", seed.DefaultOptions.ExtendAnchor,
		formatFlagUsage(`Exact matches needed after a mismatch in ungapped seed extension.`))

	alignCmd.Flags().IntP("max-iter", "", pipeline.DefaultWorkerOptions.MaxIter,
		formatFlagUsage(`Maximum seed occurrences explored per query (0 for no limit).`))

	alignCmd.Flags().StringP("strand", "s", "both",
		formatFlagUsage(`Strand of queries to search: both, forward or reverse.`))

	alignCmd.Flags().IntP("min-qlen", "", 0,
		formatFlagUsage(`Minimum query length, shorter queries are reported as unaligned (0 for the k-mer size).`))

	alignCmd.Flags().IntP("max-qlen", "", 0,
		formatFlagUsage(`Maximum query length, longer queries are reported as unaligned (0 for no limit).`))

	// scoring

	alignCmd.Flags().IntP("match", "", align.DefaultScoringOptions.MatchReward,
		formatFlagUsage(`Score of a matched base.`))

	alignCmd.Flags().IntP("mismatch", "", align.DefaultScoringOptions.MismatchPenalty,
		formatFlagUsage(`Penalty of a mismatched base.`))

	alignCmd.Flags().IntP("gap-open", "", align.DefaultScoringOptions.GapOpenPenalty,
		formatFlagUsage(`Fixed penalty of a gap between two match nodes.`))

	alignCmd.Flags().IntP("max-gap", "", align.DefaultScoringOptions.MaxGap,
		formatFlagUsage(`Maximum gap between two match nodes in a path.`))

	alignCmd.Flags().IntP("max-overlap", "", align.DefaultScoringOptions.MaxOverlap,
		formatFlagUsage(`Maximum overlap between two match nodes in a path.`))

	alignCmd.Flags().IntP("max-gap-cost", "", align.DefaultScoringOptions.MaxGapCost,
		formatFlagUsage(`Cap of the length part of a gap cost.`))

	alignCmd.Flags().IntP("min-score", "m", align.DefaultScoringOptions.MinPathScore,
		formatFlagUsage(`Minimum path score (0 for ((qlen-5)*match)/3).`))

	alignCmd.Flags().Float64P("min-qcov", "q", align.DefaultScoringOptions.MinQueryCoverage,
		formatFlagUsage(`Minimum query coverage (percentage) of a path.`))

	alignCmd.Flags().IntP("max-paths", "n", align.DefaultScoringOptions.MaxPaths,
		formatFlagUsage(`Maximum paths to report per query.`))

	// pairing

	alignCmd.Flags().IntP("max-insert", "", align.DefaultPairingOptions.MaxInsert,
		formatFlagUsage(`Maximum insert size of a proper pair.`))

	alignCmd.Flags().IntP("insert-tolerance", "", align.DefaultPairingOptions.Tolerance,
		formatFlagUsage(`Extra distance allowed beyond --max-insert between the target starts of two mates.`))

	// others

	alignCmd.Flags().IntP("queue-size", "", 0,
		formatFlagUsage(`Capacity of the query queue (0 for 4 * threads).`))

	alignCmd.SetUsageTemplate(usageTemplate("{-t targets.fa.gz | -I dir} [query.fq.gz ...] [-2 mate2.fq.gz ...] [-o out.tsv.gz]"))
}
