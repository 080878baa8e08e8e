// ampliprep: an orchestration tool for preparing 16S/ITS1 amplicon
// metabarcoding data with QIIME 2 on SLURM clusters.
// Copyright (c) 2021-2024 the ampliprep authors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License along with this program. If not, see
// <https://github.com/metabarcoding/ampliprep/blob/master/LICENSE.txt>.

package cmd

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/metabarcoding/ampliprep/fastq"
	"github.com/metabarcoding/ampliprep/internal"
	"github.com/metabarcoding/ampliprep/pipeline"
	"github.com/metabarcoding/ampliprep/tools"
)

// TrimAdaptersHelp is the help string for this command.
const TrimAdaptersHelp = "\ntrim-adapters parameters:\n" +
	"ampliprep trim-adapters\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--forward-adapter seq]\n" +
	"[--reverse-adapter seq]\n" +
	"[--min-length n]\n" +
	"[--cores n]\n" +
	"[--summary file]\n" +
	"[--after file]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// TrimAdapters implements the ampliprep trim-adapters command.
func TrimAdapters() error {
	var (
		configFile, baseDir, prefix    string
		forwardAdapter, reverseAdapter string
		minLength, cores               int
		summaryFile, after             string
		profile, logPath               string
		timed                          bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for pipeline artifacts")
	flags.StringVar(&prefix, "prefix", "", "artifact name prefix")
	flags.StringVar(&forwardAdapter, "forward-adapter", "", "3' adapter to trim from forward reads")
	flags.StringVar(&reverseAdapter, "reverse-adapter", "", "3' adapter to trim from reverse reads")
	flags.IntVar(&minLength, "min-length", 0, "discard read pairs shorter than this after trimming")
	flags.IntVar(&cores, "cores", 0, "number of cutadapt cores")
	flags.StringVar(&summaryFile, "summary", "", "write the stage summary to the specified file")
	flags.StringVar(&after, "after", "", "stage summary of the preceding stage")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, TrimAdaptersHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	defaultString(&forwardAdapter, conf.ForwardAdapter)
	defaultString(&reverseAdapter, conf.ReverseAdapter)
	defaultInt(&minLength, conf.MinLength)
	defaultInt(&cores, conf.Cores)
	conf.BaseDir = baseDir
	layout := pipeline.NewLayout(baseDir, prefix)
	defaultString(&summaryFile, layout.StageSummary("trim-adapters"))

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", layout.MergedDir()) {
		sanityChecksFailed = true
	}
	if err := tools.CheckAvailable(conf.CutadaptExec); err != nil {
		log.Printf("Error: %v.\n", err)
		sanityChecksFailed = true
	}
	if forwardAdapter == "" || reverseAdapter == "" {
		log.Println("Error: Missing adapter sequence.")
		sanityChecksFailed = true
	}
	if !checkCores(cores) {
		sanityChecksFailed = true
	}
	if !checkCreate("--summary", summaryFile) {
		sanityChecksFailed = true
	}
	if after != "" && !checkExist("--after", after) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, TrimAdaptersHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " trim-adapters --base-dir ", baseDir, " --prefix ", prefix)
	fmt.Fprint(&command, " --forward-adapter ", forwardAdapter, " --reverse-adapter ", reverseAdapter)
	fmt.Fprint(&command, " --min-length ", minLength)
	if cores > 0 {
		fmt.Fprint(&command, " --cores ", cores)
	}
	fmt.Fprint(&command, " --summary ", summaryFile)
	if after != "" {
		fmt.Fprint(&command, " --after ", after)
	}
	if timed {
		fmt.Fprint(&command, " --timed ")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	return timedRun(timed, profile, "Trimming sequencing adapters.", 1, func() error {
		return runTrimAdapters(conf, layout, forwardAdapter, reverseAdapter, minLength, cores, summaryFile)
	})
}

func runTrimAdapters(conf *pipeline.Config, layout pipeline.Layout, forwardAdapter, reverseAdapter string, minLength, cores int, summaryFile string) error {
	pairs, err := fastq.FindMergedPairs(layout.MergedDir())
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return errors.Errorf("no merged FASTQ pairs in %v", layout.MergedDir())
	}
	internal.MkdirAll(layout.TrimmedDir(), 0700)
	summary := pipeline.NewSummary("trim-adapters")
	for _, pair := range pairs {
		if err := pair.Validate(); err != nil {
			summary.Failed(pair.Name, err)
			continue
		}
		out, pairedOut := layout.TrimmedPair(pair.Name)
		cutadapt := tools.Cutadapt{
			Cmd:            conf.CutadaptExec,
			Cores:          cores,
			ForwardAdapter: forwardAdapter,
			ReverseAdapter: reverseAdapter,
			MinLength:      minLength,
			Out:            out,
			PairedOut:      pairedOut,
			In:             pair.Forward,
			PairedIn:       pair.Reverse,
		}
		if err := tools.RunCapture(cutadapt, layout.CutadaptLog(pair.Name)); err != nil {
			summary.Failed(pair.Name, err)
			continue
		}
		summary.Ok(pair.Name, "trimmed")
	}
	summary.Log()
	if err := summary.Write(summaryFile); err != nil {
		return err
	}
	if summary.AllFailed() {
		return errors.Errorf("adapter trimming failed for all %v sublibraries", len(pairs))
	}
	return nil
}
