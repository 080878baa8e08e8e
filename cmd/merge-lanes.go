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
	"runtime"

	"github.com/pkg/errors"

	"github.com/metabarcoding/ampliprep/fastq"
	"github.com/metabarcoding/ampliprep/pipeline"
)

// MergeLanesHelp is the help string for this command.
const MergeLanesHelp = "\nmerge-lanes parameters:\n" +
	"ampliprep merge-lanes\n" +
	"[--raw-dir dir]\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--verify]\n" +
	"[--cores n]\n" +
	"[--summary file]\n" +
	"[--after file]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// MergeLanes implements the ampliprep merge-lanes command.
func MergeLanes() error {
	var (
		configFile, baseDir, prefix string
		rawDir                      string
		verify                      bool
		cores                       int
		summaryFile, after          string
		profile, logPath            string
		timed                       bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for pipeline artifacts")
	flags.StringVar(&prefix, "prefix", "", "artifact name prefix")
	flags.StringVar(&rawDir, "raw-dir", "", "directory with the raw lane FASTQ files")
	flags.BoolVar(&verify, "verify", false, "recount reads after merging")
	flags.IntVar(&cores, "cores", 0, "number of worker threads for read counting")
	flags.StringVar(&summaryFile, "summary", "", "write the stage summary to the specified file")
	flags.StringVar(&after, "after", "", "stage summary of the preceding stage")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, MergeLanesHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	defaultInt(&cores, conf.Cores)
	conf.BaseDir = baseDir
	defaultString(&rawDir, conf.Resolve(conf.RawDir))
	layout := pipeline.NewLayout(baseDir, prefix)
	defaultString(&summaryFile, layout.StageSummary("merge-lanes"))

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("--raw-dir", rawDir) {
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
		fmt.Fprint(os.Stderr, MergeLanesHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " merge-lanes --raw-dir ", rawDir, " --base-dir ", baseDir, " --prefix ", prefix)
	if verify {
		fmt.Fprint(&command, " --verify ")
	}
	if cores > 0 {
		runtime.GOMAXPROCS(cores)
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

	return timedRun(timed, profile, "Merging lane files.", 1, func() error {
		return runMergeLanes(layout, rawDir, verify, summaryFile)
	})
}

func runMergeLanes(layout pipeline.Layout, rawDir string, verify bool, summaryFile string) error {
	sets, err := fastq.FindLaneSets(rawDir)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return errors.Errorf("no lane 1 FASTQ files in %v", rawDir)
	}
	summary := pipeline.NewSummary("merge-lanes")
	for _, set := range sets {
		detail, err := mergeLaneSet(layout, set, verify)
		if err != nil {
			summary.Failed(set.Sublibrary, err)
			continue
		}
		summary.Ok(set.Sublibrary, detail)
	}
	summary.Log()
	if err := summary.Write(summaryFile); err != nil {
		return err
	}
	if summary.AllFailed() {
		return errors.Errorf("merging failed for all %v sublibraries", len(sets))
	}
	return nil
}

func mergeLaneSet(layout pipeline.Layout, set fastq.LaneSet, verify bool) (string, error) {
	if err := set.Validate(); err != nil {
		return "", err
	}
	forward, reverse := layout.MergedPair(set.Sublibrary)
	if err := fastq.MergeFiles(forward, set.Lane1.Forward, set.Lane2.Forward); err != nil {
		return "", err
	}
	if err := fastq.MergeFiles(reverse, set.Lane1.Reverse, set.Lane2.Reverse); err != nil {
		return "", err
	}
	if !verify {
		return "merged", nil
	}
	counts, err := fastq.CountPairs([]fastq.Pair{
		set.Lane1, set.Lane2,
		{Name: set.Sublibrary, Forward: forward, Reverse: reverse},
	})
	if err != nil {
		return "", err
	}
	laneReads := counts[0].ForwardReads + counts[1].ForwardReads
	if counts[2].ForwardReads != laneReads {
		return "", errors.Errorf("merged forward reads %v != lane sum %v", counts[2].ForwardReads, laneReads)
	}
	if counts[2].ReverseReads != counts[0].ReverseReads+counts[1].ReverseReads {
		return "", errors.Errorf("merged reverse reads %v != lane sum %v", counts[2].ReverseReads, counts[0].ReverseReads+counts[1].ReverseReads)
	}
	if counts[2].ForwardReads != counts[2].ReverseReads {
		return "", errors.Errorf("forward/reverse read counts differ: %v != %v", counts[2].ForwardReads, counts[2].ReverseReads)
	}
	return fmt.Sprintf("%v read pairs", counts[2].ForwardReads), nil
}
