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
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/metabarcoding/ampliprep/fastq"
	"github.com/metabarcoding/ampliprep/internal"
	"github.com/metabarcoding/ampliprep/pipeline"
	"github.com/metabarcoding/ampliprep/tools"
)

// TrimPrimersHelp is the help string for this command.
const TrimPrimersHelp = "\ntrim-primers parameters:\n" +
	"ampliprep trim-primers\n" +
	"[--amplicon 16S | ITS1]\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--min-length n]\n" +
	"[--cores n]\n" +
	"[--summary file]\n" +
	"[--after file]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// TrimPrimers implements the ampliprep trim-primers command.
func TrimPrimers() error {
	var (
		configFile, baseDir, prefix string
		ampliconName                string
		minLength, cores            int
		summaryFile, after          string
		profile, logPath            string
		timed                       bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for pipeline artifacts")
	flags.StringVar(&prefix, "prefix", "", "artifact name prefix")
	flags.StringVar(&ampliconName, "amplicon", "", "restrict to one amplicon")
	flags.IntVar(&minLength, "min-length", 0, "discard read pairs shorter than this after trimming")
	flags.IntVar(&cores, "cores", 0, "number of cutadapt cores")
	flags.StringVar(&summaryFile, "summary", "", "write the stage summary to the specified file")
	flags.StringVar(&after, "after", "", "stage summary of the preceding stage")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, TrimPrimersHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	defaultInt(&minLength, conf.MinLength)
	defaultInt(&cores, conf.Cores)
	conf.BaseDir = baseDir
	layout := pipeline.NewLayout(baseDir, prefix)
	defaultString(&summaryFile, layout.StageSummary("trim-primers"))

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", layout.DemuxDir()) {
		sanityChecksFailed = true
	}
	if err := tools.CheckAvailable(conf.CutadaptExec); err != nil {
		log.Printf("Error: %v.\n", err)
		sanityChecksFailed = true
	}
	if !checkAmplicon(conf, ampliconName) {
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
		fmt.Fprint(os.Stderr, TrimPrimersHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " trim-primers --base-dir ", baseDir, " --prefix ", prefix)
	if ampliconName != "" {
		fmt.Fprint(&command, " --amplicon ", ampliconName)
	}
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

	return timedRun(timed, profile, "Trimming amplicon primers.", 1, func() error {
		return runTrimPrimers(conf, layout, selectAmplicons(conf, ampliconName), minLength, cores, summaryFile)
	})
}

func runTrimPrimers(conf *pipeline.Config, layout pipeline.Layout, amplicons []pipeline.Amplicon, minLength, cores int, summaryFile string) error {
	entries, err := internal.Directory(layout.DemuxDir())
	if err != nil {
		return err
	}
	sort.Strings(entries)
	for _, amplicon := range amplicons {
		internal.MkdirAll(layout.FinalDir(amplicon.Name), 0700)
	}
	summary := pipeline.NewSummary("trim-primers")
	var found int
	for _, entry := range entries {
		sublibraryDir := filepath.Join(layout.DemuxDir(), entry)
		if info, err := os.Stat(sublibraryDir); err != nil || !info.IsDir() ||
			entry == filepath.Base(layout.TagMappingDir()) {
			continue
		}
		for _, amplicon := range amplicons {
			pairs, err := fastq.FindRadtagsPairs(sublibraryDir, amplicon.Name)
			if err != nil {
				return err
			}
			found += len(pairs)
			for _, pair := range pairs {
				item := pair.Name + "_" + amplicon.Name
				if err := trimSamplePrimers(conf, layout, pair, amplicon, minLength, cores); err != nil {
					summary.Failed(item, err)
					continue
				}
				summary.Ok(item, "trimmed")
			}
		}
	}
	if found == 0 {
		return errors.Errorf("no demultiplexed sample pairs in %v", layout.DemuxDir())
	}
	summary.Log()
	if err := summary.Write(summaryFile); err != nil {
		return err
	}
	if summary.AllFailed() {
		return errors.Errorf("primer trimming failed for all %v samples", found)
	}
	return nil
}

func trimSamplePrimers(conf *pipeline.Config, layout pipeline.Layout, pair fastq.Pair, amplicon pipeline.Amplicon, minLength, cores int) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	out, pairedOut := layout.FinalPair(pair.Name, amplicon.Name)
	return tools.Run(tools.Cutadapt{
		Cmd:              conf.CutadaptExec,
		Cores:            cores,
		ForwardPrimer:    amplicon.ForwardPrimer,
		ReversePrimer:    amplicon.ReversePrimer,
		DiscardUntrimmed: true,
		MinLength:        minLength,
		Out:              out,
		PairedOut:        pairedOut,
		In:               pair.Forward,
		PairedIn:         pair.Reverse,
	})
}
