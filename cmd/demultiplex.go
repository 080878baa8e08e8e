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

// DemultiplexHelp is the help string for this command.
const DemultiplexHelp = "\ndemultiplex parameters:\n" +
	"ampliprep demultiplex\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--cores n]\n" +
	"[--summary file]\n" +
	"[--after file]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// Demultiplex implements the ampliprep demultiplex command.
func Demultiplex() error {
	var (
		configFile, baseDir, prefix string
		cores                       int
		summaryFile, after          string
		profile, logPath            string
		timed                       bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for pipeline artifacts")
	flags.StringVar(&prefix, "prefix", "", "artifact name prefix")
	flags.IntVar(&cores, "cores", 0, "number of process_radtags threads")
	flags.StringVar(&summaryFile, "summary", "", "write the stage summary to the specified file")
	flags.StringVar(&after, "after", "", "stage summary of the preceding stage")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, DemultiplexHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	defaultInt(&cores, conf.Cores)
	conf.BaseDir = baseDir
	layout := pipeline.NewLayout(baseDir, prefix)
	defaultString(&summaryFile, layout.StageSummary("demultiplex"))

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", layout.TrimmedDir()) {
		sanityChecksFailed = true
	}
	if !checkExist("", layout.TagMappingDir()) {
		sanityChecksFailed = true
	}
	if err := tools.CheckAvailable(conf.RadtagsExec); err != nil {
		log.Printf("Error: %v.\n", err)
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
		fmt.Fprint(os.Stderr, DemultiplexHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " demultiplex --base-dir ", baseDir, " --prefix ", prefix)
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

	return timedRun(timed, profile, "Demultiplexing sublibraries.", 1, func() error {
		return runDemultiplex(conf, layout, cores, summaryFile)
	})
}

func runDemultiplex(conf *pipeline.Config, layout pipeline.Layout, cores int, summaryFile string) error {
	pairs, err := fastq.FindTrimmedPairs(layout.TrimmedDir())
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return errors.Errorf("no trimmed FASTQ pairs in %v", layout.TrimmedDir())
	}
	summary := pipeline.NewSummary("demultiplex")
	for _, pair := range pairs {
		if err := demultiplexSublibrary(conf, layout, pair, cores); err != nil {
			summary.Failed(pair.Name, err)
			continue
		}
		summary.Ok(pair.Name, "demultiplexed")
	}
	summary.Log()
	if err := summary.Write(summaryFile); err != nil {
		return err
	}
	if summary.AllFailed() {
		return errors.Errorf("demultiplexing failed for all %v sublibraries", len(pairs))
	}
	return nil
}

func demultiplexSublibrary(conf *pipeline.Config, layout pipeline.Layout, pair fastq.Pair, cores int) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	tags := layout.TagMapping(pair.Name)
	if _, err := os.Stat(tags); err != nil {
		return errors.Wrapf(err, "no tag mapping for sublibrary %v", pair.Name)
	}
	outDir := layout.SublibraryDemuxDir(pair.Name)
	internal.MkdirAll(outDir, 0700)
	return tools.Run(tools.ProcessRadtags{
		Cmd:             conf.RadtagsExec,
		Forward:         pair.Forward,
		Reverse:         pair.Reverse,
		Tags:            tags,
		OutDir:          outDir,
		InlineInline:    true,
		DisableRadCheck: true,
		Rescue:          true,
		InType:          "gzfastq",
		OutType:         "gzfastq",
		Threads:         cores,
	})
}
