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

	"github.com/metabarcoding/ampliprep/internal"
	"github.com/metabarcoding/ampliprep/pipeline"
	"github.com/metabarcoding/ampliprep/tools"
)

// FilterHelp is the help string for this command.
const FilterHelp = "\nfilter parameters:\n" +
	"ampliprep filter\n" +
	"[--amplicon 16S | ITS1]\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--sample-metadata file]\n" +
	"[--min-frequency n]\n" +
	"[--min-samples n]\n" +
	"[--summary file]\n" +
	"[--after file]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// Filter implements the ampliprep filter command.
func Filter() error {
	var (
		configFile, baseDir, prefix string
		ampliconName                string
		sampleMetadata              string
		minFrequency, minSamples    int
		summaryFile, after          string
		profile, logPath            string
		timed                       bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for pipeline artifacts")
	flags.StringVar(&prefix, "prefix", "", "artifact name prefix")
	flags.StringVar(&ampliconName, "amplicon", "", "restrict to one amplicon")
	flags.StringVar(&sampleMetadata, "sample-metadata", "", "QIIME 2 sample metadata file")
	flags.IntVar(&minFrequency, "min-frequency", 0, "drop features below this total frequency")
	flags.IntVar(&minSamples, "min-samples", 0, "drop features present in fewer samples")
	flags.StringVar(&summaryFile, "summary", "", "write the stage summary to the specified file")
	flags.StringVar(&after, "after", "", "stage summary of the preceding stage")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, FilterHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	defaultInt(&minFrequency, conf.FilterMinFrequency)
	defaultInt(&minSamples, conf.FilterMinSamples)
	conf.BaseDir = baseDir
	defaultString(&sampleMetadata, conf.Resolve(conf.SampleMetadata))
	layout := pipeline.NewLayout(baseDir, prefix)
	defaultString(&summaryFile, layout.StageSummary("filter"))

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkAmplicon(conf, ampliconName) {
		sanityChecksFailed = true
	}
	for _, amplicon := range selectAmplicons(conf, ampliconName) {
		if !checkExist("", layout.Table(amplicon.Name)) {
			sanityChecksFailed = true
		}
		if !checkExist("", layout.RepSeqs(amplicon.Name)) {
			sanityChecksFailed = true
		}
		if !checkExist("", layout.Taxonomy(amplicon.Name)) {
			sanityChecksFailed = true
		}
	}
	if err := tools.CheckAvailable(conf.QiimeExec); err != nil {
		log.Printf("Error: %v.\n", err)
		sanityChecksFailed = true
	}
	if minFrequency < 0 {
		log.Printf("Error: Invalid --min-frequency %v.\n", minFrequency)
		sanityChecksFailed = true
	}
	if minSamples < 0 {
		log.Printf("Error: Invalid --min-samples %v.\n", minSamples)
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
		fmt.Fprint(os.Stderr, FilterHelp)
		os.Exit(1)
	}

	sampleMetadata = checkOptionalMetadata(sampleMetadata)

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " filter --base-dir ", baseDir, " --prefix ", prefix)
	if ampliconName != "" {
		fmt.Fprint(&command, " --amplicon ", ampliconName)
	}
	if sampleMetadata != "" {
		fmt.Fprint(&command, " --sample-metadata ", sampleMetadata)
	}
	fmt.Fprint(&command, " --min-frequency ", minFrequency)
	fmt.Fprint(&command, " --min-samples ", minSamples)
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

	return timedRun(timed, profile, "Filtering feature tables.", 1, func() error {
		return runFilter(conf, layout, selectAmplicons(conf, ampliconName), sampleMetadata, minFrequency, minSamples, summaryFile)
	})
}

func runFilter(conf *pipeline.Config, layout pipeline.Layout, amplicons []pipeline.Amplicon, sampleMetadata string, minFrequency, minSamples int, summaryFile string) error {
	internal.MkdirAll(layout.FilteredDir(), 0700)
	summary := pipeline.NewSummary("filter")
	for _, amplicon := range amplicons {
		if err := filterAmplicon(conf, layout, amplicon, sampleMetadata, minFrequency, minSamples); err != nil {
			summary.Failed(amplicon.Name, err)
			continue
		}
		summary.Ok(amplicon.Name, "filtered")
	}
	summary.Log()
	if err := summary.Write(summaryFile); err != nil {
		return err
	}
	if n := summary.Failures(); n > 0 {
		return errors.Errorf("filtering failed for %v of %v amplicons", n, len(amplicons))
	}
	return nil
}

func filterAmplicon(conf *pipeline.Config, layout pipeline.Layout, amplicon pipeline.Amplicon, sampleMetadata string, minFrequency, minSamples int) error {
	if err := tools.Run(tools.TaxaFilterTable{
		Cmd:           conf.QiimeExec,
		Table:         layout.Table(amplicon.Name),
		Taxonomy:      layout.Taxonomy(amplicon.Name),
		Exclude:       amplicon.Exclude,
		Include:       amplicon.Include,
		FilteredTable: layout.TaxaFilteredTable(amplicon.Name),
	}); err != nil {
		return err
	}
	if err := tools.Run(tools.FilterFeatures{
		Cmd:           conf.QiimeExec,
		Table:         layout.TaxaFilteredTable(amplicon.Name),
		MinFrequency:  minFrequency,
		MinSamples:    minSamples,
		FilteredTable: layout.FilteredTable(amplicon.Name),
	}); err != nil {
		return err
	}
	if err := tools.Run(tools.TaxaFilterSeqs{
		Cmd:               conf.QiimeExec,
		Sequences:         layout.RepSeqs(amplicon.Name),
		Taxonomy:          layout.Taxonomy(amplicon.Name),
		Exclude:           amplicon.Exclude,
		Include:           amplicon.Include,
		FilteredSequences: layout.FilteredSeqs(amplicon.Name),
	}); err != nil {
		return err
	}
	return tools.Run(tools.FeatureTableSummarize{
		Cmd:            conf.QiimeExec,
		Table:          layout.FilteredTable(amplicon.Name),
		SampleMetadata: sampleMetadata,
		Visualization:  layout.FilteredSummary(amplicon.Name),
	})
}
