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

// ClassifyHelp is the help string for this command.
const ClassifyHelp = "\nclassify parameters:\n" +
	"ampliprep classify\n" +
	"[--amplicon 16S | ITS1]\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--sample-metadata file]\n" +
	"[--cores n]\n" +
	"[--summary file]\n" +
	"[--after file]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// Classify implements the ampliprep classify command.
func Classify() error {
	var (
		configFile, baseDir, prefix string
		ampliconName                string
		sampleMetadata              string
		cores                       int
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
	flags.IntVar(&cores, "cores", 0, "number of classifier jobs")
	flags.StringVar(&summaryFile, "summary", "", "write the stage summary to the specified file")
	flags.StringVar(&after, "after", "", "stage summary of the preceding stage")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, ClassifyHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	defaultInt(&cores, conf.Cores)
	conf.BaseDir = baseDir
	defaultString(&sampleMetadata, conf.Resolve(conf.SampleMetadata))
	layout := pipeline.NewLayout(baseDir, prefix)
	defaultString(&summaryFile, layout.StageSummary("classify"))

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkAmplicon(conf, ampliconName) {
		sanityChecksFailed = true
	}
	for _, amplicon := range selectAmplicons(conf, ampliconName) {
		if !checkExist("", conf.Resolve(amplicon.Classifier)) {
			sanityChecksFailed = true
		}
		if !checkExist("", layout.RepSeqs(amplicon.Name)) {
			sanityChecksFailed = true
		}
	}
	if err := tools.CheckAvailable(conf.QiimeExec); err != nil {
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
		fmt.Fprint(os.Stderr, ClassifyHelp)
		os.Exit(1)
	}

	sampleMetadata = checkOptionalMetadata(sampleMetadata)

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " classify --base-dir ", baseDir, " --prefix ", prefix)
	if ampliconName != "" {
		fmt.Fprint(&command, " --amplicon ", ampliconName)
	}
	if sampleMetadata != "" {
		fmt.Fprint(&command, " --sample-metadata ", sampleMetadata)
	}
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

	return timedRun(timed, profile, "Classifying representative sequences.", 1, func() error {
		return runClassify(conf, layout, selectAmplicons(conf, ampliconName), sampleMetadata, cores, summaryFile)
	})
}

func runClassify(conf *pipeline.Config, layout pipeline.Layout, amplicons []pipeline.Amplicon, sampleMetadata string, cores int, summaryFile string) error {
	internal.MkdirAll(layout.TaxonomyDir(), 0700)
	summary := pipeline.NewSummary("classify")
	for _, amplicon := range amplicons {
		if err := classifyAmplicon(conf, layout, amplicon, sampleMetadata, cores); err != nil {
			summary.Failed(amplicon.Name, err)
			continue
		}
		summary.Ok(amplicon.Name, "classified")
	}
	summary.Log()
	if err := summary.Write(summaryFile); err != nil {
		return err
	}
	if n := summary.Failures(); n > 0 {
		return errors.Errorf("classification failed for %v of %v amplicons", n, len(amplicons))
	}
	return nil
}

func classifyAmplicon(conf *pipeline.Config, layout pipeline.Layout, amplicon pipeline.Amplicon, sampleMetadata string, cores int) error {
	if err := tools.Run(tools.ClassifySklearn{
		Cmd:            conf.QiimeExec,
		Classifier:     conf.Resolve(amplicon.Classifier),
		Reads:          layout.RepSeqs(amplicon.Name),
		Jobs:           cores,
		Classification: layout.Taxonomy(amplicon.Name),
	}); err != nil {
		return err
	}
	if err := tools.Run(tools.MetadataTabulate{
		Cmd:           conf.QiimeExec,
		InputFile:     layout.Taxonomy(amplicon.Name),
		Visualization: layout.TaxonomyViz(amplicon.Name),
	}); err != nil {
		return err
	}
	if sampleMetadata == "" {
		log.Printf("Warning: Skipping taxa barplot for %v: no sample metadata.\n", amplicon.Name)
		return nil
	}
	return tools.Run(tools.TaxaBarplot{
		Cmd:           conf.QiimeExec,
		Table:         layout.Table(amplicon.Name),
		Taxonomy:      layout.Taxonomy(amplicon.Name),
		Metadata:      sampleMetadata,
		Visualization: layout.TaxaBarplot(amplicon.Name),
	})
}
