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

	"github.com/metabarcoding/ampliprep/metadata"
	"github.com/metabarcoding/ampliprep/pipeline"
)

// MappingFilesHelp is the help string for this command.
const MappingFilesHelp = "\nmapping-files parameters:\n" +
	"ampliprep mapping-files\n" +
	"[--sample-mapping file]\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--summary file]\n" +
	"[--after file]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// MappingFiles implements the ampliprep mapping-files command.
func MappingFiles() error {
	var (
		configFile, baseDir, prefix string
		sampleMapping               string
		summaryFile, after          string
		profile, logPath            string
		timed                       bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for pipeline artifacts")
	flags.StringVar(&prefix, "prefix", "", "artifact name prefix")
	flags.StringVar(&sampleMapping, "sample-mapping", "", "sample mapping TSV with the tag layout")
	flags.StringVar(&summaryFile, "summary", "", "write the stage summary to the specified file")
	flags.StringVar(&after, "after", "", "stage summary of the preceding stage")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, MappingFilesHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	conf.BaseDir = baseDir
	layout := pipeline.NewLayout(baseDir, prefix)
	defaultString(&sampleMapping, conf.Resolve(conf.SampleMapping))
	defaultString(&sampleMapping, layout.SampleMapping())
	defaultString(&summaryFile, layout.StageSummary("mapping-files"))

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("--sample-mapping", sampleMapping) {
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
		fmt.Fprint(os.Stderr, MappingFilesHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " mapping-files --sample-mapping ", sampleMapping)
	fmt.Fprint(&command, " --base-dir ", baseDir, " --prefix ", prefix)
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

	return timedRun(timed, profile, "Generating tag mapping files.", 1, func() error {
		return runMappingFiles(layout, sampleMapping, summaryFile)
	})
}

func runMappingFiles(layout pipeline.Layout, sampleMapping, summaryFile string) error {
	samples, skipped, err := metadata.ReadSamples(sampleMapping)
	if err != nil {
		return err
	}
	if skipped > 0 {
		log.Printf("Skipped %v rows of %v with fewer than expected columns.\n", skipped, sampleMapping)
	}
	if len(samples) == 0 {
		return errors.Errorf("no usable sample rows in %v", sampleMapping)
	}
	tables, err := metadata.BuildTagTables(samples)
	if err != nil {
		return err
	}
	summary := pipeline.NewSummary("mapping-files")
	for _, table := range tables {
		path := layout.TagMapping(table.Sublibrary)
		if err := table.Write(path); err != nil {
			summary.Failed(table.Sublibrary, err)
			continue
		}
		summary.Ok(table.Sublibrary, fmt.Sprintf("%v tag rows", len(table.Rows)))
	}
	summary.Log()
	if err := summary.Write(summaryFile); err != nil {
		return err
	}
	if summary.AllFailed() {
		return errors.Errorf("writing tag tables failed for all %v sublibraries", len(tables))
	}
	return nil
}
