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
	"github.com/metabarcoding/ampliprep/metadata"
	"github.com/metabarcoding/ampliprep/pipeline"
	"github.com/metabarcoding/ampliprep/tools"
)

const (
	pairedEndType   = "SampleData[PairedEndSequencesWithQuality]"
	pairedEndFormat = "PairedEndFastqManifestPhred33V2"
)

// ImportHelp is the help string for this command.
const ImportHelp = "\nimport parameters:\n" +
	"ampliprep import\n" +
	"[--amplicon 16S | ITS1]\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--manifest-only]\n" +
	"[--summary file]\n" +
	"[--after file]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// Import implements the ampliprep import command.
func Import() error {
	var (
		configFile, baseDir, prefix string
		ampliconName                string
		manifestOnly                bool
		summaryFile, after          string
		profile, logPath            string
		timed                       bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for pipeline artifacts")
	flags.StringVar(&prefix, "prefix", "", "artifact name prefix")
	flags.StringVar(&ampliconName, "amplicon", "", "restrict to one amplicon")
	flags.BoolVar(&manifestOnly, "manifest-only", false, "write and verify the manifests without importing")
	flags.StringVar(&summaryFile, "summary", "", "write the stage summary to the specified file")
	flags.StringVar(&after, "after", "", "stage summary of the preceding stage")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, ImportHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	conf.BaseDir = baseDir
	layout := pipeline.NewLayout(baseDir, prefix)
	defaultString(&summaryFile, layout.StageSummary("import"))

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkAmplicon(conf, ampliconName) {
		sanityChecksFailed = true
	}
	for _, amplicon := range selectAmplicons(conf, ampliconName) {
		if !checkExist("", layout.FinalDir(amplicon.Name)) {
			sanityChecksFailed = true
		}
	}
	if !manifestOnly {
		if err := tools.CheckAvailable(conf.QiimeExec); err != nil {
			log.Printf("Error: %v.\n", err)
			sanityChecksFailed = true
		}
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
		fmt.Fprint(os.Stderr, ImportHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " import --base-dir ", baseDir, " --prefix ", prefix)
	if ampliconName != "" {
		fmt.Fprint(&command, " --amplicon ", ampliconName)
	}
	if manifestOnly {
		fmt.Fprint(&command, " --manifest-only ")
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

	return timedRun(timed, profile, "Importing reads into QIIME 2.", 1, func() error {
		return runImport(conf, layout, selectAmplicons(conf, ampliconName), manifestOnly, summaryFile)
	})
}

func runImport(conf *pipeline.Config, layout pipeline.Layout, amplicons []pipeline.Amplicon, manifestOnly bool, summaryFile string) error {
	summary := pipeline.NewSummary("import")
	for _, amplicon := range amplicons {
		detail, err := importAmplicon(conf, layout, amplicon, manifestOnly)
		if err != nil {
			summary.Failed(amplicon.Name, err)
			continue
		}
		summary.Ok(amplicon.Name, detail)
	}
	summary.Log()
	if err := summary.Write(summaryFile); err != nil {
		return err
	}
	if n := summary.Failures(); n > 0 {
		return errors.Errorf("import failed for %v of %v amplicons", n, len(amplicons))
	}
	return nil
}

func importAmplicon(conf *pipeline.Config, layout pipeline.Layout, amplicon pipeline.Amplicon, manifestOnly bool) (string, error) {
	pairs, err := fastq.FindFinalPairs(layout.FinalDir(amplicon.Name), amplicon.Name)
	if err != nil {
		return "", err
	}
	if len(pairs) == 0 {
		return "", errors.Errorf("no primer-trimmed pairs in %v", layout.FinalDir(amplicon.Name))
	}
	records, err := metadata.BuildManifest(pairs)
	if err != nil {
		return "", err
	}
	manifest := layout.Manifest(amplicon.Name)
	if err := metadata.WriteManifest(manifest, records); err != nil {
		return "", err
	}
	if err := metadata.VerifyManifest(manifest, len(pairs)); err != nil {
		return "", err
	}
	log.Printf("Wrote manifest %v with %v samples.\n", manifest, len(pairs))
	if manifestOnly {
		return fmt.Sprintf("manifest with %v samples", len(pairs)), nil
	}
	demux := layout.DemuxArtifact(amplicon.Name)
	if backup, err := pipeline.BackupExisting(demux); err != nil {
		return "", err
	} else if backup != "" {
		log.Printf("Backed up %v to %v.\n", demux, backup)
	}
	if err := tools.Run(tools.Import{
		Cmd:         conf.QiimeExec,
		Type:        pairedEndType,
		InputPath:   manifest,
		InputFormat: pairedEndFormat,
		OutputPath:  demux,
	}); err != nil {
		return "", err
	}
	if err := tools.Run(tools.DemuxSummarize{
		Cmd:           conf.QiimeExec,
		Data:          demux,
		Visualization: layout.DemuxViz(amplicon.Name),
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("imported %v samples", len(pairs)), nil
}
