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
	"strings"

	"github.com/pkg/errors"

	"github.com/metabarcoding/ampliprep/internal"
	"github.com/metabarcoding/ampliprep/pipeline"
	"github.com/metabarcoding/ampliprep/tools"
)

// TrainClassifierHelp is the help string for this command.
const TrainClassifierHelp = "\ntrain-classifier parameters:\n" +
	"ampliprep train-classifier\n" +
	"[--amplicon 16S | ITS1]\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--summary file]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// TrainClassifier implements the ampliprep train-classifier command. It
// is not part of the stage chain: classifiers are trained once per
// reference database release and reused across datasets.
func TrainClassifier() error {
	var (
		configFile, baseDir, prefix string
		ampliconName                string
		summaryFile                 string
		profile, logPath            string
		timed                       bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for pipeline artifacts")
	flags.StringVar(&prefix, "prefix", "", "artifact name prefix")
	flags.StringVar(&ampliconName, "amplicon", "", "restrict to one amplicon")
	flags.StringVar(&summaryFile, "summary", "", "write the stage summary to the specified file")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, TrainClassifierHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	conf.BaseDir = baseDir
	layout := pipeline.NewLayout(baseDir, prefix)
	defaultString(&summaryFile, layout.StageSummary("train-classifier"))

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkAmplicon(conf, ampliconName) {
		sanityChecksFailed = true
	}
	for _, amplicon := range selectAmplicons(conf, ampliconName) {
		if !checkExist("", conf.Resolve(amplicon.RefSeqs)) {
			sanityChecksFailed = true
		}
		if !checkExist("", conf.Resolve(amplicon.RefTaxonomy)) {
			sanityChecksFailed = true
		}
	}
	if err := tools.CheckAvailable(conf.QiimeExec); err != nil {
		log.Printf("Error: %v.\n", err)
		sanityChecksFailed = true
	}
	if !checkCreate("--summary", summaryFile) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, TrainClassifierHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " train-classifier --base-dir ", baseDir, " --prefix ", prefix)
	if ampliconName != "" {
		fmt.Fprint(&command, " --amplicon ", ampliconName)
	}
	fmt.Fprint(&command, " --summary ", summaryFile)
	if timed {
		fmt.Fprint(&command, " --timed ")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	return timedRun(timed, profile, "Training taxonomy classifiers.", 1, func() error {
		return runTrainClassifier(conf, selectAmplicons(conf, ampliconName), summaryFile)
	})
}

func runTrainClassifier(conf *pipeline.Config, amplicons []pipeline.Amplicon, summaryFile string) error {
	summary := pipeline.NewSummary("train-classifier")
	for _, amplicon := range amplicons {
		if err := trainClassifier(conf, amplicon); err != nil {
			summary.Failed(amplicon.Name, err)
			continue
		}
		summary.Ok(amplicon.Name, "trained "+amplicon.Database+" classifier")
	}
	summary.Log()
	if err := summary.Write(summaryFile); err != nil {
		return err
	}
	if n := summary.Failures(); n > 0 {
		return errors.Errorf("classifier training failed for %v of %v amplicons", n, len(amplicons))
	}
	return nil
}

func trainClassifier(conf *pipeline.Config, amplicon pipeline.Amplicon) error {
	refSeqs := conf.Resolve(amplicon.RefSeqs)
	refTaxonomy := conf.Resolve(amplicon.RefTaxonomy)
	classifier := conf.Resolve(amplicon.Classifier)
	internal.MkdirAll(filepath.Dir(classifier), 0700)
	reads := refSeqs
	if amplicon.ExtractReads {
		reads = extractedReadsPath(refSeqs)
		if err := tools.Run(tools.ExtractReads{
			Cmd:           conf.QiimeExec,
			Sequences:     refSeqs,
			ForwardPrimer: amplicon.ForwardPrimer,
			ReversePrimer: amplicon.ReversePrimer,
			MinLength:     amplicon.ExtractMinLen,
			MaxLength:     amplicon.ExtractMaxLen,
			Reads:         reads,
		}); err != nil {
			return err
		}
	}
	if backup, err := pipeline.BackupExisting(classifier); err != nil {
		return err
	} else if backup != "" {
		log.Printf("Backed up %v to %v.\n", classifier, backup)
	}
	return tools.Run(tools.FitClassifier{
		Cmd:               conf.QiimeExec,
		ReferenceReads:    reads,
		ReferenceTaxonomy: refTaxonomy,
		Classifier:        classifier,
	})
}

// extractedReadsPath names the primer-extracted reference next to the
// full-length one, so retraining reuses it.
func extractedReadsPath(refSeqs string) string {
	return strings.TrimSuffix(refSeqs, ".qza") + "_extracted.qza"
}
