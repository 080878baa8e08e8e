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

	"github.com/metabarcoding/ampliprep/qzv"
)

// SuggestDepthHelp is the help string for this command.
const SuggestDepthHelp = "\nsuggest-depth parameters:\n" +
	"ampliprep suggest-depth summary.qzv\n" +
	"[--report file]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// SuggestDepth implements the ampliprep suggest-depth command. It reads
// the per-sample frequencies out of a feature table summarize
// visualization and reports rarefaction depth candidates.
func SuggestDepth() error {
	var (
		reportFile       string
		profile, logPath string
		timed            bool
	)

	var flags flag.FlagSet

	flags.StringVar(&reportFile, "report", "", "additionally write the report to the specified TSV file")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 3, SuggestDepthHelp)

	summaryQzv := getFilename(os.Args[2], SuggestDepthHelp)

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", summaryQzv) {
		sanityChecksFailed = true
	}
	if reportFile != "" && !checkCreate("--report", reportFile) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, SuggestDepthHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " suggest-depth ", summaryQzv)
	if reportFile != "" {
		fmt.Fprint(&command, " --report ", reportFile)
	}
	if timed {
		fmt.Fprint(&command, " --timed ")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	return timedRun(timed, profile, "Analyzing sample frequencies.", 1, func() error {
		frequencies, err := qzv.ReadSampleFrequencies(summaryQzv)
		if err != nil {
			return err
		}
		report, err := qzv.NewDepthReport(frequencies)
		if err != nil {
			return err
		}
		report.Log()
		if reportFile != "" {
			return report.Write(reportFile)
		}
		return nil
	})
}
