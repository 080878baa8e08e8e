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

// ampliprep prepares paired-end 16S/ITS1 amplicon sequencing data for
// analysis with QIIME 2, from raw lane files to filtered feature tables
// and rarefaction curves, on SLURM clusters.
//
// Please see https://github.com/metabarcoding/ampliprep for a
// documentation of the tool.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/metabarcoding/ampliprep/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: merge-lanes, trim-adapters, mapping-files, demultiplex, trim-primers, import, denoise, train-classifier, classify, filter, rarefy, suggest-depth, run, sbatch")
	fmt.Fprint(os.Stderr, "\n", cmd.RunHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.SbatchHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.SuggestDepthHelp)
}

func printExtendedHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: merge-lanes, trim-adapters, mapping-files, demultiplex, trim-primers, import, denoise, train-classifier, classify, filter, rarefy, suggest-depth, run, sbatch")
	fmt.Fprint(os.Stderr, "\n", cmd.MergeLanesHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.TrimAdaptersHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.MappingFilesHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.DemultiplexHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.TrimPrimersHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ImportHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.DenoiseHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.TrainClassifierHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ClassifyHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.FilterHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.RarefyHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.SuggestDepthHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.RunHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.SbatchHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprintln(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "merge-lanes":
		err = cmd.MergeLanes()
	case "trim-adapters":
		err = cmd.TrimAdapters()
	case "mapping-files":
		err = cmd.MappingFiles()
	case "demultiplex":
		err = cmd.Demultiplex()
	case "trim-primers":
		err = cmd.TrimPrimers()
	case "import":
		err = cmd.Import()
	case "denoise":
		err = cmd.Denoise()
	case "train-classifier":
		err = cmd.TrainClassifier()
	case "classify":
		err = cmd.Classify()
	case "filter":
		err = cmd.Filter()
	case "rarefy":
		err = cmd.Rarefy()
	case "suggest-depth":
		err = cmd.SuggestDepth()
	case "run":
		err = cmd.Run()
	case "sbatch":
		err = cmd.Sbatch()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	case "help-extended", "-help-extended", "--help-extended", "-he", "--he":
		printExtendedHelp()
	default:
		log.Println("Unknown command: ", os.Args[1])
		fmt.Fprintln(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
