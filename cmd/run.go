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

	"github.com/scipipe/scipipe"

	"github.com/metabarcoding/ampliprep/pipeline"
)

// RunHelp is the help string for this command.
const RunHelp = "\nrun parameters:\n" +
	"ampliprep run\n" +
	"[--from stage]\n" +
	"[--to stage]\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--amplicon 16S | ITS1]\n" +
	"[--sample-metadata file]\n" +
	"[--cores n]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// stageOptions records which of the shared flags a stage accepts, so the
// driver only forwards flags the stage defines.
type stageOptions struct {
	amplicon, cores, metadata bool
}

var stageFlags = map[string]stageOptions{
	"merge-lanes":   {cores: true},
	"trim-adapters": {cores: true},
	"mapping-files": {},
	"demultiplex":   {cores: true},
	"trim-primers":  {amplicon: true, cores: true},
	"import":        {amplicon: true},
	"denoise":       {amplicon: true, cores: true, metadata: true},
	"classify":      {amplicon: true, cores: true, metadata: true},
	"filter":        {amplicon: true, metadata: true},
	"rarefy":        {amplicon: true, metadata: true},
}

// stageAccepts extends the table with the commands that can be submitted
// as batch jobs but are not part of the stage chain.
func stageAccepts(stage string) stageOptions {
	switch stage {
	case "run":
		return stageOptions{amplicon: true, cores: true, metadata: true}
	case "train-classifier":
		return stageOptions{amplicon: true}
	default:
		return stageFlags[stage]
	}
}

// Run implements the ampliprep run command. It chains the pipeline stages
// into a workflow in which every stage re-executes this binary and hands
// its stage summary to the next stage. A stage whose summary file already
// exists is skipped, which makes an interrupted pipeline resumable;
// --from and --to bound the stage range explicitly.
func Run() error {
	var (
		configFile, baseDir, prefix string
		ampliconName                string
		sampleMetadata              string
		cores                       int
		fromStage, toStage          string
		profile, logPath            string
		timed                       bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for pipeline artifacts")
	flags.StringVar(&prefix, "prefix", "", "artifact name prefix")
	flags.StringVar(&ampliconName, "amplicon", "", "restrict to one amplicon")
	flags.StringVar(&sampleMetadata, "sample-metadata", "", "QIIME 2 sample metadata file")
	flags.IntVar(&cores, "cores", 0, "number of cores per stage")
	flags.StringVar(&fromStage, "from", "", "first stage to run")
	flags.StringVar(&toStage, "to", "", "last stage to run")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, RunHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	conf.BaseDir = baseDir
	layout := pipeline.NewLayout(baseDir, prefix)
	defaultString(&fromStage, pipeline.Stages[0])
	defaultString(&toStage, pipeline.Stages[len(pipeline.Stages)-1])

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	from := pipeline.StageIndex(fromStage)
	if from < 0 {
		log.Printf("Error: Unknown stage %v for --from.\n", fromStage)
		sanityChecksFailed = true
	}
	to := pipeline.StageIndex(toStage)
	if to < 0 {
		log.Printf("Error: Unknown stage %v for --to.\n", toStage)
		sanityChecksFailed = true
	}
	if from >= 0 && to >= 0 && from > to {
		log.Printf("Error: Stage %v comes after %v.\n", fromStage, toStage)
		sanityChecksFailed = true
	}
	if !checkAmplicon(conf, ampliconName) {
		sanityChecksFailed = true
	}
	if !checkCores(cores) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, RunHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " run --from ", fromStage, " --to ", toStage)
	fmt.Fprint(&command, " --base-dir ", baseDir, " --prefix ", prefix)
	if configFile != "" {
		fmt.Fprint(&command, " --config ", configFile)
	}
	if ampliconName != "" {
		fmt.Fprint(&command, " --amplicon ", ampliconName)
	}
	if sampleMetadata != "" {
		fmt.Fprint(&command, " --sample-metadata ", sampleMetadata)
	}
	if cores > 0 {
		fmt.Fprint(&command, " --cores ", cores)
	}
	if timed {
		fmt.Fprint(&command, " --timed ")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	return timedRun(timed, profile, "Running pipeline stages.", 1, func() error {
		wf := scipipe.NewWorkflow("ampliprep", 1)
		var prev *scipipe.Process
		for _, stage := range pipeline.Stages[from : to+1] {
			proc := wf.NewProc(stage, stageCommand(stage, configFile, baseDir, prefix,
				ampliconName, sampleMetadata, cores, logPath, timed, prev != nil))
			proc.SetOut("summary", layout.StageSummary(stage))
			if prev != nil {
				proc.In("after").From(prev.Out("summary"))
			}
			prev = proc
		}
		wf.Run()
		return nil
	})
}

// stageCommand renders the shell command for one stage proc. The summary
// output and the ordering input are left as workflow ports.
func stageCommand(stage, configFile, baseDir, prefix, ampliconName, sampleMetadata string, cores int, logPath string, timed, after bool) string {
	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " ", stage, " --base-dir ", baseDir, " --prefix ", prefix)
	if configFile != "" {
		fmt.Fprint(&command, " --config ", configFile)
	}
	accepts := stageFlags[stage]
	if accepts.amplicon && ampliconName != "" {
		fmt.Fprint(&command, " --amplicon ", ampliconName)
	}
	if accepts.metadata && sampleMetadata != "" {
		fmt.Fprint(&command, " --sample-metadata ", sampleMetadata)
	}
	if accepts.cores && cores > 0 {
		fmt.Fprint(&command, " --cores ", cores)
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}
	fmt.Fprint(&command, " --summary {o:summary}")
	if after {
		fmt.Fprint(&command, " --after {i:after}")
	}
	return command.String()
}
