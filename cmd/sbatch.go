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

	"github.com/metabarcoding/ampliprep/internal"
	"github.com/metabarcoding/ampliprep/pipeline"
	"github.com/metabarcoding/ampliprep/slurm"
	"github.com/metabarcoding/ampliprep/tools"
)

// SbatchHelp is the help string for this command.
const SbatchHelp = "\nsbatch parameters:\n" +
	"ampliprep sbatch stage\n" +
	"[--submit]\n" +
	"[--partition name]\n" +
	"[--cpus n]\n" +
	"[--memory size]\n" +
	"[--time limit]\n" +
	"[--script-dir dir]\n" +
	"[--base-dir dir]\n" +
	"[--prefix name]\n" +
	"[--config file]\n" +
	"[--amplicon 16S | ITS1]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// Sbatch implements the ampliprep sbatch command. It renders a batch
// script for a stage, the run driver, or classifier training, with
// resources from the per-stage configuration, and optionally submits it.
func Sbatch() error {
	var (
		configFile, baseDir, prefix string
		ampliconName                string
		partition, memory, timeLim  string
		cpus                        int
		scriptDir                   string
		submit                      bool
		profile, logPath            string
		timed                       bool
	)

	var flags flag.FlagSet

	flags.StringVar(&configFile, "config", "", "configuration file")
	flags.StringVar(&baseDir, "base-dir", "", "base directory for pipeline artifacts")
	flags.StringVar(&prefix, "prefix", "", "artifact name prefix")
	flags.StringVar(&ampliconName, "amplicon", "", "restrict to one amplicon")
	flags.StringVar(&partition, "partition", "", "SLURM partition")
	flags.IntVar(&cpus, "cpus", 0, "requested CPUs per task")
	flags.StringVar(&memory, "memory", "", "requested memory")
	flags.StringVar(&timeLim, "time", "", "requested time limit")
	flags.StringVar(&scriptDir, "script-dir", "", "directory for rendered batch scripts")
	flags.BoolVar(&submit, "submit", false, "submit the rendered script with sbatch")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 3, SbatchHelp)

	stage := getFilename(os.Args[2], SbatchHelp)

	conf, err := loadConfiguration(configFile)
	if err != nil {
		return err
	}
	defaultString(&baseDir, conf.BaseDir)
	defaultString(&prefix, conf.Prefix)
	conf.BaseDir = baseDir
	resources := conf.StageResources(stage)
	defaultString(&partition, resources.Partition)
	defaultInt(&cpus, resources.CPUs)
	defaultString(&memory, resources.Memory)
	defaultString(&timeLim, resources.Time)
	defaultString(&scriptDir, filepath.Join(baseDir, "slurm"))

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	switch {
	case pipeline.StageIndex(stage) >= 0, stage == "run", stage == "train-classifier":
	default:
		log.Printf("Error: Unknown stage %v.\n", stage)
		sanityChecksFailed = true
	}
	if !checkAmplicon(conf, ampliconName) {
		sanityChecksFailed = true
	}
	if cpus <= 0 {
		log.Printf("Error: Invalid --cpus %v.\n", cpus)
		sanityChecksFailed = true
	}
	if submit {
		if err := tools.CheckAvailable(conf.SbatchExec); err != nil {
			log.Printf("Error: %v.\n", err)
			sanityChecksFailed = true
		}
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, SbatchHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " sbatch ", stage)
	if submit {
		fmt.Fprint(&command, " --submit")
	}
	fmt.Fprint(&command, " --partition ", partition, " --cpus ", cpus)
	fmt.Fprint(&command, " --memory ", memory, " --time ", timeLim)
	fmt.Fprint(&command, " --script-dir ", scriptDir)
	fmt.Fprint(&command, " --base-dir ", baseDir, " --prefix ", prefix)
	if configFile != "" {
		fmt.Fprint(&command, " --config ", configFile)
	}
	if ampliconName != "" {
		fmt.Fprint(&command, " --amplicon ", ampliconName)
	}
	if timed {
		fmt.Fprint(&command, " --timed ")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	return timedRun(timed, profile, "Preparing batch job.", 1, func() error {
		logDir := filepath.Join(scriptDir, "logs")
		internal.MkdirAll(logDir, 0700)
		job := slurm.Job{
			Name:      "ampliprep-" + stage,
			Partition: partition,
			CPUs:      cpus,
			Memory:    memory,
			Time:      timeLim,
			LogDir:    logDir,
			Modules:   conf.Modules,
			Command:   batchCommand(stage, configFile, baseDir, prefix, ampliconName, cpus, logPath, timed),
		}
		script, err := job.WriteScript(scriptDir)
		if err != nil {
			return err
		}
		log.Printf("Wrote batch script %v.\n", script)
		if !submit {
			return nil
		}
		jobID, err := slurm.Submit(conf.SbatchExec, script)
		if err != nil {
			return err
		}
		log.Printf("Submitted batch job %v.\n", jobID)
		return nil
	})
}

// batchCommand renders the stage invocation that runs inside the batch
// job. The requested CPUs double as the stage's core count.
func batchCommand(stage, configFile, baseDir, prefix, ampliconName string, cpus int, logPath string, timed bool) string {
	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " ", stage, " --base-dir ", baseDir, " --prefix ", prefix)
	if configFile != "" {
		fmt.Fprint(&command, " --config ", configFile)
	}
	accepts := stageAccepts(stage)
	if accepts.amplicon && ampliconName != "" {
		fmt.Fprint(&command, " --amplicon ", ampliconName)
	}
	if accepts.cores {
		fmt.Fprint(&command, " --cores ", cpus)
	}
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}
	return command.String()
}
