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

// Package slurm renders batch scripts for the cluster scheduler and
// submits them. A script carries the #SBATCH resource directives, the
// environment modules of the cluster, and a single pipeline stage
// invocation; everything else is the scheduler's business.
package slurm

import (
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// A Job is one batch job: its scheduler resources and the command it runs.
type Job struct {
	Name      string
	Partition string
	CPUs      int
	Memory    string
	Time      string
	LogDir    string
	Modules   []string
	Command   string
}

var scriptTemplate = template.Must(template.New("sbatch").Parse(`#!/bin/bash
#SBATCH --job-name={{.Name}}
#SBATCH --partition={{.Partition}}
#SBATCH --cpus-per-task={{.CPUs}}
#SBATCH --mem={{.Memory}}
#SBATCH --time={{.Time}}
#SBATCH --output={{.LogDir}}/{{.Name}}-%j.out
#SBATCH --error={{.LogDir}}/{{.Name}}-%j.err
{{range .Modules}}module load {{.}}
{{end}}
{{.Command}}
`))

// Script renders the batch script for the job.
func (j Job) Script(w io.Writer) error {
	if err := scriptTemplate.Execute(w, j); err != nil {
		return errors.Wrapf(err, "rendering batch script for %v", j.Name)
	}
	return nil
}

// WriteScript stores the batch script under dir with a unique name and
// returns its path.
func (j Job) WriteScript(dir string) (path string, err error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", errors.Wrapf(err, "creating %v", dir)
	}
	path = filepath.Join(dir, j.Name+"-"+uuid.New().String()[:8]+".sbatch")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "creating batch script %v", path)
	}
	defer func() {
		if nerr := f.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v", path)
		}
	}()
	if err := j.Script(f); err != nil {
		return "", err
	}
	return path, nil
}

const submittedPrefix = "Submitted batch job "

// Submit hands the script to sbatch and returns the job id parsed from its
// output.
func Submit(sbatch, script string) (string, error) {
	cmd := exec.Command(sbatch, script)
	log.Println("Executing command:\n", strings.Join(cmd.Args, " "))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "%v failed: %v", sbatch, strings.TrimSpace(string(out)))
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, submittedPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, submittedPrefix)), nil
		}
	}
	return "", errors.Errorf("no job id in sbatch output: %v", strings.TrimSpace(string(out)))
}
