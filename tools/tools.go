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

// Package tools builds and runs the external commands of the pipeline:
// cutadapt, Stacks process_radtags, and the QIIME 2 plugins. Command lines
// are assembled declaratively from buildarg-tagged structs.
package tools

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/biogo/external"
	"github.com/pkg/errors"
)

// CheckAvailable reports an error if the executable cannot be found in the
// PATH. Stages run this during their sanity checks so a misconfigured
// environment is caught before any work happens.
func CheckAvailable(executable string) error {
	if _, err := exec.LookPath(executable); err != nil {
		return errors.Wrapf(err, "%v not found", executable)
	}
	return nil
}

// Run executes the built command. The child's stderr goes to our stderr,
// which the log redirection has pointed at the log file, and its stdout
// joins it there; progress of long-running tools is thus preserved.
func Run(cb external.CommandBuilder) error {
	cmd, err := cb.BuildCommand()
	if err != nil {
		return errors.Wrap(err, "building command")
	}
	logCommand(cmd)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%v failed", cmd.Args[0])
	}
	return nil
}

// RunCapture executes the built command with its stdout captured to a file,
// for tools whose report is worth keeping (the cutadapt trimming report).
func RunCapture(cb external.CommandBuilder, stdout string) (err error) {
	cmd, err := cb.BuildCommand()
	if err != nil {
		return errors.Wrap(err, "building command")
	}
	logCommand(cmd)
	if err := os.MkdirAll(filepath.Dir(stdout), 0700); err != nil {
		return errors.Wrapf(err, "creating directory for %v", stdout)
	}
	report, err := os.Create(stdout)
	if err != nil {
		return errors.Wrapf(err, "creating %v", stdout)
	}
	defer func() {
		if nerr := report.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v", stdout)
		}
	}()
	cmd.Stdout = report
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%v failed", cmd.Args[0])
	}
	return nil
}

func logCommand(cmd *exec.Cmd) {
	log.Println("Executing command:\n", strings.Join(cmd.Args, " "))
}
