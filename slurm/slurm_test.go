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

package slurm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func denoiseJob() Job {
	return Job{
		Name:      "ampliprep-denoise",
		Partition: "standard",
		CPUs:      16,
		Memory:    "64G",
		Time:      "48:00:00",
		LogDir:    "logs/ampliprep",
		Modules:   []string{"qiime2/2021.4", "cutadapt/3.4"},
		Command:   "ampliprep denoise --cores 16",
	}
}

func TestScript(t *testing.T) {
	var script strings.Builder
	if err := denoiseJob().Script(&script); err != nil {
		t.Fatal(err)
	}
	want := `#!/bin/bash
#SBATCH --job-name=ampliprep-denoise
#SBATCH --partition=standard
#SBATCH --cpus-per-task=16
#SBATCH --mem=64G
#SBATCH --time=48:00:00
#SBATCH --output=logs/ampliprep/ampliprep-denoise-%j.out
#SBATCH --error=logs/ampliprep/ampliprep-denoise-%j.err
module load qiime2/2021.4
module load cutadapt/3.4

ampliprep denoise --cores 16
`
	if script.String() != want {
		t.Errorf("Script failed:\n%v", script.String())
	}
}

func TestScriptNoModules(t *testing.T) {
	job := denoiseJob()
	job.Modules = nil
	var script strings.Builder
	if err := job.Script(&script); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(script.String(), "module load") {
		t.Error("Script rendered module lines without modules")
	}
	if !strings.HasSuffix(script.String(), "\nampliprep denoise --cores 16\n") {
		t.Error("Script lost the stage invocation")
	}
}

func TestWriteScript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scripts")
	path, err := denoiseJob().WriteScript(dir)
	if err != nil {
		t.Fatal(err)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "ampliprep-denoise-") || !strings.HasSuffix(base, ".sbatch") {
		t.Error("WriteScript used the wrong name")
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(contents), "#!/bin/bash\n") {
		t.Error("WriteScript did not store the script")
	}
	// Unique names keep resubmissions from clobbering each other.
	other, err := denoiseJob().WriteScript(dir)
	if err != nil {
		t.Fatal(err)
	}
	if other == path {
		t.Error("WriteScript reused a script name")
	}
}

func fakeSbatch(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sbatch")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0700); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSubmit(t *testing.T) {
	sbatch := fakeSbatch(t, "echo Submitted batch job 123456")
	id, err := Submit(sbatch, "denoise.sbatch")
	if err != nil {
		t.Fatal(err)
	}
	if id != "123456" {
		t.Error("Submit parsed the wrong job id")
	}
}

func TestSubmitFailure(t *testing.T) {
	sbatch := fakeSbatch(t, "echo sbatch: error: invalid partition >&2; exit 1")
	if _, err := Submit(sbatch, "denoise.sbatch"); err == nil {
		t.Error("Submit did not report a failing sbatch")
	}
}

func TestSubmitNoJobID(t *testing.T) {
	sbatch := fakeSbatch(t, "echo queued")
	if _, err := Submit(sbatch, "denoise.sbatch"); err == nil {
		t.Error("Submit did not report missing job id output")
	}
}
