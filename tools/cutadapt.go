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

package tools

import (
	"os/exec"

	"github.com/biogo/external"
)

// Cutadapt builds a paired-end cutadapt invocation. The adapter fields
// serve the adapter trimming stage, the primer fields the primer trimming
// stage; the unused group stays empty and is omitted from the command line.
type Cutadapt struct {
	// Usage: cutadapt [options] in1 in2
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}cutadapt{{end}}"` // cutadapt

	Cores            int    `buildarg:"{{with .}}-j{{split}}{{.}}{{end}}"`                // -j <cores>
	ForwardAdapter   string `buildarg:"{{with .}}-a{{split}}{{.}}{{end}}"`                // -a <adapter>
	ReverseAdapter   string `buildarg:"{{with .}}-A{{split}}{{.}}{{end}}"`                // -A <adapter>
	ForwardPrimer    string `buildarg:"{{with .}}-g{{split}}{{.}}{{end}}"`                // -g <primer>
	ReversePrimer    string `buildarg:"{{with .}}-G{{split}}{{.}}{{end}}"`                // -G <primer>
	DiscardUntrimmed bool   `buildarg:"{{if .}}--discard-untrimmed{{end}}"`               // --discard-untrimmed
	MinLength        int    `buildarg:"{{with .}}--minimum-length{{split}}{{.}}{{end}}"`  // --minimum-length <n>
	Out              string `buildarg:"{{with .}}-o{{split}}{{.}}{{end}}"`                // -o <out1>
	PairedOut        string `buildarg:"{{with .}}-p{{split}}{{.}}{{end}}"`                // -p <out2>

	In       string `buildarg:"{{.}}"` // "<in1>"
	PairedIn string `buildarg:"{{.}}"` // "<in2>"
}

// BuildCommand builds the cutadapt command line.
func (c Cutadapt) BuildCommand() (*exec.Cmd, error) {
	cl, err := external.Build(c)
	if err != nil {
		return nil, err
	}
	return exec.Command(cl[0], cl[1:]...), nil
}
