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

// ProcessRadtags builds a Stacks process_radtags invocation for
// combinatorial inline-inline demultiplexing of a paired sublibrary.
// The rad check is disabled since amplicon reads carry no restriction site.
type ProcessRadtags struct {
	// Usage: process_radtags -1 in1 -2 in2 -b tags -o dir [options]
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}process_radtags{{end}}"` // process_radtags

	Forward         string `buildarg:"{{with .}}-1{{split}}{{.}}{{end}}"`        // -1 <in1>
	Reverse         string `buildarg:"{{with .}}-2{{split}}{{.}}{{end}}"`        // -2 <in2>
	Tags            string `buildarg:"{{with .}}-b{{split}}{{.}}{{end}}"`        // -b <tags>
	OutDir          string `buildarg:"{{with .}}-o{{split}}{{.}}{{end}}"`        // -o <dir>
	InlineInline    bool   `buildarg:"{{if .}}--inline-inline{{end}}"`           // --inline-inline
	DisableRadCheck bool   `buildarg:"{{if .}}--disable-rad-check{{end}}"`       // --disable-rad-check
	Rescue          bool   `buildarg:"{{if .}}-r{{end}}"`                        // -r
	InType          string `buildarg:"{{with .}}-i{{split}}{{.}}{{end}}"`        // -i <type>
	OutType         string `buildarg:"{{with .}}-y{{split}}{{.}}{{end}}"`        // -y <type>
	Threads         int    `buildarg:"{{with .}}--threads{{split}}{{.}}{{end}}"` // --threads <n>
}

// BuildCommand builds the process_radtags command line.
func (p ProcessRadtags) BuildCommand() (*exec.Cmd, error) {
	cl, err := external.Build(p)
	if err != nil {
		return nil, err
	}
	return exec.Command(cl[0], cl[1:]...), nil
}
