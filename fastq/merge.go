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

package fastq

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// MergeFiles concatenates the inputs into out. Gzip streams are valid
// sequences of members, so .gz lanes merge by plain byte concatenation
// without recompression. The parent directory of out is created if needed.
func MergeFiles(out string, inputs ...string) (err error) {
	if err := os.MkdirAll(filepath.Dir(out), 0700); err != nil {
		return errors.Wrapf(err, "creating directory for %v", out)
	}
	w, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "creating %v", out)
	}
	defer func() {
		if nerr := w.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v", out)
		}
	}()
	for _, input := range inputs {
		if err := appendFile(w, input); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(w io.Writer, input string) (err error) {
	r, err := os.Open(input)
	if err != nil {
		return errors.Wrapf(err, "opening %v", input)
	}
	defer func() {
		if nerr := r.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v", input)
		}
	}()
	if _, err := io.Copy(w, r); err != nil {
		return errors.Wrapf(err, "appending %v", input)
	}
	return nil
}
