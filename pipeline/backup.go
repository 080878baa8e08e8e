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

package pipeline

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

// BackupExisting copies path to a timestamp-suffixed sibling if it exists,
// so a rerun never destroys an earlier artifact. It returns the backup path,
// or "" when there was nothing to back up.
func BackupExisting(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, "accessing %v", path)
	}
	backup := path + ".backup-" + time.Now().Format("20060102-150405")
	in, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %v", path)
	}
	defer in.Close()
	out, err := os.Create(backup)
	if err != nil {
		return "", errors.Wrapf(err, "creating %v", backup)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", errors.Wrapf(err, "copying %v", path)
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrapf(err, "closing %v", backup)
	}
	return backup, nil
}
