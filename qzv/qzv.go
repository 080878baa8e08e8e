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

// Package qzv peeks inside QIIME 2 visualization artifacts. Artifacts are
// zip containers; we treat them as opaque everywhere except here, where the
// per-sample frequency detail of a feature-table summary is extracted to
// ground the choice of a rarefaction sampling depth.
package qzv

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const frequencyDetail = "sample-frequency-detail.csv"

// A SampleFrequency is the per-sample feature count reported by
// qiime feature-table summarize.
type SampleFrequency struct {
	Sample    string  `csv:"sample-id"`
	Frequency float64 `csv:"frequency"`
}

// ReadSampleFrequencies extracts the sample frequencies from a
// feature-table summary visualization. The member path inside the
// container starts with the artifact's UUID, so members are matched on
// their basename.
func ReadSampleFrequencies(path string) ([]SampleFrequency, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening visualization %v", path)
	}
	defer r.Close()
	for _, member := range r.File {
		if strings.HasSuffix(member.Name, frequencyDetail) {
			return parseFrequencyDetail(member, path)
		}
	}
	return nil, errors.Errorf("no %v member in %v", frequencyDetail, path)
}

func parseFrequencyDetail(member *zip.File, path string) (frequencies []SampleFrequency, err error) {
	f, err := member.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %v in %v", member.Name, path)
	}
	defer func() {
		if nerr := f.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v in %v", member.Name, path)
		}
	}()
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "reading header of %v in %v", member.Name, path)
	}
	column := -1
	for i, name := range header {
		if name == "frequency" {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, errors.Errorf("no frequency column in %v of %v", member.Name, path)
	}
	for {
		row, err := r.Read()
		if err == io.EOF {
			return frequencies, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %v in %v", member.Name, path)
		}
		frequency, err := strconv.ParseFloat(row[column], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing frequency of sample %v in %v", row[0], path)
		}
		frequencies = append(frequencies, SampleFrequency{Sample: row[0], Frequency: frequency})
	}
}
