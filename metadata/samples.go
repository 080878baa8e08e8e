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

// Package metadata reads the study's sample mapping table and derives the
// per-sublibrary Stacks tag tables and the QIIME 2 import manifests from it.
package metadata

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"
)

// A TagPair is the inline forward/reverse tag combination identifying one
// sample within a sublibrary for one amplicon.
type TagPair struct {
	Forward string
	Reverse string
}

// A Sample is one row of the sample mapping table.
type Sample struct {
	ID         string
	Sublibrary string
	Tags16S    TagPair
	TagsITS1   TagPair
}

// Column layout of the sample mapping table. The layout is positional;
// the header row only serves human readers.
const (
	colSampleID = iota
	colSublibrary
	_ // 16S forward primer, tags are what we demultiplex on
	col16SForwardTag
	_ // 16S reverse primer
	col16SReverseTag
	_ // ITS1 forward primer
	colITS1ForwardTag
	_ // ITS1 reverse primer
	colITS1ReverseTag
	numColumns
)

// ReadSamples parses the sample mapping table at path. Rows with fewer than
// ten columns cannot carry a full tag layout and are skipped; their count is
// returned so callers can report them. Header rows and rows without a sample
// or sublibrary identifier are skipped silently.
func ReadSamples(path string) (samples []Sample, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "opening sample mapping %v", path)
	}
	defer func() {
		if nerr := f.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v", path)
		}
	}()
	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	for {
		row, err := r.Read()
		if err == io.EOF {
			return samples, skipped, nil
		}
		if err != nil {
			return nil, skipped, errors.Wrapf(err, "parsing sample mapping %v", path)
		}
		if len(row) < numColumns {
			skipped++
			continue
		}
		if row[colSampleID] == "sample-id" || row[colSampleID] == "" || row[colSublibrary] == "" {
			continue
		}
		samples = append(samples, Sample{
			ID:         row[colSampleID],
			Sublibrary: row[colSublibrary],
			Tags16S:    TagPair{Forward: row[col16SForwardTag], Reverse: row[col16SReverseTag]},
			TagsITS1:   TagPair{Forward: row[colITS1ForwardTag], Reverse: row[colITS1ReverseTag]},
		})
	}
}
