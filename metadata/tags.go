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

package metadata

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/willf/bitset"
)

// A TagRow is one line of a Stacks combinatorial barcode table: the tag
// pair and the name process_radtags files the demultiplexed reads under.
type TagRow struct {
	Forward string `csv:"forward"`
	Reverse string `csv:"reverse"`
	Name    string `csv:"name"`
}

// A TagTable is the barcode table of one sublibrary. Each sample
// contributes two rows, one per amplicon, since the amplicons are pooled
// in the same sublibrary under different tag pairs.
type TagTable struct {
	Sublibrary string
	Rows       []TagRow
}

// BuildTagTables derives the per-sublibrary tag tables from the sample
// mapping. Sublibraries come back in sorted order; within a table, samples
// keep the order of the mapping file. A sample with an empty tag sequence
// or a tag pair already claimed within the same sublibrary is a hard error:
// both would make process_radtags misassign reads silently.
func BuildTagTables(samples []Sample) ([]TagTable, error) {
	grouped := make(map[string][]TagRow)
	var sublibraries []string
	for _, sample := range samples {
		rows, ok := grouped[sample.Sublibrary]
		if !ok {
			sublibraries = append(sublibraries, sample.Sublibrary)
		}
		for _, entry := range []struct {
			name string
			tags TagPair
		}{
			{sample.ID + "_16S", sample.Tags16S},
			{sample.ID + "_ITS1", sample.TagsITS1},
		} {
			if entry.tags.Forward == "" || entry.tags.Reverse == "" {
				return nil, errors.Errorf("empty tag sequence for %v in sublibrary %v", entry.name, sample.Sublibrary)
			}
			rows = append(rows, TagRow{Forward: entry.tags.Forward, Reverse: entry.tags.Reverse, Name: entry.name})
		}
		grouped[sample.Sublibrary] = rows
	}
	sort.Strings(sublibraries)
	tables := make([]TagTable, 0, len(sublibraries))
	for _, sublibrary := range sublibraries {
		table := TagTable{Sublibrary: sublibrary, Rows: grouped[sublibrary]}
		if err := table.checkCollisions(); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// checkCollisions rejects duplicate tag pairs within the table. Tag pairs
// are mapped to a dense index so a single bit set covers the whole
// combinatorial space of the sublibrary.
func (t TagTable) checkCollisions() error {
	forward := make(map[string]uint)
	reverse := make(map[string]uint)
	for _, row := range t.Rows {
		if _, ok := forward[row.Forward]; !ok {
			forward[row.Forward] = uint(len(forward))
		}
		if _, ok := reverse[row.Reverse]; !ok {
			reverse[row.Reverse] = uint(len(reverse))
		}
	}
	stride := uint(len(reverse))
	seen := bitset.New(uint(len(forward)) * stride)
	owner := make(map[uint]string)
	for _, row := range t.Rows {
		index := forward[row.Forward]*stride + reverse[row.Reverse]
		if seen.Test(index) {
			return errors.Errorf("tag pair %v/%v in sublibrary %v claimed by both %v and %v",
				row.Forward, row.Reverse, t.Sublibrary, owner[index], row.Name)
		}
		seen.Set(index)
		owner[index] = row.Name
	}
	return nil
}

// Write stores the table at path as the headerless tab-separated file
// process_radtags expects, creating the parent directory if needed.
func (t TagTable) Write(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrapf(err, "creating directory for %v", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating tag table %v", path)
	}
	defer func() {
		if nerr := f.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v", path)
		}
	}()
	setTabWriter()
	if err := gocsv.MarshalWithoutHeaders(&t.Rows, f); err != nil {
		return errors.Wrapf(err, "writing tag table %v", path)
	}
	return nil
}
