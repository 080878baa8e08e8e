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
	"strings"
	"testing"
)

func TestBuildTagTables(t *testing.T) {
	samples := []Sample{
		{ID: "sampleC", Sublibrary: "sub2",
			Tags16S:  TagPair{Forward: "AAAA", Reverse: "CCCC"},
			TagsITS1: TagPair{Forward: "GGGG", Reverse: "TTTT"}},
		{ID: "sampleA", Sublibrary: "sub1",
			Tags16S:  TagPair{Forward: "ACGT", Reverse: "TTAA"},
			TagsITS1: TagPair{Forward: "GGCC", Reverse: "CCGG"}},
		{ID: "sampleB", Sublibrary: "sub1",
			Tags16S:  TagPair{Forward: "TGCA", Reverse: "AATT"},
			TagsITS1: TagPair{Forward: "CCGG", Reverse: "GGCC"}},
	}
	tables, err := BuildTagTables(samples)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 2 || tables[0].Sublibrary != "sub1" || tables[1].Sublibrary != "sub2" {
		t.Fatal("BuildTagTables did not sort the sublibraries")
	}
	if len(tables[0].Rows) != 4 || len(tables[1].Rows) != 2 {
		t.Fatal("BuildTagTables produced the wrong number of rows")
	}
	if tables[0].Rows[0].Name != "sampleA_16S" || tables[0].Rows[1].Name != "sampleA_ITS1" {
		t.Error("BuildTagTables did not order the amplicon rows per sample")
	}
	if tables[0].Rows[2] != (TagRow{Forward: "TGCA", Reverse: "AATT", Name: "sampleB_16S"}) {
		t.Error("BuildTagTables produced a wrong row")
	}
}

func TestBuildTagTablesCollision(t *testing.T) {
	samples := []Sample{
		{ID: "sampleA", Sublibrary: "sub1",
			Tags16S:  TagPair{Forward: "ACGT", Reverse: "TTAA"},
			TagsITS1: TagPair{Forward: "GGCC", Reverse: "CCGG"}},
		{ID: "sampleB", Sublibrary: "sub1",
			Tags16S:  TagPair{Forward: "ACGT", Reverse: "TTAA"},
			TagsITS1: TagPair{Forward: "CCGG", Reverse: "GGCC"}},
	}
	_, err := BuildTagTables(samples)
	if err == nil {
		t.Fatal("BuildTagTables accepted a duplicate tag pair")
	}
	if !strings.Contains(err.Error(), "sampleA_16S") || !strings.Contains(err.Error(), "sampleB_16S") {
		t.Error("BuildTagTables did not name both colliding samples")
	}
	// The same pair in different sublibraries is fine.
	samples[1].Sublibrary = "sub2"
	if _, err := BuildTagTables(samples); err != nil {
		t.Error("BuildTagTables rejected identical tag pairs across sublibraries")
	}
}

func TestBuildTagTablesEmptyTag(t *testing.T) {
	samples := []Sample{
		{ID: "sampleA", Sublibrary: "sub1",
			Tags16S:  TagPair{Forward: "ACGT", Reverse: ""},
			TagsITS1: TagPair{Forward: "GGCC", Reverse: "CCGG"}},
	}
	_, err := BuildTagTables(samples)
	if err == nil {
		t.Fatal("BuildTagTables accepted an empty tag sequence")
	}
	if !strings.Contains(err.Error(), "sampleA_16S") {
		t.Error("BuildTagTables did not name the sample with the empty tag")
	}
}

func TestTagTableWrite(t *testing.T) {
	table := TagTable{Sublibrary: "sub1", Rows: []TagRow{
		{Forward: "ACGT", Reverse: "TTAA", Name: "sampleA_16S"},
		{Forward: "GGCC", Reverse: "CCGG", Name: "sampleA_ITS1"},
	}}
	path := filepath.Join(t.TempDir(), "internal_tag_mappings", "sub1_tags.tsv")
	if err := table.Write(path); err != nil {
		t.Fatal(err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// process_radtags wants a headerless tab-separated file.
	want := "ACGT\tTTAA\tsampleA_16S\nGGCC\tCCGG\tsampleA_ITS1\n"
	if string(contents) != want {
		t.Error("TagTable.Write failed")
	}
}
