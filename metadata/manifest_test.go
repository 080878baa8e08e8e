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

	"github.com/metabarcoding/ampliprep/fastq"
)

func finalPairs(t *testing.T, dir string, samples ...string) []fastq.Pair {
	t.Helper()
	pairs := make([]fastq.Pair, 0, len(samples))
	for _, sample := range samples {
		pair := fastq.Pair{
			Name:    sample,
			Forward: filepath.Join(dir, sample+"_16S_R1.fastq.gz"),
			Reverse: filepath.Join(dir, sample+"_16S_R2.fastq.gz"),
		}
		for _, path := range []string{pair.Forward, pair.Reverse} {
			if err := os.WriteFile(path, []byte{}, 0600); err != nil {
				t.Fatal(err)
			}
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pairs := finalPairs(t, dir, "sampleA", "sampleB", "sampleC")
	records, err := BuildManifest(pairs)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "CFM_16S_manifest.tsv")
	if err := WriteManifest(path, records); err != nil {
		t.Fatal(err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(contents), "\n"), "\n")
	if lines[0] != "sample-id\tforward-absolute-filepath\treverse-absolute-filepath" {
		t.Error("WriteManifest produced the wrong header")
	}
	// Three pairs in, exactly three rows below the header.
	if len(lines) != 4 {
		t.Error("WriteManifest produced the wrong number of rows")
	}
	back, err := ReadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 3 || back[0] != records[0] || back[2] != records[2] {
		t.Error("ReadManifest did not round trip")
	}
	if err := VerifyManifest(path, 3); err != nil {
		t.Errorf("VerifyManifest rejected a valid manifest: %v", err)
	}
	if err := VerifyManifest(path, 4); err == nil {
		t.Error("VerifyManifest accepted a wrong row count")
	}
}

func TestBuildManifestRelative(t *testing.T) {
	records, err := BuildManifest([]fastq.Pair{{
		Name:    "sampleA",
		Forward: "rel/sampleA_16S_R1.fastq.gz",
		Reverse: "rel/sampleA_16S_R2.fastq.gz",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(records[0].Forward) || !filepath.IsAbs(records[0].Reverse) {
		t.Error("BuildManifest did not resolve relative paths")
	}
}

func TestVerifyManifestMissingFile(t *testing.T) {
	dir := t.TempDir()
	pairs := finalPairs(t, dir, "sampleA")
	records, err := BuildManifest(pairs)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "CFM_16S_manifest.tsv")
	if err := WriteManifest(path, records); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(pairs[0].Reverse); err != nil {
		t.Fatal(err)
	}
	if err := VerifyManifest(path, 1); err == nil {
		t.Error("VerifyManifest accepted a manifest pointing at a missing file")
	}
}
