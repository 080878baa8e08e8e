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
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte{}, 0600); err != nil {
		t.Fatal(err)
	}
}

func TestSubstitute(t *testing.T) {
	mate, err := Substitute("/raw/sub1_L001_R1_001.fastq.gz", ForwardToken, ReverseToken)
	if err != nil {
		t.Fatal(err)
	}
	if mate != "/raw/sub1_L001_R2_001.fastq.gz" {
		t.Error("Substitute failed")
	}
	// A token inside the sublibrary name must survive: only the last
	// occurrence is the Illumina one.
	mate, err = Substitute("/raw/pool_R1_x_L001_R1_001.fastq.gz", ForwardToken, ReverseToken)
	if err != nil {
		t.Fatal(err)
	}
	if mate != "/raw/pool_R1_x_L001_R2_001.fastq.gz" {
		t.Error("Substitute replaced the wrong occurrence")
	}
	if _, err := Substitute("/raw/sub1.fastq.gz", Lane1Token, Lane2Token); err == nil {
		t.Error("Substitute did not report a missing token")
	}
}

func TestFindLaneSets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"sub1_L001_R1_001.fastq.gz", "sub1_L001_R2_001.fastq.gz",
		"sub1_L002_R1_001.fastq.gz", "sub1_L002_R2_001.fastq.gz",
		"sub2_L001_R1_001.fastq.gz", "sub2_L001_R2_001.fastq.gz",
		"sub2_L002_R1_001.fastq.gz",
	} {
		touch(t, filepath.Join(dir, name))
	}
	sets, err := FindLaneSets(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 2 {
		t.Fatal("FindLaneSets returned the wrong number of sets")
	}
	if sets[0].Sublibrary != "sub1" || sets[1].Sublibrary != "sub2" {
		t.Error("FindLaneSets returned the wrong sublibraries")
	}
	if sets[0].Lane2.Forward != filepath.Join(dir, "sub1_L002_R1_001.fastq.gz") {
		t.Error("FindLaneSets derived the wrong lane 2 file")
	}
	if err := sets[0].Validate(); err != nil {
		t.Error("Validate rejected a complete lane set")
	}
	if err := sets[1].Validate(); err == nil {
		t.Error("Validate accepted an incomplete lane set")
	}
}

func TestFindLaneSetsEmpty(t *testing.T) {
	sets, err := FindLaneSets(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 0 {
		t.Error("FindLaneSets found sets in an empty directory")
	}
}

func TestFindMergedPairs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "sub1_R1.fastq.gz"))
	touch(t, filepath.Join(dir, "sub1_R2.fastq.gz"))
	pairs, err := FindMergedPairs(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || pairs[0].Name != "sub1" {
		t.Fatal("FindMergedPairs failed")
	}
	if err := pairs[0].Validate(); err != nil {
		t.Error("Validate rejected a complete pair")
	}
}

func TestFindTrimmedPairs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "sub1_trimmed_R1.fastq.gz"))
	touch(t, filepath.Join(dir, "sub1_trimmed_R2.fastq.gz"))
	touch(t, filepath.Join(dir, "sub2_trimmed_R1.fastq.gz"))
	pairs, err := FindTrimmedPairs(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 || pairs[0].Name != "sub1" || pairs[1].Name != "sub2" {
		t.Fatal("FindTrimmedPairs failed")
	}
	if err := pairs[1].Validate(); err == nil {
		t.Error("Validate accepted a pair with a missing mate")
	}
}

func TestFindRadtagsPairs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"sampleA_16S.1.fq.gz", "sampleA_16S.2.fq.gz",
		"sampleA_16S.rem.1.fq.gz", "sampleA_16S.rem.2.fq.gz",
		"sampleB_16S.1.fq.gz",
		"sampleC_ITS1.1.fq.gz", "sampleC_ITS1.2.fq.gz",
	} {
		touch(t, filepath.Join(dir, name))
	}
	pairs, err := FindRadtagsPairs(dir, "16S")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 {
		t.Fatal("FindRadtagsPairs returned the wrong number of pairs")
	}
	if pairs[0].Name != "sampleA" || pairs[1].Name != "sampleB" {
		t.Error("FindRadtagsPairs returned the wrong samples")
	}
	if err := pairs[0].Validate(); err != nil {
		t.Error("Validate rejected a complete pair")
	}
	if err := pairs[1].Validate(); err == nil {
		t.Error("Validate accepted a pair with a missing mate")
	}
}

func TestFindFinalPairs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "sampleA_ITS1_R1.fastq.gz"))
	touch(t, filepath.Join(dir, "sampleA_ITS1_R2.fastq.gz"))
	touch(t, filepath.Join(dir, "sampleB_16S_R1.fastq.gz"))
	pairs, err := FindFinalPairs(dir, "ITS1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || pairs[0].Name != "sampleA" {
		t.Error("FindFinalPairs failed")
	}
}
