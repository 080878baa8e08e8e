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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func writeFastqGz(t *testing.T, path string, reads int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	defer gz.Close()
	for i := 0; i < reads; i++ {
		fmt.Fprintf(gz, "@read%v\nACGTN\n+\nIIIII\n", i)
	}
}

func TestCountReads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub1_R1.fastq.gz")
	writeFastqGz(t, path, 7)
	n, err := CountReads(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Error("CountReads failed")
	}
}

func TestCountReadsPlain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub1_R1.fastq")
	var records strings.Builder
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&records, "@read%v\nACGTN\n+\nIIIII\n", i)
	}
	if err := os.WriteFile(path, []byte(records.String()), 0600); err != nil {
		t.Fatal(err)
	}
	n, err := CountReads(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Error("CountReads on a plain file failed")
	}
}

func TestCountReadsMissing(t *testing.T) {
	if _, err := CountReads(filepath.Join(t.TempDir(), "absent.fastq.gz")); err == nil {
		t.Error("CountReads did not report a missing file")
	}
}

func TestCountPairs(t *testing.T) {
	dir := t.TempDir()
	pairs := []Pair{
		{Name: "sampleA", Forward: filepath.Join(dir, "sampleA_R1.fastq.gz"), Reverse: filepath.Join(dir, "sampleA_R2.fastq.gz")},
		{Name: "sampleB", Forward: filepath.Join(dir, "sampleB_R1.fastq.gz"), Reverse: filepath.Join(dir, "sampleB_R2.fastq.gz")},
	}
	writeFastqGz(t, pairs[0].Forward, 4)
	writeFastqGz(t, pairs[0].Reverse, 4)
	writeFastqGz(t, pairs[1].Forward, 9)
	writeFastqGz(t, pairs[1].Reverse, 8)
	counts, err := CountPairs(pairs)
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 2 {
		t.Fatal("CountPairs returned the wrong number of entries")
	}
	if counts[0].Name != "sampleA" || counts[0].ForwardReads != 4 || counts[0].ReverseReads != 4 {
		t.Error("CountPairs failed for sampleA")
	}
	if counts[1].Name != "sampleB" || counts[1].ForwardReads != 9 || counts[1].ReverseReads != 8 {
		t.Error("CountPairs failed for sampleB")
	}
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	lane1 := filepath.Join(dir, "sub1_L001_R1_001.fastq.gz")
	lane2 := filepath.Join(dir, "sub1_L002_R1_001.fastq.gz")
	writeFastqGz(t, lane1, 5)
	writeFastqGz(t, lane2, 6)
	out := filepath.Join(dir, "merged", "sub1_R1.fastq.gz")
	if err := MergeFiles(out, lane1, lane2); err != nil {
		t.Fatal(err)
	}
	// The merged file is a multi-member gzip stream; counting it exercises
	// both the concatenation and the transparent decompression.
	n, err := CountReads(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 11 {
		t.Error("MergeFiles failed")
	}
}

func TestMergeFilesMissingInput(t *testing.T) {
	dir := t.TempDir()
	lane1 := filepath.Join(dir, "sub1_L001_R1_001.fastq.gz")
	writeFastqGz(t, lane1, 2)
	out := filepath.Join(dir, "sub1_R1.fastq.gz")
	if err := MergeFiles(out, lane1, filepath.Join(dir, "absent.fastq.gz")); err == nil {
		t.Error("MergeFiles did not report a missing input")
	}
}
