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
	"testing"
)

const sampleMapping = "sample-id\tsublibrary_id\t16s_forward_primer\t16s_forward_primer_tag\t16s_reverse_primer\t16s_reverse_primer_tag\tits1_forward_primer\tits1_forward_primer_tag\tits1_reverse_primer\tits1_reverse_primer_tag\n" +
	"sampleA\tsub1\tGTGYCAGCMGCCGCGGTAA\tACGT\tGGACTACNVGGGTWTCTAAT\tTTAA\tCTTGGTCATTTAGAGGAAGTAA\tGGCC\tGCTGCGTTCTTCATCGATGC\tCCGG\n" +
	"sampleB\tsub1\tGTGYCAGCMGCCGCGGTAA\tTGCA\tGGACTACNVGGGTWTCTAAT\tAATT\tCTTGGTCATTTAGAGGAAGTAA\tCCGG\tGCTGCGTTCTTCATCGATGC\tGGCC\n" +
	"ragged\tsub1\tonly\tfour\tcolumns\n" +
	"\tsub2\tGTGYCAGCMGCCGCGGTAA\tAAAA\tGGACTACNVGGGTWTCTAAT\tCCCC\tCTTGGTCATTTAGAGGAAGTAA\tGGGG\tGCTGCGTTCTTCATCGATGC\tTTTT\n" +
	"sampleC\tsub2\tGTGYCAGCMGCCGCGGTAA\tAAAA\tGGACTACNVGGGTWTCTAAT\tCCCC\tCTTGGTCATTTAGAGGAAGTAA\tGGGG\tGCTGCGTTCTTCATCGATGC\tTTTT\n"

func writeMapping(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stacks_sample_mapping_all_sublibraries.txt")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadSamples(t *testing.T) {
	samples, skipped, err := ReadSamples(writeMapping(t, sampleMapping))
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Error("ReadSamples did not count the ragged row")
	}
	if len(samples) != 3 {
		t.Fatal("ReadSamples returned the wrong number of samples")
	}
	if samples[0].ID != "sampleA" || samples[0].Sublibrary != "sub1" {
		t.Error("ReadSamples failed on the first row")
	}
	if samples[0].Tags16S != (TagPair{Forward: "ACGT", Reverse: "TTAA"}) {
		t.Error("ReadSamples misread the 16S tags")
	}
	if samples[0].TagsITS1 != (TagPair{Forward: "GGCC", Reverse: "CCGG"}) {
		t.Error("ReadSamples misread the ITS1 tags")
	}
	if samples[2].ID != "sampleC" || samples[2].Sublibrary != "sub2" {
		t.Error("ReadSamples failed on the last row")
	}
}

func TestReadSamplesMissing(t *testing.T) {
	if _, _, err := ReadSamples(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("ReadSamples did not report a missing file")
	}
}
