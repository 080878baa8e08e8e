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

package qzv

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSummaryQzv(t *testing.T, path, member, contents string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	defer w.Close()
	for name, data := range map[string]string{
		"0a1b2c3d/metadata.yaml": "uuid: 0a1b2c3d\n",
		member:                   contents,
	} {
		out, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := out.Write([]byte(data)); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReadSampleFrequencies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CFM_16S_final_filtered_summary.qzv")
	writeSummaryQzv(t, path, "0a1b2c3d/data/sample-frequency-detail.csv",
		",frequency\nsampleA,5012.0\nsampleB,12000.0\nsampleC,800.0\n")
	frequencies, err := ReadSampleFrequencies(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(frequencies) != 3 {
		t.Fatal("ReadSampleFrequencies returned the wrong number of samples")
	}
	if frequencies[0].Sample != "sampleA" || frequencies[0].Frequency != 5012 {
		t.Error("ReadSampleFrequencies failed on the first sample")
	}
	if frequencies[2].Sample != "sampleC" || frequencies[2].Frequency != 800 {
		t.Error("ReadSampleFrequencies failed on the last sample")
	}
}

func TestReadSampleFrequenciesNoColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.qzv")
	writeSummaryQzv(t, path, "0a1b2c3d/data/sample-frequency-detail.csv",
		",abundance\nsampleA,5012.0\n")
	if _, err := ReadSampleFrequencies(path); err == nil {
		t.Error("ReadSampleFrequencies accepted a file without a frequency column")
	}
}

func TestReadSampleFrequenciesNoMember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.qzv")
	writeSummaryQzv(t, path, "0a1b2c3d/data/index.html", "<html></html>")
	if _, err := ReadSampleFrequencies(path); err == nil {
		t.Error("ReadSampleFrequencies accepted a visualization without frequency detail")
	}
}

func TestReadSampleFrequenciesMissing(t *testing.T) {
	if _, err := ReadSampleFrequencies(filepath.Join(t.TempDir(), "absent.qzv")); err == nil {
		t.Error("ReadSampleFrequencies did not report a missing file")
	}
}

func TestNewDepthReportUniform(t *testing.T) {
	// With identical frequencies every location statistic collapses onto
	// that frequency, independent of the interpolation scheme.
	var frequencies []SampleFrequency
	for i := 0; i < 20; i++ {
		frequencies = append(frequencies, SampleFrequency{
			Sample:    fmt.Sprintf("sample%v", i),
			Frequency: 8000,
		})
	}
	report, err := NewDepthReport(frequencies)
	if err != nil {
		t.Fatal(err)
	}
	if report.Samples != 20 || report.Total != 160000 {
		t.Error("NewDepthReport miscounted")
	}
	if report.Min != 8000 || report.Max != 8000 || report.Mean != 8000 || report.Median != 8000 {
		t.Error("NewDepthReport location statistics failed")
	}
	for _, percentile := range report.Percentiles {
		if percentile.Depth != 8000 {
			t.Error("NewDepthReport percentile failed")
		}
	}
	if report.Conservative != 8000 || report.Moderate != 8000 || report.Aggressive != 8000 {
		t.Error("NewDepthReport suggestions failed")
	}
	for _, retention := range report.Retention {
		want := 20
		if retention.Depth > 8000 {
			want = 0
		}
		if retention.Retained != want {
			t.Errorf("NewDepthReport retention at %v failed", retention.Depth)
		}
	}
}

func TestNewDepthReportOrdering(t *testing.T) {
	frequencies := []SampleFrequency{
		{Sample: "sampleA", Frequency: 1000},
		{Sample: "sampleB", Frequency: 15000},
		{Sample: "sampleC", Frequency: 5200},
		{Sample: "sampleD", Frequency: 31000},
		{Sample: "sampleE", Frequency: 11000},
	}
	report, err := NewDepthReport(frequencies)
	if err != nil {
		t.Fatal(err)
	}
	if report.Min != 1000 || report.Max != 31000 || report.Total != 63200 {
		t.Error("NewDepthReport extrema failed")
	}
	if report.Median < report.Min || report.Median > report.Max {
		t.Error("NewDepthReport median out of range")
	}
	for i := 1; i < len(report.Percentiles); i++ {
		if report.Percentiles[i].Depth < report.Percentiles[i-1].Depth {
			t.Error("NewDepthReport percentiles are not monotonic")
		}
	}
	if !(report.Conservative <= report.Moderate && report.Moderate <= report.Aggressive) {
		t.Error("NewDepthReport suggestions are not ordered")
	}
	// Exactly-at-depth samples stay retained.
	if report.Retention[0].Retained != 5 {
		t.Error("NewDepthReport retention at 1000 failed")
	}
	if report.Retention[2].Depth != 10000 || report.Retention[2].Retained != 3 {
		t.Error("NewDepthReport retention at 10000 failed")
	}
	for i := 1; i < len(report.Retention); i++ {
		if report.Retention[i].Retained > report.Retention[i-1].Retained {
			t.Error("NewDepthReport retention is not monotonic")
		}
	}
}

func TestNewDepthReportEmpty(t *testing.T) {
	if _, err := NewDepthReport(nil); err == nil {
		t.Error("NewDepthReport accepted an empty frequency list")
	}
}

func TestDepthReportWrite(t *testing.T) {
	report, err := NewDepthReport([]SampleFrequency{
		{Sample: "sampleA", Frequency: 8000},
		{Sample: "sampleB", Frequency: 8000},
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "reports", "CFM_16S_depth_report.tsv")
	if err := report.Write(path); err != nil {
		t.Fatal(err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(contents)
	if !strings.HasPrefix(text, "metric\tvalue\n") {
		t.Error("DepthReport.Write produced the wrong header")
	}
	for _, line := range []string{
		"samples\t2\n", "median\t8000\n", "suggested_conservative\t8000\n", "retained_at_10000\t0/2\n",
	} {
		if !strings.Contains(text, line) {
			t.Errorf("DepthReport.Write is missing %q", line)
		}
	}
}
