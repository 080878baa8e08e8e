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

package tools

import (
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/biogo/external"
)

func buildArgs(t *testing.T, cb external.CommandBuilder) []string {
	t.Helper()
	cmd, err := cb.BuildCommand()
	if err != nil {
		t.Fatal(err)
	}
	return cmd.Args
}

func TestCutadaptAdapters(t *testing.T) {
	args := buildArgs(t, Cutadapt{
		Cores:          8,
		ForwardAdapter: "AGATCGGAAGAGCACACGTCTGAACTCCAGTCA",
		ReverseAdapter: "AGATCGGAAGAGCGTCGTGTAGGGAAAGAGTGT",
		MinLength:      50,
		Out:            "sub1_trimmed_R1.fastq.gz",
		PairedOut:      "sub1_trimmed_R2.fastq.gz",
		In:             "sub1_R1.fastq.gz",
		PairedIn:       "sub1_R2.fastq.gz",
	})
	want := []string{"cutadapt",
		"-j", "8",
		"-a", "AGATCGGAAGAGCACACGTCTGAACTCCAGTCA",
		"-A", "AGATCGGAAGAGCGTCGTGTAGGGAAAGAGTGT",
		"--minimum-length", "50",
		"-o", "sub1_trimmed_R1.fastq.gz",
		"-p", "sub1_trimmed_R2.fastq.gz",
		"sub1_R1.fastq.gz", "sub1_R2.fastq.gz",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("Cutadapt adapter command failed: %v", args)
	}
}

func TestCutadaptPrimers(t *testing.T) {
	args := buildArgs(t, Cutadapt{
		Cores:            4,
		ForwardPrimer:    "GTGYCAGCMGCCGCGGTAA",
		ReversePrimer:    "GGACTACNVGGGTWTCTAAT",
		DiscardUntrimmed: true,
		MinLength:        50,
		Out:              "sampleA_16S_R1.fastq.gz",
		PairedOut:        "sampleA_16S_R2.fastq.gz",
		In:               "sampleA_16S.1.fq.gz",
		PairedIn:         "sampleA_16S.2.fq.gz",
	})
	want := []string{"cutadapt",
		"-j", "4",
		"-g", "GTGYCAGCMGCCGCGGTAA",
		"-G", "GGACTACNVGGGTWTCTAAT",
		"--discard-untrimmed",
		"--minimum-length", "50",
		"-o", "sampleA_16S_R1.fastq.gz",
		"-p", "sampleA_16S_R2.fastq.gz",
		"sampleA_16S.1.fq.gz", "sampleA_16S.2.fq.gz",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("Cutadapt primer command failed: %v", args)
	}
}

func TestProcessRadtags(t *testing.T) {
	args := buildArgs(t, ProcessRadtags{
		Forward:         "sub1_trimmed_R1.fastq.gz",
		Reverse:         "sub1_trimmed_R2.fastq.gz",
		Tags:            "sub1_tags.tsv",
		OutDir:          "demux/sub1",
		InlineInline:    true,
		DisableRadCheck: true,
		Rescue:          true,
		InType:          "gzfastq",
		OutType:         "gzfastq",
	})
	want := []string{"process_radtags",
		"-1", "sub1_trimmed_R1.fastq.gz",
		"-2", "sub1_trimmed_R2.fastq.gz",
		"-b", "sub1_tags.tsv",
		"-o", "demux/sub1",
		"--inline-inline", "--disable-rad-check", "-r",
		"-i", "gzfastq",
		"-y", "gzfastq",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("ProcessRadtags command failed: %v", args)
	}
}

func TestImport(t *testing.T) {
	args := buildArgs(t, Import{
		Type:        "SampleData[PairedEndSequencesWithQuality]",
		InputPath:   "CFM_16S_manifest.tsv",
		InputFormat: "PairedEndFastqManifestPhred33V2",
		OutputPath:  "CFM_16S_demux.qza",
	})
	want := []string{"qiime", "tools", "import",
		"--type", "SampleData[PairedEndSequencesWithQuality]",
		"--input-path", "CFM_16S_manifest.tsv",
		"--input-format", "PairedEndFastqManifestPhred33V2",
		"--output-path", "CFM_16S_demux.qza",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("Import command failed: %v", args)
	}
}

func TestDenoisePairedZeroTruncation(t *testing.T) {
	// ITS1 runs without truncation; the zeros must still reach the
	// command line.
	args := buildArgs(t, DenoisePaired{
		DemultiplexedSeqs: "CFM_ITS1_demux.qza",
		Threads:           8,
		Table:             "table.qza",
		RepSeqs:           "rep_seqs.qza",
		DenoisingStats:    "stats.qza",
		Verbose:           true,
	})
	want := []string{"qiime", "dada2", "denoise-paired",
		"--i-demultiplexed-seqs", "CFM_ITS1_demux.qza",
		"--p-trim-left-f", "0",
		"--p-trim-left-r", "0",
		"--p-trunc-len-f", "0",
		"--p-trunc-len-r", "0",
		"--p-n-threads", "8",
		"--o-table", "table.qza",
		"--o-representative-sequences", "rep_seqs.qza",
		"--o-denoising-stats", "stats.qza",
		"--verbose",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("DenoisePaired command failed: %v", args)
	}
}

func TestFeatureTableSummarizeOptionalMetadata(t *testing.T) {
	args := buildArgs(t, FeatureTableSummarize{
		Table:         "table.qza",
		Visualization: "table_summary.qzv",
	})
	want := []string{"qiime", "feature-table", "summarize",
		"--i-table", "table.qza",
		"--o-visualization", "table_summary.qzv",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("FeatureTableSummarize without metadata failed: %v", args)
	}
	args = buildArgs(t, FeatureTableSummarize{
		Table:          "table.qza",
		SampleMetadata: "metadata.tsv",
		Visualization:  "table_summary.qzv",
	})
	want = []string{"qiime", "feature-table", "summarize",
		"--i-table", "table.qza",
		"--m-sample-metadata-file", "metadata.tsv",
		"--o-visualization", "table_summary.qzv",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("FeatureTableSummarize with metadata failed: %v", args)
	}
}

func TestTaxaFilterTable(t *testing.T) {
	args := buildArgs(t, TaxaFilterTable{
		Table:         "table.qza",
		Taxonomy:      "taxonomy.qza",
		Exclude:       "mitochondria,chloroplast",
		FilteredTable: "filtered.qza",
	})
	want := []string{"qiime", "taxa", "filter-table",
		"--i-table", "table.qza",
		"--i-taxonomy", "taxonomy.qza",
		"--p-exclude", "mitochondria,chloroplast",
		"--o-filtered-table", "filtered.qza",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("TaxaFilterTable exclude failed: %v", args)
	}
	args = buildArgs(t, TaxaFilterTable{
		Table:         "table.qza",
		Taxonomy:      "taxonomy.qza",
		Include:       "p__",
		FilteredTable: "filtered.qza",
	})
	want = []string{"qiime", "taxa", "filter-table",
		"--i-table", "table.qza",
		"--i-taxonomy", "taxonomy.qza",
		"--p-include", "p__",
		"--o-filtered-table", "filtered.qza",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("TaxaFilterTable include failed: %v", args)
	}
}

func TestAlphaRarefaction(t *testing.T) {
	args := buildArgs(t, AlphaRarefaction{
		Table:         "filtered.qza",
		MaxDepth:      10000,
		MinDepth:      1,
		Steps:         10,
		Iterations:    10,
		Visualization: "rarefaction.qzv",
	})
	want := []string{"qiime", "diversity", "alpha-rarefaction",
		"--i-table", "filtered.qza",
		"--p-max-depth", "10000",
		"--p-min-depth", "1",
		"--p-steps", "10",
		"--p-iterations", "10",
		"--o-visualization", "rarefaction.qzv",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("AlphaRarefaction command failed: %v", args)
	}
}

// shTool runs a shell one-liner through the Run helpers.
type shTool struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}sh{{end}}"` // sh
	Flag   string `buildarg:"{{if .}}{{.}}{{else}}-c{{end}}"` // -c
	Script string `buildarg:"{{.}}"`                          // "<script>"
}

func (s shTool) BuildCommand() (*exec.Cmd, error) {
	cl, err := external.Build(s)
	if err != nil {
		return nil, err
	}
	return exec.Command(cl[0], cl[1:]...), nil
}

func TestRun(t *testing.T) {
	if err := Run(shTool{Script: "exit 0"}); err != nil {
		t.Errorf("Run reported an error for a successful command: %v", err)
	}
	if err := Run(shTool{Script: "exit 3"}); err == nil {
		t.Error("Run did not report a failing command")
	}
}

func TestRunCapture(t *testing.T) {
	report := filepath.Join(t.TempDir(), "logs", "sub1_cutadapt.log")
	if err := RunCapture(shTool{Script: "echo trimming report"}, report); err != nil {
		t.Fatal(err)
	}
	contents, err := os.ReadFile(report)
	if err != nil {
		t.Fatal(err)
	}
	if string(contents) != "trimming report\n" {
		t.Error("RunCapture did not capture stdout")
	}
	if err := RunCapture(shTool{Script: "exit 1"}, report); err == nil {
		t.Error("RunCapture did not report a failing command")
	}
}

func TestCheckAvailable(t *testing.T) {
	if err := CheckAvailable("sh"); err != nil {
		t.Errorf("CheckAvailable failed for sh: %v", err)
	}
	if err := CheckAvailable("no-such-tool-anywhere"); err == nil {
		t.Error("CheckAvailable did not report a missing tool")
	}
}
