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

package pipeline

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ampliprep.yaml")
	yaml := "prefix: DEMO\n" +
		"cores: 3\n" +
		"modules:\n" +
		"  - qiime2/2021.4\n" +
		"16s:\n" +
		"  trunc_len_f: 240\n" +
		"slurm:\n" +
		"  denoise:\n" +
		"    memory: 96G\n"
	if err := ioutil.WriteFile(path, []byte(yaml), 0666); err != nil {
		t.Fatal(err)
	}
	conf, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if conf.Prefix != "DEMO" {
		t.Error("prefix override failed")
	}
	if conf.Cores != 3 {
		t.Error("cores override failed")
	}
	if len(conf.Modules) != 1 || conf.Modules[0] != "qiime2/2021.4" {
		t.Error("modules override failed")
	}
	if conf.QiimeExec != "qiime" {
		t.Error("qiime exec default failed")
	}
	if conf.MinLength != 50 {
		t.Error("min length default failed")
	}
	a, err := conf.Amplicon(Amplicon16S)
	if err != nil {
		t.Fatal(err)
	}
	if a.TruncLenF != 240 {
		t.Error("16S trunc len override failed")
	}
	if a.ReversePrimer != "GGACTACNVGGGTWTCTAAT" {
		t.Error("16S reverse primer default failed")
	}
	if !a.ExtractReads {
		t.Error("16S extract reads default failed")
	}
	its, err := conf.Amplicon(AmpliconITS1)
	if err != nil {
		t.Fatal(err)
	}
	if its.TruncLenF != 0 || its.TruncLenR != 0 {
		t.Error("ITS1 truncation default failed")
	}
	if its.Include != "p__" {
		t.Error("ITS1 include default failed")
	}
	if its.Database != "UNITE" {
		t.Error("ITS1 database default failed")
	}
	r := conf.StageResources("denoise")
	if r.Memory != "96G" {
		t.Error("denoise memory override failed")
	}
	if r.CPUs != 16 {
		t.Error("denoise cpus default failed")
	}
	base := conf.StageResources("merge-lanes")
	if base.Memory != "16G" || base.Partition != "standard" {
		t.Error("base resources failed")
	}
	if _, err := conf.Amplicon("18S"); err == nil {
		t.Error("unknown amplicon lookup failed")
	}
}

func TestLoadConfigMissingExplicit(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing explicit config file not detected")
	}
}

func TestStageIndex(t *testing.T) {
	if StageIndex("merge-lanes") != 0 {
		t.Error("StageIndex merge-lanes failed")
	}
	if StageIndex("rarefy") != len(Stages)-1 {
		t.Error("StageIndex rarefy failed")
	}
	if StageIndex("train-classifier") != -1 {
		t.Error("StageIndex non-stage failed")
	}
}

func TestLayout(t *testing.T) {
	l := NewLayout("/data/cacao", "CFM")
	cases := [][2]string{
		{l.MergedDir(), "/data/cacao/qiime2/import/merged"},
		{l.TagMapping("SL01"), "/data/cacao/qiime2/import/demux/internal_tag_mappings/SL01_tags.tsv"},
		{l.SampleMapping(), "/data/cacao/qiime2/import/demux/stacks_sample_mapping_all_sublibraries.txt"},
		{l.FinalDir(Amplicon16S), "/data/cacao/qiime2/import/final/16S"},
		{l.Manifest(AmpliconITS1), "/data/cacao/qiime2/import/CFM_ITS1_manifest.tsv"},
		{l.DemuxArtifact(Amplicon16S), "/data/cacao/qiime2/import/CFM_16S_demux.qza"},
		{l.Table(Amplicon16S), "/data/cacao/qiime2/denoise/CFM_16S_table.qza"},
		{l.DatabaseDir("SILVA"), "/data/cacao/qiime2/databases/SILVA"},
		{l.Taxonomy(AmpliconITS1), "/data/cacao/qiime2/taxonomy/CFM_ITS1_taxonomy.qza"},
		{l.FilteredSummary(Amplicon16S), "/data/cacao/qiime2/filtered/CFM_16S_final_filtered_summary.qzv"},
		{l.AlphaRarefaction(Amplicon16S), "/data/cacao/qiime2/rarefaction/CFM_16S_alpha_rarefaction.qzv"},
		{l.StageSummary("demultiplex"), "/data/cacao/qiime2/summaries/demultiplex.tsv"},
	}
	for _, c := range cases {
		if c[0] != c[1] {
			t.Errorf("layout path failed: got %v, want %v", c[0], c[1])
		}
	}
}
