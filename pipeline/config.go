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

// Package pipeline holds the configuration, directory layout, and stage
// bookkeeping shared by all ampliprep commands.
package pipeline

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Amplicon names as they appear in file names and config keys.
const (
	Amplicon16S  = "16S"
	AmpliconITS1 = "ITS1"
)

// Stages lists the pipeline stages in execution order. Classifier training
// is deliberately absent: reference databases are prepared manually.
var Stages = []string{
	"merge-lanes",
	"trim-adapters",
	"mapping-files",
	"demultiplex",
	"trim-primers",
	"import",
	"denoise",
	"classify",
	"filter",
	"rarefy",
}

// StageIndex returns the position of a stage in the pipeline order, or -1.
func StageIndex(name string) int {
	for i, s := range Stages {
		if s == name {
			return i
		}
	}
	return -1
}

// Amplicon describes one target region and everything needed to trim,
// denoise, classify, and filter it.
type Amplicon struct {
	Name          string
	ForwardPrimer string
	ReversePrimer string
	TrimLeftF     int
	TrimLeftR     int
	TruncLenF     int
	TruncLenR     int

	// taxa filter-table criteria; empty means the option is omitted.
	Exclude string
	Include string

	// Reference database artifacts for classifier training/use.
	Database      string
	Classifier    string
	RefSeqs       string
	RefTaxonomy   string
	ExtractReads  bool
	ExtractMinLen int
	ExtractMaxLen int
}

// Resources are the SLURM resources requested for one batch job.
type Resources struct {
	Partition string
	CPUs      int
	Memory    string
	Time      string
}

// Config is the merged view of ampliprep.yaml and the built-in defaults.
// Command-line flags override individual fields after loading.
type Config struct {
	Prefix  string
	BaseDir string
	RawDir  string

	// SampleMapping is the tag metadata TSV; empty means the layout default.
	SampleMapping string
	// SampleMetadata is the QIIME 2 sample metadata file. It is optional:
	// stages that use it degrade with a warning when it is absent.
	SampleMetadata string

	CutadaptExec string
	RadtagsExec  string
	QiimeExec    string
	SbatchExec   string

	ForwardAdapter string
	ReverseAdapter string
	MinLength      int
	Cores          int

	FilterMinFrequency int
	FilterMinSamples   int

	RarefactionMaxDepth   int
	RarefactionSteps      int
	RarefactionIterations int

	Modules []string

	Slurm       Resources
	SlurmStages map[string]Resources

	amplicons []Amplicon
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("prefix", "CFM")
	v.SetDefault("base_dir", ".")
	v.SetDefault("raw_dir", "raw")
	v.SetDefault("sample_mapping", "")
	v.SetDefault("sample_metadata", "sample_metadata.tsv")

	v.SetDefault("cutadapt_exec", "cutadapt")
	v.SetDefault("radtags_exec", "process_radtags")
	v.SetDefault("qiime_exec", "qiime")
	v.SetDefault("sbatch_exec", "sbatch")

	v.SetDefault("forward_adapter", "AGATCGGAAGAGCACACGTCTGAACTCCAGTCA")
	v.SetDefault("reverse_adapter", "AGATCGGAAGAGCGTCGTGTAGGGAAAGAGTGT")
	v.SetDefault("min_length", 50)
	v.SetDefault("cores", 8)

	v.SetDefault("16s.forward_primer", "GTGYCAGCMGCCGCGGTAA")
	v.SetDefault("16s.reverse_primer", "GGACTACNVGGGTWTCTAAT")
	v.SetDefault("16s.trim_left_f", 0)
	v.SetDefault("16s.trim_left_r", 0)
	v.SetDefault("16s.trunc_len_f", 220)
	v.SetDefault("16s.trunc_len_r", 180)
	v.SetDefault("16s.exclude", "mitochondria,chloroplast")
	v.SetDefault("16s.include", "")
	v.SetDefault("16s.database", "SILVA")
	v.SetDefault("16s.classifier", "qiime2/databases/SILVA/silva_138_515_806_classifier.qza")
	v.SetDefault("16s.ref_seqs", "qiime2/databases/SILVA/silva_138_seqs.qza")
	v.SetDefault("16s.ref_taxonomy", "qiime2/databases/SILVA/silva_138_taxonomy.qza")
	v.SetDefault("16s.extract_reads", true)
	v.SetDefault("16s.extract_min_length", 100)
	v.SetDefault("16s.extract_max_length", 400)

	v.SetDefault("its1.forward_primer", "CTTGGTCATTTAGAGGAAGTAA")
	v.SetDefault("its1.reverse_primer", "GCTGCGTTCTTCATCGATGC")
	v.SetDefault("its1.trim_left_f", 0)
	v.SetDefault("its1.trim_left_r", 0)
	v.SetDefault("its1.trunc_len_f", 0)
	v.SetDefault("its1.trunc_len_r", 0)
	v.SetDefault("its1.exclude", "")
	v.SetDefault("its1.include", "p__")
	v.SetDefault("its1.database", "UNITE")
	v.SetDefault("its1.classifier", "qiime2/databases/UNITE/unite_ver9_classifier.qza")
	v.SetDefault("its1.ref_seqs", "qiime2/databases/UNITE/unite_ver9_seqs.qza")
	v.SetDefault("its1.ref_taxonomy", "qiime2/databases/UNITE/unite_ver9_taxonomy.qza")
	v.SetDefault("its1.extract_reads", false)
	v.SetDefault("its1.extract_min_length", 0)
	v.SetDefault("its1.extract_max_length", 0)

	v.SetDefault("filter.min_frequency", 10)
	v.SetDefault("filter.min_samples", 2)

	v.SetDefault("rarefaction.max_depth", 10000)
	v.SetDefault("rarefaction.steps", 10)
	v.SetDefault("rarefaction.iterations", 10)

	v.SetDefault("modules", []string{})

	v.SetDefault("slurm.partition", "standard")
	v.SetDefault("slurm.cpus", 8)
	v.SetDefault("slurm.memory", "16G")
	v.SetDefault("slurm.time", "12:00:00")
	v.SetDefault("slurm.denoise.cpus", 16)
	v.SetDefault("slurm.denoise.memory", "64G")
	v.SetDefault("slurm.denoise.time", "48:00:00")
	v.SetDefault("slurm.classify.cpus", 16)
	v.SetDefault("slurm.classify.memory", "128G")
	v.SetDefault("slurm.classify.time", "48:00:00")
	v.SetDefault("slurm.train-classifier.memory", "128G")
	v.SetDefault("slurm.train-classifier.time", "72:00:00")
}

func amplicon(v *viper.Viper, name, key string) Amplicon {
	return Amplicon{
		Name:          name,
		ForwardPrimer: v.GetString(key + ".forward_primer"),
		ReversePrimer: v.GetString(key + ".reverse_primer"),
		TrimLeftF:     v.GetInt(key + ".trim_left_f"),
		TrimLeftR:     v.GetInt(key + ".trim_left_r"),
		TruncLenF:     v.GetInt(key + ".trunc_len_f"),
		TruncLenR:     v.GetInt(key + ".trunc_len_r"),
		Exclude:       v.GetString(key + ".exclude"),
		Include:       v.GetString(key + ".include"),
		Database:      v.GetString(key + ".database"),
		Classifier:    v.GetString(key + ".classifier"),
		RefSeqs:       v.GetString(key + ".ref_seqs"),
		RefTaxonomy:   v.GetString(key + ".ref_taxonomy"),
		ExtractReads:  v.GetBool(key + ".extract_reads"),
		ExtractMinLen: v.GetInt(key + ".extract_min_length"),
		ExtractMaxLen: v.GetInt(key + ".extract_max_length"),
	}
}

func stageResources(v *viper.Viper, base Resources, stage string) Resources {
	r := base
	key := "slurm." + stage
	if s := v.GetString(key + ".partition"); s != "" {
		r.Partition = s
	}
	if n := v.GetInt(key + ".cpus"); n != 0 {
		r.CPUs = n
	}
	if s := v.GetString(key + ".memory"); s != "" {
		r.Memory = s
	}
	if s := v.GetString(key + ".time"); s != "" {
		r.Time = s
	}
	return r
}

// LoadConfig reads ampliprep.yaml. With an empty path the file is searched
// in the working directory and $HOME/.config/ and may be absent, in which
// case the built-in defaults apply; an explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		v.SetConfigName("ampliprep")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/")
	} else {
		v.SetConfigFile(path)
	}
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	c := &Config{
		Prefix:         v.GetString("prefix"),
		BaseDir:        v.GetString("base_dir"),
		RawDir:         v.GetString("raw_dir"),
		SampleMapping:  v.GetString("sample_mapping"),
		SampleMetadata: v.GetString("sample_metadata"),

		CutadaptExec: v.GetString("cutadapt_exec"),
		RadtagsExec:  v.GetString("radtags_exec"),
		QiimeExec:    v.GetString("qiime_exec"),
		SbatchExec:   v.GetString("sbatch_exec"),

		ForwardAdapter: v.GetString("forward_adapter"),
		ReverseAdapter: v.GetString("reverse_adapter"),
		MinLength:      v.GetInt("min_length"),
		Cores:          v.GetInt("cores"),

		FilterMinFrequency: v.GetInt("filter.min_frequency"),
		FilterMinSamples:   v.GetInt("filter.min_samples"),

		RarefactionMaxDepth:   v.GetInt("rarefaction.max_depth"),
		RarefactionSteps:      v.GetInt("rarefaction.steps"),
		RarefactionIterations: v.GetInt("rarefaction.iterations"),

		Modules: v.GetStringSlice("modules"),

		Slurm: Resources{
			Partition: v.GetString("slurm.partition"),
			CPUs:      v.GetInt("slurm.cpus"),
			Memory:    v.GetString("slurm.memory"),
			Time:      v.GetString("slurm.time"),
		},
		SlurmStages: make(map[string]Resources),

		amplicons: []Amplicon{
			amplicon(v, Amplicon16S, "16s"),
			amplicon(v, AmpliconITS1, "its1"),
		},
	}
	for _, stage := range Stages {
		c.SlurmStages[stage] = stageResources(v, c.Slurm, stage)
	}
	c.SlurmStages["train-classifier"] = stageResources(v, c.Slurm, "train-classifier")
	return c, nil
}

// Amplicons returns the configured amplicons in fixed order (16S, ITS1).
func (c *Config) Amplicons() []Amplicon {
	return c.amplicons
}

// Amplicon looks up one amplicon by name.
func (c *Config) Amplicon(name string) (Amplicon, error) {
	for _, a := range c.amplicons {
		if a.Name == name {
			return a, nil
		}
	}
	return Amplicon{}, errors.Errorf("unknown amplicon %v", name)
}

// StageResources returns the SLURM resources for a stage, falling back to
// the base settings for stages without overrides.
func (c *Config) StageResources(stage string) Resources {
	if r, ok := c.SlurmStages[stage]; ok {
		return r
	}
	return c.Slurm
}

// Resolve interprets a configured path relative to the base directory.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}
