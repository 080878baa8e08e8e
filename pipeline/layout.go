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

import "path/filepath"

// Layout computes every artifact path of the fixed qiime2/ directory
// convention. Stages hand work to each other exclusively through these
// paths; there is no other shared state between them.
type Layout struct {
	Base   string
	Prefix string
}

// NewLayout returns the layout rooted at base with the given artifact
// name prefix.
func NewLayout(base, prefix string) Layout {
	return Layout{Base: base, Prefix: prefix}
}

func (l Layout) join(elem ...string) string {
	return filepath.Join(append([]string{l.Base, "qiime2"}, elem...)...)
}

func (l Layout) artifact(amplicon, suffix string) string {
	return l.Prefix + "_" + amplicon + suffix
}

// ImportDir is the root of the import stage artifacts.
func (l Layout) ImportDir() string { return l.join("import") }

// MergedDir holds the lane-merged per-sublibrary FASTQ files.
func (l Layout) MergedDir() string { return l.join("import", "merged") }

// TrimmedDir holds the adapter-trimmed per-sublibrary FASTQ files.
func (l Layout) TrimmedDir() string { return l.join("import", "trimmed") }

// MergedPair returns the lane-merged FASTQ pair of a sublibrary.
func (l Layout) MergedPair(sublibrary string) (forward, reverse string) {
	return filepath.Join(l.MergedDir(), sublibrary+"_R1.fastq.gz"),
		filepath.Join(l.MergedDir(), sublibrary+"_R2.fastq.gz")
}

// TrimmedPair returns the adapter-trimmed FASTQ pair of a sublibrary.
func (l Layout) TrimmedPair(sublibrary string) (forward, reverse string) {
	return filepath.Join(l.TrimmedDir(), sublibrary+"_trimmed_R1.fastq.gz"),
		filepath.Join(l.TrimmedDir(), sublibrary+"_trimmed_R2.fastq.gz")
}

// CutadaptLog is the captured cutadapt report of one sublibrary.
func (l Layout) CutadaptLog(sublibrary string) string {
	return filepath.Join(l.TrimmedDir(), sublibrary+"_cutadapt.log")
}

// DemuxDir is the demultiplexing root.
func (l Layout) DemuxDir() string { return l.join("import", "demux") }

// SublibraryDemuxDir holds one sublibrary's demultiplexed samples.
func (l Layout) SublibraryDemuxDir(sublibrary string) string {
	return l.join("import", "demux", sublibrary)
}

// SampleMapping is the default location of the tag metadata TSV.
func (l Layout) SampleMapping() string {
	return l.join("import", "demux", "stacks_sample_mapping_all_sublibraries.txt")
}

// TagMappingDir holds the per-sublibrary Stacks tag files.
func (l Layout) TagMappingDir() string {
	return l.join("import", "demux", "internal_tag_mappings")
}

// TagMapping is the Stacks barcode file for one sublibrary.
func (l Layout) TagMapping(sublibrary string) string {
	return filepath.Join(l.TagMappingDir(), sublibrary+"_tags.tsv")
}

// FinalDir holds the primer-trimmed per-sample reads of one amplicon,
// ready for import.
func (l Layout) FinalDir(amplicon string) string {
	return l.join("import", "final", amplicon)
}

// FinalPair returns the primer-trimmed FASTQ pair of one sample for an
// amplicon.
func (l Layout) FinalPair(sample, amplicon string) (forward, reverse string) {
	return filepath.Join(l.FinalDir(amplicon), sample+"_"+amplicon+"_R1.fastq.gz"),
		filepath.Join(l.FinalDir(amplicon), sample+"_"+amplicon+"_R2.fastq.gz")
}

// Manifest is the QIIME 2 import manifest of one amplicon.
func (l Layout) Manifest(amplicon string) string {
	return filepath.Join(l.ImportDir(), l.artifact(amplicon, "_manifest.tsv"))
}

// DemuxArtifact is the imported demultiplexed sequence artifact.
func (l Layout) DemuxArtifact(amplicon string) string {
	return filepath.Join(l.ImportDir(), l.artifact(amplicon, "_demux.qza"))
}

// DemuxViz is the demux summarize visualization.
func (l Layout) DemuxViz(amplicon string) string {
	return filepath.Join(l.ImportDir(), l.artifact(amplicon, "_demux.qzv"))
}

// DenoiseDir holds the DADA2 outputs.
func (l Layout) DenoiseDir() string { return l.join("denoise") }

// Table is the DADA2 feature table.
func (l Layout) Table(amplicon string) string {
	return filepath.Join(l.DenoiseDir(), l.artifact(amplicon, "_table.qza"))
}

// RepSeqs is the DADA2 representative sequence artifact.
func (l Layout) RepSeqs(amplicon string) string {
	return filepath.Join(l.DenoiseDir(), l.artifact(amplicon, "_rep_seqs.qza"))
}

// DenoisingStats is the DADA2 per-sample statistics artifact.
func (l Layout) DenoisingStats(amplicon string) string {
	return filepath.Join(l.DenoiseDir(), l.artifact(amplicon, "_denoising_stats.qza"))
}

// DenoisingStatsViz is the tabulated denoising statistics.
func (l Layout) DenoisingStatsViz(amplicon string) string {
	return filepath.Join(l.DenoiseDir(), l.artifact(amplicon, "_denoising_stats.qzv"))
}

// TableSummary is the feature-table summarize visualization after denoising.
func (l Layout) TableSummary(amplicon string) string {
	return filepath.Join(l.DenoiseDir(), l.artifact(amplicon, "_table_summary.qzv"))
}

// DatabaseDir holds the reference database artifacts (SILVA, UNITE).
func (l Layout) DatabaseDir(database string) string {
	return l.join("databases", database)
}

// TaxonomyDir holds the classification outputs.
func (l Layout) TaxonomyDir() string { return l.join("taxonomy") }

// Taxonomy is the classify-sklearn output artifact.
func (l Layout) Taxonomy(amplicon string) string {
	return filepath.Join(l.TaxonomyDir(), l.artifact(amplicon, "_taxonomy.qza"))
}

// TaxonomyViz is the tabulated taxonomy.
func (l Layout) TaxonomyViz(amplicon string) string {
	return filepath.Join(l.TaxonomyDir(), l.artifact(amplicon, "_taxonomy.qzv"))
}

// TaxaBarplot is the taxa barplot visualization.
func (l Layout) TaxaBarplot(amplicon string) string {
	return filepath.Join(l.TaxonomyDir(), l.artifact(amplicon, "_taxa_barplot.qzv"))
}

// FilteredDir holds the filtered tables and sequences.
func (l Layout) FilteredDir() string { return l.join("filtered") }

// TaxaFilteredTable is the intermediate table after the taxonomy filter,
// before the frequency filter.
func (l Layout) TaxaFilteredTable(amplicon string) string {
	return filepath.Join(l.FilteredDir(), l.artifact(amplicon, "_taxa_filtered.qza"))
}

// FilteredTable is the fully filtered feature table.
func (l Layout) FilteredTable(amplicon string) string {
	return filepath.Join(l.FilteredDir(), l.artifact(amplicon, "_final_filtered.qza"))
}

// FilteredSeqs is the taxonomy-filtered representative sequence artifact.
func (l Layout) FilteredSeqs(amplicon string) string {
	return filepath.Join(l.FilteredDir(), l.artifact(amplicon, "_final_filtered_seqs.qza"))
}

// FilteredSummary is the summarize visualization of the filtered table.
func (l Layout) FilteredSummary(amplicon string) string {
	return filepath.Join(l.FilteredDir(), l.artifact(amplicon, "_final_filtered_summary.qzv"))
}

// RarefactionDir holds the alpha rarefaction outputs.
func (l Layout) RarefactionDir() string { return l.join("rarefaction") }

// AlphaRarefaction is the alpha-rarefaction visualization.
func (l Layout) AlphaRarefaction(amplicon string) string {
	return filepath.Join(l.RarefactionDir(), l.artifact(amplicon, "_alpha_rarefaction.qzv"))
}

// SummariesDir holds the per-stage summary TSV files.
func (l Layout) SummariesDir() string { return l.join("summaries") }

// StageSummary is the summary TSV of one stage. The run driver uses these
// files as the handoff artifacts between stages.
func (l Layout) StageSummary(stage string) string {
	return filepath.Join(l.SummariesDir(), stage+".tsv")
}
