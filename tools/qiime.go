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
	"os/exec"

	"github.com/biogo/external"
)

func buildQiime(cb external.CommandBuilder) (*exec.Cmd, error) {
	cl, err := external.Build(cb)
	if err != nil {
		return nil, err
	}
	return exec.Command(cl[0], cl[1:]...), nil
}

// Import builds a qiime tools import invocation.
type Import struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`  // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}tools{{end}}"`  // tools
	Action string `buildarg:"{{if .}}{{.}}{{else}}import{{end}}"` // import

	Type        string `buildarg:"{{with .}}--type{{split}}{{.}}{{end}}"`         // --type <semantic type>
	InputPath   string `buildarg:"{{with .}}--input-path{{split}}{{.}}{{end}}"`   // --input-path <manifest>
	InputFormat string `buildarg:"{{with .}}--input-format{{split}}{{.}}{{end}}"` // --input-format <format>
	OutputPath  string `buildarg:"{{with .}}--output-path{{split}}{{.}}{{end}}"`  // --output-path <qza>
}

// BuildCommand builds the qiime tools import command line.
func (i Import) BuildCommand() (*exec.Cmd, error) { return buildQiime(i) }

// DemuxSummarize builds a qiime demux summarize invocation.
type DemuxSummarize struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`     // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}demux{{end}}"`     // demux
	Action string `buildarg:"{{if .}}{{.}}{{else}}summarize{{end}}"` // summarize

	Data          string `buildarg:"{{with .}}--i-data{{split}}{{.}}{{end}}"`          // --i-data <qza>
	Visualization string `buildarg:"{{with .}}--o-visualization{{split}}{{.}}{{end}}"` // --o-visualization <qzv>
}

// BuildCommand builds the qiime demux summarize command line.
func (d DemuxSummarize) BuildCommand() (*exec.Cmd, error) { return buildQiime(d) }

// DenoisePaired builds a qiime dada2 denoise-paired invocation. The trim
// and truncation parameters render unconditionally: zero is a meaningful
// setting (no truncation, as used for ITS1) and must reach the command line.
type DenoisePaired struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`          // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}dada2{{end}}"`          // dada2
	Action string `buildarg:"{{if .}}{{.}}{{else}}denoise-paired{{end}}"` // denoise-paired

	DemultiplexedSeqs string `buildarg:"{{with .}}--i-demultiplexed-seqs{{split}}{{.}}{{end}}"` // --i-demultiplexed-seqs <qza>
	TrimLeftF         int    `buildarg:"--p-trim-left-f{{split}}{{.}}"`                         // --p-trim-left-f <n>
	TrimLeftR         int    `buildarg:"--p-trim-left-r{{split}}{{.}}"`                         // --p-trim-left-r <n>
	TruncLenF         int    `buildarg:"--p-trunc-len-f{{split}}{{.}}"`                         // --p-trunc-len-f <n>
	TruncLenR         int    `buildarg:"--p-trunc-len-r{{split}}{{.}}"`                         // --p-trunc-len-r <n>
	Threads           int    `buildarg:"--p-n-threads{{split}}{{.}}"`                           // --p-n-threads <n>
	Table             string `buildarg:"{{with .}}--o-table{{split}}{{.}}{{end}}"`              // --o-table <qza>
	RepSeqs           string `buildarg:"{{with .}}--o-representative-sequences{{split}}{{.}}{{end}}"` // --o-representative-sequences <qza>
	DenoisingStats    string `buildarg:"{{with .}}--o-denoising-stats{{split}}{{.}}{{end}}"`    // --o-denoising-stats <qza>
	Verbose           bool   `buildarg:"{{if .}}--verbose{{end}}"`                              // --verbose
}

// BuildCommand builds the qiime dada2 denoise-paired command line.
func (d DenoisePaired) BuildCommand() (*exec.Cmd, error) { return buildQiime(d) }

// MetadataTabulate builds a qiime metadata tabulate invocation.
type MetadataTabulate struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`    // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}metadata{{end}}"` // metadata
	Action string `buildarg:"{{if .}}{{.}}{{else}}tabulate{{end}}"` // tabulate

	InputFile     string `buildarg:"{{with .}}--m-input-file{{split}}{{.}}{{end}}"`    // --m-input-file <qza>
	Visualization string `buildarg:"{{with .}}--o-visualization{{split}}{{.}}{{end}}"` // --o-visualization <qzv>
}

// BuildCommand builds the qiime metadata tabulate command line.
func (m MetadataTabulate) BuildCommand() (*exec.Cmd, error) { return buildQiime(m) }

// FeatureTableSummarize builds a qiime feature-table summarize invocation.
// Metadata is optional; when empty the flag is omitted.
type FeatureTableSummarize struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`         // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}feature-table{{end}}"` // feature-table
	Action string `buildarg:"{{if .}}{{.}}{{else}}summarize{{end}}"`     // summarize

	Table          string `buildarg:"{{with .}}--i-table{{split}}{{.}}{{end}}"`               // --i-table <qza>
	SampleMetadata string `buildarg:"{{with .}}--m-sample-metadata-file{{split}}{{.}}{{end}}"` // --m-sample-metadata-file <tsv>
	Visualization  string `buildarg:"{{with .}}--o-visualization{{split}}{{.}}{{end}}"`       // --o-visualization <qzv>
}

// BuildCommand builds the qiime feature-table summarize command line.
func (f FeatureTableSummarize) BuildCommand() (*exec.Cmd, error) { return buildQiime(f) }

// ExtractReads builds a qiime feature-classifier extract-reads invocation,
// used to slice the 16S reference down to the amplified region before
// training.
type ExtractReads struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`              // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}feature-classifier{{end}}"` // feature-classifier
	Action string `buildarg:"{{if .}}{{.}}{{else}}extract-reads{{end}}"`      // extract-reads

	Sequences     string `buildarg:"{{with .}}--i-sequences{{split}}{{.}}{{end}}"`    // --i-sequences <qza>
	ForwardPrimer string `buildarg:"{{with .}}--p-f-primer{{split}}{{.}}{{end}}"`     // --p-f-primer <seq>
	ReversePrimer string `buildarg:"{{with .}}--p-r-primer{{split}}{{.}}{{end}}"`     // --p-r-primer <seq>
	MinLength     int    `buildarg:"{{with .}}--p-min-length{{split}}{{.}}{{end}}"`   // --p-min-length <n>
	MaxLength     int    `buildarg:"{{with .}}--p-max-length{{split}}{{.}}{{end}}"`   // --p-max-length <n>
	Reads         string `buildarg:"{{with .}}--o-reads{{split}}{{.}}{{end}}"`        // --o-reads <qza>
}

// BuildCommand builds the qiime feature-classifier extract-reads command line.
func (e ExtractReads) BuildCommand() (*exec.Cmd, error) { return buildQiime(e) }

// FitClassifier builds a qiime feature-classifier
// fit-classifier-naive-bayes invocation.
type FitClassifier struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`                        // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}feature-classifier{{end}}"`           // feature-classifier
	Action string `buildarg:"{{if .}}{{.}}{{else}}fit-classifier-naive-bayes{{end}}"`   // fit-classifier-naive-bayes

	ReferenceReads    string `buildarg:"{{with .}}--i-reference-reads{{split}}{{.}}{{end}}"`    // --i-reference-reads <qza>
	ReferenceTaxonomy string `buildarg:"{{with .}}--i-reference-taxonomy{{split}}{{.}}{{end}}"` // --i-reference-taxonomy <qza>
	Classifier        string `buildarg:"{{with .}}--o-classifier{{split}}{{.}}{{end}}"`         // --o-classifier <qza>
}

// BuildCommand builds the qiime feature-classifier fit-classifier-naive-bayes command line.
func (f FitClassifier) BuildCommand() (*exec.Cmd, error) { return buildQiime(f) }

// ClassifySklearn builds a qiime feature-classifier classify-sklearn
// invocation.
type ClassifySklearn struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`              // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}feature-classifier{{end}}"` // feature-classifier
	Action string `buildarg:"{{if .}}{{.}}{{else}}classify-sklearn{{end}}"`   // classify-sklearn

	Classifier     string `buildarg:"{{with .}}--i-classifier{{split}}{{.}}{{end}}"`     // --i-classifier <qza>
	Reads          string `buildarg:"{{with .}}--i-reads{{split}}{{.}}{{end}}"`          // --i-reads <qza>
	Jobs           int    `buildarg:"{{with .}}--p-n-jobs{{split}}{{.}}{{end}}"`         // --p-n-jobs <n>
	Classification string `buildarg:"{{with .}}--o-classification{{split}}{{.}}{{end}}"` // --o-classification <qza>
}

// BuildCommand builds the qiime feature-classifier classify-sklearn command line.
func (c ClassifySklearn) BuildCommand() (*exec.Cmd, error) { return buildQiime(c) }

// TaxaBarplot builds a qiime taxa barplot invocation.
type TaxaBarplot struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`   // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}taxa{{end}}"`    // taxa
	Action string `buildarg:"{{if .}}{{.}}{{else}}barplot{{end}}"` // barplot

	Table         string `buildarg:"{{with .}}--i-table{{split}}{{.}}{{end}}"`         // --i-table <qza>
	Taxonomy      string `buildarg:"{{with .}}--i-taxonomy{{split}}{{.}}{{end}}"`      // --i-taxonomy <qza>
	Metadata      string `buildarg:"{{with .}}--m-metadata-file{{split}}{{.}}{{end}}"` // --m-metadata-file <tsv>
	Visualization string `buildarg:"{{with .}}--o-visualization{{split}}{{.}}{{end}}"` // --o-visualization <qzv>
}

// BuildCommand builds the qiime taxa barplot command line.
func (t TaxaBarplot) BuildCommand() (*exec.Cmd, error) { return buildQiime(t) }

// TaxaFilterTable builds a qiime taxa filter-table invocation. Exclude and
// include are both optional so the same builder serves the 16S organelle
// exclusion and the ITS1 phylum inclusion.
type TaxaFilterTable struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`        // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}taxa{{end}}"`         // taxa
	Action string `buildarg:"{{if .}}{{.}}{{else}}filter-table{{end}}"` // filter-table

	Table         string `buildarg:"{{with .}}--i-table{{split}}{{.}}{{end}}"`          // --i-table <qza>
	Taxonomy      string `buildarg:"{{with .}}--i-taxonomy{{split}}{{.}}{{end}}"`       // --i-taxonomy <qza>
	Exclude       string `buildarg:"{{with .}}--p-exclude{{split}}{{.}}{{end}}"`        // --p-exclude <terms>
	Include       string `buildarg:"{{with .}}--p-include{{split}}{{.}}{{end}}"`        // --p-include <terms>
	FilteredTable string `buildarg:"{{with .}}--o-filtered-table{{split}}{{.}}{{end}}"` // --o-filtered-table <qza>
}

// BuildCommand builds the qiime taxa filter-table command line.
func (t TaxaFilterTable) BuildCommand() (*exec.Cmd, error) { return buildQiime(t) }

// TaxaFilterSeqs builds a qiime taxa filter-seqs invocation, applying the
// same taxonomy criteria to the representative sequences.
type TaxaFilterSeqs struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`       // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}taxa{{end}}"`        // taxa
	Action string `buildarg:"{{if .}}{{.}}{{else}}filter-seqs{{end}}"` // filter-seqs

	Sequences         string `buildarg:"{{with .}}--i-sequences{{split}}{{.}}{{end}}"`          // --i-sequences <qza>
	Taxonomy          string `buildarg:"{{with .}}--i-taxonomy{{split}}{{.}}{{end}}"`           // --i-taxonomy <qza>
	Exclude           string `buildarg:"{{with .}}--p-exclude{{split}}{{.}}{{end}}"`            // --p-exclude <terms>
	Include           string `buildarg:"{{with .}}--p-include{{split}}{{.}}{{end}}"`            // --p-include <terms>
	FilteredSequences string `buildarg:"{{with .}}--o-filtered-sequences{{split}}{{.}}{{end}}"` // --o-filtered-sequences <qza>
}

// BuildCommand builds the qiime taxa filter-seqs command line.
func (t TaxaFilterSeqs) BuildCommand() (*exec.Cmd, error) { return buildQiime(t) }

// FilterFeatures builds a qiime feature-table filter-features invocation
// dropping low-frequency and low-prevalence features.
type FilterFeatures struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`           // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}feature-table{{end}}"`   // feature-table
	Action string `buildarg:"{{if .}}{{.}}{{else}}filter-features{{end}}"` // filter-features

	Table         string `buildarg:"{{with .}}--i-table{{split}}{{.}}{{end}}"`          // --i-table <qza>
	MinFrequency  int    `buildarg:"{{with .}}--p-min-frequency{{split}}{{.}}{{end}}"`  // --p-min-frequency <n>
	MinSamples    int    `buildarg:"{{with .}}--p-min-samples{{split}}{{.}}{{end}}"`    // --p-min-samples <n>
	FilteredTable string `buildarg:"{{with .}}--o-filtered-table{{split}}{{.}}{{end}}"` // --o-filtered-table <qza>
}

// BuildCommand builds the qiime feature-table filter-features command line.
func (f FilterFeatures) BuildCommand() (*exec.Cmd, error) { return buildQiime(f) }

// AlphaRarefaction builds a qiime diversity alpha-rarefaction invocation.
type AlphaRarefaction struct {
	Cmd    string `buildarg:"{{if .}}{{.}}{{else}}qiime{{end}}"`             // qiime
	Plugin string `buildarg:"{{if .}}{{.}}{{else}}diversity{{end}}"`         // diversity
	Action string `buildarg:"{{if .}}{{.}}{{else}}alpha-rarefaction{{end}}"` // alpha-rarefaction

	Table         string `buildarg:"{{with .}}--i-table{{split}}{{.}}{{end}}"`          // --i-table <qza>
	MaxDepth      int    `buildarg:"{{with .}}--p-max-depth{{split}}{{.}}{{end}}"`      // --p-max-depth <n>
	MinDepth      int    `buildarg:"{{with .}}--p-min-depth{{split}}{{.}}{{end}}"`      // --p-min-depth <n>
	Steps         int    `buildarg:"{{with .}}--p-steps{{split}}{{.}}{{end}}"`          // --p-steps <n>
	Iterations    int    `buildarg:"{{with .}}--p-iterations{{split}}{{.}}{{end}}"`     // --p-iterations <n>
	Metadata      string `buildarg:"{{with .}}--m-metadata-file{{split}}{{.}}{{end}}"`  // --m-metadata-file <tsv>
	Visualization string `buildarg:"{{with .}}--o-visualization{{split}}{{.}}{{end}}"`  // --o-visualization <qzv>
}

// BuildCommand builds the qiime diversity alpha-rarefaction command line.
func (a AlphaRarefaction) BuildCommand() (*exec.Cmd, error) { return buildQiime(a) }
