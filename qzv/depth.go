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
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Percentiles reported for the sample frequency distribution.
var reportedPercentiles = []int{10, 25, 50, 75, 90, 95, 99}

// Candidate sampling depths for the retention table.
var candidateDepths = []float64{1000, 5000, 10000, 15000, 20000, 25000, 30000, 40000, 50000}

// A Percentile is one point of the frequency distribution.
type Percentile struct {
	P     int
	Depth float64
}

// A Retention states how many samples survive rarefying to a depth.
type Retention struct {
	Depth    float64
	Retained int
	Fraction float64
}

// A DepthReport summarizes the sample frequency distribution of a filtered
// feature table and derives sampling depth suggestions from it. Rarefying
// to a sample's frequency or below keeps the sample; the suggestions trade
// retained samples against retained reads.
type DepthReport struct {
	Samples      int
	Total        float64
	Min          float64
	Max          float64
	Mean         float64
	Median       float64
	Percentiles  []Percentile
	Conservative float64 // 10th percentile, keeps ~90% of samples
	Moderate     float64 // 25th percentile
	Aggressive   float64 // median
	Retention    []Retention
}

// NewDepthReport computes the report from the extracted sample frequencies.
func NewDepthReport(frequencies []SampleFrequency) (*DepthReport, error) {
	if len(frequencies) == 0 {
		return nil, errors.New("no sample frequencies to report on")
	}
	depths := make([]float64, len(frequencies))
	for i, frequency := range frequencies {
		depths[i] = frequency.Frequency
	}
	sort.Float64s(depths)
	report := &DepthReport{
		Samples: len(depths),
		Total:   floats.Sum(depths),
		Min:     depths[0],
		Max:     depths[len(depths)-1],
		Mean:    stat.Mean(depths, nil),
		Median:  stat.Quantile(0.5, stat.LinInterp, depths, nil),
	}
	for _, p := range reportedPercentiles {
		report.Percentiles = append(report.Percentiles, Percentile{
			P:     p,
			Depth: stat.Quantile(float64(p)/100, stat.LinInterp, depths, nil),
		})
	}
	report.Conservative = report.Percentiles[0].Depth
	report.Moderate = report.Percentiles[1].Depth
	report.Aggressive = report.Percentiles[2].Depth
	for _, depth := range candidateDepths {
		retained := len(depths) - sort.SearchFloat64s(depths, depth)
		report.Retention = append(report.Retention, Retention{
			Depth:    depth,
			Retained: retained,
			Fraction: float64(retained) / float64(len(depths)),
		})
	}
	return report, nil
}

func formatDepth(depth float64) string {
	return strconv.FormatFloat(depth, 'f', -1, 64)
}

// Log prints the report.
func (r *DepthReport) Log() {
	log.Println("Sample frequency distribution:")
	log.Println("  samples:", r.Samples)
	log.Println("  total frequency:", formatDepth(r.Total))
	log.Println("  min:", formatDepth(r.Min))
	log.Println("  max:", formatDepth(r.Max))
	log.Println("  mean:", formatDepth(r.Mean))
	log.Println("  median:", formatDepth(r.Median))
	for _, percentile := range r.Percentiles {
		log.Printf("  %vth percentile: %v", percentile.P, formatDepth(percentile.Depth))
	}
	log.Println("Suggested sampling depths:")
	log.Println("  conservative (10th percentile):", formatDepth(r.Conservative))
	log.Println("  moderate (25th percentile):", formatDepth(r.Moderate))
	log.Println("  aggressive (median):", formatDepth(r.Aggressive))
	log.Println("Samples retained at candidate depths:")
	for _, retention := range r.Retention {
		log.Printf("  depth %v: %v/%v (%.1f%%)",
			formatDepth(retention.Depth), retention.Retained, r.Samples, 100*retention.Fraction)
	}
}

// A reportRow is one metric/value line of the written report.
type reportRow struct {
	Metric string `csv:"metric"`
	Value  string `csv:"value"`
}

// Write stores the report as a tab-separated metric/value table.
func (r *DepthReport) Write(path string) (err error) {
	rows := []reportRow{
		{"samples", strconv.Itoa(r.Samples)},
		{"total_frequency", formatDepth(r.Total)},
		{"min", formatDepth(r.Min)},
		{"max", formatDepth(r.Max)},
		{"mean", formatDepth(r.Mean)},
		{"median", formatDepth(r.Median)},
	}
	for _, percentile := range r.Percentiles {
		rows = append(rows, reportRow{fmt.Sprintf("percentile_%v", percentile.P), formatDepth(percentile.Depth)})
	}
	rows = append(rows,
		reportRow{"suggested_conservative", formatDepth(r.Conservative)},
		reportRow{"suggested_moderate", formatDepth(r.Moderate)},
		reportRow{"suggested_aggressive", formatDepth(r.Aggressive)},
	)
	for _, retention := range r.Retention {
		rows = append(rows, reportRow{
			fmt.Sprintf("retained_at_%v", formatDepth(retention.Depth)),
			fmt.Sprintf("%v/%v", retention.Retained, r.Samples),
		})
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrapf(err, "creating directory for %v", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating report %v", path)
	}
	defer func() {
		if nerr := f.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v", path)
		}
	}()
	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		w := csv.NewWriter(out)
		w.Comma = '\t'
		return gocsv.NewSafeCSVWriter(w)
	})
	if err := gocsv.Marshal(&rows, f); err != nil {
		return errors.Wrapf(err, "writing report %v", path)
	}
	return nil
}
