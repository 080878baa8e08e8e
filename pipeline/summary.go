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
	"encoding/csv"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// SummaryRow records the outcome for one item (sublibrary, sample, or
// amplicon) of a stage.
type SummaryRow struct {
	Item   string `csv:"item"`
	Status string `csv:"status"`
	Detail string `csv:"detail"`
}

// Summary accumulates per-item outcomes for one stage. Per-item loops
// soft-fail: a failed item is recorded and the loop continues.
type Summary struct {
	Stage    string
	Rows     []SummaryRow
	failures int
}

// NewSummary returns an empty summary for the named stage.
func NewSummary(stage string) *Summary {
	return &Summary{Stage: stage}
}

// Ok records a successful item.
func (s *Summary) Ok(item, detail string) {
	s.Rows = append(s.Rows, SummaryRow{Item: item, Status: "ok", Detail: detail})
}

// Failed records a failed item.
func (s *Summary) Failed(item string, err error) {
	log.Printf("%v: %v failed: %v\n", s.Stage, item, err)
	s.Rows = append(s.Rows, SummaryRow{Item: item, Status: "failed", Detail: err.Error()})
	s.failures++
}

// Failures returns the number of failed items.
func (s *Summary) Failures() int {
	return s.failures
}

// AllFailed reports whether no item succeeded.
func (s *Summary) AllFailed() bool {
	return len(s.Rows) > 0 && s.failures == len(s.Rows)
}

// Log prints the stage totals.
func (s *Summary) Log() {
	if s.failures > 0 {
		log.Printf("%v: %v of %v items succeeded, %v failed\n",
			s.Stage, len(s.Rows)-s.failures, len(s.Rows), s.failures)
		return
	}
	log.Printf("%v: %v items succeeded\n", s.Stage, len(s.Rows))
}

func setTabWriter() {
	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		w := csv.NewWriter(out)
		w.Comma = '\t'
		return gocsv.NewSafeCSVWriter(w)
	})
}

// Write stores the summary as a TSV. The run driver tracks these files as
// the handoff artifacts between stages.
func (s *Summary) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrapf(err, "creating %v", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %v", path)
	}
	defer f.Close()
	setTabWriter()
	if err := gocsv.MarshalFile(&s.Rows, f); err != nil {
		return errors.Wrapf(err, "writing summary %v", path)
	}
	return nil
}

// ReadSummary loads a stage summary TSV back, for tests and for the run
// driver's dependency checks.
func ReadSummary(path string) ([]SummaryRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening summary %v", path)
	}
	defer f.Close()
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = '\t'
		r.LazyQuotes = true
		return r
	})
	var rows []SummaryRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, errors.Wrapf(err, "reading summary %v", path)
	}
	return rows, nil
}
