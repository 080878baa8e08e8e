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
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/metabarcoding/ampliprep/fastq"
	"github.com/metabarcoding/ampliprep/internal"
)

// A ManifestRecord is one row of a QIIME 2 manifest in
// PairedEndFastqManifestPhred33V2 format.
type ManifestRecord struct {
	SampleID string `csv:"sample-id"`
	Forward  string `csv:"forward-absolute-filepath"`
	Reverse  string `csv:"reverse-absolute-filepath"`
}

func setTabWriter() {
	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		w := csv.NewWriter(out)
		w.Comma = '\t'
		return gocsv.NewSafeCSVWriter(w)
	})
}

func setTabReader() {
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = '\t'
		r.LazyQuotes = true
		return r
	})
}

// BuildManifest turns the discovered sample pairs into manifest records.
// QIIME 2 requires absolute paths, so relative pair paths are resolved
// against the working directory.
func BuildManifest(pairs []fastq.Pair) ([]ManifestRecord, error) {
	records := make([]ManifestRecord, 0, len(pairs))
	for _, pair := range pairs {
		forward, err := internal.FullPathname(pair.Forward)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %v", pair.Forward)
		}
		reverse, err := internal.FullPathname(pair.Reverse)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %v", pair.Reverse)
		}
		records = append(records, ManifestRecord{SampleID: pair.Name, Forward: forward, Reverse: reverse})
	}
	return records, nil
}

// WriteManifest stores the records at path as a tab-separated manifest with
// the PairedEndFastqManifestPhred33V2 header.
func WriteManifest(path string, records []ManifestRecord) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrapf(err, "creating directory for %v", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating manifest %v", path)
	}
	defer func() {
		if nerr := f.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v", path)
		}
	}()
	setTabWriter()
	if err := gocsv.Marshal(&records, f); err != nil {
		return errors.Wrapf(err, "writing manifest %v", path)
	}
	return nil
}

// ReadManifest parses a manifest written by WriteManifest.
func ReadManifest(path string) (records []ManifestRecord, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening manifest %v", path)
	}
	defer func() {
		if nerr := f.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v", path)
		}
	}()
	setTabReader()
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, errors.Wrapf(err, "parsing manifest %v", path)
	}
	return records, nil
}

// VerifyManifest reads the manifest back and checks that it holds exactly
// want rows and that every row names a sample and two absolute, existing
// files. The import stage runs this before handing the manifest to QIIME 2,
// which reports such problems much less legibly.
func VerifyManifest(path string, want int) error {
	records, err := ReadManifest(path)
	if err != nil {
		return err
	}
	if len(records) != want {
		return errors.Errorf("manifest %v has %v rows, expected %v", path, len(records), want)
	}
	for _, record := range records {
		if record.SampleID == "" {
			return errors.Errorf("manifest %v has a row without a sample-id", path)
		}
		for _, file := range []string{record.Forward, record.Reverse} {
			if !filepath.IsAbs(file) {
				return errors.Errorf("manifest %v: path %v for sample %v is not absolute", path, file, record.SampleID)
			}
			if _, err := os.Stat(file); err != nil {
				return errors.Wrapf(err, "manifest %v: sample %v", path, record.SampleID)
			}
		}
	}
	return nil
}
