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

// Package fastq discovers, counts, and lane-merges the gzipped FASTQ files
// that flow between the external tools of the pipeline. All per-read
// computation (trimming, demultiplexing, denoising) belongs to those tools;
// this package only does the bookkeeping around their inputs and outputs.
package fastq

import (
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/exascience/pargo/parallel"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

type gzReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (r *gzReadCloser) Read(p []byte) (int, error) {
	return r.gz.Read(p)
}

func (r *gzReadCloser) Close() error {
	err := r.gz.Close()
	if nerr := r.f.Close(); err == nil {
		err = nerr
	}
	return err
}

// Open opens a FASTQ file for reading, transparently decompressing .gz.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %v", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "reading gzip header of %v", path)
	}
	return &gzReadCloser{gz: gz, f: f}, nil
}

// CountReads parses a FASTQ file and returns the number of records.
func CountReads(path string) (n int, err error) {
	in, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if nerr := in.Close(); err == nil && nerr != nil {
			err = errors.Wrapf(nerr, "closing %v", path)
		}
	}()
	r := fastq.NewReader(in, linear.NewQSeq("", nil, alphabet.DNAredundant, alphabet.Sanger))
	for {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, errors.Wrapf(err, "parsing FASTQ record %v of %v", n+1, path)
		}
		n++
	}
}

// PairCount holds the read counts of one forward/reverse pair.
type PairCount struct {
	Pair
	ForwardReads int
	ReverseReads int
}

// CountPairs counts the reads of all pairs, processing files in parallel.
// Counting is pure bookkeeping, so it is exempt from the one-tool-at-a-time
// execution model of the stages themselves.
func CountPairs(pairs []Pair) ([]PairCount, error) {
	counts := make([]PairCount, len(pairs))
	err := parallel.ErrRange(0, len(pairs), 1, func(low, high int) error {
		for i := low; i < high; i++ {
			counts[i].Pair = pairs[i]
			n, err := CountReads(pairs[i].Forward)
			if err != nil {
				return err
			}
			counts[i].ForwardReads = n
			n, err = CountReads(pairs[i].Reverse)
			if err != nil {
				return err
			}
			counts[i].ReverseReads = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
