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

package fastq

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Tokens of the Illumina bcl2fastq naming scheme. Mates and lanes are
// derived from the forward lane 1 file by substituting these tokens.
const (
	Lane1Token   = "_L001_"
	Lane2Token   = "_L002_"
	ForwardToken = "_R1_"
	ReverseToken = "_R2_"

	lane1Suffix = "_L001_R1_001.fastq.gz"
)

// A Pair is a forward/reverse FASTQ file pair belonging to one item
// (a sublibrary before demultiplexing, a sample after).
type Pair struct {
	Name    string
	Forward string
	Reverse string
}

// Validate checks that both files of the pair exist.
func (p Pair) Validate() error {
	for _, path := range []string{p.Forward, p.Reverse} {
		if _, err := os.Stat(path); err != nil {
			return errors.Wrapf(err, "missing mate for %v", p.Name)
		}
	}
	return nil
}

// Substitute replaces the last occurrence of old in path by new. The
// Illumina tokens sit at the end of the filename, so substituting the last
// occurrence keeps sample names that happen to contain a token intact.
func Substitute(path, old, new string) (string, error) {
	i := strings.LastIndex(path, old)
	if i < 0 {
		return "", errors.Errorf("no %v token in %v", old, path)
	}
	return path[:i] + new + path[i+len(old):], nil
}

// A LaneSet is the four raw files of one sublibrary: forward and reverse
// reads for lanes 1 and 2.
type LaneSet struct {
	Sublibrary string
	Lane1      Pair
	Lane2      Pair
}

// Validate checks that the three derived files of the set exist. The lane 1
// forward file is the anchor the set was discovered from, so it exists.
func (s LaneSet) Validate() error {
	for _, path := range []string{s.Lane1.Reverse, s.Lane2.Forward, s.Lane2.Reverse} {
		if _, err := os.Stat(path); err != nil {
			return errors.Wrapf(err, "incomplete lane set for %v", s.Sublibrary)
		}
	}
	return nil
}

// FindLaneSets discovers the raw sublibrary lane sets in dir by globbing
// for lane 1 forward files and deriving the other three members. The sets
// are returned sorted by sublibrary name; members are not checked for
// existence, use Validate for that.
func FindLaneSets(dir string) ([]LaneSet, error) {
	anchors, err := filepath.Glob(filepath.Join(dir, "*"+lane1Suffix))
	if err != nil {
		return nil, errors.Wrapf(err, "globbing for lane 1 files in %v", dir)
	}
	sort.Strings(anchors)
	var sets []LaneSet
	for _, anchor := range anchors {
		sublibrary := strings.TrimSuffix(filepath.Base(anchor), lane1Suffix)
		lane1Reverse, err := Substitute(anchor, ForwardToken, ReverseToken)
		if err != nil {
			return nil, err
		}
		lane2Forward, err := Substitute(anchor, Lane1Token, Lane2Token)
		if err != nil {
			return nil, err
		}
		lane2Reverse, err := Substitute(lane1Reverse, Lane1Token, Lane2Token)
		if err != nil {
			return nil, err
		}
		sets = append(sets, LaneSet{
			Sublibrary: sublibrary,
			Lane1:      Pair{Name: sublibrary, Forward: anchor, Reverse: lane1Reverse},
			Lane2:      Pair{Name: sublibrary, Forward: lane2Forward, Reverse: lane2Reverse},
		})
	}
	return sets, nil
}

// FindMergedPairs discovers the lane-merged sublibrary pairs in dir, named
// <sublibrary>_R1.fastq.gz / <sublibrary>_R2.fastq.gz.
func FindMergedPairs(dir string) ([]Pair, error) {
	return findPairs(dir, "_R1.fastq.gz", "_R2.fastq.gz", "")
}

// FindTrimmedPairs discovers the adapter-trimmed sublibrary pairs in dir,
// named <sublibrary>_trimmed_R1.fastq.gz / _trimmed_R2.fastq.gz.
func FindTrimmedPairs(dir string) ([]Pair, error) {
	return findPairs(dir, "_trimmed_R1.fastq.gz", "_trimmed_R2.fastq.gz", "")
}

// FindRadtagsPairs discovers the process_radtags output pairs for one
// amplicon in dir, named <sample>_<amplicon>.1.fq.gz / .2.fq.gz. Remainder
// files (.rem.) of orphaned reads are left alone.
func FindRadtagsPairs(dir, amplicon string) ([]Pair, error) {
	return findPairs(dir, "_"+amplicon+".1.fq.gz", "_"+amplicon+".2.fq.gz", ".rem.")
}

// FindFinalPairs discovers the primer-trimmed per-sample pairs for one
// amplicon in dir, named <sample>_<amplicon>_R1.fastq.gz / _R2.fastq.gz.
func FindFinalPairs(dir, amplicon string) ([]Pair, error) {
	return findPairs(dir, "_"+amplicon+"_R1.fastq.gz", "_"+amplicon+"_R2.fastq.gz", "")
}

func findPairs(dir, forwardSuffix, reverseSuffix, exclude string) ([]Pair, error) {
	anchors, err := filepath.Glob(filepath.Join(dir, "*"+forwardSuffix))
	if err != nil {
		return nil, errors.Wrapf(err, "globbing for forward files in %v", dir)
	}
	sort.Strings(anchors)
	var pairs []Pair
	for _, anchor := range anchors {
		base := filepath.Base(anchor)
		if exclude != "" && strings.Contains(base, exclude) {
			continue
		}
		pairs = append(pairs, Pair{
			Name:    strings.TrimSuffix(base, forwardSuffix),
			Forward: anchor,
			Reverse: strings.TrimSuffix(anchor, forwardSuffix) + reverseSuffix,
		})
	}
	return pairs, nil
}
