// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package patchset

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sc2knet/sc2kpatch/lib/bsdiff"
	"github.com/sc2knet/sc2kpatch/lib/digest"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
)

// DiffRun is a contiguous run of non-zero bytes in a diff stream.
type DiffRun struct {
	Offset int64    `yaml:"offset" json:"offset"`
	Bytes  HexBytes `yaml:"bytes" json:"bytes"`
}

// Definition is a bsdiff container in sparse form. Diff bytes not
// covered by a run are zero.
type Definition struct {
	Name    string     `yaml:"name" json:"name"`
	NewSize int64      `yaml:"new_size" json:"new_size"`
	Triples [][3]int64 `yaml:"triples,flow" json:"triples"`
	Diff    []DiffRun  `yaml:"diff,omitempty" json:"diff,omitempty"`
	Extra   HexBytes   `yaml:"extra,omitempty" json:"extra,omitempty"`

	// Digest names the algorithm of SourceDigest and TargetDigest.
	// Empty means md5.
	Digest       string `yaml:"digest,omitempty" json:"digest,omitempty"`
	SourceDigest string `yaml:"source_digest" json:"source_digest"`
	TargetDigest string `yaml:"target_digest" json:"target_digest"`
}

// triple returns the i-th control triple.
func (d *Definition) triple(i int) bsdiff.Triple {
	return bsdiff.Triple{Add: d.Triples[i][0], Insert: d.Triples[i][1], Seek: d.Triples[i][2]}
}

// Totals returns the summed add and insert lengths of the triples.
func (d *Definition) Totals() (add, insert int64) {
	for i := range d.Triples {
		t := d.triple(i)
		add += t.Add
		insert += t.Insert
	}
	return add, insert
}

// Validate checks that the definition describes a consistent
// container: non-negative lengths, add plus insert totals equal to
// NewSize, runs inside the diff stream and an extra stream of exactly
// the inserted length. Digests must parse.
func (d *Definition) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if d.NewSize < 0 {
		errs = append(errs, fmt.Errorf("new_size %d is negative", d.NewSize))
	}

	var add, insert int64
	for i := range d.Triples {
		t := d.triple(i)
		if t.Add < 0 || t.Insert < 0 {
			errs = append(errs, fmt.Errorf("triple %d has negative length (%d, %d)", i, t.Add, t.Insert))
			continue
		}
		add += t.Add
		insert += t.Insert
	}
	if add+insert != d.NewSize {
		errs = append(errs, fmt.Errorf("triples produce %d bytes, new_size is %d", add+insert, d.NewSize))
	}
	if int64(len(d.Extra)) != insert {
		errs = append(errs, fmt.Errorf("extra is %d bytes, triples insert %d", len(d.Extra), insert))
	}

	end := int64(0)
	for i, run := range d.Diff {
		if run.Offset < end {
			errs = append(errs, fmt.Errorf("diff run %d at offset %d overlaps or is out of order", i, run.Offset))
		}
		end = run.Offset + int64(len(run.Bytes))
		if end > add {
			errs = append(errs, fmt.Errorf("diff run %d ends at %d, past diff length %d", i, end, add))
		}
	}

	if _, err := d.Digests(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("patch definition %q: %w", d.Name, errors.Join(errs...))
	}
	return nil
}

// Digests parses the definition's digest pair.
func (d *Definition) Digests() (patchgate.DigestPair, error) {
	return ParseDigestPair(d.Digest, d.SourceDigest, d.TargetDigest)
}

// Container expands the definition into a dense container.
func (d *Definition) Container() (*bsdiff.Container, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	control := make([]byte, 0, len(d.Triples)*bsdiff.TripleSize)
	for i := range d.Triples {
		var err error
		control, err = bsdiff.AppendTriple(control, d.triple(i))
		if err != nil {
			return nil, fmt.Errorf("patch definition %q: triple %d: %w", d.Name, i, err)
		}
	}

	add, _ := d.Totals()
	diff := make([]byte, add)
	for _, run := range d.Diff {
		copy(diff[run.Offset:], run.Bytes)
	}

	return &bsdiff.Container{
		Control: control,
		Diff:    diff,
		Extra:   slices.Clone([]byte(d.Extra)),
		NewSize: d.NewSize,
	}, nil
}

// Apply expands the definition and replays it against old.
func (d *Definition) Apply(old []byte) ([]byte, error) {
	container, err := d.Container()
	if err != nil {
		return nil, err
	}
	return bsdiff.Replay(container, old)
}

// FromContainer converts a dense container into a sparse definition.
// Digests are left for the caller to fill in.
func FromContainer(name string, container *bsdiff.Container) (*Definition, error) {
	definition := &Definition{
		Name:    name,
		NewSize: container.NewSize,
		Extra:   slices.Clone(container.Extra),
	}
	err := bsdiff.Walk(container, func(_ int, t bsdiff.Triple) error {
		definition.Triples = append(definition.Triples, [3]int64{t.Add, t.Insert, t.Seek})
		return nil
	})
	if err != nil {
		return nil, err
	}
	definition.Diff = sparseRuns(container.Diff)
	return definition, nil
}

// sparseRuns collects the non-zero runs of diff.
func sparseRuns(diff []byte) []DiffRun {
	var runs []DiffRun
	for i := 0; i < len(diff); {
		if diff[i] == 0 {
			i++
			continue
		}
		start := i
		for i < len(diff) && diff[i] != 0 {
			i++
		}
		runs = append(runs, DiffRun{Offset: int64(start), Bytes: slices.Clone(diff[start:i])})
	}
	return runs
}

// ParseDigestPair parses a source and target digest for
// algorithmName. An empty algorithm name means md5.
func ParseDigestPair(algorithmName, source, target string) (patchgate.DigestPair, error) {
	algorithm, err := digest.ParseAlgorithm(algorithmName)
	if err != nil {
		return patchgate.DigestPair{}, err
	}
	sourceDigest, err := digest.Parse(algorithm, source)
	if err != nil {
		return patchgate.DigestPair{}, fmt.Errorf("source digest: %w", err)
	}
	targetDigest, err := digest.Parse(algorithm, target)
	if err != nil {
		return patchgate.DigestPair{}, fmt.Errorf("target digest: %w", err)
	}
	return patchgate.DigestPair{Source: sourceDigest, Target: targetDigest}, nil
}
