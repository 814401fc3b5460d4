// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hotpatch applies in-place byte edits that are checked
// against the bytes they expect to replace.
//
// A [Table] lists edits for one file together with the digests of the
// file before and after. Tables implement [patchgate.Patch], so the
// same verification and atomic commit apply to them as to bsdiff
// containers. [Check] reports the per-edit state of a file without
// modifying anything, which explains why a gate check failed.
package hotpatch

import (
	"cmp"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sc2knet/sc2kpatch/lib/patchgate"
	"github.com/sc2knet/sc2kpatch/lib/patchset"
)

// Status is the state of one edit against a file.
type Status string

const (
	// StatusPatched means the original bytes were found and replaced.
	StatusPatched Status = "patched"

	// StatusAlready means the patched bytes are already present.
	StatusAlready Status = "already"

	// StatusMismatch means neither the original nor the patched bytes
	// are present.
	StatusMismatch Status = "mismatch"

	// StatusOutOfRange means the edit extends past the end of the file.
	StatusOutOfRange Status = "out_of_range"
)

// Failed reports whether the status prevents the table from applying.
func (s Status) Failed() bool {
	return s == StatusMismatch || s == StatusOutOfRange
}

// Edit replaces Original with Patched at Offset.
type Edit struct {
	Offset      int64             `yaml:"offset" json:"offset"`
	Original    patchset.HexBytes `yaml:"original" json:"original"`
	Patched     patchset.HexBytes `yaml:"patched" json:"patched"`
	Description string            `yaml:"description" json:"description"`
	Detail      string            `yaml:"detail,omitempty" json:"detail,omitempty"`
}

// EditResult is the outcome of one edit.
type EditResult struct {
	Edit   Edit   `json:"edit"`
	Status Status `json:"status"`

	// Found holds the bytes present at the offset when the status is
	// StatusMismatch.
	Found patchset.HexBytes `json:"found,omitempty"`
}

// Check reports the state of every edit against data without
// modifying it.
func Check(data []byte, edits []Edit) []EditResult {
	results := make([]EditResult, 0, len(edits))
	for _, edit := range edits {
		results = append(results, check(data, edit))
	}
	return results
}

func check(data []byte, edit Edit) EditResult {
	end := edit.Offset + int64(len(edit.Original))
	if edit.Offset < 0 || end > int64(len(data)) {
		return EditResult{Edit: edit, Status: StatusOutOfRange}
	}
	current := data[edit.Offset:end]
	switch {
	case slices.Equal(current, edit.Original):
		return EditResult{Edit: edit, Status: StatusPatched}
	case slices.Equal(current, edit.Patched):
		return EditResult{Edit: edit, Status: StatusAlready}
	default:
		return EditResult{Edit: edit, Status: StatusMismatch, Found: slices.Clone(current)}
	}
}

// Apply returns a copy of data with every applicable edit made, along
// with the per-edit results. Edits that fail leave their bytes alone.
func Apply(data []byte, edits []Edit) ([]byte, []EditResult) {
	output := slices.Clone(data)
	results := Check(data, edits)
	for _, result := range results {
		if result.Status == StatusPatched {
			copy(output[result.Edit.Offset:], result.Edit.Patched)
		}
	}
	return output, results
}

// MismatchError reports edits that could not be applied.
type MismatchError struct {
	Table   string
	Results []EditResult
}

func (e *MismatchError) Error() string {
	var parts []string
	for _, result := range e.Results {
		part := fmt.Sprintf("0x%05X %s (%s)", result.Edit.Offset, result.Edit.Description, result.Status)
		if result.Status == StatusMismatch {
			part += fmt.Sprintf(": expected %x, found %x", []byte(result.Edit.Original), []byte(result.Found))
		}
		parts = append(parts, part)
	}
	return fmt.Sprintf("%s: %d edit(s) cannot be applied: %s", e.Table, len(e.Results), strings.Join(parts, "; "))
}

// Table is the set of edits for one file.
type Table struct {
	// Name is the file the table patches.
	Name string `yaml:"name" json:"name"`

	// Size is the expected size of the file before patching.
	Size int64 `yaml:"size" json:"size"`

	Digest       string `yaml:"digest,omitempty" json:"digest,omitempty"`
	SourceDigest string `yaml:"source_digest" json:"source_digest"`
	TargetDigest string `yaml:"target_digest" json:"target_digest"`

	Edits []Edit `yaml:"edits" json:"edits"`
}

// Validate checks that edits keep the file size, do not overlap and
// fit inside Size, and that the digests parse.
func (t *Table) Validate() error {
	var errs []error
	if t.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	ordered := slices.Clone(t.Edits)
	slices.SortFunc(ordered, func(a, b Edit) int { return cmp.Compare(a.Offset, b.Offset) })
	end := int64(0)
	for _, edit := range ordered {
		if len(edit.Original) == 0 || len(edit.Original) != len(edit.Patched) {
			errs = append(errs, fmt.Errorf("edit at 0x%X: original and patched must be the same non-zero length", edit.Offset))
		}
		if edit.Offset < end {
			errs = append(errs, fmt.Errorf("edit at 0x%X overlaps the previous edit", edit.Offset))
		}
		end = edit.Offset + int64(len(edit.Original))
		if t.Size > 0 && end > t.Size {
			errs = append(errs, fmt.Errorf("edit at 0x%X ends past size %d", edit.Offset, t.Size))
		}
	}
	if _, err := patchset.ParseDigestPair(t.Digest, t.SourceDigest, t.TargetDigest); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("hot patch table %q: %w", t.Name, errors.Join(errs...))
	}
	return nil
}

// Digests parses the table's digest pair.
func (t *Table) Digests() (patchgate.DigestPair, error) {
	pair, err := patchset.ParseDigestPair(t.Digest, t.SourceDigest, t.TargetDigest)
	if err != nil {
		return patchgate.DigestPair{}, fmt.Errorf("hot patch table %q: %w", t.Name, err)
	}
	return pair, nil
}

// Apply makes every edit or fails with a [*MismatchError]. Edits
// already present are accepted.
func (t *Table) Apply(old []byte) ([]byte, error) {
	output, results := Apply(old, t.Edits)
	var failed []EditResult
	for _, result := range results {
		if result.Status.Failed() {
			failed = append(failed, result)
		}
	}
	if len(failed) > 0 {
		return nil, &MismatchError{Table: t.Name, Results: failed}
	}
	return output, nil
}

// OutputName inserts suffix before the extension of name:
// "2KSERVER.EXE" with "-v11" becomes "2KSERVER-v11.EXE".
func OutputName(name, suffix string) string {
	extension := filepath.Ext(name)
	return strings.TrimSuffix(name, extension) + suffix + extension
}

// Job builds a gate job for the table against directory. The output
// goes to OutputName(Name, suffix); an empty suffix patches in place.
func (t *Table) Job(directory, suffix string, backup bool) (patchgate.Job, error) {
	if err := t.Validate(); err != nil {
		return patchgate.Job{}, err
	}
	pair, err := t.Digests()
	if err != nil {
		return patchgate.Job{}, err
	}
	job := patchgate.Job{
		Name:    t.Name,
		Source:  filepath.Join(directory, t.Name),
		Patch:   t,
		Digests: pair,
		Backup:  backup,
	}
	if suffix != "" {
		job.Destination = filepath.Join(directory, OutputName(t.Name, suffix))
	}
	return job, nil
}
