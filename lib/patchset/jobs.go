// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package patchset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sc2knet/sc2kpatch/lib/patchgate"
	"github.com/sc2knet/sc2kpatch/lib/streamcodec"
)

// JobOptions applies to every job built from a description.
type JobOptions struct {
	// Backup keeps each replaced file as <file>.old.
	Backup bool
}

// jobEntry is the format-independent form of one manifest or bundle
// entry.
type jobEntry struct {
	name         string
	destination  string
	container    []byte
	codec        string
	algorithm    string
	sourceDigest string
	targetDigest string
}

// entryChecker collects name and path errors across the entries of
// one manifest or bundle. Names and written files are compared
// case-folded, as the game's file system treats them.
type entryChecker struct {
	names   map[string]bool
	targets map[string]bool
}

func newEntryChecker() *entryChecker {
	return &entryChecker{names: make(map[string]bool), targets: make(map[string]bool)}
}

// check reports the problems with one entry: a name or destination
// that escapes the game directory, a repeated name, or a file another
// entry already writes.
func (c *entryChecker) check(name, destination string) []error {
	var errs []error
	if err := checkLocal(name, destination); err != nil {
		errs = append(errs, fmt.Errorf("entry %q: %w", name, err))
	}
	key := strings.ToUpper(name)
	if c.names[key] {
		errs = append(errs, fmt.Errorf("entry %q: duplicate name", name))
	}
	c.names[key] = true

	written := name
	if destination != "" {
		written = destination
	}
	key = strings.ToUpper(filepath.Clean(written))
	if c.targets[key] {
		errs = append(errs, fmt.Errorf("entry %q: %s is written by an earlier entry", name, written))
	}
	c.targets[key] = true
	return errs
}

// checkLocal rejects a name or destination that is absolute or climbs
// out of the game directory.
func checkLocal(name, destination string) error {
	if !filepath.IsLocal(name) {
		return errors.New("name must be a relative path inside the game directory")
	}
	if destination != "" && !filepath.IsLocal(destination) {
		return fmt.Errorf("destination %q must be a relative path inside the game directory", destination)
	}
	return nil
}

func buildJob(gameDirectory string, options JobOptions, entry jobEntry) (patchgate.Job, error) {
	if err := checkLocal(entry.name, entry.destination); err != nil {
		return patchgate.Job{}, fmt.Errorf("entry %q: %w", entry.name, err)
	}
	codec, err := streamcodec.For(entry.codec)
	if err != nil {
		return patchgate.Job{}, fmt.Errorf("entry %q: %w", entry.name, err)
	}
	pair, err := ParseDigestPair(entry.algorithm, entry.sourceDigest, entry.targetDigest)
	if err != nil {
		return patchgate.Job{}, fmt.Errorf("entry %q: %w", entry.name, err)
	}
	job := patchgate.Job{
		Name:    entry.name,
		Source:  filepath.Join(gameDirectory, entry.name),
		Patch:   patchgate.ContainerPatch{Raw: entry.container, Decompressor: codec},
		Digests: pair,
		Backup:  options.Backup,
	}
	if entry.destination != "" {
		job.Destination = filepath.Join(gameDirectory, entry.destination)
	}
	return job, nil
}

// DefinitionJobs builds jobs that replay sparse definitions directly.
func DefinitionJobs(definitions []*Definition, gameDirectory string, options JobOptions) ([]patchgate.Job, error) {
	jobs := make([]patchgate.Job, 0, len(definitions))
	for _, definition := range definitions {
		pair, err := definition.Digests()
		if err != nil {
			return nil, fmt.Errorf("definition %q: %w", definition.Name, err)
		}
		jobs = append(jobs, patchgate.Job{
			Name:    definition.Name,
			Source:  filepath.Join(gameDirectory, definition.Name),
			Patch:   definition,
			Digests: pair,
			Backup:  options.Backup,
		})
	}
	return jobs, nil
}

// Select returns the jobs whose names match names, in the order of
// names. Matching ignores case as the game's file system does, and a
// name given twice selects its job once. An empty names list selects
// every job.
func Select(jobs []patchgate.Job, names []string) ([]patchgate.Job, error) {
	if len(names) == 0 {
		return jobs, nil
	}
	selected := make([]patchgate.Job, 0, len(names))
	chosen := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToUpper(name)
		if chosen[key] {
			continue
		}
		chosen[key] = true
		found := false
		for _, job := range jobs {
			if strings.EqualFold(job.Name, name) {
				selected = append(selected, job)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no patch for %q", name)
		}
	}
	return selected, nil
}
