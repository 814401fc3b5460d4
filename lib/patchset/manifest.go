// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package patchset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/sc2knet/sc2kpatch/lib/digest"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
	"github.com/sc2knet/sc2kpatch/lib/streamcodec"
)

// Manifest lists serialized bsdiff containers and the digests that
// gate them.
type Manifest struct {
	// Digest is the algorithm of every digest in the manifest. Empty
	// means md5.
	Digest string `yaml:"digest,omitempty" json:"digest,omitempty"`

	// Codec is the default stream codec for entries that do not name
	// one. Empty means bzip2.
	Codec string `yaml:"codec,omitempty" json:"codec,omitempty"`

	Entries []Entry `yaml:"entries" json:"entries"`

	// directory resolves relative container paths. Set by
	// LoadManifest.
	directory string
}

// Entry is one file in a manifest.
type Entry struct {
	// Name is the file to patch, relative to the game directory.
	Name string `yaml:"name" json:"name"`

	// Container is the path of the serialized container, relative to
	// the manifest.
	Container string `yaml:"container" json:"container"`

	Codec        string `yaml:"codec,omitempty" json:"codec,omitempty"`
	SourceDigest string `yaml:"source_digest" json:"source_digest"`
	TargetDigest string `yaml:"target_digest" json:"target_digest"`

	// Destination is where the output goes, relative to the game
	// directory. Empty patches Name in place.
	Destination string `yaml:"destination,omitempty" json:"destination,omitempty"`
}

// LoadManifest reads a manifest. Files ending in .json or .jsonc are
// parsed as JSON with comments and trailing commas; anything else is
// YAML.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	manifest, err := ParseManifest(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	manifest.directory = filepath.Dir(path)
	return manifest, nil
}

// ParseManifest parses manifest data. extension selects the format
// as in LoadManifest. Relative container paths resolve against the
// working directory.
func ParseManifest(data []byte, extension string) (*Manifest, error) {
	var manifest Manifest
	switch strings.ToLower(extension) {
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&manifest); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&manifest); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// Validate checks entries for missing fields, duplicate names, paths
// outside the game directory, unknown codecs and unparseable digests.
func (m *Manifest) Validate() error {
	var errs []error
	if _, err := digest.ParseAlgorithm(m.Digest); err != nil {
		errs = append(errs, err)
	}
	if _, err := streamcodec.ParseTag(m.Codec); err != nil {
		errs = append(errs, err)
	}
	if len(m.Entries) == 0 {
		errs = append(errs, errors.New("manifest has no entries"))
	}

	checker := newEntryChecker()
	for i, entry := range m.Entries {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("entry %d: name is required", i))
			continue
		}
		errs = append(errs, checker.check(entry.Name, entry.Destination)...)
		if entry.Container == "" {
			errs = append(errs, fmt.Errorf("entry %q: container is required", entry.Name))
		}
		if entry.Codec != "" {
			if _, err := streamcodec.ParseTag(entry.Codec); err != nil {
				errs = append(errs, fmt.Errorf("entry %q: %w", entry.Name, err))
			}
		}
		if _, err := ParseDigestPair(m.Digest, entry.SourceDigest, entry.TargetDigest); err != nil {
			errs = append(errs, fmt.Errorf("entry %q: %w", entry.Name, err))
		}
	}
	return errors.Join(errs...)
}

// containerPath resolves an entry's container path.
func (m *Manifest) containerPath(entry Entry) string {
	if filepath.IsAbs(entry.Container) {
		return entry.Container
	}
	return filepath.Join(m.directory, entry.Container)
}

// codecName returns the effective codec of entry.
func (m *Manifest) codecName(entry Entry) string {
	if entry.Codec != "" {
		return entry.Codec
	}
	return m.Codec
}

// Jobs reads every container and builds one job per entry against
// gameDirectory.
func (m *Manifest) Jobs(gameDirectory string, options JobOptions) ([]patchgate.Job, error) {
	jobs := make([]patchgate.Job, 0, len(m.Entries))
	for _, entry := range m.Entries {
		raw, err := os.ReadFile(m.containerPath(entry))
		if err != nil {
			return nil, fmt.Errorf("entry %q: reading container: %w", entry.Name, err)
		}
		job, err := buildJob(gameDirectory, options, jobEntry{
			name:         entry.Name,
			destination:  entry.Destination,
			container:    raw,
			codec:        m.codecName(entry),
			algorithm:    m.Digest,
			sourceDigest: entry.SourceDigest,
			targetDigest: entry.TargetDigest,
		})
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
