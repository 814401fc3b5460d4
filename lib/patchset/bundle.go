// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package patchset

import (
	"errors"
	"fmt"
	"os"

	"github.com/sc2knet/sc2kpatch/lib/atomicfile"
	"github.com/sc2knet/sc2kpatch/lib/bsdiff"
	"github.com/sc2knet/sc2kpatch/lib/codec"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
	"github.com/sc2knet/sc2kpatch/lib/streamcodec"
)

// BundleVersion is the bundle format version this package writes and
// reads.
const BundleVersion = 1

// Bundle is a self-contained set of patches serialized as CBOR.
type Bundle struct {
	Version int           `cbor:"version"`
	Digest  string        `cbor:"digest,omitempty"`
	Entries []BundleEntry `cbor:"entries"`
}

// BundleEntry is one file in a bundle with its container embedded.
type BundleEntry struct {
	Name         string `cbor:"name"`
	Codec        string `cbor:"codec,omitempty"`
	SourceDigest string `cbor:"source_digest"`
	TargetDigest string `cbor:"target_digest"`
	Destination  string `cbor:"destination,omitempty"`
	Container    []byte `cbor:"container"`
}

// Bundle reads every container the manifest references and embeds
// them.
func (m *Manifest) Bundle() (*Bundle, error) {
	bundle := &Bundle{Version: BundleVersion, Digest: m.Digest}
	for _, entry := range m.Entries {
		raw, err := os.ReadFile(m.containerPath(entry))
		if err != nil {
			return nil, fmt.Errorf("entry %q: reading container: %w", entry.Name, err)
		}
		bundle.Entries = append(bundle.Entries, BundleEntry{
			Name:         entry.Name,
			Codec:        m.codecName(entry),
			SourceDigest: entry.SourceDigest,
			TargetDigest: entry.TargetDigest,
			Destination:  entry.Destination,
			Container:    raw,
		})
	}
	return bundle, nil
}

// BundleDefinitions serializes sparse definitions into a bundle,
// compressing each stream with codecName. All definitions must share
// one digest algorithm.
func BundleDefinitions(definitions []*Definition, codecName string) (*Bundle, error) {
	compressor, err := streamcodec.For(codecName)
	if err != nil {
		return nil, err
	}
	bundle := &Bundle{Version: BundleVersion}
	for i, definition := range definitions {
		if i == 0 {
			bundle.Digest = definition.Digest
		} else if definition.Digest != bundle.Digest {
			return nil, fmt.Errorf("definition %q: digest %q differs from %q",
				definition.Name, definition.Digest, bundle.Digest)
		}
		container, err := definition.Container()
		if err != nil {
			return nil, err
		}
		raw, err := bsdiff.Marshal(container, compressor)
		if err != nil {
			return nil, fmt.Errorf("definition %q: %w", definition.Name, err)
		}
		bundle.Entries = append(bundle.Entries, BundleEntry{
			Name:         definition.Name,
			Codec:        compressor.String(),
			SourceDigest: definition.SourceDigest,
			TargetDigest: definition.TargetDigest,
			Container:    raw,
		})
	}
	return bundle, nil
}

// Validate checks the version, and the names, paths, codecs, digests
// and container headers of every entry.
func (b *Bundle) Validate() error {
	if b.Version != BundleVersion {
		return fmt.Errorf("unsupported bundle version %d (want %d)", b.Version, BundleVersion)
	}
	if len(b.Entries) == 0 {
		return errors.New("bundle has no entries")
	}
	var errs []error
	checker := newEntryChecker()
	for _, entry := range b.Entries {
		errs = append(errs, checker.check(entry.Name, entry.Destination)...)
		if _, err := streamcodec.ParseTag(entry.Codec); err != nil {
			errs = append(errs, fmt.Errorf("entry %q: %w", entry.Name, err))
		}
		if _, err := ParseDigestPair(b.Digest, entry.SourceDigest, entry.TargetDigest); err != nil {
			errs = append(errs, fmt.Errorf("entry %q: %w", entry.Name, err))
		}
		if _, err := bsdiff.ReadHeader(entry.Container); err != nil {
			errs = append(errs, fmt.Errorf("entry %q: %w", entry.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Jobs builds one job per entry against gameDirectory.
func (b *Bundle) Jobs(gameDirectory string, options JobOptions) ([]patchgate.Job, error) {
	jobs := make([]patchgate.Job, 0, len(b.Entries))
	for _, entry := range b.Entries {
		job, err := buildJob(gameDirectory, options, jobEntry{
			name:         entry.Name,
			destination:  entry.Destination,
			container:    entry.Container,
			codec:        entry.Codec,
			algorithm:    b.Digest,
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

// WriteBundle encodes bundle and writes it atomically to path.
func WriteBundle(path string, bundle *Bundle) error {
	if err := bundle.Validate(); err != nil {
		return err
	}
	data, err := codec.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}
	return atomicfile.Write(path, data, atomicfile.Options{})
}

// ReadBundle reads and validates a bundle file.
func ReadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}
	var bundle Bundle
	if err := codec.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("decoding bundle %s: %w", path, err)
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("bundle %s: %w", path, err)
	}
	return &bundle, nil
}
