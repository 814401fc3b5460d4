// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package patchgate applies a patch only when the input and the output
// both match their expected digests, and commits the output atomically.
//
// The gate is the only place where patch output reaches the
// filesystem. [Apply] works on bytes and never touches disk. [Run]
// adds file reading and the atomic commit through [atomicfile.Write].
// A failed check at either phase leaves the destination exactly as it
// was.
package patchgate

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/sc2knet/sc2kpatch/lib/atomicfile"
	"github.com/sc2knet/sc2kpatch/lib/bsdiff"
	"github.com/sc2knet/sc2kpatch/lib/digest"
)

// Status is the outcome of a successful gate pass.
type Status string

const (
	// StatusPatched means the output was reconstructed and verified.
	StatusPatched Status = "patched"

	// StatusAlreadyPatched means the input already carries the target
	// digest. Nothing is replayed or written.
	StatusAlreadyPatched Status = "already_patched"
)

// DigestPair holds the expected digests of one file before and after
// patching. Both digests must use the same algorithm.
type DigestPair struct {
	Source digest.Digest
	Target digest.Digest
}

// Algorithm returns the algorithm shared by both digests.
func (p DigestPair) Algorithm() digest.Algorithm {
	return p.Source.Algorithm()
}

// Validate checks that both digests are set and agree on algorithm.
func (p DigestPair) Validate() error {
	if p.Source.IsZero() || p.Target.IsZero() {
		return fmt.Errorf("digest pair is incomplete: source %s, target %s", p.Source, p.Target)
	}
	if p.Source.Algorithm() != p.Target.Algorithm() {
		return fmt.Errorf("digest pair mixes algorithms: source %s, target %s",
			p.Source.Algorithm(), p.Target.Algorithm())
	}
	return nil
}

// Patch reconstructs a target file from an original. Implementations
// are pure: the same input yields the same output and no state is
// kept between calls.
type Patch interface {
	Apply(old []byte) ([]byte, error)
}

// ContainerPatch is a serialized bsdiff container together with the
// codec for its streams.
type ContainerPatch struct {
	Raw          []byte
	Decompressor bsdiff.Decompressor
}

// Apply parses the container and replays it against old.
func (p ContainerPatch) Apply(old []byte) ([]byte, error) {
	container, err := bsdiff.Parse(p.Raw, p.Decompressor)
	if err != nil {
		return nil, err
	}
	return bsdiff.Replay(container, old)
}

// Result describes a successful gate pass.
type Result struct {
	Status Status

	// Output is the verified reconstruction. Nil when the input was
	// already patched.
	Output []byte

	// Digest is the digest of the file as it stands after the pass.
	Digest digest.Digest
}

// Apply verifies old against pair.Source, replays patch and verifies
// the result against pair.Target. Errors from the patch propagate
// unchanged so callers can inspect them with errors.As.
func Apply(old []byte, patch Patch, pair DigestPair) (*Result, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	algorithm := pair.Algorithm()

	actual := digest.Sum(algorithm, old)
	if actual != pair.Source {
		if actual == pair.Target {
			return &Result{Status: StatusAlreadyPatched, Digest: actual}, nil
		}
		return nil, &ValidationError{Phase: PhaseSource, Expected: pair.Source, Actual: actual}
	}

	output, err := patch.Apply(old)
	if err != nil {
		return nil, err
	}

	produced := digest.Sum(algorithm, output)
	if produced != pair.Target {
		return nil, &ValidationError{Phase: PhaseTarget, Expected: pair.Target, Actual: produced}
	}
	return &Result{Status: StatusPatched, Output: output, Digest: produced}, nil
}

// Options configures [ApplyVerified].
type Options struct {
	// Decompressor expands the container's streams.
	Decompressor bsdiff.Decompressor
}

// ApplyVerified runs the gate over a serialized bsdiff container.
func ApplyVerified(old, container []byte, pair DigestPair, options Options) (*Result, error) {
	return Apply(old, ContainerPatch{Raw: container, Decompressor: options.Decompressor}, pair)
}

// Job is one file to patch. Jobs share nothing mutable and may run
// concurrently when their destinations differ.
type Job struct {
	// Name identifies the job in logs and reports, usually the file
	// name the patch targets.
	Name string

	// Source is the path of the original file.
	Source string

	// Destination is where the verified output is committed. Empty
	// means Source, patching in place.
	Destination string

	Patch   Patch
	Digests DigestPair

	// Backup keeps the replaced destination as Destination+".old".
	Backup bool

	// Perm is the mode of a newly created destination. Existing
	// destinations keep their mode.
	Perm fs.FileMode
}

// Target returns the path the job writes.
func (j Job) Target() string {
	if j.Destination == "" {
		return j.Source
	}
	return j.Destination
}

// Run executes job: read the original, pass it through the gate and
// commit the output. The context is checked before reading and again
// before committing; a job cancelled before the commit leaves no trace.
func Run(ctx context.Context, job Job) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	old, err := os.ReadFile(job.Source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", job.Source, err)
	}

	result, err := Apply(old, job.Patch, job.Digests)
	if err != nil {
		return nil, err
	}
	if result.Status != StatusPatched {
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = atomicfile.Write(job.Target(), result.Output, atomicfile.Options{
		Perm:   job.Perm,
		Backup: job.Backup,
	})
	if err != nil {
		return nil, fmt.Errorf("committing %s: %w", job.Name, err)
	}
	return result, nil
}
