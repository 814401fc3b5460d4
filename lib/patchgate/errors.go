// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package patchgate

import (
	"errors"
	"fmt"

	"github.com/sc2knet/sc2kpatch/lib/digest"
)

// ErrValidation matches every [ValidationError] through errors.Is.
var ErrValidation = errors.New("digest validation failed")

// Phase names the check that rejected a file.
type Phase string

const (
	// PhaseSource is the check of the original file before replay.
	PhaseSource Phase = "source"

	// PhaseTarget is the check of the reconstructed file before commit.
	PhaseTarget Phase = "target"
)

// ValidationError reports a digest mismatch. Nothing has been written
// when it is returned.
type ValidationError struct {
	Phase    Phase
	Expected digest.Digest
	Actual   digest.Digest
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s digest mismatch: expected %s, got %s (%s)",
		e.Phase, e.Expected, e.Actual, e.Hint())
}

// Hint describes the likely cause of the mismatch for the user.
func (e *ValidationError) Hint() string {
	if e.Phase == PhaseSource {
		return "wrong or already-modified input file"
	}
	return "corrupted patch or decompression library mismatch"
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
