// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package patchgate

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sc2knet/sc2kpatch/lib/bsdiff"
	"github.com/sc2knet/sc2kpatch/lib/digest"
	"github.com/sc2knet/sc2kpatch/lib/streamcodec"
)

// Digests of the testdata fixtures. The source digest is upper-case
// as in published patch tables.
const (
	fixtureSourceMD5 = "32696FD7D176A4ABE51EF096A885FA89"
	fixtureTargetMD5 = "3a54d4578841134401cb2111288f78b7"
)

var bzip2Codec = streamcodec.Codec{Tag: streamcodec.BZip2}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("reading fixture %s: %v", name, err)
	}
	return data
}

func fixturePair(t *testing.T) DigestPair {
	t.Helper()
	source, err := digest.Parse(digest.MD5, fixtureSourceMD5)
	if err != nil {
		t.Fatalf("parsing source digest: %v", err)
	}
	target, err := digest.Parse(digest.MD5, fixtureTargetMD5)
	if err != nil {
		t.Fatalf("parsing target digest: %v", err)
	}
	return DigestPair{Source: source, Target: target}
}

func fixtureJob(t *testing.T, directory string) Job {
	t.Helper()
	path := filepath.Join(directory, "WINSCURK.EXE")
	if err := os.WriteFile(path, readFixture(t, "old.bin"), 0644); err != nil {
		t.Fatalf("writing original: %v", err)
	}
	return Job{
		Name:    "WINSCURK.EXE",
		Source:  path,
		Patch:   ContainerPatch{Raw: readFixture(t, "patch.bsdiff"), Decompressor: bzip2Codec},
		Digests: fixturePair(t),
	}
}

func TestApplyVerifiedFixture(t *testing.T) {
	old := readFixture(t, "old.bin")
	want := readFixture(t, "new.bin")

	result, err := ApplyVerified(old, readFixture(t, "patch.bsdiff"), fixturePair(t),
		Options{Decompressor: bzip2Codec})
	if err != nil {
		t.Fatalf("ApplyVerified: %v", err)
	}
	if result.Status != StatusPatched {
		t.Errorf("Status = %s, want %s", result.Status, StatusPatched)
	}
	if !bytes.Equal(result.Output, want) {
		t.Error("output differs from new.bin")
	}
	if result.Digest.String() != fixtureTargetMD5 {
		t.Errorf("Digest = %s, want %s", result.Digest, fixtureTargetMD5)
	}
}

func TestApplyAlreadyPatched(t *testing.T) {
	patched := readFixture(t, "new.bin")
	result, err := ApplyVerified(patched, readFixture(t, "patch.bsdiff"), fixturePair(t),
		Options{Decompressor: bzip2Codec})
	if err != nil {
		t.Fatalf("ApplyVerified: %v", err)
	}
	if result.Status != StatusAlreadyPatched {
		t.Errorf("Status = %s, want %s", result.Status, StatusAlreadyPatched)
	}
	if result.Output != nil {
		t.Error("already-patched result should carry no output")
	}
}

func TestApplySourceMismatch(t *testing.T) {
	old := readFixture(t, "old.bin")
	old[100] ^= 0x01

	_, err := ApplyVerified(old, readFixture(t, "patch.bsdiff"), fixturePair(t),
		Options{Decompressor: bzip2Codec})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if validation.Phase != PhaseSource {
		t.Errorf("Phase = %s, want %s", validation.Phase, PhaseSource)
	}
	if validation.Actual.String() != digest.Sum(digest.MD5, old).String() {
		t.Errorf("Actual = %s, want digest of the modified input", validation.Actual)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("errors.Is(err, ErrValidation) = false")
	}
	if validation.Hint() != "wrong or already-modified input file" {
		t.Errorf("Hint() = %q", validation.Hint())
	}
}

func TestApplyTargetMismatch(t *testing.T) {
	pair := fixturePair(t)
	pair.Target = digest.Sum(digest.MD5, []byte("some other release"))

	_, err := ApplyVerified(readFixture(t, "old.bin"), readFixture(t, "patch.bsdiff"), pair,
		Options{Decompressor: bzip2Codec})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if validation.Phase != PhaseTarget {
		t.Errorf("Phase = %s, want %s", validation.Phase, PhaseTarget)
	}
	if validation.Actual.String() != fixtureTargetMD5 {
		t.Errorf("Actual = %s, want %s", validation.Actual, fixtureTargetMD5)
	}
}

func TestApplyPropagatesEngineErrors(t *testing.T) {
	_, err := ApplyVerified(readFixture(t, "old.bin"), []byte("BSDIFF39 not a patch at all......"),
		fixturePair(t), Options{Decompressor: bzip2Codec})
	var formatErr *bsdiff.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("error = %v, want *bsdiff.FormatError", err)
	}
}

func TestApplyRejectsIncompletePair(t *testing.T) {
	pair := fixturePair(t)
	pair.Target = digest.Digest{}
	if _, err := ApplyVerified(readFixture(t, "old.bin"), readFixture(t, "patch.bsdiff"), pair,
		Options{Decompressor: bzip2Codec}); err == nil {
		t.Fatal("incomplete digest pair should be rejected")
	}

	mixed := fixturePair(t)
	mixed.Target = digest.Sum(digest.SHA256, readFixture(t, "new.bin"))
	if err := mixed.Validate(); err == nil {
		t.Fatal("mixed-algorithm pair should be rejected")
	}
}

// Flipping any single byte of the container must never produce a
// successful result with the wrong content.
func TestCorruptedContainerFailsClosed(t *testing.T) {
	old := readFixture(t, "old.bin")
	container := readFixture(t, "patch.bsdiff")
	pair := fixturePair(t)

	for index := range container {
		corrupted := bytes.Clone(container)
		corrupted[index] ^= 0xFF

		result, err := ApplyVerified(old, corrupted, pair, Options{Decompressor: bzip2Codec})
		if err != nil {
			continue
		}
		if got := digest.Sum(digest.MD5, result.Output); got != pair.Target {
			t.Fatalf("flipping byte %d produced unverified output %s", index, got)
		}
	}
}

func TestRunPatchesInPlace(t *testing.T) {
	directory := t.TempDir()
	job := fixtureJob(t, directory)

	result, err := Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusPatched {
		t.Errorf("Status = %s, want %s", result.Status, StatusPatched)
	}
	data, err := os.ReadFile(job.Source)
	if err != nil {
		t.Fatalf("reading patched file: %v", err)
	}
	if !bytes.Equal(data, readFixture(t, "new.bin")) {
		t.Error("patched file differs from new.bin")
	}

	entries, _ := os.ReadDir(directory)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after commit, want 1", len(entries))
	}

	// A second run is a no-op.
	again, err := Run(context.Background(), job)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if again.Status != StatusAlreadyPatched {
		t.Errorf("second Status = %s, want %s", again.Status, StatusAlreadyPatched)
	}
}

func TestRunBackup(t *testing.T) {
	directory := t.TempDir()
	job := fixtureJob(t, directory)
	job.Backup = true

	if _, err := Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	backup, err := os.ReadFile(job.Source + ".old")
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if !bytes.Equal(backup, readFixture(t, "old.bin")) {
		t.Error("backup differs from the original")
	}
}

func TestRunAlreadyPatchedTouchesNothing(t *testing.T) {
	directory := t.TempDir()
	job := fixtureJob(t, directory)
	job.Backup = true
	patched := readFixture(t, "new.bin")
	if err := os.WriteFile(job.Source, patched, 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Date(1996, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(job.Source, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	result, err := Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != StatusAlreadyPatched {
		t.Errorf("Status = %s, want %s", result.Status, StatusAlreadyPatched)
	}
	if result.Output != nil {
		t.Error("already patched result should carry no output")
	}

	data, _ := os.ReadFile(job.Source)
	if !bytes.Equal(data, patched) {
		t.Error("file content changed")
	}
	info, err := os.Stat(job.Source)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.ModTime().Equal(past) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), past)
	}
	entries, _ := os.ReadDir(directory)
	if len(entries) != 1 {
		var names []string
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Errorf("directory holds %v, want only the original (no backup, no staged file)", names)
	}
}

func TestRunSeparateDestination(t *testing.T) {
	directory := t.TempDir()
	job := fixtureJob(t, directory)
	job.Destination = filepath.Join(directory, "WINSCURK-patched.EXE")

	if _, err := Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	original, _ := os.ReadFile(job.Source)
	if !bytes.Equal(original, readFixture(t, "old.bin")) {
		t.Error("source was modified when a separate destination was set")
	}
	patched, _ := os.ReadFile(job.Destination)
	if !bytes.Equal(patched, readFixture(t, "new.bin")) {
		t.Error("destination differs from new.bin")
	}
}

func TestRunFailureLeavesDestinationUntouched(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, job *Job)
	}{
		{"source mismatch", func(t *testing.T, job *Job) {
			data := readFixture(t, "old.bin")
			data[0] ^= 0x80
			if err := os.WriteFile(job.Source, data, 0644); err != nil {
				t.Fatal(err)
			}
		}},
		{"target mismatch", func(t *testing.T, job *Job) {
			job.Digests.Target = digest.Sum(digest.MD5, []byte("elsewhere"))
		}},
		{"corrupt container", func(t *testing.T, job *Job) {
			raw := readFixture(t, "patch.bsdiff")
			raw[len(raw)-5] ^= 0xFF
			job.Patch = ContainerPatch{Raw: raw, Decompressor: bzip2Codec}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			directory := t.TempDir()
			job := fixtureJob(t, directory)
			job.Backup = true
			tt.mutate(t, &job)

			past := time.Date(1996, 3, 1, 12, 0, 0, 0, time.UTC)
			if err := os.Chtimes(job.Source, past, past); err != nil {
				t.Fatalf("Chtimes: %v", err)
			}
			before, _ := os.ReadFile(job.Source)

			if _, err := Run(context.Background(), job); err == nil {
				t.Fatal("Run should fail")
			}

			after, _ := os.ReadFile(job.Source)
			if !bytes.Equal(before, after) {
				t.Error("destination content changed")
			}
			info, err := os.Stat(job.Source)
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if !info.ModTime().Equal(past) {
				t.Errorf("destination mtime = %v, want %v", info.ModTime(), past)
			}
			entries, _ := os.ReadDir(directory)
			if len(entries) != 1 {
				t.Errorf("directory has %d entries, want only the original", len(entries))
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	directory := t.TempDir()
	job := fixtureJob(t, directory)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, job); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	data, _ := os.ReadFile(job.Source)
	if !bytes.Equal(data, readFixture(t, "old.bin")) {
		t.Error("cancelled job modified the destination")
	}
}

func TestRunMissingSource(t *testing.T) {
	job := Job{
		Name:    "USARES.DLL",
		Source:  filepath.Join(t.TempDir(), "USARES.DLL"),
		Patch:   ContainerPatch{Decompressor: bzip2Codec},
		Digests: fixturePair(t),
	}
	_, err := Run(context.Background(), job)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Run error = %v, want os.ErrNotExist", err)
	}
}
