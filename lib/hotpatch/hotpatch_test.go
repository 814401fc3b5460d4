// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hotpatch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sc2knet/sc2kpatch/lib/digest"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
)

// sampleFile is a 64-byte stand-in for a game executable with a JZ at
// 0x04, an IPC name at 0x10 and an INFINITE wait at 0x20.
func sampleFile() []byte {
	data := make([]byte, 64)
	copy(data[0x04:], []byte{0x74, 0x10})
	copy(data[0x10:], "Server")
	copy(data[0x20:], []byte{0x6a, 0xff})
	return data
}

var sampleEdits = []Edit{
	{Offset: 0x04, Original: []byte{0x74, 0x10}, Patched: []byte{0xEB, 0x10}, Description: "Force TCP path", Detail: "JZ -> JMP"},
	{Offset: 0x10, Original: []byte{0x53}, Patched: []byte{0x59}, Description: "Scramble IPC name"},
	{Offset: 0x20, Original: []byte{0x6a, 0xff}, Patched: []byte{0x6a, 0x00}, Description: "Fix wait", Detail: "INFINITE -> 0ms"},
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	patched, results := Apply(sampleFile(), sampleEdits)
	for _, result := range results {
		if result.Status != StatusPatched {
			t.Fatalf("sample edit at 0x%X: %s", result.Edit.Offset, result.Status)
		}
	}
	return &Table{
		Name:         "2KSERVER.EXE",
		Size:         64,
		SourceDigest: digest.Sum(digest.MD5, sampleFile()).String(),
		TargetDigest: digest.Sum(digest.MD5, patched).String(),
		Edits:        sampleEdits,
	}
}

func TestCheckStatuses(t *testing.T) {
	data := sampleFile()
	data[0x10] = 0x59 // Already scrambled.
	data[0x21] = 0x42 // Neither original nor patched.

	edits := append(slices.Clone(sampleEdits), Edit{Offset: 62, Original: []byte{0, 0, 0}, Patched: []byte{1, 1, 1}, Description: "past end"})
	results := Check(data, edits)

	want := []Status{StatusPatched, StatusAlready, StatusMismatch, StatusOutOfRange}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, result := range results {
		if result.Status != want[i] {
			t.Errorf("edit %d status = %s, want %s", i, result.Status, want[i])
		}
	}
	if !bytes.Equal(results[2].Found, []byte{0x6a, 0x42}) {
		t.Errorf("mismatch Found = %x, want 6a42", []byte(results[2].Found))
	}
	if !bytes.Equal(data, func() []byte { d := sampleFile(); d[0x10] = 0x59; d[0x21] = 0x42; return d }()) {
		t.Error("Check modified its input")
	}
}

func TestApplyLeavesInputAlone(t *testing.T) {
	data := sampleFile()
	output, _ := Apply(data, sampleEdits)
	if !bytes.Equal(data, sampleFile()) {
		t.Error("Apply modified its input")
	}
	if output[0x04] != 0xEB || output[0x10] != 0x59 || output[0x21] != 0x00 {
		t.Errorf("edits not applied: % x", output[:0x22])
	}
}

func TestTableApplyMismatch(t *testing.T) {
	table := sampleTable(t)
	data := sampleFile()
	data[0x05] = 0x11

	_, err := table.Apply(data)
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want *MismatchError", err)
	}
	if len(mismatch.Results) != 1 || mismatch.Results[0].Edit.Offset != 0x04 {
		t.Errorf("Results = %+v, want the edit at 0x04", mismatch.Results)
	}
	if !strings.Contains(err.Error(), "expected 7410, found 7411") {
		t.Errorf("error %q should show expected and found bytes", err)
	}
}

func TestTableAcceptsPartiallyPatched(t *testing.T) {
	table := sampleTable(t)
	data := sampleFile()
	data[0x10] = 0x59

	output, err := table.Apply(data)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want, _ := Apply(sampleFile(), sampleEdits)
	if !bytes.Equal(output, want) {
		t.Error("partially patched input should converge on the fully patched output")
	}
}

func TestTableValidate(t *testing.T) {
	if err := sampleTable(t).Validate(); err != nil {
		t.Fatalf("valid table rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Table)
		want   string
	}{
		{"length change", func(table *Table) {
			table.Edits = []Edit{{Offset: 0, Original: []byte{1}, Patched: []byte{1, 2}}}
		}, "same non-zero length"},
		{"overlap", func(table *Table) {
			table.Edits = []Edit{
				{Offset: 4, Original: []byte{1, 2}, Patched: []byte{3, 4}},
				{Offset: 5, Original: []byte{1}, Patched: []byte{3}},
			}
		}, "overlaps"},
		{"past size", func(table *Table) {
			table.Edits = []Edit{{Offset: 63, Original: []byte{1, 2}, Patched: []byte{3, 4}}}
		}, "past size"},
		{"bad digest", func(table *Table) { table.TargetDigest = "nope" }, "target digest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := sampleTable(t)
			tt.mutate(table)
			err := table.Validate()
			if err == nil {
				t.Fatal("Validate should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct{ name, suffix, want string }{
		{"2KSERVER.EXE", "-v11", "2KSERVER-v11.EXE"},
		{"2KCLIENT.EXE", "-patched", "2KCLIENT-patched.EXE"},
		{"README", "-v11", "README-v11"},
		{"USARES.DLL", "", "USARES.DLL"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.name, tt.suffix); got != tt.want {
			t.Errorf("OutputName(%q, %q) = %q, want %q", tt.name, tt.suffix, got, tt.want)
		}
	}
}

func TestTableJobThroughGate(t *testing.T) {
	directory := t.TempDir()
	if err := os.WriteFile(filepath.Join(directory, "2KSERVER.EXE"), sampleFile(), 0644); err != nil {
		t.Fatal(err)
	}
	table := sampleTable(t)

	job, err := table.Job(directory, "-v11", false)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	result, err := patchgate.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != patchgate.StatusPatched {
		t.Errorf("Status = %s, want %s", result.Status, patchgate.StatusPatched)
	}

	original, _ := os.ReadFile(filepath.Join(directory, "2KSERVER.EXE"))
	if !bytes.Equal(original, sampleFile()) {
		t.Error("input modified when writing to a suffixed output")
	}
	output, err := os.ReadFile(filepath.Join(directory, "2KSERVER-v11.EXE"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if got := digest.Sum(digest.MD5, output).String(); got != table.TargetDigest {
		t.Errorf("output digest = %s, want %s", got, table.TargetDigest)
	}
}

func TestTableJobRejectsWrongRelease(t *testing.T) {
	directory := t.TempDir()
	data := sampleFile()
	data[40] = 0x99
	if err := os.WriteFile(filepath.Join(directory, "2KSERVER.EXE"), data, 0644); err != nil {
		t.Fatal(err)
	}
	job, err := sampleTable(t).Job(directory, "", false)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	_, err = patchgate.Run(context.Background(), job)
	if !errors.Is(err, patchgate.ErrValidation) {
		t.Fatalf("Run error = %v, want ErrValidation", err)
	}
}
