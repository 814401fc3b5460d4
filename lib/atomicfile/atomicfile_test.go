// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package atomicfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func listDirectory(t *testing.T, directory string) []string {
	t.Helper()
	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestWriteCreatesFile(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "USAHORES.DLL")

	if err := Write(path, []byte("patched"), Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "patched" {
		t.Errorf("content = %q, want %q", data, "patched")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
	if names := listDirectory(t, directory); len(names) != 1 {
		t.Errorf("directory contains %v, want only the destination", names)
	}
}

func TestWriteReplacesAndPreservesMode(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "2KSERVER.EXE")
	if err := os.WriteFile(path, []byte("original"), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// Undo umask so the mode check is exact.
	if err := os.Chmod(path, 0755); err != nil {
		t.Fatalf("Chmod: %v", err)
	}

	if err := Write(path, []byte("replacement"), Options{Perm: 0600}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "replacement" {
		t.Errorf("content = %q, want %q", data, "replacement")
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v, want existing 0755 preserved", info.Mode().Perm())
	}
}

func TestWriteBackup(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "2KCLIENT.EXE")
	if err := os.WriteFile(path, []byte("pristine"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Write(path, []byte("first"), Options{Backup: true}); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := Write(path, []byte("second"), Options{Backup: true}); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	backupData, err := os.ReadFile(path + BackupSuffix)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if !bytes.Equal(backupData, []byte("pristine")) {
		t.Errorf("backup = %q, want the first pristine content", backupData)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}
}

func TestWriteBackupSkippedForNewFile(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "MAXHELP.EXE")

	if err := Write(path, []byte("new"), Options{Backup: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + BackupSuffix); !os.IsNotExist(err) {
		t.Errorf("backup of a new file should not exist, stat err = %v", err)
	}
}

func TestWriteMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "USARES.DLL")
	if err := Write(path, []byte("data"), Options{}); err == nil {
		t.Fatal("Write into a missing directory should fail")
	}
}

func TestWriteRejectsDirectoryDestination(t *testing.T) {
	directory := t.TempDir()
	target := filepath.Join(directory, "subdir")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := Write(target, []byte("data"), Options{}); err == nil {
		t.Fatal("Write over a directory should fail")
	}
	if names := listDirectory(t, directory); len(names) != 1 {
		t.Errorf("directory contains %v, temporary file left behind", names)
	}
}

func TestIsTemporary(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".WINSCURK.EXE.123456.tmp", true},
		{"/game/.USARES.DLL.1.tmp", true},
		{"WINSCURK.EXE", false},
		{"WINSCURK.EXE.old", false},
		{"notes.tmp", false},
	}
	for _, tt := range tests {
		if got := IsTemporary(tt.name); got != tt.want {
			t.Errorf("IsTemporary(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLeftovers(t *testing.T) {
	directory := t.TempDir()
	for _, name := range []string{"2KSERVER.EXE", "2KSERVER.EXE.old", ".2KSERVER.EXE.77.tmp"} {
		if err := os.WriteFile(filepath.Join(directory, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(directory, ".cache.1.tmp"), 0755); err != nil {
		t.Fatal(err)
	}

	leftovers, err := Leftovers(directory)
	if err != nil {
		t.Fatalf("Leftovers: %v", err)
	}
	want := filepath.Join(directory, ".2KSERVER.EXE.77.tmp")
	if len(leftovers) != 1 || leftovers[0] != want {
		t.Errorf("Leftovers = %v, want [%s]", leftovers, want)
	}

	// A completed write leaves nothing behind.
	if err := Write(filepath.Join(directory, "2KCLIENT.EXE"), []byte("client"), Options{Backup: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if again, _ := Leftovers(directory); len(again) != 1 {
		t.Errorf("Leftovers after Write = %v, want only the planted file", again)
	}

	if _, err := Leftovers(filepath.Join(directory, "missing")); err == nil {
		t.Error("Leftovers of a missing directory should fail")
	}
}
