// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile replaces files so that readers and crash recovery
// only ever observe the old content or the complete new content.
//
// [Write] stages data in a temporary file in the destination's
// directory, fsyncs it, renames it over the destination and fsyncs the
// directory. A failure at any step removes the temporary file and
// leaves the destination untouched.
package atomicfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// BackupSuffix is appended to the destination path to name the backup
// of the replaced file.
const BackupSuffix = ".old"

// temporaryPattern names staged files. The leading dot keeps them out
// of directory listings in the game folder.
const temporaryPattern = ".%s.*.tmp"

// Options controls how [Write] replaces the destination.
type Options struct {
	// Perm is the mode of a newly created destination. When the
	// destination already exists its mode is preserved. Zero means
	// 0644.
	Perm fs.FileMode

	// Backup hard-links the existing destination to path+BackupSuffix
	// before the rename. An existing backup is never overwritten, so
	// the first pristine copy survives repeated runs.
	Backup bool
}

// Write atomically replaces the file at path with data. The parent
// directory must already exist.
func Write(path string, data []byte, options Options) error {
	directory := filepath.Dir(path)
	mode := options.Perm
	if mode == 0 {
		mode = 0644
	}
	existing, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if !existing.Mode().IsRegular() {
			return fmt.Errorf("%s is not a regular file", path)
		}
		mode = existing.Mode().Perm()
	case !errors.Is(statErr, fs.ErrNotExist):
		return fmt.Errorf("checking %s: %w", path, statErr)
	}

	file, err := os.CreateTemp(directory, fmt.Sprintf(temporaryPattern, filepath.Base(path)))
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := file.Name()

	// Write, sync, chmod, close. If any step fails, remove the
	// temporary file and report the first error.
	fail := func(step string, err error) error {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("%s temporary file for %s: %w", step, path, err)
	}
	if _, err := file.Write(data); err != nil {
		return fail("writing", err)
	}
	if err := file.Sync(); err != nil {
		return fail("syncing", err)
	}
	if err := file.Chmod(mode); err != nil {
		return fail("setting mode on", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}

	if options.Backup && statErr == nil {
		if err := backup(path); err != nil {
			os.Remove(temporaryPath)
			return err
		}
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}

	// Sync the parent directory so the rename survives power loss.
	if parent, err := os.Open(directory); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// backup links path to path+BackupSuffix unless a backup already
// exists. Filesystems without hard links fall back to a copy.
func backup(path string) error {
	backupPath := path + BackupSuffix
	if _, err := os.Lstat(backupPath); err == nil {
		return nil
	}
	err := os.Link(path, backupPath)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return fmt.Errorf("reading %s for backup: %w", path, readErr)
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		return fmt.Errorf("checking %s for backup: %w", path, statErr)
	}
	return Write(backupPath, data, Options{Perm: info.Mode().Perm()})
}

// IsTemporary reports whether name looks like a file staged by
// [Write].
func IsTemporary(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") && strings.HasSuffix(base, ".tmp")
}

// Leftovers lists the staged files in directory, which only exist
// after a [Write] was interrupted before its rename or cleanup.
func Leftovers(directory string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && IsTemporary(entry.Name()) {
			paths = append(paths, filepath.Join(directory, entry.Name()))
		}
	}
	return paths, nil
}
