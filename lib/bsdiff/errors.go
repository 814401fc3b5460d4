// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bsdiff

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. Each typed error below
// reports itself as one of these, so callers can branch on the kind
// of failure without a type switch.
var (
	// ErrFormat: the container header is malformed.
	ErrFormat = errors.New("malformed patch container")

	// ErrCorrupt: a stream failed to decompress, or the streams
	// disagree with each other (exhausted early, bytes left over).
	ErrCorrupt = errors.New("corrupt patch")

	// ErrRange: the patch reads outside the original file. The
	// container is internally consistent but does not belong to the
	// supplied original.
	ErrRange = errors.New("patch reads outside the original file")

	// ErrSizeMismatch: the control stream would produce a different
	// number of bytes than the header declares.
	ErrSizeMismatch = errors.New("patch output size mismatch")
)

// Stream identifies one of the three payload streams of a container.
type Stream uint8

const (
	StreamControl Stream = iota
	StreamDiff
	StreamExtra
)

// String returns the stream name used in error messages.
func (s Stream) String() string {
	switch s {
	case StreamControl:
		return "control"
	case StreamDiff:
		return "diff"
	case StreamExtra:
		return "extra"
	default:
		return fmt.Sprintf("stream(%d)", s)
	}
}

// FormatError reports a malformed container header.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "bsdiff: malformed container: " + e.Reason
}

// Is reports whether target is [ErrFormat].
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// CorruptPatchError reports a stream that failed to decompress or
// that the replay could not consume exactly. Offset is the read
// cursor within the decompressed stream at the point of failure
// (zero for decompression failures).
type CorruptPatchError struct {
	Stream Stream
	Offset int64
	Reason string

	// Err is the underlying decompressor error, if any.
	Err error
}

func (e *CorruptPatchError) Error() string {
	message := fmt.Sprintf("bsdiff: corrupt %s stream at offset %d: %s", e.Stream, e.Offset, e.Reason)
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

// Unwrap returns the decompressor error.
func (e *CorruptPatchError) Unwrap() error { return e.Err }

// Is reports whether target is [ErrCorrupt].
func (e *CorruptPatchError) Is(target error) bool { return target == ErrCorrupt }

// PatchRangeError reports an add phase that would read original
// bytes [Offset, Offset+Length) from a file of OldSize bytes.
type PatchRangeError struct {
	Offset  int64
	Length  int64
	OldSize int64
}

func (e *PatchRangeError) Error() string {
	return fmt.Sprintf("bsdiff: add of %d bytes at original offset %d exceeds original size %d",
		e.Length, e.Offset, e.OldSize)
}

// Is reports whether target is [ErrRange].
func (e *PatchRangeError) Is(target error) bool { return target == ErrRange }

// SizeMismatchError reports a control stream whose triples do not add
// up to the declared output size. Produced is the size the offending
// triple would have reached; it may exceed Declared.
type SizeMismatchError struct {
	Declared int64
	Produced int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("bsdiff: control stream produces %d bytes, header declares %d",
		e.Produced, e.Declared)
}

// Is reports whether target is [ErrSizeMismatch].
func (e *SizeMismatchError) Is(target error) bool { return target == ErrSizeMismatch }
