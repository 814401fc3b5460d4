// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bsdiff reads and replays BSDIFF40 patch containers.
//
// A container is a 32-byte header followed by three independently
// compressed streams:
//
//	offset  size  field
//	0       8     magic "BSDIFF40"
//	8       8     compressed control block length
//	16      8     compressed diff block length
//	24      8     size of the file the patch produces
//	32      ...   control block, diff block, extra block
//
// Every integer in the header and in the control block uses the
// sign-magnitude encoding implemented by [DecodeInt64] and
// [EncodeInt64], not two's complement.
//
// The decompressed control block is a flat sequence of 24-byte
// [Triple] records. [Replay] walks them in order: each triple adds
// Add diff bytes to the same number of original bytes (mod 256),
// copies Insert bytes verbatim from the extra block, then moves the
// read position in the original file by Seek.
//
// Decompression is injected through the [Decompressor] interface so
// the engine can be exercised without a particular compression
// library. The package never logs and never touches the filesystem;
// every failure is returned as one of the typed errors in errors.go.
package bsdiff
