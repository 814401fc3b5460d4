// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes and compares content digests of patch
// inputs and outputs.
//
// Patch tables published for the SimCity 2000 Network Edition update
// identify files by MD5, so MD5 is the default [Algorithm]. SHA-256,
// BLAKE3 and BLAKE2b-256 are available for manifests that carry
// stronger digests. MD5 here is an identity check against published
// tables, not a defense against a malicious patch author.
//
// The API surface:
//
//   - [Sum] and [HashFile] -- compute a [Digest] from bytes or a
//     streamed file
//   - [Parse] -- parse a hex digest (either case) for a given algorithm
//   - [Digest.String] -- canonical lower-case hex form used in logs,
//     error messages and JSON output
//
// Digests are comparable values: two digests are equal with == when
// they use the same algorithm and have the same bytes.
package digest
