// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package patchset turns patch descriptions into [patchgate.Job]
// values.
//
// Three descriptions are supported:
//
//   - [Definition]: a bsdiff container stored sparsely, with the
//     control triples spelled out and the diff stream reduced to its
//     non-zero runs. Game patches change a few hundred bytes of
//     megabyte-sized executables, so the dense diff stream is almost
//     all zeros.
//   - [Manifest]: a YAML or JSONC file listing serialized containers
//     on disk next to the manifest, with their codec and digests.
//   - [Bundle]: one CBOR file that embeds the containers, for
//     distribution as a single download.
//
// Every description carries an expected source and target digest per
// file. Nothing here writes game files; that is the gate's job.
package patchset
