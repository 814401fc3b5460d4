// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for sc2kpatch.
// These functions centralize the raw I/O that happens before the
// structured logger exists or after the command tree has returned:
//
//   - Fatal error reporting to stderr when the logger may not be
//     initialized (pre-logger).
//   - Process exit with a command-chosen exit code.
package process
