// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which sc2kpatch build is running.
//
// Release builds stamp [Version], [GitCommit], [GitDirty] and
// [BuildTime] with -ldflags -X. A plain "go build" or "go install"
// leaves them empty, and [Current] recovers the commit from the VCS
// settings in the binary's embedded build info instead.
//
// "sc2kpatch version" prints [Info]; "--full" adds the toolchain and
// platform ([Full]); "--json" emits [Current] as a [BuildInfo].
package version
