// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the sc2kpatch binary.
//
// A [Command] tree dispatches on the first positional argument, parses
// flags with spf13/pflag, and suggests the closest command or flag name
// on typos. Parameter structs declare flags through struct tags bound
// by [BindFlags]; embedding [JSONOutput] adds --json.
//
// Commands report handled failures (a batch with failed jobs, a verify
// that found unpatched files) by returning an [*ExitError] after
// writing their own output. Unexpected failures are returned as plain
// or [*ToolError] values and printed once by the binary's main.
//
// [NewCommandLogger] picks a slog text handler for terminals and a JSON
// handler otherwise. [NewStyles] renders status words with lipgloss,
// using a termenv color profile derived from the --color setting.
package cli
