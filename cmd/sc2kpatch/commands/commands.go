// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the sc2kpatch command tree.
//
// Every patching command resolves its settings the same way: the
// config file named by --config or SC2KPATCH_CONFIG (defaults when
// neither is set), then flags on top. Patches come from a bundle
// (--bundle), a manifest (--manifest or the config's manifest), or the
// embedded SimCity 2000 Network Edition catalog, in that order.
package commands

import (
	"io"

	"github.com/sc2knet/sc2kpatch/cmd/sc2kpatch/cli"
)

// Root builds the command tree. Command output goes to stdout; help,
// logs and errors go to stderr.
func Root(stdout, stderr io.Writer) *cli.Command {
	env := &environment{stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name: "sc2kpatch",
		Description: `sc2kpatch: verified binary patcher for SimCity 2000 Network Edition.

Applies BSDIFF40 patches and byte-level hot patches to game files.
Every file is checked against its expected digest before and after
patching, and replaced atomically; a file that fails either check is
left untouched.`,
		HelpOutput: stderr,
		Subcommands: []*cli.Command{
			applyCommand(env),
			verifyCommand(env),
			hotpatchCommand(env),
			inspectCommand(env),
			buildCommand(env),
			bundleCommand(env),
			versionCommand(env),
		},
		Examples: []cli.Example{
			{
				Description: "Patch every catalog file in the current directory",
				Command:     "sc2kpatch apply",
			},
			{
				Description: "Patch one file in a specific game directory",
				Command:     "sc2kpatch apply -d ~/games/sc2k WINSCURK.EXE",
			},
			{
				Description: "Check which files are patched",
				Command:     "sc2kpatch verify -d ~/games/sc2k",
			},
			{
				Description: "Apply the v1.1 server fixes",
				Command:     "sc2kpatch hotpatch 2KSERVER.EXE",
			},
		},
	}
}
