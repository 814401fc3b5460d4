// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/sc2knet/sc2kpatch/cmd/sc2kpatch/cli"
	"github.com/sc2knet/sc2kpatch/lib/version"
)

type versionParams struct {
	cli.JSONOutput
	Full  bool `flag:"full" desc:"include Go version and platform"`
	Short bool `flag:"short" desc:"print only the version number"`
}

func versionCommand(env *environment) *cli.Command {
	var params versionParams
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("version", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if done, err := params.EmitJSON(env.stdout, version.Current()); done {
				return err
			}
			if params.Full && params.Short {
				return cli.Validation("--full and --short are mutually exclusive")
			}
			if params.Short {
				_, err := fmt.Fprintln(env.stdout, version.Short())
				return err
			}
			text := version.Info()
			if params.Full {
				text = version.Full()
			}
			_, err := fmt.Fprintf(env.stdout, "sc2kpatch %s\n", text)
			return err
		},
	}
}
