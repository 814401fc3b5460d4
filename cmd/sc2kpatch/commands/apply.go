// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/sc2knet/sc2kpatch/cmd/sc2kpatch/cli"
	"github.com/sc2knet/sc2kpatch/lib/batch"
)

type applyParams struct {
	cli.JSONOutput
	settingsParams
	sourceParams
}

func applyCommand(env *environment) *cli.Command {
	var params applyParams
	return &cli.Command{
		Name:    "apply",
		Summary: "Patch game files",
		Description: `Apply BSDIFF40 patches to game files.

Each file is hashed first: a file that already carries the target
digest is reported as already patched and left alone, and a file that
carries neither digest is refused. Patched output is hashed again
before it atomically replaces the file. With no file arguments every
file the patch source names is processed.`,
		Usage: "sc2kpatch apply [flags] [file...]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("apply", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Patch files from a manifest without keeping backups",
				Command:     "sc2kpatch apply --manifest patches/manifest.yaml --no-backup",
			},
			{
				Description: "Patch from a bundle with four workers",
				Command:     "sc2kpatch apply --bundle sc2k-net.cbor -w 4",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			session, err := env.session(&params.settingsParams, "apply")
			if err != nil {
				return err
			}
			jobs, err := session.loadJobs(params.sourceParams, args)
			if err != nil {
				return err
			}

			runner := &batch.Runner{Workers: session.config.Workers, Logger: session.logger}
			report := runner.Run(ctx, jobs)
			if err := env.printReport(&params.JSONOutput, session.styles, report); err != nil {
				return err
			}
			if !report.OK() {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// printReport writes a batch report as JSON or as a table with a
// summary line.
func (env *environment) printReport(output *cli.JSONOutput, styles *cli.Styles, report batch.Report) error {
	if done, err := output.EmitJSON(env.stdout, report); done {
		return err
	}

	writer := tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "FILE\tSTATUS")
	for _, result := range report.Results {
		fmt.Fprintf(writer, "%s\t%s\n", result.Path, styles.Status(string(result.Status)))
	}
	writer.Flush()

	for _, result := range report.Results {
		if result.Error == "" {
			continue
		}
		fmt.Fprintf(env.stdout, "\n%s: %s\n", result.Name, result.Error)
		if result.Hint != "" {
			fmt.Fprintf(env.stdout, "  %s\n", styles.Faint("hint: "+result.Hint))
		}
	}

	fmt.Fprintf(env.stdout, "\n%d patched, %d already patched, %d failed, %d skipped\n",
		report.Count(batch.StatusPatched),
		report.Count(batch.StatusAlreadyPatched),
		report.Count(batch.StatusFailed),
		report.Count(batch.StatusSkipped),
	)
	return nil
}
