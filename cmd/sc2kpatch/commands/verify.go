// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/sc2knet/sc2kpatch/cmd/sc2kpatch/cli"
	"github.com/sc2knet/sc2kpatch/lib/atomicfile"
	"github.com/sc2knet/sc2kpatch/lib/batch"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
)

type verifyParams struct {
	cli.JSONOutput
	settingsParams
	sourceParams
	outputNameParams
	Hotpatch bool `flag:"hotpatch" desc:"check the v1.1 hot patch outputs instead of the bsdiff patches"`
}

func verifyCommand(env *environment) *cli.Command {
	var params verifyParams
	return &cli.Command{
		Name:    "verify",
		Aliases: []string{"status"},
		Summary: "Check whether game files are patched",
		Description: `Hash each game file and classify it without modifying anything:

  ok         the file carries the patched digest
  unpatched  the file carries the original digest
  unknown    the file matches neither digest
  missing    the file does not exist

With --hotpatch the v1.1 hot patch outputs are checked instead, at the
name hotpatch would write (2KSERVER-v11.EXE, or the input itself with
--in-place).

Leftover temporary files from an interrupted write are reported as
warnings. Exits non-zero unless every file is ok.`,
		Usage: "sc2kpatch verify [flags] [file...]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("verify", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := params.outputNameParams.validate(); err != nil {
				return err
			}
			if !params.Hotpatch && (params.Suffix != "" || params.InPlace) {
				return cli.Validation("--suffix and --in-place require --hotpatch")
			}
			if params.Hotpatch && (params.Manifest != "" || params.Bundle != "") {
				return cli.Validation("--hotpatch cannot be combined with --manifest or --bundle")
			}
			session, err := env.session(&params.settingsParams, "verify")
			if err != nil {
				return err
			}
			var jobs []patchgate.Job
			if params.Hotpatch {
				jobs, err = session.hotpatchJobs(args, params.outputNameParams)
			} else {
				jobs, err = session.loadJobs(params.sourceParams, args)
			}
			if err != nil {
				return err
			}

			runner := &batch.Runner{Workers: session.config.Workers, Logger: session.logger}
			results, err := runner.Verify(ctx, jobs)
			if err != nil {
				return err
			}

			allOK := true
			for _, result := range results {
				if result.Status != batch.VerifyOK {
					allOK = false
				}
			}

			if done, err := params.EmitJSON(env.stdout, results); done {
				if err != nil {
					return err
				}
			} else {
				styles := session.styles
				writer := tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
				fmt.Fprintln(writer, "FILE\tDIGEST\tSTATUS")
				for _, result := range results {
					detail := result.Digest
					if result.Error != "" {
						detail = result.Error
					}
					if detail == "" {
						detail = "-"
					}
					fmt.Fprintf(writer, "%s\t%s\t%s\n", result.Path, detail, styles.Status(string(result.Status)))
				}
				writer.Flush()
			}

			env.warnLeftovers(session, jobs)

			if !allOK {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// warnLeftovers reports staged files an interrupted write left in the
// directories the jobs write to.
func (env *environment) warnLeftovers(session *session, jobs []patchgate.Job) {
	seen := make(map[string]bool)
	for _, job := range jobs {
		directory := filepath.Dir(job.Target())
		if seen[directory] {
			continue
		}
		seen[directory] = true
		leftovers, err := atomicfile.Leftovers(directory)
		if err != nil {
			session.logger.Debug("scanning for leftovers failed", "directory", directory, "error", err)
			continue
		}
		for _, path := range leftovers {
			session.logger.Warn("leftover temporary file", "path", path)
			fmt.Fprintf(env.stderr, "warning: %s is left over from an interrupted write and can be deleted\n", path)
		}
	}
}
