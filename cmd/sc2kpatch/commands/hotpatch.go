// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/sc2knet/sc2kpatch/cmd/sc2kpatch/cli"
	"github.com/sc2knet/sc2kpatch/lib/batch"
	"github.com/sc2knet/sc2kpatch/lib/hotpatch"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
	"github.com/sc2knet/sc2kpatch/lib/sc2k"
)

type hotpatchParams struct {
	cli.JSONOutput
	settingsParams
	outputNameParams
	Check bool `flag:"check" desc:"report the state of every edit without writing"`
}

// outputNameParams chooses where hot patch output goes. Shared by
// hotpatch, which writes there, and verify --hotpatch, which reads it.
type outputNameParams struct {
	Suffix  string `flag:"suffix" desc:"output name suffix (default: config hotpatch.suffix)"`
	InPlace bool   `flag:"in-place" desc:"replace the input file instead of writing a suffixed copy"`
}

func (p outputNameParams) validate() error {
	if p.InPlace && p.Suffix != "" {
		return cli.Validation("--suffix and --in-place are mutually exclusive")
	}
	return nil
}

// suffix resolves the output suffix against the configured default.
// An empty result means in place.
func (p outputNameParams) suffix(configured string) string {
	switch {
	case p.InPlace:
		return ""
	case p.Suffix != "":
		return p.Suffix
	default:
		return configured
	}
}

// hotpatchJobs builds one gate job per selected table.
func (s *session) hotpatchJobs(names []string, output outputNameParams) ([]patchgate.Job, error) {
	tables, err := selectTables(names)
	if err != nil {
		return nil, err
	}
	suffix := output.suffix(s.config.Hotpatch.Suffix)
	jobs := make([]patchgate.Job, 0, len(tables))
	for _, table := range tables {
		job, err := table.Job(s.config.GameDir, suffix, s.config.Backup)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// tableCheck is the --check report for one file.
type tableCheck struct {
	Name    string                `json:"name"`
	Path    string                `json:"path"`
	Size    int64                 `json:"size"`
	Results []hotpatch.EditResult `json:"results,omitempty"`
	Error   string                `json:"error,omitempty"`
}

func (c tableCheck) failed() bool {
	if c.Error != "" {
		return true
	}
	for _, result := range c.Results {
		if result.Status.Failed() {
			return true
		}
	}
	return false
}

func hotpatchCommand(env *environment) *cli.Command {
	var params hotpatchParams
	return &cli.Command{
		Name:    "hotpatch",
		Summary: "Apply the v1.1 byte edits to the server and client",
		Description: `Apply the v1.1 hot patches to 2KSERVER.EXE and 2KCLIENT.EXE.

Each edit replaces a few bytes at a fixed offset after checking that
the expected original bytes are there. The whole file is still gated by
its source and target digests. Output goes next to the input with a
suffix before the extension (2KSERVER-v11.EXE) unless --in-place is
given.`,
		Usage: "sc2kpatch hotpatch [flags] [file...]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("hotpatch", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Show which edits are present in the server",
				Command:     "sc2kpatch hotpatch --check 2KSERVER.EXE",
			},
			{
				Description: "Patch both executables in place",
				Command:     "sc2kpatch hotpatch --in-place",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if err := params.outputNameParams.validate(); err != nil {
				return err
			}
			session, err := env.session(&params.settingsParams, "hotpatch")
			if err != nil {
				return err
			}

			if params.Check {
				tables, err := selectTables(args)
				if err != nil {
					return err
				}
				return env.checkTables(&params.JSONOutput, session, tables)
			}

			jobs, err := session.hotpatchJobs(args, params.outputNameParams)
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

// selectTables returns the catalog's hot patch tables, narrowed to
// names when any are given.
func selectTables(names []string) ([]*hotpatch.Table, error) {
	catalog, err := sc2k.Load()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if len(names) == 0 {
		return catalog.Hotpatches, nil
	}
	tables := make([]*hotpatch.Table, 0, len(names))
	for _, name := range baseNames(names) {
		table, ok := catalog.Hotpatch(name)
		if !ok {
			return nil, cli.NotFound("no hot patch for %q", name)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func (env *environment) checkTables(output *cli.JSONOutput, session *session, tables []*hotpatch.Table) error {
	checks := make([]tableCheck, 0, len(tables))
	for _, table := range tables {
		check := tableCheck{
			Name: table.Name,
			Path: filepath.Join(session.config.GameDir, table.Name),
		}
		data, err := os.ReadFile(check.Path)
		if err != nil {
			check.Error = err.Error()
		} else {
			check.Size = int64(len(data))
			check.Results = hotpatch.Check(data, table.Edits)
			if table.Size > 0 && check.Size != table.Size {
				session.logger.Warn("unexpected file size", "file", table.Name, "size", check.Size, "expected", table.Size)
			}
		}
		checks = append(checks, check)
	}

	anyFailed := false
	for _, check := range checks {
		if check.failed() {
			anyFailed = true
		}
	}

	if done, err := output.EmitJSON(env.stdout, checks); done {
		if err != nil {
			return err
		}
	} else {
		for i, check := range checks {
			if i > 0 {
				fmt.Fprintln(env.stdout)
			}
			if check.Error != "" {
				fmt.Fprintf(env.stdout, "%s: %s\n", check.Name, check.Error)
				continue
			}
			fmt.Fprintf(env.stdout, "%s (%d bytes)\n", check.Path, check.Size)
			writer := tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "  OFFSET\tEDIT\tSTATUS")
			for _, result := range check.Results {
				status := session.styles.Status(string(result.Status))
				if result.Status == hotpatch.StatusMismatch {
					status += session.styles.Faint(fmt.Sprintf(" (expected %x, found %x)", []byte(result.Edit.Original), []byte(result.Found)))
				}
				fmt.Fprintf(writer, "  0x%05X\t%s\t%s\n", result.Edit.Offset, result.Edit.Description, status)
			}
			writer.Flush()
		}
	}

	if anyFailed {
		return &cli.ExitError{Code: 1}
	}
	return nil
}
