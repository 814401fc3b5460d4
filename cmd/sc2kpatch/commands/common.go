// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/sc2knet/sc2kpatch/cmd/sc2kpatch/cli"
	"github.com/sc2knet/sc2kpatch/lib/config"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
	"github.com/sc2knet/sc2kpatch/lib/patchset"
	"github.com/sc2knet/sc2kpatch/lib/sc2k"
)

// environment carries the output streams shared by all commands.
type environment struct {
	stdout io.Writer
	stderr io.Writer
}

// settingsParams are the flags that override config file values.
type settingsParams struct {
	Config   string `flag:"config,c" desc:"config file (default: $SC2KPATCH_CONFIG)"`
	GameDir  string `flag:"game-dir,d" desc:"game directory (default: config game_dir or .)"`
	Workers  int    `flag:"workers,w" desc:"parallel jobs (default: config workers or GOMAXPROCS)"`
	NoBackup bool   `flag:"no-backup" desc:"do not keep replaced files as <file>.old"`
	Color    string `flag:"color" desc:"color output: auto, always or never"`
	Verbose  bool   `flag:"verbose,v" desc:"log every step"`
}

// sourceParams select where patches come from.
type sourceParams struct {
	Manifest string `flag:"manifest,m" desc:"manifest of containers and digests (default: config manifest)"`
	Bundle   string `flag:"bundle,b" desc:"CBOR bundle with embedded containers"`
}

// settings resolves the config file and applies flag overrides.
func (p *settingsParams) settings() (*config.Config, error) {
	cfg, err := config.Resolve(p.Config)
	if err != nil {
		return nil, err
	}
	if p.GameDir != "" {
		cfg.GameDir = p.GameDir
	}
	if p.Workers != 0 {
		cfg.Workers = p.Workers
	}
	if p.NoBackup {
		cfg.Backup = false
	}
	if p.Color != "" {
		cfg.Output.Color = p.Color
	}
	if err := cfg.Validate(); err != nil {
		return nil, &cli.ToolError{Category: cli.CategoryValidation, Err: err}
	}
	return cfg, nil
}

// session bundles what a command needs after settings resolve.
type session struct {
	config *config.Config
	logger *slog.Logger
	styles *cli.Styles
}

func (env *environment) session(params *settingsParams, command string) (*session, error) {
	cfg, err := params.settings()
	if err != nil {
		return nil, err
	}
	styles, err := cli.NewStyles(env.stdout, cfg.Output.Color)
	if err != nil {
		return nil, err
	}
	logger := cli.NewCommandLogger(env.stderr, params.Verbose).With(
		"command", command,
		"game_dir", cfg.GameDir,
	)
	return &session{config: cfg, logger: logger, styles: styles}, nil
}

// loadJobs builds jobs from the selected patch source and narrows them
// to names when any are given.
func (s *session) loadJobs(source sourceParams, names []string) ([]patchgate.Job, error) {
	options := patchset.JobOptions{Backup: s.config.Backup}
	manifestPath := source.Manifest
	if manifestPath == "" {
		manifestPath = s.config.Manifest
	}

	var jobs []patchgate.Job
	var err error
	switch {
	case source.Bundle != "" && source.Manifest != "":
		return nil, cli.Validation("--bundle and --manifest are mutually exclusive")

	case source.Bundle != "":
		var bundle *patchset.Bundle
		bundle, err = patchset.ReadBundle(source.Bundle)
		if err != nil {
			return nil, notFound(err)
		}
		s.logger.Debug("loaded bundle", "path", source.Bundle, "entries", len(bundle.Entries))
		jobs, err = bundle.Jobs(s.config.GameDir, options)

	case manifestPath != "":
		var manifest *patchset.Manifest
		manifest, err = patchset.LoadManifest(manifestPath)
		if err != nil {
			return nil, notFound(err)
		}
		s.logger.Debug("loaded manifest", "path", manifestPath, "entries", len(manifest.Entries))
		jobs, err = manifest.Jobs(s.config.GameDir, options)

	default:
		var catalog *sc2k.Catalog
		catalog, err = sc2k.Load()
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
		jobs, err = patchset.DefinitionJobs(catalog.Definitions, s.config.GameDir, options)
	}
	if err != nil {
		return nil, err
	}

	selected, err := patchset.Select(jobs, baseNames(names))
	if err != nil {
		return nil, &cli.ToolError{Category: cli.CategoryNotFound, Err: err}
	}
	return selected, nil
}

// baseNames reduces file arguments to the names patches are keyed by,
// so "sc2k/WINSCURK.EXE" selects WINSCURK.EXE.
func baseNames(arguments []string) []string {
	names := make([]string, len(arguments))
	for i, argument := range arguments {
		names[i] = filepath.Base(argument)
	}
	return names
}

// notFound marks missing input files as not-found errors.
func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &cli.ToolError{Category: cli.CategoryNotFound, Err: err}
	}
	return err
}
