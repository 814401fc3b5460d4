// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sc2knet/sc2kpatch/cmd/sc2kpatch/cli"
	"github.com/sc2knet/sc2kpatch/lib/config"
	"github.com/sc2knet/sc2kpatch/lib/patchset"
	"github.com/sc2knet/sc2kpatch/lib/sc2k"
)

type bundleParams struct {
	Config   string `flag:"config,c" desc:"config file (default: $SC2KPATCH_CONFIG)"`
	Manifest string `flag:"manifest,m" desc:"bundle the containers of this manifest instead of the catalog"`
	Codec    string `flag:"codec" desc:"stream codec for catalog containers (default: config codec)"`
	Output   string `flag:"output,o" desc:"bundle file to write (required)"`
}

func bundleCommand(env *environment) *cli.Command {
	var params bundleParams
	return &cli.Command{
		Name:    "bundle",
		Summary: "Pack patches into a single CBOR bundle",
		Description: `Write a self-contained CBOR bundle holding each container and its
digests, for distribution as one file.

Catalog definitions are serialized into containers compressed with
--codec. Manifest containers are embedded as they are.`,
		Usage: "sc2kpatch bundle [flags] [file...]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("bundle", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Bundle the whole catalog with zstd streams",
				Command:     "sc2kpatch bundle --codec zstd -o sc2k-net.cbor",
			},
		},
		Run: func(_ context.Context, args []string) error {
			if params.Output == "" {
				return cli.Validation("--output is required")
			}
			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			manifestPath := params.Manifest
			if manifestPath == "" {
				manifestPath = cfg.Manifest
			}

			var bundle *patchset.Bundle
			if manifestPath != "" {
				manifest, err := patchset.LoadManifest(manifestPath)
				if err != nil {
					return notFound(err)
				}
				bundle, err = manifest.Bundle()
				if err != nil {
					return notFound(err)
				}
				if bundle.Entries, err = selectEntries(bundle.Entries, baseNames(args)); err != nil {
					return err
				}
			} else {
				codecName := params.Codec
				if codecName == "" {
					codecName = cfg.Codec
				}
				definitions, err := catalogDefinitions(baseNames(args))
				if err != nil {
					return err
				}
				bundle, err = patchset.BundleDefinitions(definitions, codecName)
				if err != nil {
					return err
				}
			}

			if err := patchset.WriteBundle(params.Output, bundle); err != nil {
				return err
			}
			_, err = fmt.Fprintf(env.stdout, "wrote %d entries to %s\n", len(bundle.Entries), params.Output)
			return err
		},
	}
}

// catalogDefinitions returns the named catalog definitions, or all of
// them when names is empty.
func catalogDefinitions(names []string) ([]*patchset.Definition, error) {
	catalog, err := sc2k.Load()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if len(names) == 0 {
		names = catalog.Names()
	}
	definitions := make([]*patchset.Definition, 0, len(names))
	for _, name := range names {
		definition, ok := catalog.Definition(name)
		if !ok {
			return nil, cli.NotFound("no patch for %q in the catalog", name)
		}
		definitions = append(definitions, definition)
	}
	return definitions, nil
}

// selectEntries narrows bundle entries to names, in the order of
// names. An empty names list keeps every entry.
func selectEntries(entries []patchset.BundleEntry, names []string) ([]patchset.BundleEntry, error) {
	if len(names) == 0 {
		return entries, nil
	}
	selected := make([]patchset.BundleEntry, 0, len(names))
	for _, name := range names {
		index := -1
		for i, entry := range entries {
			if strings.EqualFold(entry.Name, name) {
				index = i
				break
			}
		}
		if index < 0 {
			return nil, cli.NotFound("no patch for %q in the manifest", name)
		}
		selected = append(selected, entries[index])
	}
	return selected, nil
}
