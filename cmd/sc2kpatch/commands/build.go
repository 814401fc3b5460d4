// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sc2knet/sc2kpatch/cmd/sc2kpatch/cli"
	"github.com/sc2knet/sc2kpatch/lib/atomicfile"
	"github.com/sc2knet/sc2kpatch/lib/bsdiff"
	"github.com/sc2knet/sc2kpatch/lib/config"
	"github.com/sc2knet/sc2kpatch/lib/digest"
	"github.com/sc2knet/sc2kpatch/lib/patchgate"
	"github.com/sc2knet/sc2kpatch/lib/patchset"
	"github.com/sc2knet/sc2kpatch/lib/streamcodec"
)

type buildParams struct {
	Config string `flag:"config,c" desc:"config file (default: $SC2KPATCH_CONFIG)"`
	Source string `flag:"source,s" desc:"original file the container applies to (required)"`
	Target string `flag:"target,t" desc:"expected patched file; checked against the replayed output"`
	Name   string `flag:"name" desc:"file name recorded in the definition (default: base name of --source)"`
	Codec  string `flag:"codec" desc:"stream codec of the container (default: bzip2)"`
	Digest string `flag:"digest" desc:"digest algorithm (default: config digest)"`
	Output string `flag:"output,o" desc:"write the definition to this file instead of stdout"`
}

func buildCommand(env *environment) *cli.Command {
	var params buildParams
	return &cli.Command{
		Name:    "build",
		Summary: "Convert a container into a sparse catalog definition",
		Description: `Decode a BSDIFF40 container and emit it as a sparse YAML definition:
control triples, the non-zero runs of the diff stream, the extra
stream, and the source and target digests.

The digests are computed from --source and the replayed output. With
--target the replayed output must match that file exactly.`,
		Usage: "sc2kpatch build [flags] <container>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("build", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Build the MAXHELP.EXE definition",
				Command:     "sc2kpatch build -s orig/MAXHELP.EXE -t fixed/MAXHELP.EXE maxhelp.bsdiff",
			},
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return cli.Validation("build takes exactly one container, got %d", len(args))
			}
			if params.Source == "" {
				return cli.Validation("--source is required")
			}

			definition, err := buildDefinition(&params, args[0])
			if err != nil {
				return err
			}

			var buffer bytes.Buffer
			encoder := yaml.NewEncoder(&buffer)
			encoder.SetIndent(2)
			if err := encoder.Encode(definition); err != nil {
				return cli.Internal("encoding definition: %w", err)
			}
			if err := encoder.Close(); err != nil {
				return cli.Internal("encoding definition: %w", err)
			}

			if params.Output == "" {
				_, err := env.stdout.Write(buffer.Bytes())
				return err
			}
			return atomicfile.Write(params.Output, buffer.Bytes(), atomicfile.Options{})
		},
	}
}

func buildDefinition(params *buildParams, containerPath string) (*patchset.Definition, error) {
	algorithmName := params.Digest
	if algorithmName == "" {
		cfg, err := config.Resolve(params.Config)
		if err != nil {
			return nil, err
		}
		algorithmName = cfg.Digest
	}
	algorithm, err := digest.ParseAlgorithm(algorithmName)
	if err != nil {
		return nil, cli.Validation("%v", err)
	}
	streams, err := streamcodec.For(params.Codec)
	if err != nil {
		return nil, cli.Validation("%v", err)
	}

	raw, err := os.ReadFile(containerPath)
	if err != nil {
		return nil, notFound(err)
	}
	container, err := bsdiff.Parse(raw, streams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", containerPath, err)
	}

	name := params.Name
	if name == "" {
		name = filepath.Base(params.Source)
	}
	definition, err := patchset.FromContainer(name, container)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", containerPath, err)
	}

	old, err := os.ReadFile(params.Source)
	if err != nil {
		return nil, notFound(err)
	}
	output, err := bsdiff.Replay(container, old)
	if err != nil {
		return nil, fmt.Errorf("replaying %s against %s: %w", containerPath, params.Source, err)
	}
	pair := patchgate.DigestPair{
		Source: digest.Sum(algorithm, old),
		Target: digest.Sum(algorithm, output),
	}
	if params.Target != "" {
		expected, err := digest.HashFile(algorithm, params.Target)
		if err != nil {
			return nil, notFound(err)
		}
		if expected != pair.Target {
			return nil, &patchgate.ValidationError{Phase: patchgate.PhaseTarget, Expected: expected, Actual: pair.Target}
		}
	}

	definition.Digest = algorithm.String()
	definition.SourceDigest = pair.Source.String()
	definition.TargetDigest = pair.Target.String()

	// The sparse form must reproduce the container's output through the
	// same gate that applies it.
	if _, err := patchgate.Apply(old, definition, pair); err != nil {
		return nil, fmt.Errorf("definition %q does not reproduce the container: %w", name, err)
	}
	return definition, nil
}
