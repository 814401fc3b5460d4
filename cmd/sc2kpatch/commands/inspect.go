// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/sc2knet/sc2kpatch/cmd/sc2kpatch/cli"
	"github.com/sc2knet/sc2kpatch/lib/bsdiff"
	"github.com/sc2knet/sc2kpatch/lib/codec"
	"github.com/sc2knet/sc2kpatch/lib/patchset"
	"github.com/sc2knet/sc2kpatch/lib/sc2k"
	"github.com/sc2knet/sc2kpatch/lib/streamcodec"
)

type inspectParams struct {
	cli.JSONOutput
	Codec    string `flag:"codec" desc:"stream codec of a container file (default: bzip2)"`
	Triples  bool   `flag:"triples" desc:"list every control triple"`
	Diagnose bool   `flag:"diagnose" desc:"print a bundle in CBOR diagnostic notation"`
}

// containerInfo describes one container file.
type containerInfo struct {
	Path          string          `json:"path"`
	Codec         string          `json:"codec"`
	ControlLength int64           `json:"control_length"`
	DiffLength    int64           `json:"diff_length"`
	ExtraLength   int64           `json:"extra_length"`
	NewSize       int64           `json:"new_size"`
	Triples       int             `json:"triples"`
	AddTotal      int64           `json:"add_total"`
	InsertTotal   int64           `json:"insert_total"`
	TripleList    []bsdiff.Triple `json:"triple_list,omitempty"`
}

// definitionInfo describes one catalog definition or bundle entry.
type definitionInfo struct {
	Name         string `json:"name"`
	Codec        string `json:"codec,omitempty"`
	NewSize      int64  `json:"new_size"`
	Size         int    `json:"size,omitempty"`
	SourceDigest string `json:"source_digest"`
	TargetDigest string `json:"target_digest"`
}

func inspectCommand(env *environment) *cli.Command {
	var params inspectParams
	return &cli.Command{
		Name:    "inspect",
		Aliases: []string{"info"},
		Summary: "Describe a container, a bundle, or the built-in catalog",
		Description: `Describe a patch without applying it.

A BSDIFF40 container is decoded and its control stream summarized. Any
other file is read as a bundle. With no argument the built-in catalog
is listed.`,
		Usage: "sc2kpatch inspect [flags] [file]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("inspect", &params)
		},
		Run: func(_ context.Context, args []string) error {
			switch len(args) {
			case 0:
				return env.inspectCatalog(&params)
			case 1:
			default:
				return cli.Validation("inspect takes at most one file, got %d", len(args))
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return notFound(err)
			}
			if bytes.HasPrefix(data, []byte(bsdiff.Magic)) {
				return env.inspectContainer(&params, args[0], data)
			}
			return env.inspectBundle(&params, args[0], data)
		},
	}
}

func (env *environment) inspectContainer(params *inspectParams, path string, data []byte) error {
	header, err := bsdiff.ReadHeader(data)
	if err != nil {
		return err
	}
	streams, err := streamcodec.For(params.Codec)
	if err != nil {
		return cli.Validation("%v", err)
	}
	container, err := bsdiff.Parse(data, streams)
	if err != nil {
		return err
	}
	stats, err := bsdiff.Summarize(container)
	if err != nil {
		return err
	}

	info := containerInfo{
		Path:          path,
		Codec:         streams.String(),
		ControlLength: header.ControlLength,
		DiffLength:    header.DiffLength,
		ExtraLength:   int64(len(data)-bsdiff.HeaderSize) - header.ControlLength - header.DiffLength,
		NewSize:       header.NewSize,
		Triples:       stats.Triples,
		AddTotal:      stats.AddTotal,
		InsertTotal:   stats.InsertTotal,
	}
	if params.Triples {
		err := bsdiff.Walk(container, func(_ int, t bsdiff.Triple) error {
			info.TripleList = append(info.TripleList, t)
			return nil
		})
		if err != nil {
			return err
		}
	}

	if done, err := params.EmitJSON(env.stdout, info); done {
		return err
	}

	writer := tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintf(writer, "container\t%s\n", info.Path)
	fmt.Fprintf(writer, "codec\t%s\n", info.Codec)
	fmt.Fprintf(writer, "streams\tcontrol %d, diff %d, extra %d bytes compressed\n", info.ControlLength, info.DiffLength, info.ExtraLength)
	fmt.Fprintf(writer, "new size\t%d\n", info.NewSize)
	fmt.Fprintf(writer, "triples\t%d\n", info.Triples)
	fmt.Fprintf(writer, "copied\t%d\n", info.AddTotal)
	fmt.Fprintf(writer, "inserted\t%d\n", info.InsertTotal)
	writer.Flush()
	if stats.Produced() != info.NewSize {
		fmt.Fprintf(env.stdout, "warning: triples produce %d bytes, header declares %d\n", stats.Produced(), info.NewSize)
	}

	if len(info.TripleList) > 0 {
		fmt.Fprintln(env.stdout)
		writer = tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(writer, "#\tADD\tINSERT\tSEEK\t")
		for i, t := range info.TripleList {
			fmt.Fprintf(writer, "%d\t%d\t%d\t%d\t\n", i, t.Add, t.Insert, t.Seek)
		}
		writer.Flush()
	}
	return nil
}

func (env *environment) inspectBundle(params *inspectParams, path string, data []byte) error {
	if params.Diagnose {
		notation, err := codec.Diagnose(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		_, err = fmt.Fprintln(env.stdout, notation)
		return err
	}

	bundle, err := patchset.ReadBundle(path)
	if err != nil {
		return err
	}
	entries := make([]definitionInfo, 0, len(bundle.Entries))
	for _, entry := range bundle.Entries {
		header, err := bsdiff.ReadHeader(entry.Container)
		if err != nil {
			return fmt.Errorf("entry %q: %w", entry.Name, err)
		}
		codecName := entry.Codec
		if codecName == "" {
			codecName = streamcodec.BZip2.String()
		}
		entries = append(entries, definitionInfo{
			Name:         entry.Name,
			Codec:        codecName,
			NewSize:      header.NewSize,
			Size:         len(entry.Container),
			SourceDigest: entry.SourceDigest,
			TargetDigest: entry.TargetDigest,
		})
	}
	return env.printDefinitions(params, entries)
}

func (env *environment) inspectCatalog(params *inspectParams) error {
	catalog, err := sc2k.Load()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	entries := make([]definitionInfo, 0, len(catalog.Definitions))
	for _, definition := range catalog.Definitions {
		entries = append(entries, definitionInfo{
			Name:         definition.Name,
			NewSize:      definition.NewSize,
			SourceDigest: definition.SourceDigest,
			TargetDigest: definition.TargetDigest,
		})
	}
	return env.printDefinitions(params, entries)
}

func (env *environment) printDefinitions(params *inspectParams, entries []definitionInfo) error {
	if done, err := params.EmitJSON(env.stdout, entries); done {
		return err
	}
	writer := tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "FILE\tNEW SIZE\tSOURCE\tTARGET")
	for _, entry := range entries {
		fmt.Fprintf(writer, "%s\t%d\t%s\t%s\n", entry.Name, entry.NewSize, entry.SourceDigest, entry.TargetDigest)
	}
	return writer.Flush()
}
