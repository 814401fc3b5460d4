// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sc2k carries the patch catalog for SimCity 2000 Network
// Edition: the six interoperability patches as sparse bsdiff
// definitions and the version 1.1 hot patches for the server and
// client.
//
// The catalog is embedded in the binary so patching a game directory
// needs no other input.
package sc2k

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sc2knet/sc2kpatch/lib/hotpatch"
	"github.com/sc2knet/sc2kpatch/lib/patchset"
)

//go:embed catalog.yaml
var catalogYAML []byte

// DefaultHotpatchSuffix names hot patch output files, as in
// 2KSERVER-v11.EXE.
const DefaultHotpatchSuffix = "-v11"

// Catalog lists every known patch. A loaded catalog is shared and
// must not be modified.
type Catalog struct {
	Definitions []*patchset.Definition `yaml:"definitions"`
	Hotpatches  []*hotpatch.Table      `yaml:"hotpatches"`
}

var loadEmbedded = sync.OnceValues(func() (*Catalog, error) {
	return Parse(catalogYAML)
})

// Load returns the embedded catalog.
func Load() (*Catalog, error) {
	return loadEmbedded()
}

// Parse decodes and validates a catalog.
func Parse(data []byte) (*Catalog, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var catalog Catalog
	if err := decoder.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("parsing patch catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate checks every definition and hot patch table.
func (c *Catalog) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for _, definition := range c.Definitions {
		if err := definition.Validate(); err != nil {
			errs = append(errs, err)
		}
		key := strings.ToUpper(definition.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("duplicate definition %q", definition.Name))
		}
		seen[key] = true
	}
	for _, table := range c.Hotpatches {
		if err := table.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Names returns the file names of all definitions in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Definitions))
	for _, definition := range c.Definitions {
		names = append(names, definition.Name)
	}
	return names
}

// Definition returns the definition for a file name, ignoring case.
func (c *Catalog) Definition(name string) (*patchset.Definition, bool) {
	for _, definition := range c.Definitions {
		if strings.EqualFold(definition.Name, name) {
			return definition, true
		}
	}
	return nil, false
}

// Hotpatch returns the hot patch table for a file name, ignoring case.
func (c *Catalog) Hotpatch(name string) (*hotpatch.Table, bool) {
	for _, table := range c.Hotpatches {
		if strings.EqualFold(table.Name, name) {
			return table, true
		}
	}
	return nil, false
}
