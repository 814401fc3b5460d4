// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/sc2knet/sc2kpatch/lib/digest"
	"github.com/sc2knet/sc2kpatch/lib/sc2k"
	"github.com/sc2knet/sc2kpatch/lib/streamcodec"
)

// EnvironmentVariable names the variable [Load] reads the config path
// from.
const EnvironmentVariable = "SC2KPATCH_CONFIG"

// Config is the sc2kpatch configuration.
type Config struct {
	// GameDir is the directory holding the game executables.
	GameDir string `yaml:"game_dir"`

	// Manifest is a patch manifest (.yaml, .json, .jsonc) or bundle
	// (.bundle) to apply instead of the embedded catalog. Empty uses
	// the catalog.
	Manifest string `yaml:"manifest"`

	// Workers bounds how many files are patched at once. Zero means
	// one per CPU.
	Workers int `yaml:"workers"`

	// Digest is the algorithm the build command records.
	Digest string `yaml:"digest"`

	// Codec is the stream codec used when writing containers and
	// bundles.
	Codec string `yaml:"codec"`

	// Backup keeps each replaced file as <file>.old.
	Backup bool `yaml:"backup"`

	Hotpatch HotpatchConfig `yaml:"hotpatch"`
	Output   OutputConfig   `yaml:"output"`
}

// HotpatchConfig configures the hotpatch command.
type HotpatchConfig struct {
	// Suffix is inserted before the extension of hot patch outputs.
	// Empty patches in place.
	// Default: -v11
	Suffix string `yaml:"suffix"`
}

// OutputConfig configures terminal output.
type OutputConfig struct {
	// Color is "auto", "always" or "never".
	// Default: auto
	Color string `yaml:"color"`
}

// ColorModes lists the accepted values of Output.Color.
var ColorModes = []string{"auto", "always", "never"}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		GameDir: ".",
		Workers: 0,
		Digest:  "md5",
		Codec:   "zstd",
		Backup:  true,
		Hotpatch: HotpatchConfig{
			Suffix: sc2k.DefaultHotpatchSuffix,
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}

// Load loads configuration from the SC2KPATCH_CONFIG environment
// variable. It fails when the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your sc2kpatch.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Values
// missing from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

// Resolve loads flagPath when set, otherwise SC2KPATCH_CONFIG when
// set, otherwise returns Default.
func Resolve(flagPath string) (*Config, error) {
	switch {
	case flagPath != "":
		return LoadFile(flagPath)
	case os.Getenv(EnvironmentVariable) != "":
		return Load()
	default:
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.GameDir = expandVars(c.GameDir, vars)
	vars["GAME_DIR"] = c.GameDir // Update for dependent paths.
	c.Manifest = expandVars(c.Manifest, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.GameDir == "" {
		errs = append(errs, errors.New("game_dir is required"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if _, err := digest.ParseAlgorithm(c.Digest); err != nil {
		errs = append(errs, fmt.Errorf("digest: %w", err))
	}
	if _, err := streamcodec.ParseTag(c.Codec); err != nil {
		errs = append(errs, fmt.Errorf("codec: %w", err))
	}
	if !slices.Contains(ColorModes, c.Output.Color) {
		errs = append(errs, fmt.Errorf("output.color must be one of: %v", ColorModes))
	}

	return errors.Join(errs...)
}
