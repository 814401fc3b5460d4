// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for sc2kpatch.
//
// Configuration is loaded from a single file specified by either the
// SC2KPATCH_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search. [Resolve] picks between the
// two and returns [Default] when neither is given.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${GAME_DIR}, and ${VAR:-default} patterns are expanded.
// No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- game directory, patch source, workers, digest and
//     codec defaults, backup, hot patch and output settings
//   - [Default] -- the configuration used without a file
//   - [Load], [LoadFile] and [Resolve] -- the entry points for loading
package config
