// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package patchset

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a byte slice written as a hex string in YAML and JSON.
// Whitespace inside the string is ignored so long runs can be folded
// across lines.
type HexBytes []byte

// MarshalText encodes b as lower-case hex.
func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(b)), nil
}

// UnmarshalText decodes hex in either case.
func (b *HexBytes) UnmarshalText(text []byte) error {
	cleaned := strings.Join(strings.Fields(string(text)), "")
	decoded, err := hex.DecodeString(cleaned)
	if err != nil {
		return fmt.Errorf("invalid hex bytes: %w", err)
	}
	*b = decoded
	return nil
}
