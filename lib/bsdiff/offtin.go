// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bsdiff

import (
	"encoding/binary"
	"fmt"
	"math"
)

// IntegerSize is the encoded width of every integer in a container.
const IntegerSize = 8

// signBit is bit 63 of the little-endian word. It flags a negative
// value; the remaining 63 bits hold the magnitude.
const signBit = uint64(1) << 63

// DecodeInt64 decodes a sign-magnitude integer from the first 8 bytes
// of b. A set sign bit with a zero magnitude decodes to 0. Panics if b
// is shorter than [IntegerSize], like [binary.LittleEndian.Uint64].
func DecodeInt64(b []byte) int64 {
	word := binary.LittleEndian.Uint64(b)
	magnitude := int64(word &^ signBit)
	if word&signBit != 0 {
		return -magnitude
	}
	return magnitude
}

// EncodeInt64 writes value into the first 8 bytes of b using the
// sign-magnitude encoding. math.MinInt64 has no representation (its
// magnitude needs 64 bits) and is rejected.
func EncodeInt64(b []byte, value int64) error {
	if value == math.MinInt64 {
		return fmt.Errorf("bsdiff: %d has no sign-magnitude encoding", value)
	}
	word := uint64(value)
	if value < 0 {
		word = uint64(-value) | signBit
	}
	binary.LittleEndian.PutUint64(b, word)
	return nil
}
