// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// maxItems bounds arrays and maps on decode. A full game release has
// a few dozen files; the bound only stops a hostile bundle from
// allocating without limit.
const maxItems = 1 << 16

var (
	bundleEncoder = mustEncMode()
	bundleDecoder = mustDecMode()
	diagnostics   = mustDiagMode()
)

func mustEncMode() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	// Digests and codec tags are written as their text form.
	options.TextMarshaler = cbor.TextMarshalerTextString
	mode, err := options.EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: encoder options: %v", err))
	}
	return mode
}

func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: maxItems,
		MaxMapPairs:      maxItems,
		TextUnmarshaler:  cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: decoder options: %v", err))
	}
	return mode
}

func mustDiagMode() cbor.DiagMode {
	mode, err := cbor.DiagOptions{
		ByteStringEncoding: cbor.ByteStringBase16Encoding,
		MaxArrayElements:   maxItems,
		MaxMapPairs:        maxItems,
	}.DiagMode()
	if err != nil {
		panic(fmt.Sprintf("codec: diagnostic options: %v", err))
	}
	return mode
}

// Marshal encodes v deterministically: equal values give equal bytes.
func Marshal(v any) ([]byte, error) {
	return bundleEncoder.Marshal(v)
}

// Unmarshal decodes exactly one data item from data into v. Duplicate
// map keys and trailing bytes are errors; fields v does not declare
// are skipped.
func Unmarshal(data []byte, v any) error {
	return bundleDecoder.Unmarshal(data, v)
}

// Diagnose renders data in CBOR diagnostic notation with byte strings
// as hex, for looking inside a bundle that will not load.
func Diagnose(data []byte) (string, error) {
	return diagnostics.Diagnose(data)
}
