// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration used for patch
// bundles.
//
// Manifests and configuration are YAML because people write them.
// Bundles are CBOR because they embed whole bsdiff containers as byte
// strings and must hash identically when rebuilt from the same inputs.
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
//
//	data, err := codec.Marshal(bundle)
//	err = codec.Unmarshal(data, &bundle)
//
// Types that are only ever written as CBOR use `cbor` struct tags.
// Types that also appear in `--json` CLI output use `json` tags, which
// fxamacker/cbor reads as a fallback. Never put both on one field.
package codec
