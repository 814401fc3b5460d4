// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bsdiff

import (
	"bytes"
	"fmt"
)

const (
	// Magic is the 8-byte container signature.
	Magic = "BSDIFF40"

	// HeaderSize is the fixed header: magic plus three integers.
	HeaderSize = len(Magic) + 3*IntegerSize
)

// Decompressor expands one compressed stream. Implementations must
// fail on corrupt input rather than return truncated data.
type Decompressor interface {
	Decompress(compressed []byte) ([]byte, error)
}

// Compressor is the inverse of [Decompressor], used when building
// containers.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// DecompressorFunc adapts a plain function to [Decompressor].
type DecompressorFunc func(compressed []byte) ([]byte, error)

// Decompress calls f.
func (f DecompressorFunc) Decompress(compressed []byte) ([]byte, error) {
	return f(compressed)
}

// Header is the decoded fixed-size container header.
type Header struct {
	// ControlLength is the compressed size of the control block.
	ControlLength int64

	// DiffLength is the compressed size of the diff block.
	DiffLength int64

	// NewSize is the exact size of the file the patch produces.
	NewSize int64
}

// Container is a parsed patch with all three streams decompressed.
// It is immutable once returned by [Parse].
type Container struct {
	Control []byte
	Diff    []byte
	Extra   []byte
	NewSize int64
}

// ReadHeader validates the magic and length fields of raw without
// decompressing anything. The returned lengths are guaranteed to fit
// inside raw.
func ReadHeader(raw []byte) (Header, error) {
	if len(raw) < HeaderSize {
		return Header{}, &FormatError{Reason: fmt.Sprintf("%d bytes is shorter than the %d-byte header", len(raw), HeaderSize)}
	}
	if !bytes.Equal(raw[:len(Magic)], []byte(Magic)) {
		return Header{}, &FormatError{Reason: fmt.Sprintf("bad magic %q", raw[:len(Magic)])}
	}

	fields := raw[len(Magic):HeaderSize]
	header := Header{
		ControlLength: DecodeInt64(fields[0:]),
		DiffLength:    DecodeInt64(fields[IntegerSize:]),
		NewSize:       DecodeInt64(fields[2*IntegerSize:]),
	}

	if header.ControlLength < 0 {
		return Header{}, &FormatError{Reason: fmt.Sprintf("negative control block length %d", header.ControlLength)}
	}
	if header.DiffLength < 0 {
		return Header{}, &FormatError{Reason: fmt.Sprintf("negative diff block length %d", header.DiffLength)}
	}
	if header.NewSize < 0 {
		return Header{}, &FormatError{Reason: fmt.Sprintf("negative new file size %d", header.NewSize)}
	}

	payload := int64(len(raw) - HeaderSize)
	if header.ControlLength > payload || header.DiffLength > payload-header.ControlLength {
		return Header{}, &FormatError{Reason: fmt.Sprintf(
			"control (%d) and diff (%d) blocks exceed the %d-byte payload",
			header.ControlLength, header.DiffLength, payload)}
	}

	return header, nil
}

// Parse validates raw and decompresses its three streams. Any
// decompression failure is reported as a [CorruptPatchError] naming
// the stream.
func Parse(raw []byte, decompressor Decompressor) (*Container, error) {
	header, err := ReadHeader(raw)
	if err != nil {
		return nil, err
	}

	controlStart := int64(HeaderSize)
	diffStart := controlStart + header.ControlLength
	extraStart := diffStart + header.DiffLength

	regions := [3]struct {
		stream Stream
		data   []byte
	}{
		{StreamControl, raw[controlStart:diffStart]},
		{StreamDiff, raw[diffStart:extraStart]},
		{StreamExtra, raw[extraStart:]},
	}

	var streams [3][]byte
	for i, region := range regions {
		decompressed, err := decompressor.Decompress(region.data)
		if err != nil {
			return nil, &CorruptPatchError{
				Stream: region.stream,
				Reason: "decompression failed",
				Err:    err,
			}
		}
		streams[i] = decompressed
	}

	return &Container{
		Control: streams[0],
		Diff:    streams[1],
		Extra:   streams[2],
		NewSize: header.NewSize,
	}, nil
}

// Marshal compresses the three streams of c and lays them out behind
// a header. Parse(Marshal(c, x), x) reproduces c for any codec x
// whose Decompress inverts its Compress.
func Marshal(c *Container, compressor Compressor) ([]byte, error) {
	if c.NewSize < 0 {
		return nil, fmt.Errorf("bsdiff: negative new file size %d", c.NewSize)
	}

	var compressed [3][]byte
	for i, stream := range [3][]byte{c.Control, c.Diff, c.Extra} {
		data, err := compressor.Compress(stream)
		if err != nil {
			return nil, fmt.Errorf("compressing %s stream: %w", Stream(i), err)
		}
		compressed[i] = data
	}

	output := make([]byte, HeaderSize, HeaderSize+len(compressed[0])+len(compressed[1])+len(compressed[2]))
	copy(output, Magic)
	fields := output[len(Magic):]
	for i, value := range []int64{int64(len(compressed[0])), int64(len(compressed[1])), c.NewSize} {
		if err := EncodeInt64(fields[i*IntegerSize:], value); err != nil {
			return nil, err
		}
	}

	for _, data := range compressed {
		output = append(output, data...)
	}
	return output, nil
}
