// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package streamcodec provides the compression codecs used for the
// three payload streams of a patch container. A [Codec] satisfies both
// bsdiff.Compressor and bsdiff.Decompressor, so the engine never
// imports a compression library directly.
//
// Canonical bsdiff containers use bzip2. The other codecs exist for
// containers built by this project's own tooling.
package streamcodec

import (
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies a compression algorithm. Tags are stored in bundle
// entries and config files by name, never by number.
type Tag uint8

const (
	// Raw passes streams through unchanged.
	Raw Tag = iota

	// BZip2 is the compression used by the reference bsdiff tool.
	// Decompression only.
	BZip2

	// Zstd is zstd at the default level.
	Zstd

	// LZ4 is the LZ4 frame format (block sizes are not recorded in
	// the container, so the self-describing frame format is used
	// rather than raw blocks).
	LZ4

	// Gzip is gzip at the default level.
	Gzip
)

// MaxStreamSize bounds the decompressed size of a single stream.
// Patches for installer binaries are a few megabytes at most; a stream
// larger than this is treated as corrupt.
const MaxStreamSize = 1 << 30

// ErrCompressUnsupported is returned by [Codec.Compress] for codecs
// that can only decompress.
var ErrCompressUnsupported = errors.New("compression not supported for this codec")

// ErrStreamTooLarge is returned when a stream expands past
// [MaxStreamSize].
var ErrStreamTooLarge = fmt.Errorf("decompressed stream exceeds %d bytes", MaxStreamSize)

// String returns the human-readable name of a tag.
func (tag Tag) String() string {
	switch tag {
	case Raw:
		return "raw"
	case BZip2:
		return "bzip2"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	case Gzip:
		return "gzip"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ParseTag parses a tag from its string representation. The empty
// string selects bzip2, the format of canonical containers.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "raw", "none":
		return Raw, nil
	case "bzip2", "":
		return BZip2, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	case "gzip":
		return Gzip, nil
	default:
		return 0, fmt.Errorf("unknown stream codec: %q", name)
	}
}

// Codec compresses and decompresses whole streams with one algorithm.
// The zero value is the raw codec. Codecs are safe for concurrent use.
type Codec struct {
	Tag Tag
}

// For returns the codec named by name (see [ParseTag]).
func For(name string) (Codec, error) {
	tag, err := ParseTag(name)
	if err != nil {
		return Codec{}, err
	}
	return Codec{Tag: tag}, nil
}

// String returns the codec's tag name.
func (c Codec) String() string {
	return c.Tag.String()
}

// Compress compresses data. For Raw the input is returned unchanged
// (no copy).
func (c Codec) Compress(data []byte) ([]byte, error) {
	switch c.Tag {
	case Raw:
		return data, nil

	case BZip2:
		return nil, fmt.Errorf("bzip2: %w", ErrCompressUnsupported)

	case Zstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil

	case LZ4:
		return compressLZ4(data)

	case Gzip:
		return compressGzip(data)

	default:
		return nil, fmt.Errorf("unsupported stream codec: %d", c.Tag)
	}
}

// Decompress expands compressed. Corrupt input is an error; so is
// output beyond [MaxStreamSize].
func (c Codec) Decompress(compressed []byte) ([]byte, error) {
	switch c.Tag {
	case Raw:
		return compressed, nil

	case BZip2:
		return readLimited("bzip2", bzip2.NewReader(bytes.NewReader(compressed)))

	case Zstd:
		return decompressZstd(compressed)

	case LZ4:
		return readLimited("lz4", lz4.NewReader(bytes.NewReader(compressed)))

	case Gzip:
		reader, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("gzip decompress: %w", err)
		}
		defer reader.Close()
		return readLimited("gzip", reader)

	default:
		return nil, fmt.Errorf("unsupported stream codec: %d", c.Tag)
	}
}

// readLimited drains reader, failing once more than MaxStreamSize
// bytes have been produced.
func readLimited(name string, reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, MaxStreamSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", name, err)
	}
	if len(data) > MaxStreamSize {
		return nil, fmt.Errorf("%s decompress: %w", name, ErrStreamTooLarge)
	}
	return data, nil
}

// LZ4 frame compression.

func compressLZ4(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := lz4.NewWriter(&buffer)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buffer.Bytes(), nil
}

// Gzip compression at the default level.

func compressGzip(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	return buffer.Bytes(), nil
}

// Zstd compression at the default level.

// zstdEncoder and zstdDecoder are shared across calls. zstd.Encoder
// (EncodeAll) and zstd.Decoder (DecodeAll) are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("streamcodec: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(MaxStreamSize),
	)
	if err != nil {
		panic("streamcodec: zstd decoder initialization failed: " + err.Error())
	}
}

func decompressZstd(compressed []byte) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return result, nil
}
