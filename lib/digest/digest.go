// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
)

// Algorithm identifies a digest function. The zero value is invalid.
type Algorithm uint8

const (
	MD5 Algorithm = iota + 1
	SHA256
	BLAKE3
	BLAKE2b
)

// maxSize is the largest digest size of any supported algorithm.
const maxSize = 32

// String returns the algorithm name as used in manifests and config.
func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA256:
		return "sha256"
	case BLAKE3:
		return "blake3"
	case BLAKE2b:
		return "blake2b-256"
	default:
		return fmt.Sprintf("unknown(%d)", a)
	}
}

// Size returns the digest length in bytes, or 0 for an unknown
// algorithm.
func (a Algorithm) Size() int {
	switch a {
	case MD5:
		return md5.Size
	case SHA256:
		return sha256.Size
	case BLAKE3, BLAKE2b:
		return 32
	default:
		return 0
	}
}

// ParseAlgorithm parses an algorithm name. The empty string selects
// MD5.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "md5", "":
		return MD5, nil
	case "sha256":
		return SHA256, nil
	case "blake3":
		return BLAKE3, nil
	case "blake2b-256", "blake2b":
		return BLAKE2b, nil
	default:
		return 0, fmt.Errorf("unknown digest algorithm: %q", name)
	}
}

// New returns a fresh hash.Hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	case BLAKE2b:
		return blake2b.New256(nil)
	default:
		return nil, fmt.Errorf("unsupported digest algorithm: %s", a)
	}
}

// Digest is a content digest tagged with its algorithm. The zero
// value is the unset digest and is not equal to any computed digest.
type Digest struct {
	algorithm Algorithm
	size      uint8
	sum       [maxSize]byte
}

// Algorithm returns the digest's algorithm.
func (d Digest) Algorithm() Algorithm { return d.algorithm }

// Bytes returns a copy of the raw digest bytes.
func (d Digest) Bytes() []byte {
	return append([]byte(nil), d.sum[:d.size]...)
}

// IsZero reports whether d is the unset digest.
func (d Digest) IsZero() bool { return d.algorithm == 0 }

// String returns the lower-case hex encoding of the digest.
func (d Digest) String() string {
	if d.IsZero() {
		return "<none>"
	}
	return hex.EncodeToString(d.sum[:d.size])
}

// MarshalText encodes the digest as hex for JSON output.
func (d Digest) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func fromSum(algorithm Algorithm, sum []byte) Digest {
	d := Digest{algorithm: algorithm, size: uint8(len(sum))}
	copy(d.sum[:], sum)
	return d
}

// Sum computes the digest of data. It panics on an unknown algorithm,
// which is a programming error: algorithms come from [ParseAlgorithm].
func Sum(algorithm Algorithm, data []byte) Digest {
	hasher, err := algorithm.New()
	if err != nil {
		panic("digest: " + err.Error())
	}
	hasher.Write(data)
	return fromSum(algorithm, hasher.Sum(nil))
}

// HashFile computes the digest of the file at path. The file is
// streamed through the hash function to keep memory usage constant
// regardless of file size.
func HashFile(algorithm Algorithm, path string) (Digest, error) {
	hasher, err := algorithm.New()
	if err != nil {
		return Digest{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return fromSum(algorithm, hasher.Sum(nil)), nil
}

// Parse parses a hex-encoded digest for algorithm. Upper- and
// lower-case hex are both accepted.
func Parse(algorithm Algorithm, hexString string) (Digest, error) {
	size := algorithm.Size()
	if size == 0 {
		return Digest{}, fmt.Errorf("unsupported digest algorithm: %s", algorithm)
	}
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return Digest{}, fmt.Errorf("parsing %s digest %q: %w", algorithm, hexString, err)
	}
	if len(decoded) != size {
		return Digest{}, fmt.Errorf("%s digest %q is %d bytes, want %d", algorithm, hexString, len(decoded), size)
	}
	return fromSum(algorithm, decoded), nil
}
