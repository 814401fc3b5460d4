// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bsdiff

import (
	"fmt"
	"math"
)

// TripleSize is the encoded size of one control record.
const TripleSize = 3 * IntegerSize

// Triple is one control record.
type Triple struct {
	// Add is the number of bytes produced by adding diff bytes to
	// original bytes.
	Add int64

	// Insert is the number of bytes copied verbatim from the extra
	// stream.
	Insert int64

	// Seek moves the original read position after the insert phase.
	// It may be negative.
	Seek int64
}

// AppendTriple appends the encoded form of t to control.
func AppendTriple(control []byte, t Triple) ([]byte, error) {
	var encoded [TripleSize]byte
	for i, value := range []int64{t.Add, t.Insert, t.Seek} {
		if err := EncodeInt64(encoded[i*IntegerSize:], value); err != nil {
			return nil, err
		}
	}
	return append(control, encoded[:]...), nil
}

// decodeTriple reads the triple at offset in control. The caller
// guarantees that TripleSize bytes are available.
func decodeTriple(control []byte, offset int64) Triple {
	record := control[offset : offset+TripleSize]
	return Triple{
		Add:    DecodeInt64(record[0:]),
		Insert: DecodeInt64(record[IntegerSize:]),
		Seek:   DecodeInt64(record[2*IntegerSize:]),
	}
}

// Replay reconstructs the new file from c and the original bytes in
// old. The output has exactly c.NewSize bytes. old is only read.
//
// The control stream is consumed one triple at a time until NewSize
// bytes have been produced. A triple that would overshoot NewSize is a
// [SizeMismatchError]; an add phase outside old is a
// [PatchRangeError]; running out of any stream, or finishing with
// unconsumed bytes in any stream, is a [CorruptPatchError].
func Replay(c *Container, old []byte) ([]byte, error) {
	if c.NewSize < 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("negative new file size %d", c.NewSize)}
	}

	oldSize := int64(len(old))
	controlSize := int64(len(c.Control))
	diffSize := int64(len(c.Diff))
	extraSize := int64(len(c.Extra))

	// Every output byte comes from the diff or the extra stream, so
	// their total bounds the allocation whatever the header declares.
	output := make([]byte, 0, min(c.NewSize, diffSize+extraSize))

	var oldPosition, newPosition int64
	var controlPosition, diffPosition, extraPosition int64

	for newPosition < c.NewSize {
		if controlSize-controlPosition < TripleSize {
			return nil, &CorruptPatchError{
				Stream: StreamControl,
				Offset: controlPosition,
				Reason: fmt.Sprintf("control stream exhausted with %d of %d bytes produced", newPosition, c.NewSize),
			}
		}
		triple := decodeTriple(c.Control, controlPosition)
		if triple.Add < 0 || triple.Insert < 0 {
			return nil, &CorruptPatchError{
				Stream: StreamControl,
				Offset: controlPosition,
				Reason: fmt.Sprintf("negative length in triple (add %d, insert %d)", triple.Add, triple.Insert),
			}
		}
		controlPosition += TripleSize

		remaining := c.NewSize - newPosition
		if triple.Add > remaining || triple.Insert > remaining-triple.Add {
			return nil, &SizeMismatchError{
				Declared: c.NewSize,
				Produced: saturatingAdd(saturatingAdd(newPosition, triple.Add), triple.Insert),
			}
		}

		// Add phase.
		if triple.Add > 0 {
			if oldPosition < 0 || oldPosition > oldSize || triple.Add > oldSize-oldPosition {
				return nil, &PatchRangeError{
					Offset:  oldPosition,
					Length:  triple.Add,
					OldSize: oldSize,
				}
			}
			if triple.Add > diffSize-diffPosition {
				return nil, &CorruptPatchError{
					Stream: StreamDiff,
					Offset: diffPosition,
					Reason: fmt.Sprintf("need %d bytes, %d remain", triple.Add, diffSize-diffPosition),
				}
			}
			output = append(output, c.Diff[diffPosition:diffPosition+triple.Add]...)
			destination := output[newPosition:]
			for i, b := range old[oldPosition : oldPosition+triple.Add] {
				destination[i] += b
			}
			diffPosition += triple.Add
			newPosition += triple.Add
			oldPosition += triple.Add
		}

		// Insert phase.
		if triple.Insert > 0 {
			if triple.Insert > extraSize-extraPosition {
				return nil, &CorruptPatchError{
					Stream: StreamExtra,
					Offset: extraPosition,
					Reason: fmt.Sprintf("need %d bytes, %d remain", triple.Insert, extraSize-extraPosition),
				}
			}
			output = append(output, c.Extra[extraPosition:extraPosition+triple.Insert]...)
			extraPosition += triple.Insert
			newPosition += triple.Insert
		}

		// Seek phase. Not bounds-checked: only the next add reads.
		oldPosition = saturatingAdd(oldPosition, triple.Seek)
	}

	for _, leftover := range []struct {
		stream   Stream
		position int64
		size     int64
	}{
		{StreamControl, controlPosition, controlSize},
		{StreamDiff, diffPosition, diffSize},
		{StreamExtra, extraPosition, extraSize},
	} {
		if leftover.position != leftover.size {
			return nil, &CorruptPatchError{
				Stream: leftover.stream,
				Offset: leftover.position,
				Reason: fmt.Sprintf("%d unconsumed bytes after replay", leftover.size-leftover.position),
			}
		}
	}

	return output, nil
}

// saturatingAdd returns a+b clamped to the int64 range. Seek values
// are untrusted and must not wrap into a readable position.
func saturatingAdd(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	default:
		return a + b
	}
}

// Stats summarizes a control stream.
type Stats struct {
	Triples     int
	AddTotal    int64
	InsertTotal int64
}

// Produced is the number of output bytes the control stream accounts
// for. For any container that replays successfully it equals NewSize.
func (s Stats) Produced() int64 {
	return s.AddTotal + s.InsertTotal
}

// Walk decodes every triple in c.Control in order and calls fn for
// each. It stops at the first error from fn. A control stream whose
// length is not a multiple of [TripleSize] is a [CorruptPatchError].
func Walk(c *Container, fn func(index int, t Triple) error) error {
	control := c.Control
	if len(control)%TripleSize != 0 {
		return &CorruptPatchError{
			Stream: StreamControl,
			Offset: int64(len(control) - len(control)%TripleSize),
			Reason: fmt.Sprintf("%d trailing bytes do not form a triple", len(control)%TripleSize),
		}
	}
	for index := 0; index*TripleSize < len(control); index++ {
		if err := fn(index, decodeTriple(control, int64(index*TripleSize))); err != nil {
			return err
		}
	}
	return nil
}

// Summarize walks c and totals its triples.
func Summarize(c *Container) (Stats, error) {
	var stats Stats
	err := Walk(c, func(_ int, t Triple) error {
		stats.Triples++
		stats.AddTotal = saturatingAdd(stats.AddTotal, t.Add)
		stats.InsertTotal = saturatingAdd(stats.InsertTotal, t.Insert)
		return nil
	})
	return stats, err
}
