// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that measures elapsed time accepts a Clock instead of calling
// time.Now directly. In production, Real() provides the standard
// library behavior. In tests, Fake() provides a clock that moves only
// when Advance is called, so reported durations are exact:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	runner := &batch.Runner{Clock: c}
//	// inside a job: c.Advance(3 * time.Second)
//	// the job's Duration is exactly 3s
package clock
