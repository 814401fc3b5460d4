// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeStandsStill(t *testing.T) {
	c := Fake(epoch)
	if !c.Now().Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", c.Now(), epoch)
	}
	if elapsed := Since(c, epoch); elapsed != 0 {
		t.Errorf("Since = %v before any Advance", elapsed)
	}
}

func TestFakeAdvance(t *testing.T) {
	c := Fake(epoch)
	c.Advance(3 * time.Second)
	c.Advance(-time.Hour)
	if elapsed := Since(c, epoch); elapsed != 3*time.Second {
		t.Errorf("Since = %v, want 3s", elapsed)
	}
}

func TestFakeConcurrentAdvance(t *testing.T) {
	c := Fake(epoch)
	var group sync.WaitGroup
	for range 16 {
		group.Go(func() { c.Advance(time.Millisecond) })
	}
	group.Wait()
	if elapsed := Since(c, epoch); elapsed != 16*time.Millisecond {
		t.Errorf("Since = %v, want 16ms", elapsed)
	}
}

func TestReal(t *testing.T) {
	before := time.Now()
	now := Real().Now()
	if now.Before(before) {
		t.Errorf("Real().Now() = %v, before %v", now, before)
	}
}
