// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestInjectedValuesWin(t *testing.T) {
	saved := [4]string{Version, GitCommit, GitDirty, BuildTime}
	t.Cleanup(func() {
		Version, GitCommit, GitDirty, BuildTime = saved[0], saved[1], saved[2], saved[3]
	})
	Version, GitCommit, GitDirty, BuildTime = "1.5.0", "abc1234", "true", "2026-03-01T00:00:00Z"

	info := Current()
	if info.Commit != "abc1234" || !info.Dirty {
		t.Errorf("Current() = %+v, want injected commit and dirty flag", info)
	}
	if got, want := Info(), "1.5.0 (abc1234-dirty, 2026-03-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	if Short() != "1.5.0" {
		t.Errorf("Short() = %q, want 1.5.0", Short())
	}
}

func TestFullIncludesPlatform(t *testing.T) {
	full := Full()
	if !strings.Contains(full, runtime.Version()) {
		t.Errorf("Full() = %q, missing Go version", full)
	}
	if !strings.Contains(full, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Full() = %q, missing platform", full)
	}
}
