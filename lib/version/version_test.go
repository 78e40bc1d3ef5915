// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	saved := [4]string{Version, GitCommit, GitDirty, BuildTime}
	t.Cleanup(func() { Version, GitCommit, GitDirty, BuildTime = saved[0], saved[1], saved[2], saved[3] })

	Version, GitCommit, BuildTime = "1.2.3", "abc1234", "2026-10-01T00:00:00Z"

	GitDirty = "false"
	if got, want := Info(), "1.2.3 (abc1234, 2026-10-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}
	GitDirty = "true"
	if !strings.Contains(Info(), "abc1234-dirty") {
		t.Errorf("Info() = %q, want dirty marker", Info())
	}
	if !strings.HasPrefix(Full(), Info()+"\n  Go: ") {
		t.Errorf("Full() = %q", Full())
	}
}

func TestSDK(t *testing.T) {
	saved := Version
	t.Cleanup(func() { Version = saved })
	Version = "2.0.0"

	if SDK() != "PubSub-Go/2.0.0" {
		t.Errorf("SDK() = %q", SDK())
	}
	if !strings.HasPrefix(UserAgent(), "PubSub-Go/2.0.0 (go") {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
}
