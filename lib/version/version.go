// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports what build of the client is running.
//
// The variables below are injected at link time:
//
//	go build -ldflags "-X github.com/bureau-foundation/pubsub/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When they are not, the VCS stamp the Go toolchain embeds is used.
// The same identity is sent to the service as the pnsdk parameter and
// the User-Agent header.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags at build time.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"

	// Version is the release version, set by hand.
	Version = "0.1.0-dev"
)

// Product names this client in request metadata.
const Product = "PubSub-Go"

func init() {
	if GitCommit != "unknown" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			GitCommit = setting.Value
			if len(GitCommit) > 12 {
				GitCommit = GitCommit[:12]
			}
		case "vcs.modified":
			GitDirty = setting.Value
		case "vcs.time":
			if BuildTime == "unknown" {
				BuildTime = setting.Value
			}
		}
	}
}

// Info returns the --version line.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full is Info plus the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// SDK returns the pnsdk query value, "PubSub-Go/<version>".
func SDK() string {
	return Product + "/" + Version
}

// UserAgent returns the User-Agent header value.
func UserAgent() string {
	return fmt.Sprintf("%s (%s; %s/%s)", SDK(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
