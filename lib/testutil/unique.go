// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueChannel returns a channel name of the form "prefix-N" where N
// is a monotonically increasing integer. The result is always a valid
// channel name when prefix is.
//
//	channel := testutil.UniqueChannel("news")  // "news-1", "news-2", ...
func UniqueChannel(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
