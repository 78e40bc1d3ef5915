// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Pubsub-listen subscribes to channels and channel groups and writes
// every status change and update to stdout as one JSON object per line.
//
// The stream position is saved to the configured state file when the
// process is interrupted and restored on the next start, so a restarted
// listener catches up on what it missed instead of starting from now.
// --cursor overrides the saved position.
package main
