// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the engine, presence
// and client packages.
//
// [RequireReceive], [RequireNoReceive] and [RequireClosed] wrap the
// select-with-timeout pattern used to observe listener callbacks and
// effect goroutines. They are the only place in the test suite where a
// real wall-clock timeout appears; engine timers themselves always run
// on a fake clock.
//
// [UniqueChannel] returns channel names that never collide across
// tests sharing one fake network.
//
// [DiscardLogger] returns a logger for components under test whose log
// output is not part of the assertion.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
