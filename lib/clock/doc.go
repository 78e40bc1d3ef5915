// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source used by the event engines.
//
// Every retry delay, presence heartbeat cooldown and transport deadline
// in this module goes through a [Clock] rather than the time package.
// Production wiring uses [Real]. Tests use [Fake], whose time only moves
// when the test calls Advance, so a reconnect backoff of thirty seconds
// is exercised without waiting thirty seconds.
//
// # Synchronizing with effect goroutines
//
// Retry timers are armed from the engine's drain loop, which may run on
// a goroutine the test does not control. [FakeClock.WaitForTimers]
// blocks until the expected number of timers is pending, closing the
// window between "timer armed" and "clock advanced":
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	engine := subscribe.New(subscribe.Config{Clock: fake, ...}, executor)
//	engine.Add([]string{"news"}, nil)
//	fake.WaitForTimers(1)      // reconnect timer armed after a failure
//	fake.Advance(2 * time.Second)
package clock
