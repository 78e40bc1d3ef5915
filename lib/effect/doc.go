// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package effect runs the asynchronous work requested by a state
// machine and feeds the outcomes back to it in order.
//
// Three pieces cooperate:
//
//   - [Token] is the cancellation handle owned by one effect instance.
//     An effect goroutine hands its outcome to [Token.Deliver], which
//     runs the hand-off only while the token is live. [Token.Cancel]
//     takes the same lock, so once Cancel returns no outcome of that
//     effect can be observed.
//
//   - [Dispatcher] keeps at most one in-flight effect per kind.
//     Starting or scheduling a kind cancels the previous instance of
//     that kind first. Delayed effects are timers on a [clock.Clock].
//
//   - [Serializer] applies events one at a time in enqueue order. The
//     goroutine that posts into an idle serializer drains the queue;
//     posts made while another goroutine drains are picked up by that
//     drainer. Posting never blocks on another poster.
//
// A state machine built from these applies each event under the
// serializer, re-checks the event's token before acting on it (an
// outcome queued just before its effect was cancelled is dropped), and
// starts or cancels effects through the dispatcher.
package effect
