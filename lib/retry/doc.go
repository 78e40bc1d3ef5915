// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package retry decides whether and when a failed request is tried
// again.
//
// A [Policy] is a pure value: [Policy.Evaluate] maps an attempt count,
// the [Endpoint] that failed and the error it failed with to a
// [Decision]. Nothing in this package sleeps or schedules; the event
// engines turn a Decision into a cancellable timer on their clock.
//
// Only transient failures retry. [Classify] sorts an error into a
// [Failure]: transport and timeout errors, 5xx responses and 429
// responses are transient, everything else (malformed responses,
// access denial, other 4xx, cancellation) is not. Errors opt into a
// classification by implementing
//
//	interface{ Failure() retry.Failure }
//
// and a rate-limit error may also carry the server's requested delay
// through
//
//	interface{ RetryAfter() time.Duration }
//
// Errors that implement neither are treated as transport failures,
// since an unrecognized error from the network stack is more likely a
// dropped connection than a permanent condition.
package retry
