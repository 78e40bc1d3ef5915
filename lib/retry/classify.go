// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"errors"
	"net"
	"time"
)

// Failure is the retry-relevant category of an error.
type Failure int

const (
	// FailureTransport is a network or I/O error: connection refused,
	// reset, DNS failure, truncated body.
	FailureTransport Failure = iota

	// FailureTimeout is a request that exceeded its deadline.
	FailureTimeout

	// FailureServer is a 5xx response.
	FailureServer

	// FailureRateLimited is a 429 response.
	FailureRateLimited

	// FailurePermanent covers malformed responses, access denial and
	// other 4xx responses. Retrying cannot help.
	FailurePermanent

	// FailureCancelled is a request abandoned by its caller. It is
	// never retried and never reported.
	FailureCancelled
)

func (f Failure) String() string {
	switch f {
	case FailureTransport:
		return "transport"
	case FailureTimeout:
		return "timeout"
	case FailureServer:
		return "server"
	case FailureRateLimited:
		return "rate_limited"
	case FailurePermanent:
		return "permanent"
	case FailureCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Transient reports whether a failure of this kind may succeed if
// tried again.
func (f Failure) Transient() bool {
	switch f {
	case FailureTransport, FailureTimeout, FailureServer, FailureRateLimited:
		return true
	}
	return false
}

// Classify sorts err into a Failure. The first error in the chain that
// implements Failure() wins; context errors and net.Error timeouts are
// recognized directly.
func Classify(err error) Failure {
	if err == nil {
		return FailurePermanent
	}

	var classified interface{ Failure() Failure }
	if errors.As(err, &classified) {
		return classified.Failure()
	}

	if errors.Is(err, context.Canceled) {
		return FailureCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureTransport
}

// RetryAfter returns the delay the server asked for, if any error in the
// chain carries one.
func RetryAfter(err error) (time.Duration, bool) {
	var limited interface{ RetryAfter() time.Duration }
	if errors.As(err, &limited) {
		if delay := limited.RetryAfter(); delay > 0 {
			return delay, true
		}
	}
	return 0, false
}
