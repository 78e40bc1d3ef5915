// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bureau-foundation/pubsub/lib/retry"
)

// TransportError is a failure below HTTP: the request never produced a
// complete response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Failure classifies the underlying cause: cancellation, timeout, or a
// plain transport failure.
func (e *TransportError) Failure() retry.Failure {
	if errors.Is(e.Err, context.Canceled) {
		return retry.FailureCancelled
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return retry.FailureTimeout
	}
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return retry.FailureTimeout
	}
	return retry.FailureTransport
}

// ProtocolError is a response whose body does not match what the
// endpoint promises.
type ProtocolError struct {
	// Operation names what was being decoded ("handshake", "receive").
	Operation string
	Reason    string
	Body      []byte
	Err       error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: malformed %s response: %s: %v", e.Operation, e.Reason, e.Err)
	}
	return fmt.Sprintf("transport: malformed %s response: %s", e.Operation, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Failure reports a permanent failure.
func (e *ProtocolError) Failure() retry.Failure { return retry.FailurePermanent }

// AccessDeniedError is a 401 or 403. Channels and Groups list the names
// the service refused, when it says.
type AccessDeniedError struct {
	StatusCode int
	Message    string
	Channels   []string
	Groups     []string
}

func (e *AccessDeniedError) Error() string {
	if len(e.Channels) > 0 || len(e.Groups) > 0 {
		return fmt.Sprintf("transport: access denied (%d): %s (channels %v, groups %v)",
			e.StatusCode, e.Message, e.Channels, e.Groups)
	}
	return fmt.Sprintf("transport: access denied (%d): %s", e.StatusCode, e.Message)
}

// Failure reports a permanent failure.
func (e *AccessDeniedError) Failure() retry.Failure { return retry.FailurePermanent }

// ServiceError is any other non-2xx response.
type ServiceError struct {
	StatusCode int
	Message    string

	// Delay is the Retry-After the service sent with a 429.
	Delay time.Duration
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transport: service error %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("transport: service error %d: %s", e.StatusCode, e.Message)
}

// Failure classifies by status: 429 is rate limiting, 5xx is a server
// failure, anything else is permanent.
func (e *ServiceError) Failure() retry.Failure {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return retry.FailureRateLimited
	case e.StatusCode >= 500:
		return retry.FailureServer
	}
	return retry.FailurePermanent
}

// RetryAfter returns the service's requested delay.
func (e *ServiceError) RetryAfter() time.Duration { return e.Delay }

// IsAccessDenied reports whether err is an *AccessDeniedError.
func IsAccessDenied(err error) bool {
	var denied *AccessDeniedError
	return errors.As(err, &denied)
}

// IsStatus reports whether err is a *ServiceError with the given status.
func IsStatus(err error, status int) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.StatusCode == status
	}
	return false
}
