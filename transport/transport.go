// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Request is one REST call. Path is relative to the service origin and
// must start with "/". Path segments must already be escaped.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	// Timeout bounds the whole call. Zero uses the transport default.
	Timeout time.Duration
}

// Response is a successful (2xx) reply with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport executes requests. Implementations must honor ctx
// cancellation promptly: the event engines cancel in-flight long-polls
// whenever the subscription changes.
type Transport interface {
	Execute(ctx context.Context, request Request) (*Response, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, request Request) (*Response, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, request Request) (*Response, error) {
	return f(ctx, request)
}

// cloneQuery returns a copy of query that is safe to modify.
func cloneQuery(query url.Values) url.Values {
	clone := make(url.Values, len(query)+4)
	for key, values := range query {
		clone[key] = append([]string(nil), values...)
	}
	return clone
}
