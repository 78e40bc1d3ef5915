// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/uuid"

	"github.com/bureau-foundation/pubsub/lib/testutil"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestMiddlewareStampsIdentity(t *testing.T) {
	var seen []url.Values
	next := Func(func(ctx context.Context, request Request) (*Response, error) {
		seen = append(seen, request.Query)
		return &Response{StatusCode: 200}, nil
	})
	middleware := NewMiddleware(next, "user-1", staticToken("token-abc"), testutil.DiscardLogger())
	middleware.SDK = "pubsub-go/1.0"

	original := url.Values{"tt": {"0"}}
	for range 2 {
		if _, err := middleware.Execute(context.Background(), Request{Path: "/v2/subscribe/k/a/0", Query: original}); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
	}

	if len(original) != 1 {
		t.Errorf("caller query modified: %v", original)
	}
	first, second := seen[0], seen[1]
	for key, want := range map[string]string{"uuid": "user-1", "auth": "token-abc", "pnsdk": "pubsub-go/1.0", "tt": "0"} {
		if got := first.Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if _, err := uuid.Parse(first.Get("requestid")); err != nil {
		t.Errorf("requestid %q is not a UUID: %v", first.Get("requestid"), err)
	}
	if first.Get("requestid") == second.Get("requestid") {
		t.Error("requestid repeated across requests")
	}
	if first.Get("instanceid") == "" || first.Get("instanceid") != second.Get("instanceid") {
		t.Errorf("instanceid not stable: %q vs %q", first.Get("instanceid"), second.Get("instanceid"))
	}
}

func TestMiddlewareOmitsEmptyToken(t *testing.T) {
	var query url.Values
	next := Func(func(ctx context.Context, request Request) (*Response, error) {
		query = request.Query
		return &Response{StatusCode: 200}, nil
	})
	middleware := NewMiddleware(next, "user-1", staticToken(""), testutil.DiscardLogger())
	if _, err := middleware.Execute(context.Background(), Request{Path: "/time/0"}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if query.Has("auth") {
		t.Errorf("auth sent with an empty token: %v", query)
	}
}
