// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/pubsub/subscribe"
	"github.com/bureau-foundation/pubsub/transport"
)

func TestHeartbeatRequest(t *testing.T) {
	options := subscribe.RequestOptions{SubscribeKey: "sub-c", Heartbeat: 300 * time.Second}
	set := subscribe.NewSet([]string{"lobby", "lobby" + subscribe.PresenceSuffix}, []string{"team"})

	request := HeartbeatRequest(options, set)
	if want := "/v2/presence/sub-key/sub-c/channel/lobby/heartbeat"; request.Path != want {
		t.Errorf("path = %q, want %q", request.Path, want)
	}
	if request.Query.Get("heartbeat") != "300" || request.Query.Get("channel-group") != "team" {
		t.Errorf("query = %v", request.Query)
	}
}

func TestServiceExecutor(t *testing.T) {
	var paths []string
	client := transport.Func(func(_ context.Context, request transport.Request) (*transport.Response, error) {
		paths = append(paths, request.Path)
		return &transport.Response{StatusCode: 200, Body: []byte(`{"status": 200, "message": "OK"}`)}, nil
	})
	executor, err := NewServiceExecutor(client, subscribe.RequestOptions{SubscribeKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	set := subscribe.NewSet([]string{"a"}, nil)
	if err := executor.Heartbeat(context.Background(), set); err != nil {
		t.Fatal(err)
	}
	if err := executor.Leave(context.Background(), set); err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || !strings.HasSuffix(paths[0], "/heartbeat") || !strings.HasSuffix(paths[1], "/leave") {
		t.Fatalf("paths = %v", paths)
	}

	if _, err := NewServiceExecutor(nil, subscribe.RequestOptions{SubscribeKey: "k"}); err == nil {
		t.Error("nil transport accepted")
	}
}
