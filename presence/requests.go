// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/pubsub/subscribe"
	"github.com/bureau-foundation/pubsub/transport"
)

// Executor performs presence network calls.
type Executor interface {
	Heartbeat(ctx context.Context, set subscribe.Set) error
	Leave(ctx context.Context, set subscribe.Set) error
}

// HeartbeatRequest builds the heartbeat announcement for set. The
// Heartbeat option is sent as the presence timeout; the service marks
// the user gone if no heartbeat arrives within it.
func HeartbeatRequest(options subscribe.RequestOptions, set subscribe.Set) transport.Request {
	set = set.WithoutPresence()
	query := url.Values{}
	if options.Heartbeat > 0 {
		query.Set("heartbeat", strconv.Itoa(int(options.Heartbeat/time.Second)))
	}
	if groups := set.Groups(); len(groups) > 0 {
		query.Set("channel-group", strings.Join(groups, ","))
	}
	return transport.Request{
		Method:  http.MethodGet,
		Path:    "/v2/presence/sub-key/" + url.PathEscape(options.SubscribeKey) + "/channel/" + channelList(set.Channels()) + "/heartbeat",
		Query:   query,
		Timeout: options.Timeout,
	}
}

func channelList(names []string) string {
	if len(names) == 0 {
		return ","
	}
	escaped := make([]string, len(names))
	for i, name := range names {
		escaped[i] = url.PathEscape(name)
	}
	return strings.Join(escaped, ",")
}

// ServiceExecutor sends heartbeats and leaves over a transport.
type ServiceExecutor struct {
	transport transport.Transport
	options   subscribe.RequestOptions
}

var _ Executor = (*ServiceExecutor)(nil)

// NewServiceExecutor returns an executor for options.
func NewServiceExecutor(client transport.Transport, options subscribe.RequestOptions) (*ServiceExecutor, error) {
	if client == nil {
		return nil, fmt.Errorf("presence: transport is required")
	}
	if options.SubscribeKey == "" {
		return nil, fmt.Errorf("presence: subscribe key is required")
	}
	return &ServiceExecutor{transport: client, options: options}, nil
}

// Heartbeat implements Executor.
func (x *ServiceExecutor) Heartbeat(ctx context.Context, set subscribe.Set) error {
	if _, err := x.transport.Execute(ctx, HeartbeatRequest(x.options, set)); err != nil {
		return fmt.Errorf("presence: heartbeat: %w", err)
	}
	return nil
}

// Leave implements Executor.
func (x *ServiceExecutor) Leave(ctx context.Context, set subscribe.Set) error {
	if _, err := x.transport.Execute(ctx, subscribe.LeaveRequest(x.options, set)); err != nil {
		return fmt.Errorf("presence: leave: %w", err)
	}
	return nil
}
