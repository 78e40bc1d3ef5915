// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
	"time"
)

// Dialer opens the connections HTTPTransport sends requests over.
// Tests and embedders replace it to route through a Unix socket or a
// proxy.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPDialer is the default Dialer.
type TCPDialer struct {
	// Timeout bounds connection establishment. Zero means only the
	// request context applies.
	Timeout time.Duration

	// KeepAlive is the TCP keep-alive period. Long-poll connections
	// sit idle for minutes, so the default is kept short enough for
	// NAT tables.
	KeepAlive time.Duration
}

// DialContext opens a TCP connection to address.
func (d *TCPDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	keepAlive := d.KeepAlive
	if keepAlive == 0 {
		keepAlive = 30 * time.Second
	}
	return (&net.Dialer{Timeout: d.Timeout, KeepAlive: keepAlive}).DialContext(ctx, network, address)
}
