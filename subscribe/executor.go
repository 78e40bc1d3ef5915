// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"context"
	"fmt"
	"time"

	"github.com/bureau-foundation/pubsub/transport"
)

// Executor performs the network side of the engine's effects. Every
// method must return promptly once ctx is cancelled.
type Executor interface {
	// Handshake returns the cursor the service issues for set.
	Handshake(ctx context.Context, set Set) (Cursor, error)

	// Receive long-polls for updates after set.Cursor().
	Receive(ctx context.Context, set Set) ([]Update, Cursor, error)

	// Leave announces that the user left set.
	Leave(ctx context.Context, set Set) error
}

// DefaultReceiveTimeout exceeds the service's 280-second long-poll hold
// with margin for slow networks.
const DefaultReceiveTimeout = 310 * time.Second

// ServiceConfig configures a ServiceExecutor.
type ServiceConfig struct {
	Transport transport.Transport

	// Options apply to handshake and leave requests. Receives use the
	// same options with ReceiveTimeout.
	Options RequestOptions

	// ReceiveTimeout replaces DefaultReceiveTimeout.
	ReceiveTimeout time.Duration

	// Decrypter, when set, decrypts message and file payloads.
	Decrypter Decrypter
}

// ServiceExecutor is the Executor backed by the service's REST API.
type ServiceExecutor struct {
	transport      transport.Transport
	options        RequestOptions
	receiveOptions RequestOptions
	decrypter      Decrypter
}

var _ Executor = (*ServiceExecutor)(nil)

// NewServiceExecutor returns an executor for config.
func NewServiceExecutor(config ServiceConfig) (*ServiceExecutor, error) {
	if config.Transport == nil {
		return nil, fmt.Errorf("subscribe: transport is required")
	}
	if config.Options.SubscribeKey == "" {
		return nil, fmt.Errorf("subscribe: subscribe key is required")
	}
	receiveOptions := config.Options
	receiveOptions.Timeout = config.ReceiveTimeout
	if receiveOptions.Timeout <= 0 {
		receiveOptions.Timeout = DefaultReceiveTimeout
	}
	return &ServiceExecutor{
		transport:      config.Transport,
		options:        config.Options,
		receiveOptions: receiveOptions,
		decrypter:      config.Decrypter,
	}, nil
}

// Handshake implements Executor.
func (x *ServiceExecutor) Handshake(ctx context.Context, set Set) (Cursor, error) {
	response, err := x.transport.Execute(ctx, HandshakeRequest(x.options, set))
	if err != nil {
		return Cursor{}, fmt.Errorf("subscribe: handshake: %w", err)
	}
	_, cursor, err := DecodeResponse("handshake", response.Body, nil)
	if err != nil {
		return Cursor{}, err
	}
	return cursor, nil
}

// Receive implements Executor.
func (x *ServiceExecutor) Receive(ctx context.Context, set Set) ([]Update, Cursor, error) {
	response, err := x.transport.Execute(ctx, ReceiveRequest(x.receiveOptions, set))
	if err != nil {
		return nil, Cursor{}, fmt.Errorf("subscribe: receive: %w", err)
	}
	return DecodeResponse("receive", response.Body, x.decrypter)
}

// Leave implements Executor.
func (x *ServiceExecutor) Leave(ctx context.Context, set Set) error {
	if set.WithoutPresence().IsEmpty() {
		return nil
	}
	if _, err := x.transport.Execute(ctx, LeaveRequest(x.options, set)); err != nil {
		return fmt.Errorf("subscribe: leave: %w", err)
	}
	return nil
}
