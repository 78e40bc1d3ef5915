// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pubsub

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/pubsub/lib/clock"
	"github.com/bureau-foundation/pubsub/lib/cryptomodule"
	"github.com/bureau-foundation/pubsub/lib/tokenstore"
)

// Option adjusts how New builds a Client.
type Option func(*options)

type options struct {
	clock           clock.Clock
	logger          *slog.Logger
	registerer      prometheus.Registerer
	tokens          *tokenstore.Store
	crypto          *cryptomodule.Module
	onPresenceError func(error)
}

// WithClock replaces the real clock, for tests.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// WithLogger sets the logger every component writes to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the engine counters with registerer.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(o *options) { o.registerer = registerer }
}

// WithTokenStore supplies the access token store instead of building
// one from the auth section. The Client takes ownership of it.
func WithTokenStore(store *tokenstore.Store) Option {
	return func(o *options) { o.tokens = store }
}

// WithCryptoModule supplies the payload crypto module instead of
// building one from the crypto section. The Client takes ownership of
// it.
func WithCryptoModule(module *cryptomodule.Module) Option {
	return func(o *options) { o.crypto = module }
}

// WithPresenceErrorHandler is called when the presence engine gives up
// on heartbeats. The default logs the error.
func WithPresenceErrorHandler(handler func(error)) Option {
	return func(o *options) { o.onPresenceError = handler }
}
