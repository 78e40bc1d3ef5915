// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pubsub

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"

	"github.com/bureau-foundation/pubsub/lib/clock"
	"github.com/bureau-foundation/pubsub/lib/config"
	"github.com/bureau-foundation/pubsub/lib/cryptomodule"
	"github.com/bureau-foundation/pubsub/lib/dedupe"
	"github.com/bureau-foundation/pubsub/lib/metrics"
	"github.com/bureau-foundation/pubsub/lib/secret"
	"github.com/bureau-foundation/pubsub/lib/tokenstore"
	"github.com/bureau-foundation/pubsub/lib/version"
	"github.com/bureau-foundation/pubsub/presence"
	"github.com/bureau-foundation/pubsub/subscribe"
	"github.com/bureau-foundation/pubsub/transport"
)

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("pubsub: client is closed")

// Client subscribes to channels and keeps the user's presence.
type Client struct {
	logger     *slog.Logger
	tokens     *tokenstore.Store
	crypto     *cryptomodule.Module
	metrics    *metrics.Engine
	transport  transport.Transport
	subscriber *subscribe.Engine
	presence   *presence.Engine

	mu     sync.Mutex
	closed bool
}

// New validates cfg and builds a Client. base carries requests to the
// service; nil builds an HTTP transport for cfg.Origin.
func New(cfg *config.Config, base transport.Transport, opts ...Option) (client *Client, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pubsub: invalid config: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := o.clock
	if clk == nil {
		clk = clock.Real()
	}

	durations, err := cfg.Durations()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.RetryPolicy()
	if err != nil {
		return nil, err
	}

	client = &Client{logger: logger, tokens: o.tokens, crypto: o.crypto}
	defer func() {
		if err != nil {
			client.release()
			client = nil
		}
	}()

	if client.tokens == nil {
		client.tokens, err = tokenStore(cfg.Auth)
		if err != nil {
			return nil, err
		}
	}
	if client.crypto == nil && cfg.Crypto.Enabled() {
		client.crypto, err = cryptoModule(cfg.Crypto)
		if err != nil {
			return nil, err
		}
	}

	if base == nil {
		base, err = transport.NewHTTPTransport(transport.HTTPConfig{
			Origin:    cfg.Origin,
			Timeout:   durations.RequestTimeout,
			UserAgent: version.UserAgent(),
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
	}
	middleware := transport.NewMiddleware(base, cfg.UserID, client.tokens, logger)
	middleware.SDK = version.SDK()
	client.transport = middleware

	requestOptions := subscribe.RequestOptions{
		SubscribeKey:     cfg.Keys.SubscribeKey,
		FilterExpression: cfg.Subscribe.FilterExpression,
		Heartbeat:        durations.PresenceTimeout,
		Timeout:          durations.RequestTimeout,
	}
	serviceConfig := subscribe.ServiceConfig{
		Transport:      middleware,
		Options:        requestOptions,
		ReceiveTimeout: durations.LongPollTimeout,
	}
	if client.crypto != nil {
		serviceConfig.Decrypter = client.crypto
	}
	executor, err := subscribe.NewServiceExecutor(serviceConfig)
	if err != nil {
		return nil, err
	}

	presenceEnabled := durations.HeartbeatInterval > 0
	if presenceEnabled {
		heartbeats, err := presence.NewServiceExecutor(middleware, requestOptions)
		if err != nil {
			return nil, err
		}
		onGiveUp := o.onPresenceError
		if onGiveUp == nil {
			onGiveUp = func(err error) {
				logger.Error("presence heartbeats stopped", "error", err)
			}
		}
		client.presence = presence.New(presence.Config{
			Interval:      durations.HeartbeatInterval,
			Policy:        policy,
			SuppressLeave: !cfg.Subscribe.LeaveOnUnsubscribe,
			Clock:         clk,
			Logger:        logger.With("engine", "presence"),
			OnGiveUp:      onGiveUp,
		}, heartbeats)
	}

	client.metrics = metrics.NewEngine()
	if o.registerer != nil {
		if err := o.registerer.Register(client.metrics); err != nil {
			return nil, fmt.Errorf("pubsub: registering metrics: %w", err)
		}
	}

	engineConfig := subscribe.Config{
		Policy:             policy,
		LeaveOnUnsubscribe: cfg.Subscribe.LeaveOnUnsubscribe && !presenceEnabled,
		Clock:              clk,
		Logger:             logger.With("engine", "subscribe"),
		Observer:           client.metrics,
	}
	if cfg.Subscribe.DedupeCacheSize > 0 {
		filter, err := dedupe.New(cfg.Subscribe.DedupeCacheSize)
		if err != nil {
			return nil, err
		}
		engineConfig.Duplicate = filter.Seen
	}
	if client.presence != nil {
		engineConfig.OnSubscriptionChange = client.mirrorPresence
	}
	client.subscriber = subscribe.New(engineConfig, executor)
	return client, nil
}

// tokenStore builds the token store the auth section describes.
func tokenStore(auth config.AuthConfig) (*tokenstore.Store, error) {
	if auth.TokenFile != "" {
		return tokenstore.LoadSealed(auth.TokenFile, auth.IdentityFile)
	}
	return tokenstore.New(auth.Token)
}

// cryptoModule builds the module the crypto section describes. The key
// is read into locked memory and released once the cryptors hold their
// derived keys.
func cryptoModule(section config.CryptoConfig) (*cryptomodule.Module, error) {
	var key *secret.Buffer
	var err error
	if section.KeyFile != "" {
		key, err = secret.ReadFromPath(section.KeyFile)
	} else {
		key, err = secret.NewFromBytes([]byte(section.Key))
	}
	if err != nil {
		return nil, fmt.Errorf("pubsub: reading cipher key: %w", err)
	}
	defer key.Close()

	switch section.Cryptor {
	case "xchacha20-poly1305":
		return cryptomodule.NewXChaChaModule(key.String(), section.RandomIV)
	case "legacy":
		return cryptomodule.NewLegacyModule(key.String(), section.RandomIV)
	default:
		return cryptomodule.NewAESCBCModule(key.String(), section.RandomIV)
	}
}

// mirrorPresence runs on the subscribe engine's event loop whenever the
// effective set changes names.
func (c *Client) mirrorPresence(previous, current subscribe.Set) {
	before, after := previous.WithoutPresence(), current.WithoutPresence()
	if joined := after.Difference(before); !joined.IsEmpty() {
		c.presence.Join(joined.Channels(), joined.Groups())
	}
	if left := before.Difference(after); !left.IsEmpty() {
		c.presence.Leave(left.Channels(), left.Groups())
	}
}

func (c *Client) live() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Subscribe adds channels and groups and returns the effective set.
func (c *Client) Subscribe(channels, groups []string) (subscribe.Set, error) {
	if err := c.live(); err != nil {
		return subscribe.Set{}, err
	}
	return c.subscriber.Add(channels, groups)
}

// Unsubscribe removes channels and groups and returns the effective
// set.
func (c *Client) Unsubscribe(channels, groups []string) (subscribe.Set, error) {
	if err := c.live(); err != nil {
		return subscribe.Set{}, err
	}
	return c.subscriber.Remove(channels, groups)
}

// Replace swaps the directly subscribed names.
func (c *Client) Replace(channels, groups []string) (subscribe.Set, error) {
	if err := c.live(); err != nil {
		return subscribe.Set{}, err
	}
	return c.subscriber.Replace(channels, groups)
}

// Restore subscribes to channels and groups resuming from cursor.
func (c *Client) Restore(channels, groups []string, cursor subscribe.Cursor) (subscribe.Set, error) {
	if err := c.live(); err != nil {
		return subscribe.Set{}, err
	}
	return c.subscriber.Restore(channels, groups, cursor)
}

// NewSubscriptionSet creates a subscription set with its own
// listeners. Call Subscribe on it to start receiving.
func (c *Client) NewSubscriptionSet(subscriptions ...subscribe.Subscription) *subscribe.SubscriptionSet {
	return c.subscriber.NewSubscriptionSet(subscriptions...)
}

// UnsubscribeAll drops every subscription and presence announcement.
func (c *Client) UnsubscribeAll() {
	c.subscriber.UnsubscribeAll()
	if c.presence != nil {
		c.presence.LeaveAll()
	}
}

// Disconnect pauses network activity without forgetting the
// subscriptions or cursor.
func (c *Client) Disconnect() {
	c.subscriber.Disconnect()
	if c.presence != nil {
		c.presence.Disconnect()
	}
}

// Reconnect resumes after Disconnect or a give-up.
func (c *Client) Reconnect() {
	c.subscriber.Reconnect()
	if c.presence != nil {
		c.presence.Reconnect()
	}
}

// ReconnectFrom resumes from cursor.
func (c *Client) ReconnectFrom(cursor subscribe.Cursor) {
	c.subscriber.ReconnectFrom(cursor)
	if c.presence != nil {
		c.presence.Reconnect()
	}
}

// AddListener registers listener for every status and update. The
// returned function removes it.
func (c *Client) AddListener(listener subscribe.Listener) (remove func()) {
	return c.subscriber.AddListener(listener)
}

// CurrentCursor returns the stream position reached.
func (c *Client) CurrentCursor() subscribe.Cursor {
	return c.subscriber.CurrentCursor()
}

// Subscribed returns the effective set at the current cursor.
func (c *Client) Subscribed() subscribe.Set {
	return c.subscriber.Subscribed()
}

// State returns the subscribe engine state.
func (c *Client) State() subscribe.State {
	return c.subscriber.State()
}

// PresenceState returns the presence engine state, or nil when
// presence heartbeats are disabled.
func (c *Client) PresenceState() presence.State {
	if c.presence == nil {
		return nil
	}
	return c.presence.State()
}

// SetToken replaces the access token used from the next request on.
func (c *Client) SetToken(token string) error {
	return c.tokens.Set([]byte(token))
}

// Encrypt encrypts a payload with the configured crypto module.
func (c *Client) Encrypt(plaintext []byte) ([]byte, error) {
	if c.crypto == nil {
		return nil, errors.New("pubsub: encryption is not configured")
	}
	return c.crypto.Encrypt(plaintext)
}

// Close unsubscribes, stops both engines and releases the token and
// cipher keys. Leave announcements complete before Close returns.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.UnsubscribeAll()
	c.subscriber.Flush()
	if c.presence != nil {
		c.presence.Flush()
	}
	return c.release()
}

// release stops whatever New managed to build.
func (c *Client) release() error {
	if c.subscriber != nil {
		c.subscriber.Close()
	}
	if c.presence != nil {
		c.presence.Close()
	}
	var err error
	if c.tokens != nil {
		err = multierr.Append(err, c.tokens.Close())
	}
	if c.crypto != nil {
		err = multierr.Append(err, c.crypto.Close())
	}
	return err
}
