// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bureau-foundation/pubsub/lib/clock"
)

// Dispatcher runs effects keyed by kind, at most one in flight per kind.
//
// The latest token of each kind stays current after its effect returns:
// the outcome may still be queued behind an event that supersedes the
// effect, and cancelling the token then is what drops that outcome.
type Dispatcher[K comparable] struct {
	clock  clock.Clock
	logger *slog.Logger
	base   context.Context
	stop   context.CancelFunc

	mu       sync.Mutex
	current  map[K]*Token
	inflight map[K]*Token
	closed   bool
	running  sync.WaitGroup
}

// NewDispatcher returns a Dispatcher whose timers use clk. Every effect
// context derives from one base context cancelled by Close.
func NewDispatcher[K comparable](clk clock.Clock, logger *slog.Logger) *Dispatcher[K] {
	if logger == nil {
		logger = slog.Default()
	}
	base, stop := context.WithCancel(context.Background())
	return &Dispatcher[K]{
		clock:    clk,
		logger:   logger,
		base:     base,
		stop:     stop,
		current:  make(map[K]*Token),
		inflight: make(map[K]*Token),
	}
}

// Start cancels any in-flight effect of kind and runs work on a new
// goroutine with a fresh token. work hands its outcome back through
// the token (usually Serializer.PostFrom). A panic in work is
// recovered and logged.
func (d *Dispatcher[K]) Start(kind K, work func(ctx context.Context, token *Token)) *Token {
	token, ctx := NewToken(d.base)
	if !d.replace(kind, token, func() { d.running.Add(1) }) {
		return token
	}

	go func() {
		defer d.running.Done()
		defer d.finish(kind, token)
		defer func() {
			if recovered := recover(); recovered != nil {
				d.logger.Error("effect panicked",
					"kind", fmt.Sprint(kind),
					"panic", recovered,
					"stack", string(debug.Stack()),
				)
			}
		}()
		work(ctx, token)
	}()
	return token
}

// Schedule cancels any in-flight effect of kind and arms a timer that
// calls fire after delay. Cancelling the returned token stops the timer.
func (d *Dispatcher[K]) Schedule(kind K, delay time.Duration, fire func(token *Token)) *Token {
	token, _ := NewToken(d.base)
	if !d.replace(kind, token, nil) {
		return token
	}

	timer := d.clock.AfterFunc(delay, func() {
		defer d.finish(kind, token)
		fire(token)
	})
	token.setTimer(timer)
	return token
}

// Cancel cancels the latest effect of kind, whether it is still running
// or has already handed off its outcome. On return no outcome of it can
// be delivered or applied.
func (d *Dispatcher[K]) Cancel(kind K) {
	d.mu.Lock()
	token := d.current[kind]
	delete(d.current, kind)
	delete(d.inflight, kind)
	d.mu.Unlock()
	token.Cancel()
}

// InFlight reports whether an effect of kind is running or armed.
func (d *Dispatcher[K]) InFlight(kind K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inflight[kind]
	return ok
}

// Close cancels every in-flight effect and waits for effect goroutines
// to return. Effects started or scheduled after Close get a cancelled
// token and never run. It must not be called from inside an effect.
func (d *Dispatcher[K]) Close() {
	d.mu.Lock()
	d.closed = true
	tokens := make([]*Token, 0, len(d.current))
	for kind, token := range d.current {
		tokens = append(tokens, token)
		delete(d.current, kind)
	}
	clear(d.inflight)
	d.mu.Unlock()

	for _, token := range tokens {
		token.Cancel()
	}
	d.stop()
	d.running.Wait()
}

// replace installs token as the current effect of kind and cancels
// the one it supersedes, finished or not. After Close it cancels token
// instead and reports false. register runs under the lock when token
// is installed.
func (d *Dispatcher[K]) replace(kind K, token *Token, register func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		token.Cancel()
		return false
	}
	previous := d.current[kind]
	d.current[kind] = token
	d.inflight[kind] = token
	if register != nil {
		register()
	}
	d.mu.Unlock()
	previous.Cancel()
	return true
}

// finish marks the effect no longer running. The token stays current
// so that a later Cancel or replace still swallows its queued outcome.
func (d *Dispatcher[K]) finish(kind K, token *Token) {
	d.mu.Lock()
	if d.inflight[kind] == token {
		delete(d.inflight, kind)
	}
	d.mu.Unlock()
	token.release()
}
