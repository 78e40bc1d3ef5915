// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"context"
	"errors"
	"sync"

	"github.com/bureau-foundation/pubsub/lib/clock"
)

// ErrCancelled is returned by operations abandoned because their effect
// was cancelled. It never reaches a listener.
var ErrCancelled = errors.New("effect: cancelled")

// Token is the cancellation handle of one effect instance. The zero
// value is not usable; tokens come from a Dispatcher or NewToken.
type Token struct {
	mu        sync.Mutex
	cancelled bool
	cancel    context.CancelFunc
	timer     *clock.Timer
}

// NewToken returns a live token and a context that is cancelled with it.
func NewToken(parent context.Context) (*Token, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Token{cancel: cancel}, ctx
}

// Cancel marks the token cancelled, cancels its context and stops its
// timer. It is idempotent. When Cancel returns, no Deliver on this token
// runs its hand-off any more.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	if t.cancel != nil {
		t.cancel()
	}
	t.timer.Stop()
}

// Cancelled reports whether Cancel has been called. A nil token is
// never cancelled; caller-originated events carry no token.
func (t *Token) Cancelled() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Deliver runs handoff under the token lock unless the token is
// cancelled, and reports whether it ran. handoff must not block and
// must not call Cancel on this token. A nil token always delivers.
func (t *Token) Deliver(handoff func()) bool {
	if t == nil {
		handoff()
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return false
	}
	handoff()
	return true
}

// release drops the context without marking the token cancelled. Used
// when an effect finishes normally.
func (t *Token) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *Token) setTimer(timer *clock.Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		timer.Stop()
		return
	}
	t.timer = timer
}
