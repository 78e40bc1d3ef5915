// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/pubsub/lib/clock"
	"github.com/bureau-foundation/pubsub/lib/effect"
	"github.com/bureau-foundation/pubsub/lib/retry"
	"github.com/bureau-foundation/pubsub/subscribe"
)

// Config configures an Engine.
type Config struct {
	// Interval is the pause between heartbeats. Zero disables the
	// engine.
	Interval time.Duration

	Policy        retry.Policy
	SuppressLeave bool
	Clock         clock.Clock
	Logger        *slog.Logger

	// OnGiveUp is called from the event loop when heartbeat retries
	// are exhausted.
	OnGiveUp func(err error)
}

// Engine keeps the user announced on a set of channels. Methods are
// safe for concurrent use and never block on the network.
type Engine struct {
	rules    Rules
	executor Executor
	logger   *slog.Logger
	onGiveUp func(error)

	dispatcher *effect.Dispatcher[EffectKind]
	queue      *effect.Serializer[queuedEvent]

	mu     sync.Mutex
	state  State
	closed bool
}

type queuedEvent struct {
	event Event
	token *effect.Token
}

// New returns an Engine in the Inactive state.
func New(config Config, executor Executor) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	engine := &Engine{
		rules: Rules{
			Interval:      config.Interval,
			Policy:        config.Policy,
			SuppressLeave: config.SuppressLeave,
		},
		executor:   executor,
		logger:     logger,
		onGiveUp:   config.OnGiveUp,
		dispatcher: effect.NewDispatcher[EffectKind](clk, logger),
		state:      Inactive{},
	}
	engine.queue = effect.NewSerializer(engine.apply, logger)
	return engine
}

// Join announces presence on channels and groups, in addition to any
// already announced.
func (e *Engine) Join(channels, groups []string) {
	e.post(Joined{Set: subscribe.NewSet(channels, groups)})
}

// Leave stops announcing presence on channels and groups.
func (e *Engine) Leave(channels, groups []string) {
	e.post(Left{Set: subscribe.NewSet(channels, groups)})
}

// LeaveAll stops announcing presence anywhere.
func (e *Engine) LeaveAll() { e.post(LeftAll{}) }

// Disconnect stops heartbeats and keeps the set for Reconnect.
func (e *Engine) Disconnect() { e.post(Disconnect{}) }

// Reconnect resumes heartbeats after Disconnect or a give-up.
func (e *Engine) Reconnect() { e.post(Reconnect{}) }

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Present returns the announced set.
func (e *Engine) Present() subscribe.Set {
	return e.State().Present()
}

// Close cancels in-flight effects and stops the event loop. Leave
// announcements already started run to completion under their request
// timeout.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.queue.Close()
	e.dispatcher.Close()
}

func (e *Engine) post(event Event) {
	e.queue.Post(queuedEvent{event: event})
}

func (e *Engine) apply(queued queuedEvent) {
	if queued.token.Cancelled() {
		return
	}

	e.mu.Lock()
	from := e.state
	e.mu.Unlock()

	transition := e.rules.Apply(from, queued.event)

	e.mu.Lock()
	e.state = transition.Next
	e.mu.Unlock()

	e.logger.Debug("presence transition",
		"event", EventName(queued.event),
		"from", from.Name(),
		"to", transition.Next.Name(),
	)
	if failed, ok := transition.Next.(Failed); ok && from.Name() != failed.Name() {
		e.logger.Warn("presence heartbeat retries exhausted",
			"channels", failed.Set.Channels(),
			"groups", failed.Set.Groups(),
			"error", failed.Reason,
		)
		if e.onGiveUp != nil {
			e.onGiveUp(failed.Reason)
		}
	}

	for _, invocation := range transition.Invocations {
		e.invoke(invocation)
	}
}

func (e *Engine) invoke(invocation Invocation) {
	switch invocation := invocation.(type) {
	case InvokeCancel:
		e.dispatcher.Cancel(invocation.Target)

	case InvokeHeartbeat:
		set := invocation.Set
		e.dispatcher.Start(KindHeartbeat, func(ctx context.Context, token *effect.Token) {
			var event Event = HeartbeatSucceeded{}
			if err := e.executor.Heartbeat(ctx, set); err != nil {
				event = HeartbeatFailed{Err: err}
			}
			e.queue.PostFrom(token, queuedEvent{event: event, token: token})
		})

	case InvokeWait:
		e.dispatcher.Schedule(KindWait, invocation.Interval, func(token *effect.Token) {
			e.queue.PostFrom(token, queuedEvent{event: TimesUp{}, token: token})
		})

	case InvokeRetryDelay:
		e.logger.Info("retrying heartbeat", "attempt", invocation.Attempt+1, "delay", invocation.Delay)
		e.dispatcher.Schedule(KindRetryDelay, invocation.Delay, func(token *effect.Token) {
			e.queue.PostFrom(token, queuedEvent{event: RetryDelayElapsed{}, token: token})
		})

	case InvokeLeave:
		set := invocation.Set
		e.dispatcher.Start(KindLeave, func(ctx context.Context, _ *effect.Token) {
			if err := e.executor.Leave(context.WithoutCancel(ctx), set); err != nil {
				e.logger.Warn("presence leave failed",
					"channels", set.Channels(),
					"groups", set.Groups(),
					"error", err,
				)
			}
		})
	}
}

// Flush blocks until every queued event has been applied. It must not
// be called from a listener.
func (e *Engine) Flush() {
	e.queue.WaitIdle()
}
