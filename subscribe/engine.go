// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/pubsub/lib/clock"
	"github.com/bureau-foundation/pubsub/lib/effect"
	"github.com/bureau-foundation/pubsub/lib/retry"
)

// Config configures an Engine.
type Config struct {
	// Policy decides handshake and receive retries. The zero Policy
	// never retries.
	Policy retry.Policy

	// LeaveOnUnsubscribe sends a best-effort leave when the caller
	// unsubscribes. Leave it off when a presence engine already
	// announces departures.
	LeaveOnUnsubscribe bool

	// Clock drives retry timers. Nil uses the real clock.
	Clock clock.Clock

	Logger *slog.Logger

	// Observer receives telemetry. Nil discards it.
	Observer Observer

	// Duplicate, when set, is asked about every update before fan-out;
	// updates it reports as already seen are dropped.
	Duplicate func(Update) bool

	// OnSubscriptionChange is called from the event loop whenever the
	// set of subscribed names changes, with the names before and after.
	OnSubscriptionChange func(previous, current Set)
}

// Engine keeps a subscription alive: it owns the state machine and
// the subscription set, runs effects through an Executor, and publishes
// what it receives to listeners. All methods are safe for concurrent
// use and none blocks on the network.
type Engine struct {
	rules     Rules
	executor  Executor
	logger    *slog.Logger
	observer  Observer
	duplicate func(Update) bool
	onChange  func(previous, current Set)
	listeners *Registry

	dispatcher *effect.Dispatcher[EffectKind]
	queue      *effect.Serializer[queuedEvent]

	mu        sync.Mutex
	state     State
	direct    Set
	sets      map[uint64]*SubscriptionSet
	nextSetID uint64
	closed    bool
}

// queuedEvent is one entry in the engine's event queue. Effect outcomes
// carry the token of the effect that produced them; caller requests
// carry none. build, when set, computes the event at application time
// from the then-current sources.
type queuedEvent struct {
	event Event
	build func() Event
	token *effect.Token
	kind  EffectKind
}

// New returns an Engine in the Unsubscribed state.
func New(config Config, executor Executor) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	observer := config.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	engine := &Engine{
		rules:      Rules{Policy: config.Policy, LeaveOnUnsubscribe: config.LeaveOnUnsubscribe},
		executor:   executor,
		logger:     logger,
		observer:   observer,
		duplicate:  config.Duplicate,
		onChange:   config.OnSubscriptionChange,
		listeners:  NewRegistry(logger),
		dispatcher: effect.NewDispatcher[EffectKind](clk, logger),
		state:      Unsubscribed{},
		sets:       make(map[uint64]*SubscriptionSet),
	}
	engine.queue = effect.NewSerializer(engine.apply, logger)
	return engine
}

// Add subscribes to more channels and groups and returns the resulting
// effective set.
func (e *Engine) Add(channels, groups []string) (Set, error) {
	if err := validateRequest(channels, groups); err != nil {
		return Set{}, err
	}
	return e.mutate(func(direct Set) Set { return direct.Add(channels, groups) }), nil
}

// Remove unsubscribes from channels and groups. Names not subscribed
// are ignored.
func (e *Engine) Remove(channels, groups []string) (Set, error) {
	if err := validateRequest(channels, groups); err != nil {
		return Set{}, err
	}
	return e.mutate(func(direct Set) Set { return direct.Remove(channels, groups) }), nil
}

// Replace swaps the directly subscribed names for channels and groups.
// Names contributed by subscription sets are unaffected.
func (e *Engine) Replace(channels, groups []string) (Set, error) {
	if err := validateRequest(channels, groups); err != nil {
		return Set{}, err
	}
	return e.mutate(func(Set) Set { return NewSet(channels, groups) }), nil
}

// Restore replaces the directly subscribed names and resumes the stream
// from cursor, typically one saved by an earlier process.
func (e *Engine) Restore(channels, groups []string, cursor Cursor) (Set, error) {
	if err := validateRequest(channels, groups); err != nil {
		return Set{}, err
	}
	e.mu.Lock()
	e.direct = NewSet(channels, groups)
	effective := e.effectiveLocked().WithCursor(cursor)
	e.mu.Unlock()

	e.queue.Post(queuedEvent{build: func() Event {
		return SubscriptionRestored{Set: e.effective(), Cursor: cursor}
	}})
	return effective, nil
}

// Reconnect resumes after Disconnect or a give-up, from the stored
// cursor.
func (e *Engine) Reconnect() {
	e.queue.Post(queuedEvent{event: Reconnect{}})
}

// ReconnectFrom resumes after Disconnect or a give-up, from cursor.
func (e *Engine) ReconnectFrom(cursor Cursor) {
	e.queue.Post(queuedEvent{event: Reconnect{Cursor: &cursor}})
}

// Disconnect stops network activity and keeps the set and cursor.
func (e *Engine) Disconnect() {
	e.queue.Post(queuedEvent{event: Disconnect{}})
}

// UnsubscribeAll drops every name, detaches every subscription set and
// returns to Unsubscribed. Calling it again is a no-op.
func (e *Engine) UnsubscribeAll() {
	e.mu.Lock()
	e.direct = Set{}
	clear(e.sets)
	e.mu.Unlock()
	e.queue.Post(queuedEvent{event: Unsubscribe{}})
}

// AddListener registers listener for statuses and updates on every name
// the engine subscribes to. The returned function removes it.
func (e *Engine) AddListener(listener Listener) (remove func()) {
	return e.listeners.Add(listener)
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentCursor returns the position the stream has reached. It is the
// zero Cursor before the first handshake completes.
func (e *Engine) CurrentCursor() Cursor {
	return e.State().Subscribed().Cursor()
}

// Subscribed returns the effective set the caller has requested, at the
// current cursor. It can differ briefly from State().Subscribed() while
// a change is queued.
func (e *Engine) Subscribed() Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effectiveLocked().WithCursor(e.state.Subscribed().Cursor())
}

// Close cancels every effect and stops the event loop. It does not
// unsubscribe; call UnsubscribeAll first for a clean departure. Close
// must not be called from a listener.
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

// mutate applies change to the direct source and queues a recompute of
// the effective set. The event is built when applied, so concurrent
// mutations converge on the latest sources whatever order their events
// are applied in.
func (e *Engine) mutate(change func(direct Set) Set) Set {
	e.mu.Lock()
	e.direct = change(e.direct)
	effective := e.effectiveLocked().WithCursor(e.state.Subscribed().Cursor())
	e.mu.Unlock()

	e.sourcesChanged()
	return effective
}

func (e *Engine) sourcesChanged() {
	e.queue.Post(queuedEvent{build: func() Event {
		return SubscriptionChanged{Set: e.effective()}
	}})
}

func (e *Engine) effective() Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effectiveLocked()
}

// effectiveLocked unions the direct source with every attached
// subscription set. Lock order is engine, then set.
func (e *Engine) effectiveLocked() Set {
	effective := NewSet(e.direct.channels, e.direct.groups)
	for _, set := range e.sets {
		effective = effective.Union(set.names())
	}
	return effective
}

// apply runs on the serializer's drainer, one event at a time.
func (e *Engine) apply(queued queuedEvent) {
	if queued.token.Cancelled() {
		e.observer.ObserveEffect(queued.kind, OutcomeSwallowed)
		e.logger.Debug("dropping outcome of cancelled effect",
			"effect", queued.kind.String(),
			"event", EventName(queued.event),
		)
		return
	}
	event := queued.event
	if queued.build != nil {
		event = queued.build()
	}

	e.mu.Lock()
	from := e.state
	e.mu.Unlock()

	transition := e.rules.Apply(from, event)

	if success, ok := event.(ReceiveSuccess); ok {
		if receiving, ok := from.(Receiving); ok && success.Cursor.Compare(receiving.Set.Cursor()) < 0 {
			e.logger.Warn("dropping batch older than current position",
				"current", receiving.Set.Cursor().String(),
				"received", success.Cursor.String(),
			)
		}
	}

	e.mu.Lock()
	e.state = transition.Next
	e.mu.Unlock()

	next := transition.Next
	e.logger.Debug("subscribe transition",
		"event", EventName(event),
		"from", from.Name(),
		"to", next.Name(),
		"invocations", len(transition.Invocations),
	)
	e.observer.ObserveTransition(from, next, event)
	e.reportGiveUp(from, next)

	if e.onChange != nil && !from.Subscribed().SameNames(next.Subscribed()) {
		e.onChange(from.Subscribed(), next.Subscribed())
	}

	for _, invocation := range transition.Invocations {
		e.invoke(invocation)
	}
}

func (e *Engine) reportGiveUp(from, next State) {
	var reason error
	switch state := next.(type) {
	case HandshakeFailed:
		reason = state.Reason
	case ReceiveFailed:
		reason = state.Reason
	default:
		return
	}
	if from.Name() == next.Name() {
		return
	}
	e.observer.ObserveGiveUp(next)
	e.logger.Warn("subscribe retries exhausted",
		"state", next.Name(),
		"channels", next.Subscribed().Channels(),
		"groups", next.Subscribed().Groups(),
		"error", reason,
	)
}

func (e *Engine) invoke(invocation Invocation) {
	switch invocation := invocation.(type) {
	case InvokeCancel:
		e.dispatcher.Cancel(invocation.Target)

	case InvokeHandshake:
		set := invocation.Set
		e.observer.ObserveEffect(KindHandshake, OutcomeStarted)
		e.dispatcher.Start(KindHandshake, func(ctx context.Context, token *effect.Token) {
			cursor, err := e.executor.Handshake(ctx, set)
			if err != nil {
				e.deliver(token, KindHandshake, HandshakeFailure{Err: err}, err)
				return
			}
			e.deliver(token, KindHandshake, HandshakeSuccess{Cursor: cursor}, nil)
		})

	case InvokeReceive:
		set := invocation.Set
		e.observer.ObserveEffect(KindReceive, OutcomeStarted)
		e.dispatcher.Start(KindReceive, func(ctx context.Context, token *effect.Token) {
			updates, cursor, err := e.executor.Receive(ctx, set)
			if err != nil {
				e.deliver(token, KindReceive, ReceiveFailure{Err: err}, err)
				return
			}
			e.deliver(token, KindReceive, ReceiveSuccess{Updates: updates, Cursor: cursor}, nil)
		})

	case InvokeHandshakeReconnect:
		e.logger.Info("retrying handshake", "attempt", invocation.Attempt+1, "delay", invocation.Delay)
		e.observer.ObserveEffect(KindHandshakeReconnect, OutcomeStarted)
		e.dispatcher.Schedule(KindHandshakeReconnect, invocation.Delay, func(token *effect.Token) {
			e.deliver(token, KindHandshakeReconnect, ReconnectDelayElapsed{}, nil)
		})

	case InvokeReceiveReconnect:
		e.logger.Info("retrying receive", "attempt", invocation.Attempt+1, "delay", invocation.Delay)
		e.observer.ObserveEffect(KindReceiveReconnect, OutcomeStarted)
		e.dispatcher.Schedule(KindReceiveReconnect, invocation.Delay, func(token *effect.Token) {
			e.deliver(token, KindReceiveReconnect, ReconnectDelayElapsed{}, nil)
		})

	case InvokeEmitStatus:
		e.publishStatus(invocation.Status)

	case InvokeEmitUpdates:
		e.publishUpdates(invocation.Updates)

	case InvokeUnsubscribe:
		set := invocation.Set
		e.observer.ObserveEffect(KindUnsubscribe, OutcomeStarted)
		e.dispatcher.Start(KindUnsubscribe, func(ctx context.Context, token *effect.Token) {
			// The leave outlives Close; the transport timeout bounds it.
			if err := e.executor.Leave(context.WithoutCancel(ctx), set); err != nil {
				e.observer.ObserveEffect(KindUnsubscribe, OutcomeFailed)
				e.logger.Warn("leave failed", "channels", set.Channels(), "groups", set.Groups(), "error", err)
				return
			}
			e.observer.ObserveEffect(KindUnsubscribe, OutcomeSucceeded)
		})
	}
}

// deliver hands an effect outcome to the event queue unless the
// effect was cancelled first.
func (e *Engine) deliver(token *effect.Token, kind EffectKind, event Event, err error) {
	outcome := OutcomeSucceeded
	if err != nil {
		outcome = OutcomeFailed
		if retry.Classify(err) == retry.FailureCancelled {
			outcome = OutcomeCancelled
		}
	}
	if !e.queue.PostFrom(token, queuedEvent{event: event, token: token, kind: kind}) {
		outcome = OutcomeSwallowed
	}
	e.observer.ObserveEffect(kind, outcome)
}

func (e *Engine) publishStatus(status Status) {
	e.logger.Info("subscribe status", "status", status.Category.String(), "cursor", status.Cursor.String())
	e.listeners.publishStatus(status)
	for _, set := range e.attachedSets() {
		set.listeners.publishStatus(status)
	}
}

func (e *Engine) publishUpdates(updates []Update) {
	sets := e.attachedSets()
	for _, update := range updates {
		if e.duplicate != nil && e.duplicate(update) {
			e.logger.Debug("dropping duplicate update",
				"channel", update.Channel,
				"published", update.Published.String(),
			)
			continue
		}
		if update.Err != nil {
			e.logger.Warn("delivering undecodable update", "channel", update.Channel, "error", update.Err)
		}
		e.observer.ObserveUpdate(update)
		e.listeners.publishUpdate(update)
		for _, set := range sets {
			if set.matches(update) {
				set.listeners.publishUpdate(update)
			}
		}
	}
}

func (e *Engine) attachedSets() []*SubscriptionSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	sets := make([]*SubscriptionSet, 0, len(e.sets))
	for _, set := range e.sets {
		sets = append(sets, set)
	}
	return sets
}

func (e *Engine) attach(set *SubscriptionSet) {
	e.mu.Lock()
	if _, ok := e.sets[set.id]; ok {
		e.mu.Unlock()
		return
	}
	e.sets[set.id] = set
	e.mu.Unlock()
	e.sourcesChanged()
}

func (e *Engine) detach(set *SubscriptionSet) {
	e.mu.Lock()
	if _, ok := e.sets[set.id]; !ok {
		e.mu.Unlock()
		return
	}
	delete(e.sets, set.id)
	e.mu.Unlock()
	e.sourcesChanged()
}

func (e *Engine) isAttached(set *SubscriptionSet) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sets[set.id]
	return ok
}

// Flush blocks until every queued event has been applied. It must not
// be called from a listener.
func (e *Engine) Flush() {
	e.queue.WaitIdle()
}
