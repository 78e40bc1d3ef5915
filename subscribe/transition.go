// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"github.com/bureau-foundation/pubsub/lib/retry"
)

// Transition is the result of applying an event: the next state and
// the effects to start or cancel, in order.
type Transition struct {
	Next        State
	Invocations []Invocation
}

// Rules is the subscribe state machine. Apply is a pure function of its
// inputs: it performs no I/O and reads no clock. The only source of
// nondeterminism is the retry policy's jitter, which tests disable.
type Rules struct {
	// Policy decides handshake and receive retries.
	Policy retry.Policy

	// LeaveOnUnsubscribe requests a best-effort leave when the caller
	// unsubscribes from a non-empty set.
	LeaveOnUnsubscribe bool
}

// Apply returns the transition for event in state. Pairs with no rule
// leave the state unchanged and invoke nothing.
func (r Rules) Apply(state State, event Event) Transition {
	switch event := event.(type) {
	case SubscriptionChanged:
		return r.subscriptionChanged(state, event.Set)
	case SubscriptionRestored:
		return r.subscriptionRestored(state, event.Set, event.Cursor)
	case HandshakeSuccess:
		return r.handshakeSuccess(state, event.Cursor)
	case HandshakeFailure:
		return r.handshakeFailure(state, event.Err)
	case ReceiveSuccess:
		return r.receiveSuccess(state, event)
	case ReceiveFailure:
		return r.receiveFailure(state, event.Err)
	case ReconnectDelayElapsed:
		return r.reconnectDelayElapsed(state)
	case Disconnect:
		return r.disconnect(state)
	case Reconnect:
		return r.reconnect(state, event.Cursor)
	case Unsubscribe:
		return r.unsubscribe(state)
	}
	return stay(state)
}

func (r Rules) subscriptionChanged(state State, names Set) Transition {
	current := state.Subscribed()
	if names.SameNames(current) {
		return stay(state)
	}
	return r.rehandshake(state, names.WithCursor(current.Cursor()))
}

func (r Rules) subscriptionRestored(state State, names Set, cursor Cursor) Transition {
	return r.rehandshake(state, names.WithCursor(cursor))
}

// rehandshake moves any state to Handshaking on set, or to
// Unsubscribed when set is empty.
func (r Rules) rehandshake(state State, set Set) Transition {
	if set.IsEmpty() {
		if _, ok := state.(Unsubscribed); ok {
			return stay(state)
		}
		return to(state, Unsubscribed{})
	}

	var invocations []Invocation
	connected := false
	switch state := state.(type) {
	case Receiving:
		connected = true
		invocations = append(invocations, InvokeEmitStatus{statusFor(StatusSubscriptionChanged, set, nil)})
	case Handshaking:
		connected = state.Connected
	case HandshakeReconnecting:
		connected = state.Connected
	}
	invocations = append(invocations, InvokeHandshake{Set: set})
	return to(state, Handshaking{Set: set, Connected: connected}, invocations...)
}

func (r Rules) handshakeSuccess(state State, issued Cursor) Transition {
	handshaking, ok := state.(Handshaking)
	if !ok {
		return stay(state)
	}

	cursor := issued
	if resume := handshaking.Set.Cursor(); !resume.IsZero() {
		cursor = Cursor{Timetoken: resume.Timetoken, Region: issued.Region}
	}
	set := handshaking.Set.WithCursor(cursor)

	var invocations []Invocation
	if !handshaking.Connected {
		invocations = append(invocations, InvokeEmitStatus{statusFor(StatusConnected, set, nil)})
	}
	invocations = append(invocations, InvokeReceive{Set: set})
	return to(state, Receiving{Set: set}, invocations...)
}

func (r Rules) handshakeFailure(state State, err error) Transition {
	var set Set
	var attempt int
	var connected bool
	switch state := state.(type) {
	case Handshaking:
		set, attempt, connected = state.Set, state.Attempt, state.Connected
	case HandshakeReconnecting:
		set, attempt, connected = state.Set, state.Attempt+1, state.Connected
	default:
		return stay(state)
	}
	if retry.Classify(err) == retry.FailureCancelled {
		return stay(state)
	}

	decision := r.Policy.Evaluate(attempt, retry.EndpointSubscribe, err)
	if !decision.Retry {
		return to(state, HandshakeFailed{Set: set, Reason: err},
			InvokeEmitStatus{statusFor(StatusConnectionError, set, err)})
	}
	return to(state,
		HandshakeReconnecting{Set: set, Attempt: attempt, Reason: err, Delay: decision.After, Connected: connected},
		InvokeHandshakeReconnect{Delay: decision.After, Attempt: attempt})
}

func (r Rules) receiveSuccess(state State, event ReceiveSuccess) Transition {
	receiving, ok := state.(Receiving)
	if !ok {
		return stay(state)
	}

	// A batch behind the current position was already delivered or
	// will be received again from the current cursor.
	cursor := receiving.Set.Cursor()
	regressed := event.Cursor.Compare(cursor) < 0
	if !regressed {
		cursor = event.Cursor
	}
	set := receiving.Set.WithCursor(cursor)

	var invocations []Invocation
	if receiving.Attempt > 0 {
		invocations = append(invocations, InvokeEmitStatus{statusFor(StatusConnected, set, nil)})
	}
	if len(event.Updates) > 0 && !regressed {
		invocations = append(invocations, InvokeEmitUpdates{Updates: event.Updates})
	}
	invocations = append(invocations, InvokeReceive{Set: set})
	return to(state, Receiving{Set: set}, invocations...)
}

func (r Rules) receiveFailure(state State, err error) Transition {
	var set Set
	var attempt int
	switch state := state.(type) {
	case Receiving:
		set, attempt = state.Set, state.Attempt
	case ReceiveReconnecting:
		set, attempt = state.Set, state.Attempt+1
	default:
		return stay(state)
	}
	if retry.Classify(err) == retry.FailureCancelled {
		return stay(state)
	}

	decision := r.Policy.Evaluate(attempt, retry.EndpointSubscribe, err)
	if !decision.Retry {
		return to(state, ReceiveFailed{Set: set, Reason: err},
			InvokeEmitStatus{statusFor(StatusConnectionError, set, err)})
	}
	return to(state,
		ReceiveReconnecting{Set: set, Attempt: attempt, Reason: err, Delay: decision.After},
		InvokeReceiveReconnect{Delay: decision.After, Attempt: attempt})
}

func (r Rules) reconnectDelayElapsed(state State) Transition {
	switch state := state.(type) {
	case HandshakeReconnecting:
		attempt := state.Attempt + 1
		return to(state,
			Handshaking{Set: state.Set, Attempt: attempt, Connected: state.Connected},
			InvokeHandshake{Set: state.Set, Attempt: attempt})
	case ReceiveReconnecting:
		attempt := state.Attempt + 1
		return to(state,
			Receiving{Set: state.Set, Attempt: attempt},
			InvokeReceive{Set: state.Set, Attempt: attempt})
	}
	return stay(state)
}

func (r Rules) disconnect(state State) Transition {
	switch state := state.(type) {
	case Handshaking:
		return to(state, HandshakeStopped{Set: state.Set})
	case HandshakeReconnecting:
		return to(state, HandshakeStopped{Set: state.Set})
	case Receiving:
		return to(state, ReceiveStopped{Set: state.Set},
			InvokeEmitStatus{statusFor(StatusDisconnected, state.Set, nil)})
	case ReceiveReconnecting:
		return to(state, ReceiveStopped{Set: state.Set},
			InvokeEmitStatus{statusFor(StatusDisconnected, state.Set, nil)})
	}
	return stay(state)
}

func (r Rules) reconnect(state State, override *Cursor) Transition {
	set := state.Subscribed()
	if override != nil {
		set = set.WithCursor(*override)
	}
	switch state.(type) {
	case HandshakeStopped, HandshakeFailed:
		return to(state, Handshaking{Set: set}, InvokeHandshake{Set: set})
	case ReceiveStopped, ReceiveFailed:
		return to(state, Receiving{Set: set},
			InvokeEmitStatus{statusFor(StatusConnected, set, nil)},
			InvokeReceive{Set: set})
	}
	return stay(state)
}

func (r Rules) unsubscribe(state State) Transition {
	if _, ok := state.(Unsubscribed); ok {
		return stay(state)
	}
	set := state.Subscribed()
	var invocations []Invocation
	if r.LeaveOnUnsubscribe && !set.IsEmpty() {
		invocations = append(invocations, InvokeUnsubscribe{Set: set})
	}
	invocations = append(invocations, InvokeEmitStatus{statusFor(StatusDisconnected, set, nil)})
	return to(state, Unsubscribed{}, invocations...)
}

// managedKind is the effect a state owns while it is current, if any.
func managedKind(state State) (EffectKind, bool) {
	switch state.(type) {
	case Handshaking:
		return KindHandshake, true
	case HandshakeReconnecting:
		return KindHandshakeReconnect, true
	case Receiving:
		return KindReceive, true
	case ReceiveReconnecting:
		return KindReceiveReconnect, true
	}
	return 0, false
}

// to leaves from for next, cancelling the effect from owned before
// anything in invocations starts.
func to(from, next State, invocations ...Invocation) Transition {
	var all []Invocation
	if kind, ok := managedKind(from); ok {
		all = append(all, InvokeCancel{Target: kind})
	}
	all = append(all, invocations...)
	return Transition{Next: next, Invocations: all}
}

func stay(state State) Transition {
	return Transition{Next: state}
}
