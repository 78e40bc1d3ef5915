// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

// Event is an input to the state machine: a caller request or the
// outcome of an effect. The set of events is closed.
type Event interface {
	eventName() string
}

// SubscriptionChanged carries the new effective set after a mutation.
type SubscriptionChanged struct{ Set Set }

// SubscriptionRestored replaces the set and its cursor together, for
// resuming a stream saved by an earlier process.
type SubscriptionRestored struct {
	Set    Set
	Cursor Cursor
}

// HandshakeSuccess carries the cursor the service issued.
type HandshakeSuccess struct{ Cursor Cursor }

// HandshakeFailure carries the handshake error.
type HandshakeFailure struct{ Err error }

// ReceiveSuccess carries one long-poll response.
type ReceiveSuccess struct {
	Updates []Update
	Cursor  Cursor
}

// ReceiveFailure carries the long-poll error.
type ReceiveFailure struct{ Err error }

// ReconnectDelayElapsed fires when a retry timer expires.
type ReconnectDelayElapsed struct{}

// Disconnect stops network activity but keeps the set and cursor.
type Disconnect struct{}

// Reconnect resumes after Disconnect or a give-up. A non-nil Cursor
// replaces the stored one.
type Reconnect struct{ Cursor *Cursor }

// Unsubscribe drops everything and returns to Unsubscribed.
type Unsubscribe struct{}

func (SubscriptionChanged) eventName() string   { return "subscription_changed" }
func (SubscriptionRestored) eventName() string  { return "subscription_restored" }
func (HandshakeSuccess) eventName() string      { return "handshake_succeeded" }
func (HandshakeFailure) eventName() string      { return "handshake_failed" }
func (ReceiveSuccess) eventName() string        { return "receive_succeeded" }
func (ReceiveFailure) eventName() string        { return "receive_failed" }
func (ReconnectDelayElapsed) eventName() string { return "reconnect_delay_elapsed" }
func (Disconnect) eventName() string            { return "disconnect" }
func (Reconnect) eventName() string             { return "reconnect" }
func (Unsubscribe) eventName() string           { return "unsubscribe" }

// EventName returns the snake_case name of an event, for logs and
// metrics labels.
func EventName(event Event) string { return event.eventName() }
