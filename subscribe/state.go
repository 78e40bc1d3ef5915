// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import "time"

// State is one state of the subscribe engine. The set of states is
// closed; every variant carries the data that state needs and nothing
// else.
type State interface {
	// Name is the snake_case state name used in logs and metrics.
	Name() string

	// Subscribed returns the set the state is tracking, with its
	// cursor. Unsubscribed returns the empty Set.
	Subscribed() Set
}

// Unsubscribed has no set and no network activity. It is the initial
// state.
type Unsubscribed struct{}

// Handshaking is fetching a starting cursor for Set. A non-zero
// Set.Cursor() is a resume position: the handshake keeps its timetoken
// and only adopts the region the service assigns. Connected records
// that a Connected status was already published for this stream, so a
// re-handshake after a set change does not publish another.
type Handshaking struct {
	Set       Set
	Attempt   int
	Connected bool
}

// HandshakeStopped is a handshake interrupted by Disconnect.
type HandshakeStopped struct {
	Set Set
}

// HandshakeFailed is a handshake the retry policy gave up on.
type HandshakeFailed struct {
	Set    Set
	Reason error
}

// HandshakeReconnecting waits Delay before handshaking again.
type HandshakeReconnecting struct {
	Set       Set
	Attempt   int
	Reason    error
	Delay     time.Duration
	Connected bool
}

// Receiving runs the long-poll loop from Set.Cursor(). Attempt is the
// number of consecutive failures the current receive follows.
type Receiving struct {
	Set     Set
	Attempt int
}

// ReceiveStopped is a receive loop interrupted by Disconnect.
type ReceiveStopped struct {
	Set Set
}

// ReceiveFailed is a receive loop the retry policy gave up on. The
// cursor is kept so a later Reconnect resumes without gaps.
type ReceiveFailed struct {
	Set    Set
	Reason error
}

// ReceiveReconnecting waits Delay before receiving again.
type ReceiveReconnecting struct {
	Set     Set
	Attempt int
	Reason  error
	Delay   time.Duration
}

func (Unsubscribed) Name() string          { return "unsubscribed" }
func (Handshaking) Name() string           { return "handshaking" }
func (HandshakeStopped) Name() string      { return "handshake_stopped" }
func (HandshakeFailed) Name() string       { return "handshake_failed" }
func (HandshakeReconnecting) Name() string { return "handshake_reconnecting" }
func (Receiving) Name() string             { return "receiving" }
func (ReceiveStopped) Name() string        { return "receive_stopped" }
func (ReceiveFailed) Name() string         { return "receive_failed" }
func (ReceiveReconnecting) Name() string   { return "receive_reconnecting" }

func (Unsubscribed) Subscribed() Set            { return Set{} }
func (s Handshaking) Subscribed() Set           { return s.Set }
func (s HandshakeStopped) Subscribed() Set      { return s.Set }
func (s HandshakeFailed) Subscribed() Set       { return s.Set }
func (s HandshakeReconnecting) Subscribed() Set { return s.Set }
func (s Receiving) Subscribed() Set             { return s.Set }
func (s ReceiveStopped) Subscribed() Set        { return s.Set }
func (s ReceiveFailed) Subscribed() Set         { return s.Set }
func (s ReceiveReconnecting) Subscribed() Set   { return s.Set }
