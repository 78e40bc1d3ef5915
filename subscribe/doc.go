// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package subscribe keeps a real-time subscription to a hosted pub/sub
// service alive.
//
// The core is a pure state machine ([Rules.Apply]) over explicit
// [State] and [Event] variants. Every transition returns the next state
// plus an ordered list of [Invocation]s; states that own a network
// effect cancel it on exit. [Engine] is the runtime around it: one
// event queue applied in order, one in-flight effect per kind, and a
// guarantee that the outcome of a cancelled effect never reaches the
// state machine.
//
// Subscription lifecycle:
//
//	Unsubscribed -> Handshaking -> Receiving -> Receiving -> ...
//	                    |              |
//	                    v              v
//	          HandshakeReconnecting  ReceiveReconnecting
//	                    |              |
//	                    v              v
//	           HandshakeFailed       ReceiveFailed
//
// A handshake obtains a [Cursor]; each receive long-polls for updates
// after it and advances it. Changing the set of channels re-handshakes
// while keeping the current cursor, so no updates are lost across the
// change.
//
// Names come from two kinds of source: direct [Engine.Add] and friends,
// and attached [SubscriptionSet]s. The engine subscribes to their union
// and routes each update to the global listeners and to every set whose
// entities it matches.
package subscribe
