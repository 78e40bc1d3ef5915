// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"fmt"
	"time"
)

// EffectKind names a kind of effect. At most one effect of each
// managed kind is in flight at a time.
type EffectKind int

const (
	KindHandshake EffectKind = iota
	KindHandshakeReconnect
	KindReceive
	KindReceiveReconnect
	KindEmitStatus
	KindEmitUpdates
	KindUnsubscribe
	KindCancel
)

func (k EffectKind) String() string {
	switch k {
	case KindHandshake:
		return "handshake"
	case KindHandshakeReconnect:
		return "handshake_reconnect"
	case KindReceive:
		return "receive"
	case KindReceiveReconnect:
		return "receive_reconnect"
	case KindEmitStatus:
		return "emit_status"
	case KindEmitUpdates:
		return "emit_updates"
	case KindUnsubscribe:
		return "unsubscribe"
	case KindCancel:
		return "cancel"
	}
	return fmt.Sprintf("EffectKind(%d)", int(k))
}

// Invocation is a request, produced by a transition, to start or cancel
// an effect. The set of invocations is closed.
type Invocation interface {
	Kind() EffectKind
}

// InvokeHandshake fetches a starting cursor for Set.
type InvokeHandshake struct {
	Set     Set
	Attempt int
}

// InvokeHandshakeReconnect arms the handshake retry timer.
type InvokeHandshakeReconnect struct {
	Delay   time.Duration
	Attempt int
}

// InvokeReceive long-polls for updates on Set from Set.Cursor().
type InvokeReceive struct {
	Set     Set
	Attempt int
}

// InvokeReceiveReconnect arms the receive retry timer.
type InvokeReceiveReconnect struct {
	Delay   time.Duration
	Attempt int
}

// InvokeEmitStatus publishes a Status to listeners.
type InvokeEmitStatus struct {
	Status Status
}

// InvokeEmitUpdates publishes updates to listeners in order.
type InvokeEmitUpdates struct {
	Updates []Update
}

// InvokeUnsubscribe tells the service the user left Set. Best effort;
// its outcome never feeds back into the engine.
type InvokeUnsubscribe struct {
	Set Set
}

// InvokeCancel cancels the in-flight effect of Target.
type InvokeCancel struct {
	Target EffectKind
}

func (InvokeHandshake) Kind() EffectKind          { return KindHandshake }
func (InvokeHandshakeReconnect) Kind() EffectKind { return KindHandshakeReconnect }
func (InvokeReceive) Kind() EffectKind            { return KindReceive }
func (InvokeReceiveReconnect) Kind() EffectKind   { return KindReceiveReconnect }
func (InvokeEmitStatus) Kind() EffectKind         { return KindEmitStatus }
func (InvokeEmitUpdates) Kind() EffectKind        { return KindEmitUpdates }
func (InvokeUnsubscribe) Kind() EffectKind        { return KindUnsubscribe }
func (InvokeCancel) Kind() EffectKind             { return KindCancel }
