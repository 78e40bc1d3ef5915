// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/pubsub/subscribe"
)

// EffectKind names a presence effect.
type EffectKind int

const (
	KindHeartbeat EffectKind = iota
	KindWait
	KindRetryDelay
	KindLeave
	KindCancel
)

func (k EffectKind) String() string {
	switch k {
	case KindHeartbeat:
		return "heartbeat"
	case KindWait:
		return "wait"
	case KindRetryDelay:
		return "retry_delay"
	case KindLeave:
		return "leave"
	case KindCancel:
		return "cancel"
	}
	return fmt.Sprintf("EffectKind(%d)", int(k))
}

// Invocation is an effect request produced by a transition.
type Invocation interface {
	Kind() EffectKind
}

// InvokeHeartbeat announces presence on Set.
type InvokeHeartbeat struct {
	Set     subscribe.Set
	Attempt int
}

// InvokeWait fires TimesUp after Interval.
type InvokeWait struct {
	Interval time.Duration
}

// InvokeRetryDelay fires RetryDelayElapsed after Delay.
type InvokeRetryDelay struct {
	Delay   time.Duration
	Attempt int
}

// InvokeLeave announces departure from Set. Nothing waits for it.
type InvokeLeave struct {
	Set subscribe.Set
}

// InvokeCancel cancels the in-flight effect of Target.
type InvokeCancel struct {
	Target EffectKind
}

func (InvokeHeartbeat) Kind() EffectKind  { return KindHeartbeat }
func (InvokeWait) Kind() EffectKind       { return KindWait }
func (InvokeRetryDelay) Kind() EffectKind { return KindRetryDelay }
func (InvokeLeave) Kind() EffectKind      { return KindLeave }
func (InvokeCancel) Kind() EffectKind     { return KindCancel }
