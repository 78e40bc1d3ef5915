// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"time"

	"github.com/bureau-foundation/pubsub/lib/retry"
	"github.com/bureau-foundation/pubsub/subscribe"
)

// Transition is the next state and the effects to run, in order.
type Transition struct {
	Next        State
	Invocations []Invocation
}

// Rules is the presence state machine. Apply performs no I/O.
type Rules struct {
	// Interval is the pause between successful heartbeats. Zero
	// disables presence: Joined is ignored.
	Interval time.Duration

	// Policy decides heartbeat retries.
	Policy retry.Policy

	// SuppressLeave skips leave announcements.
	SuppressLeave bool
}

// Apply returns the transition for event in state.
func (r Rules) Apply(state State, event Event) Transition {
	switch event := event.(type) {
	case Joined:
		return r.joined(state, event.Set.WithoutPresence())
	case Left:
		return r.left(state, event.Set.WithoutPresence())
	case LeftAll:
		return r.leftAll(state)
	case HeartbeatSucceeded:
		if heartbeating, ok := state.(Heartbeating); ok {
			return to(state, Cooldown{Set: heartbeating.Set}, InvokeWait{Interval: r.Interval})
		}
	case HeartbeatFailed:
		return r.heartbeatFailed(state, event.Err)
	case TimesUp:
		if cooldown, ok := state.(Cooldown); ok {
			return r.heartbeat(state, cooldown.Set, 0)
		}
	case RetryDelayElapsed:
		if reconnecting, ok := state.(Reconnecting); ok {
			return r.heartbeat(state, reconnecting.Set, reconnecting.Attempt+1)
		}
	case Disconnect:
		return r.disconnect(state)
	case Reconnect:
		switch state.(type) {
		case Stopped, Failed:
			return r.heartbeat(state, state.Present(), 0)
		}
	}
	return stay(state)
}

func (r Rules) joined(state State, names subscribe.Set) Transition {
	if r.Interval <= 0 || names.IsEmpty() {
		return stay(state)
	}
	current := state.Present()
	union := current.Union(names)
	if _, ok := state.(Inactive); !ok && union.SameNames(current) {
		return stay(state)
	}
	if _, ok := state.(Stopped); ok {
		return Transition{Next: Stopped{Set: union}}
	}
	return r.heartbeat(state, union, 0)
}

func (r Rules) left(state State, names subscribe.Set) Transition {
	current := state.Present()
	remaining := current.Difference(names)
	removed := current.Difference(remaining)
	if removed.IsEmpty() {
		return stay(state)
	}

	if _, ok := state.(Stopped); ok {
		if remaining.IsEmpty() {
			return Transition{Next: Inactive{}}
		}
		return Transition{Next: Stopped{Set: remaining}}
	}

	var invocations []Invocation
	if !r.SuppressLeave {
		invocations = append(invocations, InvokeLeave{Set: removed})
	}
	if remaining.IsEmpty() {
		return to(state, Inactive{}, invocations...)
	}
	invocations = append(invocations, InvokeHeartbeat{Set: remaining})
	return to(state, Heartbeating{Set: remaining}, invocations...)
}

func (r Rules) leftAll(state State) Transition {
	switch state.(type) {
	case Inactive:
		return stay(state)
	case Stopped:
		return Transition{Next: Inactive{}}
	}
	var invocations []Invocation
	if !r.SuppressLeave {
		invocations = append(invocations, InvokeLeave{Set: state.Present()})
	}
	return to(state, Inactive{}, invocations...)
}

func (r Rules) heartbeatFailed(state State, err error) Transition {
	heartbeating, ok := state.(Heartbeating)
	if !ok || retry.Classify(err) == retry.FailureCancelled {
		return stay(state)
	}
	decision := r.Policy.Evaluate(heartbeating.Attempt, retry.EndpointPresence, err)
	if !decision.Retry {
		return to(state, Failed{Set: heartbeating.Set, Reason: err})
	}
	return to(state,
		Reconnecting{Set: heartbeating.Set, Attempt: heartbeating.Attempt, Reason: err, Delay: decision.After},
		InvokeRetryDelay{Delay: decision.After, Attempt: heartbeating.Attempt})
}

func (r Rules) disconnect(state State) Transition {
	switch state.(type) {
	case Inactive, Stopped:
		return stay(state)
	}
	var invocations []Invocation
	if !r.SuppressLeave {
		invocations = append(invocations, InvokeLeave{Set: state.Present()})
	}
	return to(state, Stopped{Set: state.Present()}, invocations...)
}

func (r Rules) heartbeat(from State, set subscribe.Set, attempt int) Transition {
	return to(from, Heartbeating{Set: set, Attempt: attempt}, InvokeHeartbeat{Set: set, Attempt: attempt})
}

func managedKind(state State) (EffectKind, bool) {
	switch state.(type) {
	case Heartbeating:
		return KindHeartbeat, true
	case Cooldown:
		return KindWait, true
	case Reconnecting:
		return KindRetryDelay, true
	}
	return 0, false
}

func to(from, next State, invocations ...Invocation) Transition {
	var all []Invocation
	if kind, ok := managedKind(from); ok {
		all = append(all, InvokeCancel{Target: kind})
	}
	return Transition{Next: next, Invocations: append(all, invocations...)}
}

func stay(state State) Transition {
	return Transition{Next: state}
}
