// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/pubsub/lib/retry"
	"github.com/bureau-foundation/pubsub/subscribe"
)

var errNetwork = errors.New("connection refused")

func testRules() Rules {
	return Rules{
		Interval: 30 * time.Second,
		Policy:   retry.Policy{Kind: retry.Linear, Delay: 5 * time.Second, MaxRetries: 2},
	}
}

func channels(names ...string) subscribe.Set {
	return subscribe.NewSet(names, nil)
}

func kinds(transition Transition) []EffectKind {
	var result []EffectKind
	for _, invocation := range transition.Invocations {
		result = append(result, invocation.Kind())
	}
	return result
}

func requireStep(t *testing.T, transition Transition, wantState string, wantKinds ...EffectKind) {
	t.Helper()
	if transition.Next.Name() != wantState {
		t.Fatalf("state = %s, want %s", transition.Next.Name(), wantState)
	}
	if got := kinds(transition); !slices.Equal(got, wantKinds) {
		t.Fatalf("invocations = %v, want %v", got, wantKinds)
	}
}

func TestHeartbeatCycle(t *testing.T) {
	rules := testRules()

	step := rules.Apply(Inactive{}, Joined{Set: channels("a")})
	requireStep(t, step, "heartbeating", KindHeartbeat)

	step = rules.Apply(step.Next, HeartbeatSucceeded{})
	requireStep(t, step, "cooldown", KindCancel, KindWait)
	if wait := step.Invocations[1].(InvokeWait); wait.Interval != 30*time.Second {
		t.Fatalf("wait interval = %v", wait.Interval)
	}

	step = rules.Apply(step.Next, TimesUp{})
	requireStep(t, step, "heartbeating", KindCancel, KindHeartbeat)
}

func TestJoinIgnoredWithoutInterval(t *testing.T) {
	step := Rules{}.Apply(Inactive{}, Joined{Set: channels("a")})
	requireStep(t, step, "inactive")
}

func TestJoinDropsPresenceNames(t *testing.T) {
	step := testRules().Apply(Inactive{}, Joined{Set: channels("a", "a"+subscribe.PresenceSuffix)})
	if got := step.Next.Present().Channels(); !slices.Equal(got, []string{"a"}) {
		t.Fatalf("present on %v", got)
	}
}

func TestJoinMoreWhileCooling(t *testing.T) {
	rules := testRules()
	step := rules.Apply(Cooldown{Set: channels("a")}, Joined{Set: channels("b")})
	requireStep(t, step, "heartbeating", KindCancel, KindHeartbeat)
	if got := step.Next.Present().Channels(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("present on %v", got)
	}

	step = rules.Apply(Cooldown{Set: channels("a")}, Joined{Set: channels("a")})
	requireStep(t, step, "cooldown")

	step = rules.Apply(Stopped{Set: channels("a")}, Joined{Set: channels("b")})
	requireStep(t, step, "stopped")
	if got := step.Next.Present().Channels(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("stopped set = %v", got)
	}
}

func TestLeft(t *testing.T) {
	rules := testRules()

	t.Run("partial", func(t *testing.T) {
		step := rules.Apply(Cooldown{Set: channels("a", "b")}, Left{Set: channels("b", "z")})
		requireStep(t, step, "heartbeating", KindCancel, KindLeave, KindHeartbeat)
		if leave := step.Invocations[1].(InvokeLeave); !slices.Equal(leave.Set.Channels(), []string{"b"}) {
			t.Fatalf("leave for %v", leave.Set.Channels())
		}
	})

	t.Run("last", func(t *testing.T) {
		step := rules.Apply(Heartbeating{Set: channels("a")}, Left{Set: channels("a")})
		requireStep(t, step, "inactive", KindCancel, KindLeave)
	})

	t.Run("unknown names", func(t *testing.T) {
		step := rules.Apply(Cooldown{Set: channels("a")}, Left{Set: channels("z")})
		requireStep(t, step, "cooldown")
	})

	t.Run("suppressed", func(t *testing.T) {
		quiet := rules
		quiet.SuppressLeave = true
		step := quiet.Apply(Cooldown{Set: channels("a")}, Left{Set: channels("a")})
		requireStep(t, step, "inactive", KindCancel)
	})

	t.Run("while stopped", func(t *testing.T) {
		step := rules.Apply(Stopped{Set: channels("a", "b")}, Left{Set: channels("a")})
		requireStep(t, step, "stopped")
		step = rules.Apply(step.Next, Left{Set: channels("b")})
		requireStep(t, step, "inactive")
	})
}

func TestLeftAll(t *testing.T) {
	rules := testRules()
	requireStep(t, rules.Apply(Cooldown{Set: channels("a")}, LeftAll{}), "inactive", KindCancel, KindLeave)
	requireStep(t, rules.Apply(Stopped{Set: channels("a")}, LeftAll{}), "inactive")
	requireStep(t, rules.Apply(Inactive{}, LeftAll{}), "inactive")
}

func TestHeartbeatFailures(t *testing.T) {
	rules := testRules()
	state := State(Heartbeating{Set: channels("a")})

	for attempt := 0; attempt < 2; attempt++ {
		step := rules.Apply(state, HeartbeatFailed{Err: errNetwork})
		requireStep(t, step, "reconnecting", KindCancel, KindRetryDelay)
		if delay := step.Invocations[1].(InvokeRetryDelay); delay.Delay != 5*time.Second {
			t.Fatalf("delay = %v", delay.Delay)
		}
		step = rules.Apply(step.Next, RetryDelayElapsed{})
		requireStep(t, step, "heartbeating", KindCancel, KindHeartbeat)
		if got := step.Next.(Heartbeating).Attempt; got != attempt+1 {
			t.Fatalf("attempt = %d, want %d", got, attempt+1)
		}
		state = step.Next
	}

	step := rules.Apply(state, HeartbeatFailed{Err: errNetwork})
	requireStep(t, step, "failed", KindCancel)

	step = rules.Apply(step.Next, Reconnect{})
	requireStep(t, step, "heartbeating", KindHeartbeat)
}

func TestDisconnectAndReconnect(t *testing.T) {
	rules := testRules()
	step := rules.Apply(Cooldown{Set: channels("a")}, Disconnect{})
	requireStep(t, step, "stopped", KindCancel, KindLeave)

	requireStep(t, rules.Apply(step.Next, Disconnect{}), "stopped")
	requireStep(t, rules.Apply(step.Next, TimesUp{}), "stopped")

	step = rules.Apply(step.Next, Reconnect{})
	requireStep(t, step, "heartbeating", KindHeartbeat)
	requireStep(t, rules.Apply(Inactive{}, Disconnect{}), "inactive")
}
