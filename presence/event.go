// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import "github.com/bureau-foundation/pubsub/subscribe"

// Event is an input to the presence machine.
type Event interface {
	eventName() string
}

// Joined adds names to the announced set.
type Joined struct{ Set subscribe.Set }

// Left removes names from the announced set.
type Left struct{ Set subscribe.Set }

// LeftAll removes every name.
type LeftAll struct{}

// HeartbeatSucceeded is the outcome of a heartbeat the service accepted.
type HeartbeatSucceeded struct{}

// HeartbeatFailed is the outcome of a heartbeat that failed.
type HeartbeatFailed struct{ Err error }

// TimesUp ends a Cooldown.
type TimesUp struct{}

// RetryDelayElapsed ends a Reconnecting wait.
type RetryDelayElapsed struct{}

// Disconnect stops heartbeating and announces a leave.
type Disconnect struct{}

// Reconnect resumes heartbeating after Disconnect or a give-up.
type Reconnect struct{}

func (Joined) eventName() string             { return "joined" }
func (Left) eventName() string               { return "left" }
func (LeftAll) eventName() string            { return "left_all" }
func (HeartbeatSucceeded) eventName() string { return "heartbeat_succeeded" }
func (HeartbeatFailed) eventName() string    { return "heartbeat_failed" }
func (TimesUp) eventName() string            { return "times_up" }
func (RetryDelayElapsed) eventName() string  { return "retry_delay_elapsed" }
func (Disconnect) eventName() string         { return "disconnect" }
func (Reconnect) eventName() string          { return "reconnect" }

// EventName returns the snake_case name of event.
func EventName(event Event) string { return event.eventName() }
