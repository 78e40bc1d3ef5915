// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"time"

	"github.com/bureau-foundation/pubsub/subscribe"
)

// State is one presence state. The set of states is closed.
type State interface {
	Name() string

	// Present returns the channels and groups the user is announced
	// on.
	Present() subscribe.Set
}

// Inactive announces nothing.
type Inactive struct{}

// Heartbeating has a heartbeat in flight.
type Heartbeating struct {
	Set     subscribe.Set
	Attempt int
}

// Cooldown waits for the next heartbeat.
type Cooldown struct {
	Set subscribe.Set
}

// Reconnecting waits Delay before retrying a failed heartbeat.
type Reconnecting struct {
	Set     subscribe.Set
	Attempt int
	Reason  error
	Delay   time.Duration
}

// Stopped keeps the set but sends nothing until Reconnect.
type Stopped struct {
	Set subscribe.Set
}

// Failed is a heartbeat the retry policy gave up on.
type Failed struct {
	Set    subscribe.Set
	Reason error
}

func (Inactive) Name() string     { return "inactive" }
func (Heartbeating) Name() string { return "heartbeating" }
func (Cooldown) Name() string     { return "cooldown" }
func (Reconnecting) Name() string { return "reconnecting" }
func (Stopped) Name() string      { return "stopped" }
func (Failed) Name() string       { return "failed" }

func (Inactive) Present() subscribe.Set       { return subscribe.Set{} }
func (s Heartbeating) Present() subscribe.Set { return s.Set }
func (s Cooldown) Present() subscribe.Set     { return s.Set }
func (s Reconnecting) Present() subscribe.Set { return s.Set }
func (s Stopped) Present() subscribe.Set      { return s.Set }
func (s Failed) Present() subscribe.Set       { return s.Set }
