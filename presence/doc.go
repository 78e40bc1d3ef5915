// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package presence announces that a user is present on channels by
// sending periodic heartbeats, and announces departures with leave
// requests.
//
// Like package subscribe, it is a pure state machine ([Rules.Apply])
// driven by a serialized runtime ([Engine]) built on lib/effect:
//
//	Inactive -> Heartbeating <-> Cooldown
//	                 |
//	                 v
//	           Reconnecting -> Failed
//
// Heartbeating sends one heartbeat; Cooldown waits out the interval;
// Reconnecting waits out a retry delay after a failure. Disconnect
// parks the engine in Stopped without forgetting the channels.
package presence
