// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pubsub is the client entry point. [New] assembles the pieces
// the rest of the module provides from one config.Config:
//
//	transport (HTTP, gzip)          lib/tokenstore (access token)
//	   └─ transport.Middleware ─────────┘
//	        ├─ subscribe.Engine   ← lib/cryptomodule, lib/dedupe, lib/metrics
//	        └─ presence.Engine    (when a heartbeat interval is set)
//
// Subscription changes made through the Client are mirrored into the
// presence engine, minus presence companion channels, so heartbeats
// always cover what the user is subscribed to. When the presence
// engine runs it owns leave announcements; otherwise the subscribe
// engine sends them on unsubscribe.
//
// A Client is safe for concurrent use. Close it to stop both engines
// and release the token and cipher keys.
package pubsub
