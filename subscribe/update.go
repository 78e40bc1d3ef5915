// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"encoding/json"
	"fmt"
)

// UpdateKind classifies a delivered Update.
type UpdateKind int

const (
	UpdateMessage UpdateKind = iota
	UpdateSignal
	UpdatePresence
	UpdateObject
	UpdateMessageAction
	UpdateFile
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateMessage:
		return "message"
	case UpdateSignal:
		return "signal"
	case UpdatePresence:
		return "presence"
	case UpdateObject:
		return "object"
	case UpdateMessageAction:
		return "message_action"
	case UpdateFile:
		return "file"
	}
	return fmt.Sprintf("UpdateKind(%d)", int(k))
}

// Update is one real-time event from the service. Exactly one of the
// kind-specific pointers is set for presence, object, message-action
// and file updates; messages and signals carry only Payload.
type Update struct {
	Kind UpdateKind

	// Channel is the channel the update was published to.
	Channel string

	// Subscription is the channel group or wildcard through which the
	// update matched, or empty when the channel was subscribed directly.
	Subscription string

	// Publisher is the user id of the sender, when the service knows it.
	Publisher string

	// Published is the update's own position in the stream.
	Published Cursor

	// Payload is the JSON body, decrypted when a crypto module is
	// configured.
	Payload json.RawMessage

	// CustomType is the publisher-supplied message type, if any.
	CustomType string

	// SpaceID is the publisher-supplied space, if any.
	SpaceID string

	Presence *PresenceEvent
	Object   *ObjectEvent
	Action   *MessageActionEvent
	File     *FileEvent

	// Err is set when this update could not be decoded or decrypted.
	// The stream continues; Payload then holds the raw body.
	Err error
}

// PresenceEvent is an occupancy change on a channel.
type PresenceEvent struct {
	// Action is join, leave, timeout, state-change or interval.
	Action    string
	UserID    string
	Occupancy int
	Timestamp int64
	State     json.RawMessage

	// Join, Leave and Timeout list user ids for interval events.
	Join    []string
	Leave   []string
	Timeout []string
}

// ObjectEvent reports a change to app-context metadata.
type ObjectEvent struct {
	// Event is set or delete.
	Event string

	// Type is channel, uuid or membership.
	Type    string
	Source  string
	Version string
	Data    json.RawMessage
}

// MessageActionEvent reports a reaction added to or removed from a
// message.
type MessageActionEvent struct {
	Event            string
	Type             string
	Value            string
	MessageTimetoken string
	ActionTimetoken  string
}

// FileEvent announces a file shared on a channel.
type FileEvent struct {
	ID      string
	Name    string
	Message json.RawMessage
}

// StatusCategory is the kind of connection change a Status reports.
type StatusCategory int

const (
	StatusConnected StatusCategory = iota
	StatusDisconnected
	StatusConnectionError
	StatusSubscriptionChanged
)

func (c StatusCategory) String() string {
	switch c {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusConnectionError:
		return "connection_error"
	case StatusSubscriptionChanged:
		return "subscription_changed"
	}
	return fmt.Sprintf("StatusCategory(%d)", int(c))
}

// Status reports a change in the connection.
type Status struct {
	Category StatusCategory

	// Channels and Groups are the names subscribed when the status was
	// produced.
	Channels []string
	Groups   []string

	// Cursor is the stream position at the time of the change.
	Cursor Cursor

	// Err is the final failure for StatusConnectionError.
	Err error
}

func statusFor(category StatusCategory, set Set, err error) Status {
	return Status{
		Category: category,
		Channels: set.Channels(),
		Groups:   set.Groups(),
		Cursor:   set.Cursor(),
		Err:      err,
	}
}
