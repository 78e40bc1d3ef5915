// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package retry

import "strings"

// Endpoint groups REST endpoints by what they do, so a policy can
// exclude a whole group from retry.
type Endpoint int

const (
	EndpointUnknown Endpoint = iota
	EndpointMessageSend
	EndpointSubscribe
	EndpointPresence
	EndpointFiles
	EndpointMessageStorage
	EndpointChannelGroups
	EndpointDevicePush
	EndpointAppContext
	EndpointMessageReactions
)

var endpointNames = map[Endpoint]string{
	EndpointUnknown:          "unknown",
	EndpointMessageSend:      "message_send",
	EndpointSubscribe:        "subscribe",
	EndpointPresence:         "presence",
	EndpointFiles:            "files",
	EndpointMessageStorage:   "message_storage",
	EndpointChannelGroups:    "channel_groups",
	EndpointDevicePush:       "device_push",
	EndpointAppContext:       "app_context",
	EndpointMessageReactions: "message_reactions",
}

// String returns the snake_case name used in configuration files.
func (e Endpoint) String() string {
	if name, ok := endpointNames[e]; ok {
		return name
	}
	return "unknown"
}

// ParseEndpoint is the inverse of [Endpoint.String].
func ParseEndpoint(name string) (Endpoint, bool) {
	for endpoint, candidate := range endpointNames {
		if candidate == name {
			return endpoint, true
		}
	}
	return EndpointUnknown, false
}

// EndpointForPath classifies a request path.
func EndpointForPath(path string) Endpoint {
	switch {
	case strings.HasPrefix(path, "/v2/subscribe"):
		return EndpointSubscribe
	case strings.HasPrefix(path, "/publish/"), strings.HasPrefix(path, "/signal/"):
		return EndpointMessageSend
	case strings.HasPrefix(path, "/v2/presence"):
		return EndpointPresence
	case strings.HasPrefix(path, "/v2/history/"), strings.HasPrefix(path, "/v3/history/"):
		return EndpointMessageStorage
	case strings.HasPrefix(path, "/v1/message-actions/"):
		return EndpointMessageReactions
	case strings.HasPrefix(path, "/v1/channel-registration/"):
		return EndpointChannelGroups
	case strings.HasPrefix(path, "/v2/objects/"):
		return EndpointAppContext
	case strings.HasPrefix(path, "/v1/push/"), strings.HasPrefix(path, "/v2/push/"):
		return EndpointDevicePush
	case strings.HasPrefix(path, "/v1/files/"):
		return EndpointFiles
	}
	return EndpointUnknown
}
