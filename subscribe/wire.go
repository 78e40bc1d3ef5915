// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bureau-foundation/pubsub/transport"
)

// Message type codes in the "e" field of a subscribe envelope.
// Plain messages (0) take the default branch of decodeEnvelope.
const (
	typeSignal        = 1
	typeObject        = 2
	typeMessageAction = 3
	typeFile          = 4
)

// RequestOptions are the per-client parameters every subscribe-family
// request carries.
type RequestOptions struct {
	SubscribeKey string

	// FilterExpression restricts delivered messages server-side.
	FilterExpression string

	// Heartbeat is the presence timeout announced with each subscribe.
	// Zero omits the parameter and the service default applies.
	Heartbeat time.Duration

	// Timeout bounds the request. Receives need a value longer than
	// the service's long-poll hold.
	Timeout time.Duration
}

// HandshakeRequest builds the request that fetches a starting cursor for
// set. A resume cursor contributes only its region; the timetoken is
// restored locally once the handshake answers.
func HandshakeRequest(options RequestOptions, set Set) transport.Request {
	query := subscribeQuery(options, set)
	query.Set("tt", "0")
	if region := set.Cursor().Region; region != 0 {
		query.Set("tr", strconv.FormatUint(uint64(region), 10))
	}
	return transport.Request{
		Method:  http.MethodGet,
		Path:    subscribePath(options.SubscribeKey, set.Channels()),
		Query:   query,
		Timeout: options.Timeout,
	}
}

// ReceiveRequest builds the long-poll request for updates after
// set.Cursor().
func ReceiveRequest(options RequestOptions, set Set) transport.Request {
	query := subscribeQuery(options, set)
	cursor := set.Cursor()
	query.Set("tt", strconv.FormatUint(cursor.Timetoken, 10))
	if cursor.Region != 0 {
		query.Set("tr", strconv.FormatUint(uint64(cursor.Region), 10))
	}
	return transport.Request{
		Method:  http.MethodGet,
		Path:    subscribePath(options.SubscribeKey, set.Channels()),
		Query:   query,
		Timeout: options.Timeout,
	}
}

// LeaveRequest builds the presence leave announcement for set. Presence
// companion names are never included.
func LeaveRequest(options RequestOptions, set Set) transport.Request {
	set = set.WithoutPresence()
	query := url.Values{}
	if groups := set.Groups(); len(groups) > 0 {
		query.Set("channel-group", strings.Join(groups, ","))
	}
	return transport.Request{
		Method:  http.MethodGet,
		Path:    "/v2/presence/sub-key/" + url.PathEscape(options.SubscribeKey) + "/channel/" + pathList(set.Channels()) + "/leave",
		Query:   query,
		Timeout: options.Timeout,
	}
}

func subscribePath(subscribeKey string, channels []string) string {
	return "/v2/subscribe/" + url.PathEscape(subscribeKey) + "/" + pathList(channels) + "/0"
}

func subscribeQuery(options RequestOptions, set Set) url.Values {
	query := url.Values{}
	if groups := set.Groups(); len(groups) > 0 {
		query.Set("channel-group", strings.Join(groups, ","))
	}
	if options.FilterExpression != "" {
		query.Set("filter-expr", options.FilterExpression)
	}
	if options.Heartbeat > 0 {
		query.Set("heartbeat", strconv.Itoa(int(options.Heartbeat/time.Second)))
	}
	return query
}

// pathList joins escaped names with commas. An empty list is a single
// comma, which the service reads as "no channels".
func pathList(names []string) string {
	if len(names) == 0 {
		return ","
	}
	escaped := make([]string, len(names))
	for i, name := range names {
		escaped[i] = url.PathEscape(name)
	}
	return strings.Join(escaped, ",")
}

// wireCursor is the {"t": "<timetoken>", "r": <region>} object.
type wireCursor struct {
	Timetoken string `json:"t"`
	Region    uint32 `json:"r"`
}

func (w wireCursor) cursor() (Cursor, error) {
	timetoken, err := strconv.ParseUint(w.Timetoken, 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("timetoken %q: %w", w.Timetoken, err)
	}
	return Cursor{Timetoken: timetoken, Region: w.Region}, nil
}

type wireResponse struct {
	Cursor   *wireCursor    `json:"t"`
	Messages []wireEnvelope `json:"m"`
}

type wireEnvelope struct {
	Shard        string          `json:"a"`
	Flags        int             `json:"f"`
	Type         int             `json:"e"`
	Publisher    string          `json:"i"`
	Sequence     int64           `json:"s"`
	Published    wireCursor      `json:"p"`
	Channel      string          `json:"c"`
	Payload      json.RawMessage `json:"d"`
	Subscription string          `json:"b"`
	UserMeta     json.RawMessage `json:"u"`
	CustomType   string          `json:"cmt"`
	SpaceID      string          `json:"si"`
}

type wirePresence struct {
	Action    string          `json:"action"`
	UUID      string          `json:"uuid"`
	Occupancy int             `json:"occupancy"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Join      []string        `json:"join"`
	Leave     []string        `json:"leave"`
	Timeout   []string        `json:"timeout"`
}

type wireObject struct {
	Source  string          `json:"source"`
	Version string          `json:"version"`
	Event   string          `json:"event"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

type wireMessageAction struct {
	Source  string `json:"source"`
	Version string `json:"version"`
	Event   string `json:"event"`
	Data    struct {
		MessageTimetoken string `json:"messageTimetoken"`
		ActionTimetoken  string `json:"actionTimetoken"`
		Type             string `json:"type"`
		Value            string `json:"value"`
	} `json:"data"`
}

type wireFile struct {
	Message json.RawMessage `json:"message"`
	File    struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"file"`
}

// Decrypter decrypts message payloads.
type Decrypter interface {
	Decrypt(ciphertext []byte) ([]byte, error)
}

// DecodeResponse parses a handshake or receive response body. A body
// that is not a subscribe response is a *transport.ProtocolError. An
// individual envelope that cannot be decoded or decrypted becomes an
// Update with Err set; the rest of the batch is unaffected.
func DecodeResponse(operation string, body []byte, decrypter Decrypter) ([]Update, Cursor, error) {
	var response wireResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, Cursor{}, &transport.ProtocolError{Operation: operation, Reason: "invalid JSON", Body: body, Err: err}
	}
	if response.Cursor == nil {
		return nil, Cursor{}, &transport.ProtocolError{Operation: operation, Reason: `missing "t" cursor`, Body: body}
	}
	cursor, err := response.Cursor.cursor()
	if err != nil {
		return nil, Cursor{}, &transport.ProtocolError{Operation: operation, Reason: "invalid cursor", Body: body, Err: err}
	}

	updates := make([]Update, 0, len(response.Messages))
	for _, envelope := range response.Messages {
		updates = append(updates, decodeEnvelope(envelope, decrypter))
	}
	return updates, cursor, nil
}

func decodeEnvelope(envelope wireEnvelope, decrypter Decrypter) Update {
	update := Update{
		Channel:    envelope.Channel,
		Publisher:  envelope.Publisher,
		Payload:    envelope.Payload,
		CustomType: envelope.CustomType,
		SpaceID:    envelope.SpaceID,
	}
	if envelope.Subscription != envelope.Channel {
		update.Subscription = envelope.Subscription
	}
	var err error
	if envelope.Published.Timetoken != "" {
		if update.Published, err = envelope.Published.cursor(); err != nil {
			update.Err = fmt.Errorf("subscribe: envelope on %q: publish %w", envelope.Channel, err)
		}
	}

	switch {
	case strings.HasSuffix(envelope.Channel, PresenceSuffix):
		update.Kind = UpdatePresence
		update.Channel = strings.TrimSuffix(envelope.Channel, PresenceSuffix)
		update.Subscription = strings.TrimSuffix(update.Subscription, PresenceSuffix)
		var presence wirePresence
		if err := json.Unmarshal(envelope.Payload, &presence); err != nil {
			update.Err = envelopeError(envelope, "presence", err)
			return update
		}
		update.Presence = &PresenceEvent{
			Action:    presence.Action,
			UserID:    presence.UUID,
			Occupancy: presence.Occupancy,
			Timestamp: presence.Timestamp,
			State:     presence.Data,
			Join:      presence.Join,
			Leave:     presence.Leave,
			Timeout:   presence.Timeout,
		}
	case envelope.Type == typeObject:
		update.Kind = UpdateObject
		var object wireObject
		if err := json.Unmarshal(envelope.Payload, &object); err != nil {
			update.Err = envelopeError(envelope, "object", err)
			return update
		}
		update.Object = &ObjectEvent{
			Event:   object.Event,
			Type:    object.Type,
			Source:  object.Source,
			Version: object.Version,
			Data:    object.Data,
		}
	case envelope.Type == typeMessageAction:
		update.Kind = UpdateMessageAction
		var action wireMessageAction
		if err := json.Unmarshal(envelope.Payload, &action); err != nil {
			update.Err = envelopeError(envelope, "message action", err)
			return update
		}
		update.Action = &MessageActionEvent{
			Event:            action.Event,
			Type:             action.Data.Type,
			Value:            action.Data.Value,
			MessageTimetoken: action.Data.MessageTimetoken,
			ActionTimetoken:  action.Data.ActionTimetoken,
		}
	case envelope.Type == typeFile:
		update.Kind = UpdateFile
		var file wireFile
		if err := json.Unmarshal(envelope.Payload, &file); err != nil {
			update.Err = envelopeError(envelope, "file", err)
			return update
		}
		message := file.Message
		if decrypter != nil && len(message) > 0 {
			if message, err = decryptPayload(message, decrypter); err != nil {
				update.Err = err
				message = file.Message
			}
		}
		update.File = &FileEvent{ID: file.File.ID, Name: file.File.Name, Message: message}
	case envelope.Type == typeSignal:
		update.Kind = UpdateSignal
	default:
		update.Kind = UpdateMessage
		if decrypter != nil {
			plaintext, err := decryptPayload(envelope.Payload, decrypter)
			if err != nil {
				update.Err = err
				return update
			}
			update.Payload = plaintext
		}
	}
	return update
}

// decryptPayload decrypts a JSON string holding base64 ciphertext. The
// plaintext is returned as is when it is JSON and as a JSON string
// otherwise.
func decryptPayload(payload json.RawMessage, decrypter Decrypter) (json.RawMessage, error) {
	var encoded string
	if err := json.Unmarshal(payload, &encoded); err != nil {
		return nil, fmt.Errorf("subscribe: encrypted payload is not a JSON string: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("subscribe: encrypted payload is not base64: %w", err)
	}
	plaintext, err := decrypter.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}
	if json.Valid(plaintext) {
		return plaintext, nil
	}
	quoted, err := json.Marshal(string(plaintext))
	if err != nil {
		return nil, fmt.Errorf("subscribe: re-encoding plaintext: %w", err)
	}
	return quoted, nil
}

func envelopeError(envelope wireEnvelope, what string, err error) error {
	return fmt.Errorf("subscribe: undecodable %s payload on %q: %w", what, envelope.Channel, err)
}
