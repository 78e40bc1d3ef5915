// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/bureau-foundation/pubsub/transport"
)

func TestHandshakeRequest(t *testing.T) {
	options := RequestOptions{SubscribeKey: "sub-c-1", FilterExpression: "priority > 2", Heartbeat: 300 * time.Second}
	set := NewSet([]string{"b", "a b"}, []string{"g1", "g2"}).WithCursor(Cursor{Timetoken: 99, Region: 4})

	request := HandshakeRequest(options, set)
	if want := "/v2/subscribe/sub-c-1/a%20b,b/0"; request.Path != want {
		t.Errorf("path = %q, want %q", request.Path, want)
	}
	checks := map[string]string{
		"tt":            "0",
		"tr":            "4",
		"channel-group": "g1,g2",
		"filter-expr":   "priority > 2",
		"heartbeat":     "300",
	}
	for key, want := range checks {
		if got := request.Query.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}
}

func TestReceiveRequest(t *testing.T) {
	set := NewSet(nil, []string{"g"}).WithCursor(Cursor{Timetoken: 12345, Region: 0})
	request := ReceiveRequest(RequestOptions{SubscribeKey: "k", Timeout: time.Minute}, set)

	if want := "/v2/subscribe/k/,/0"; request.Path != want {
		t.Errorf("path = %q, want %q", request.Path, want)
	}
	if request.Query.Get("tt") != "12345" {
		t.Errorf("tt = %q", request.Query.Get("tt"))
	}
	if request.Query.Has("tr") {
		t.Error("zero region sent as tr")
	}
	if request.Timeout != time.Minute {
		t.Errorf("timeout = %v", request.Timeout)
	}
}

func TestLeaveRequestDropsPresenceNames(t *testing.T) {
	set := NewSet([]string{"room", "room" + PresenceSuffix}, []string{"g", "g" + PresenceSuffix})
	request := LeaveRequest(RequestOptions{SubscribeKey: "k"}, set)
	if want := "/v2/presence/sub-key/k/channel/room/leave"; request.Path != want {
		t.Errorf("path = %q, want %q", request.Path, want)
	}
	if got := request.Query.Get("channel-group"); got != "g" {
		t.Errorf("channel-group = %q", got)
	}
}

func TestDecodeResponse(t *testing.T) {
	body := []byte(`{
		"t": {"t": "17000000000000002", "r": 12},
		"m": [
			{"a": "1", "f": 0, "e": 0, "i": "alice", "p": {"t": "17000000000000001", "r": 12},
			 "c": "news", "d": {"text": "hi"}, "b": "news", "cmt": "chat", "si": "lobby"},
			{"e": 1, "c": "news", "d": "typing", "p": {"t": "17000000000000001", "r": 12}},
			{"c": "room-pnpres", "b": "room-pnpres",
			 "d": {"action": "join", "uuid": "bob", "occupancy": 2, "timestamp": 1700000000}},
			{"e": 2, "c": "room", "d": {"source": "objects", "version": "2.0", "event": "set", "type": "uuid", "data": {"id": "bob"}}},
			{"e": 3, "c": "room", "d": {"source": "actions", "version": "1.0", "event": "added",
			 "data": {"messageTimetoken": "1", "actionTimetoken": "2", "type": "reaction", "value": "smile"}}},
			{"e": 4, "c": "files", "b": "files.*", "d": {"message": "see this", "file": {"id": "f1", "name": "cat.png"}}}
		]
	}`)

	updates, cursor, err := DecodeResponse("receive", body, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cursor != (Cursor{Timetoken: 17000000000000002, Region: 12}) {
		t.Fatalf("cursor = %v", cursor)
	}
	if len(updates) != 6 {
		t.Fatalf("got %d updates", len(updates))
	}

	message := updates[0]
	if message.Kind != UpdateMessage || message.Publisher != "alice" || message.Subscription != "" ||
		message.CustomType != "chat" || message.SpaceID != "lobby" || string(message.Payload) != `{"text": "hi"}` {
		t.Errorf("message = %+v", message)
	}
	if message.Published != (Cursor{Timetoken: 17000000000000001, Region: 12}) {
		t.Errorf("published = %v", message.Published)
	}

	if updates[1].Kind != UpdateSignal {
		t.Errorf("signal kind = %s", updates[1].Kind)
	}

	presence := updates[2]
	if presence.Kind != UpdatePresence || presence.Channel != "room" || presence.Presence == nil ||
		presence.Presence.Action != "join" || presence.Presence.UserID != "bob" || presence.Presence.Occupancy != 2 {
		t.Errorf("presence = %+v (event %+v)", presence, presence.Presence)
	}

	if object := updates[3]; object.Kind != UpdateObject || object.Object == nil || object.Object.Type != "uuid" {
		t.Errorf("object = %+v", object)
	}
	if action := updates[4]; action.Kind != UpdateMessageAction || action.Action == nil || action.Action.Value != "smile" {
		t.Errorf("action = %+v", action)
	}
	file := updates[5]
	if file.Kind != UpdateFile || file.File == nil || file.File.Name != "cat.png" || file.Subscription != "files.*" {
		t.Errorf("file = %+v", file)
	}
}

func TestDecodeResponseRejectsMalformedBodies(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"m": []}`,
		`{"t": {"t": "abc", "r": 1}, "m": []}`,
	} {
		_, _, err := DecodeResponse("handshake", []byte(body), nil)
		var protocolErr *transport.ProtocolError
		if !errors.As(err, &protocolErr) {
			t.Errorf("DecodeResponse(%s) error = %v, want *transport.ProtocolError", body, err)
		}
	}
}

func TestDecodeResponseKeepsBatchOnBadEnvelope(t *testing.T) {
	body := []byte(`{"t": {"t": "5", "r": 1}, "m": [
		{"c": "room-pnpres", "d": "not an object"},
		{"c": "news", "d": 1}
	]}`)
	updates, _, err := DecodeResponse("receive", body, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(updates) != 2 || updates[0].Err == nil || updates[1].Err != nil {
		t.Fatalf("updates = %+v", updates)
	}
}

// xorDecrypter flips every byte; good enough to tell decrypted from raw.
type xorDecrypter struct{}

func (xorDecrypter) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, errors.New("empty ciphertext")
	}
	plaintext := bytes.Clone(ciphertext)
	for i := range plaintext {
		plaintext[i] ^= 0xff
	}
	return plaintext, nil
}

func encryptForTest(plaintext string) string {
	data := []byte(plaintext)
	for i := range data {
		data[i] ^= 0xff
	}
	return base64.StdEncoding.EncodeToString(data)
}

func TestDecodeResponseDecrypts(t *testing.T) {
	body := []byte(`{"t": {"t": "5", "r": 1}, "m": [
		{"c": "secure", "d": "` + encryptForTest(`{"text":"secret"}`) + `"},
		{"c": "secure", "d": "` + encryptForTest(`plain words`) + `"},
		{"c": "secure", "d": {"text": "was never encrypted"}},
		{"c": "secure", "d": ""}
	]}`)
	updates, _, err := DecodeResponse("receive", body, xorDecrypter{})
	if err != nil {
		t.Fatal(err)
	}
	if got := string(updates[0].Payload); got != `{"text":"secret"}` {
		t.Errorf("decrypted JSON payload = %s", got)
	}
	if got := string(updates[1].Payload); got != `"plain words"` {
		t.Errorf("decrypted text payload = %s", got)
	}
	if updates[2].Err == nil {
		t.Error("unencrypted object payload decoded without error")
	}
	if updates[3].Err == nil {
		t.Error("empty ciphertext decoded without error")
	}
	if string(updates[2].Payload) != `{"text": "was never encrypted"}` {
		t.Errorf("raw payload not preserved: %s", updates[2].Payload)
	}
}
