// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pubsub

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/pubsub/lib/config"
	"github.com/bureau-foundation/pubsub/lib/sealed"
	"github.com/bureau-foundation/pubsub/lib/testutil"
	"github.com/bureau-foundation/pubsub/subscribe"
	"github.com/bureau-foundation/pubsub/transport"
)

const waitTimeout = 5 * time.Second

// fakeService answers handshakes at cursor 100:1, hands out queued
// receive bodies one per long-poll and holds the poll open otherwise.
type fakeService struct {
	requests chan transport.Request
	batches  chan string
}

func newFakeService() *fakeService {
	return &fakeService{
		requests: make(chan transport.Request, 256),
		batches:  make(chan string, 16),
	}
}

func (s *fakeService) Execute(ctx context.Context, request transport.Request) (*transport.Response, error) {
	select {
	case s.requests <- request:
	default:
	}
	respond := func(body string) (*transport.Response, error) {
		return &transport.Response{StatusCode: 200, Body: []byte(body)}, nil
	}
	switch {
	case strings.HasSuffix(request.Path, "/heartbeat"), strings.HasSuffix(request.Path, "/leave"):
		return respond(`{"status": 200, "message": "OK", "service": "Presence"}`)
	case strings.HasPrefix(request.Path, "/v2/subscribe/"):
		if request.Query.Get("tt") == "0" {
			return respond(`{"t": {"t": "100", "r": 1}, "m": []}`)
		}
		select {
		case body := <-s.batches:
			return respond(body)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("unexpected request %s", request.Path)
}

// requestTo waits for the next request whose path ends with suffix.
func (s *fakeService) requestTo(t *testing.T, suffix string) transport.Request {
	t.Helper()
	for {
		request := testutil.RequireReceive(t, s.requests, waitTimeout, "waiting for a request to *%s", suffix)
		if strings.HasSuffix(request.Path, suffix) {
			return request
		}
	}
}

// drained returns every request already made.
func (s *fakeService) drained() []transport.Request {
	var requests []transport.Request
	for {
		select {
		case request := <-s.requests:
			requests = append(requests, request)
		default:
			return requests
		}
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Keys.SubscribeKey = "sub-c-test"
	cfg.UserID = "alice"
	cfg.Retry.Policy = "none"
	return cfg
}

type capture struct {
	statuses chan subscribe.Status
	updates  chan subscribe.Update
}

func listen(client *Client) *capture {
	c := &capture{
		statuses: make(chan subscribe.Status, 16),
		updates:  make(chan subscribe.Update, 16),
	}
	client.AddListener(subscribe.ListenerFuncs{
		Status: func(status subscribe.Status) { c.statuses <- status },
		Update: func(update subscribe.Update) { c.updates <- update },
	})
	return c
}

func newClient(t *testing.T, cfg *config.Config, service *fakeService, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.DiscardLogger())}, opts...)
	client, err := New(cfg, service, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.UserID = ""
	if _, err := New(cfg, newFakeService()); err == nil || !strings.Contains(err.Error(), "user_id") {
		t.Fatalf("err = %v, want a user_id error", err)
	}
}

func TestClientDeliversUpdates(t *testing.T) {
	service := newFakeService()
	cfg := testConfig()
	cfg.Auth.Token = "grant-token"
	registry := prometheus.NewRegistry()
	client := newClient(t, cfg, service, WithRegisterer(registry))
	captured := listen(client)

	if _, err := client.Subscribe([]string{"news"}, nil); err != nil {
		t.Fatal(err)
	}

	handshake := service.requestTo(t, "/news/0")
	checks := map[string]string{"uuid": "alice", "auth": "grant-token", "tt": "0", "heartbeat": "300"}
	for key, want := range checks {
		if got := handshake.Query.Get(key); got != want {
			t.Errorf("handshake %s = %q, want %q", key, got, want)
		}
	}
	if !strings.HasPrefix(handshake.Query.Get("pnsdk"), "PubSub-Go/") {
		t.Errorf("pnsdk = %q", handshake.Query.Get("pnsdk"))
	}
	if handshake.Query.Get("requestid") == "" {
		t.Error("handshake has no requestid")
	}

	status := testutil.RequireReceive(t, captured.statuses, waitTimeout, "waiting for connected status")
	if status.Category != subscribe.StatusConnected {
		t.Fatalf("status = %v, want connected", status.Category)
	}

	message := `{"c": "news", "i": "bob", "p": {"t": "150", "r": 1}, "d": {"text": "hi"}}`
	service.batches <- `{"t": {"t": "200", "r": 1}, "m": [` + message + `, ` + message + `]}`

	update := testutil.RequireReceive(t, captured.updates, waitTimeout, "waiting for the message")
	if update.Channel != "news" || update.Publisher != "bob" || string(update.Payload) != `{"text": "hi"}` {
		t.Errorf("update = %+v", update)
	}
	testutil.RequireNoReceive(t, captured.updates, 100*time.Millisecond, "replayed message delivered twice")

	if first := service.requestTo(t, "/news/0"); first.Query.Get("tt") != "100" {
		t.Errorf("first receive from tt=%s, want 100", first.Query.Get("tt"))
	}
	receive := service.requestTo(t, "/news/0")
	if receive.Query.Get("tt") != "200" {
		t.Errorf("next receive from tt=%s, want 200", receive.Query.Get("tt"))
	}
	if got := client.CurrentCursor(); got != (subscribe.Cursor{Timetoken: 200, Region: 1}) {
		t.Errorf("CurrentCursor() = %v", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "pubsub_engine_updates_total" {
			found = true
		}
	}
	if !found {
		t.Error("updates counter not registered")
	}
}

func TestClientMirrorsPresence(t *testing.T) {
	service := newFakeService()
	cfg := testConfig()
	cfg.Subscribe.HeartbeatInterval = "30s"
	client := newClient(t, cfg, service)

	set := client.NewSubscriptionSet(subscribe.Channel("room").WithPresence())
	if err := set.Subscribe(); err != nil {
		t.Fatal(err)
	}

	heartbeat := service.requestTo(t, "/heartbeat")
	if want := "/v2/presence/sub-key/sub-c-test/channel/room/heartbeat"; heartbeat.Path != want {
		t.Errorf("heartbeat path = %q, want %q", heartbeat.Path, want)
	}
	if client.PresenceState() == nil {
		t.Fatal("presence engine not running")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var leaves []string
	for _, request := range service.drained() {
		if strings.HasSuffix(request.Path, "/leave") {
			leaves = append(leaves, request.Path)
		}
	}
	if len(leaves) != 1 || leaves[0] != "/v2/presence/sub-key/sub-c-test/channel/room/leave" {
		t.Errorf("leaves = %v, want exactly one for room", leaves)
	}
}

func TestClientWithoutPresenceLeavesOnClose(t *testing.T) {
	service := newFakeService()
	client := newClient(t, testConfig(), service)
	if client.PresenceState() != nil {
		t.Fatal("presence engine running with a zero heartbeat interval")
	}
	if _, err := client.Subscribe([]string{"lobby"}, nil); err != nil {
		t.Fatal(err)
	}
	service.requestTo(t, "/lobby/0")

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	leaves := 0
	for _, request := range service.drained() {
		if strings.HasSuffix(request.Path, "/leave") {
			leaves++
		}
	}
	if leaves != 1 {
		t.Errorf("leave requests = %d, want 1", leaves)
	}
}

func TestClientClose(t *testing.T) {
	client := newClient(t, testConfig(), newFakeService())
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := client.Subscribe([]string{"a"}, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe after Close: err = %v, want ErrClosed", err)
	}
}

func TestClientDecryptsPayloads(t *testing.T) {
	service := newFakeService()
	cfg := testConfig()
	cfg.Crypto.Key = "enigma"
	client := newClient(t, cfg, service)
	captured := listen(client)

	ciphertext, err := client.Encrypt([]byte(`{"text":"secret"}`))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := client.Subscribe([]string{"vault"}, nil); err != nil {
		t.Fatal(err)
	}
	testutil.RequireReceive(t, captured.statuses, waitTimeout, "waiting for connected status")

	encoded := base64.StdEncoding.EncodeToString(ciphertext)
	service.batches <- `{"t": {"t": "300", "r": 1}, "m": [{"c": "vault", "p": {"t": "250", "r": 1}, "d": "` + encoded + `"}]}`

	update := testutil.RequireReceive(t, captured.updates, waitTimeout, "waiting for the encrypted message")
	if update.Err != nil {
		t.Fatalf("update error: %v", update.Err)
	}
	if string(update.Payload) != `{"text":"secret"}` {
		t.Errorf("payload = %s", update.Payload)
	}
}

func TestClientEncryptWithoutKey(t *testing.T) {
	client := newClient(t, testConfig(), newFakeService())
	if _, err := client.Encrypt([]byte("x")); err == nil {
		t.Fatal("Encrypt without a key succeeded")
	}
}

func TestClientSealedToken(t *testing.T) {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer keypair.Close()

	directory := t.TempDir()
	ciphertext, err := sealed.Seal([]byte("sealed-grant\n"), []string{keypair.PublicKey}, false)
	if err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.Auth.TokenFile = filepath.Join(directory, "token.age")
	cfg.Auth.IdentityFile = filepath.Join(directory, "identity")
	if err := os.WriteFile(cfg.Auth.TokenFile, ciphertext, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Auth.IdentityFile, []byte(keypair.PrivateKey.String()), 0o600); err != nil {
		t.Fatal(err)
	}

	service := newFakeService()
	client := newClient(t, cfg, service)
	if _, err := client.Subscribe([]string{"news"}, nil); err != nil {
		t.Fatal(err)
	}
	if got := service.requestTo(t, "/news/0").Query.Get("auth"); got != "sealed-grant" {
		t.Errorf("auth = %q, want the unsealed token", got)
	}

	if err := client.SetToken("rotated"); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Subscribe([]string{"sports"}, nil); err != nil {
		t.Fatal(err)
	}
	if got := service.requestTo(t, "/news,sports/0").Query.Get("auth"); got != "rotated" {
		t.Errorf("auth after SetToken = %q", got)
	}
}
