// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenstore

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bureau-foundation/pubsub/lib/sealed"
)

var _ Provider = (*Store)(nil)

func TestStoreSetAndReplace(t *testing.T) {
	store, err := New("first")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if store.Token() != "first" {
		t.Fatalf("Token() = %q", store.Token())
	}

	replacement := []byte("second")
	if err := store.Set(replacement); err != nil {
		t.Fatal(err)
	}
	if store.Token() != "second" {
		t.Fatalf("Token() = %q", store.Token())
	}
	for _, b := range replacement {
		if b != 0 {
			t.Fatal("Set did not zero its argument")
		}
	}

	if err := store.Set(nil); err != nil {
		t.Fatal(err)
	}
	if store.Token() != "" {
		t.Fatalf("Token() after clearing = %q", store.Token())
	}
}

func TestZeroStore(t *testing.T) {
	var store Store
	if store.Token() != "" {
		t.Fatal("zero store has a token")
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStoreClose(t *testing.T) {
	store, err := New("secret-token")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if store.Token() != "" {
		t.Error("token visible after Close")
	}
	if err := store.Set([]byte("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close: err = %v, want ErrClosed", err)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store, err := New("token-0")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	var wait sync.WaitGroup
	for worker := range 4 {
		wait.Add(2)
		go func() {
			defer wait.Done()
			for range 50 {
				store.Set([]byte{'t', byte('a' + worker)})
			}
		}()
		go func() {
			defer wait.Done()
			for range 50 {
				if token := store.Token(); token != "token-0" && len(token) != 2 {
					t.Errorf("torn token %q", token)
				}
			}
		}()
	}
	wait.Wait()
}

func TestLoadSealed(t *testing.T) {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer keypair.Close()

	directory := t.TempDir()
	ciphertext, err := sealed.Seal([]byte("  sealed-token\n"), []string{keypair.PublicKey}, true)
	if err != nil {
		t.Fatal(err)
	}
	tokenPath := filepath.Join(directory, "token.age")
	identityPath := filepath.Join(directory, "identity")
	if err := os.WriteFile(tokenPath, ciphertext, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(identityPath, []byte(keypair.PrivateKey.String()), 0o600); err != nil {
		t.Fatal(err)
	}

	store, err := LoadSealed(tokenPath, identityPath)
	if err != nil {
		t.Fatalf("LoadSealed: %v", err)
	}
	defer store.Close()
	if store.Token() != "sealed-token" {
		t.Errorf("Token() = %q", store.Token())
	}

	if _, err := LoadSealed(filepath.Join(directory, "absent"), identityPath); err == nil {
		t.Error("LoadSealed of a missing file succeeded")
	}
}

func TestTrimSpace(t *testing.T) {
	cases := map[string]string{
		"token":        "token",
		" \ttoken\r\n": "token",
		"a b":          "a b",
		"   ":          "",
	}
	for input, want := range cases {
		if got := string(trimSpace([]byte(input))); got != want {
			t.Errorf("trimSpace(%q) = %q, want %q", input, got, want)
		}
	}
}
