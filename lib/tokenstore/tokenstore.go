// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tokenstore holds the access token attached to every request.
//
// The token lives in a [secret.Buffer] and can be replaced at any time,
// for example when an application refreshes a grant. Requests already
// in flight keep the token they were sent with; the next request picks
// up the replacement. The token's contents are opaque here.
package tokenstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bureau-foundation/pubsub/lib/sealed"
	"github.com/bureau-foundation/pubsub/lib/secret"
)

// ErrClosed is returned by Set after Close.
var ErrClosed = errors.New("tokenstore: store is closed")

// Provider supplies the current token. It matches
// transport.TokenSource.
type Provider interface {
	Token() string
}

// Store is a replaceable token. The zero value holds no token and is
// ready to use.
type Store struct {
	mu      sync.RWMutex
	current *secret.Buffer
	closed  bool
}

// New returns a Store holding token, or an empty Store when token is
// empty.
func New(token string) (*Store, error) {
	store := &Store{}
	if token == "" {
		return store, nil
	}
	if err := store.Set([]byte(token)); err != nil {
		return nil, err
	}
	return store, nil
}

// LoadSealed opens the age-sealed token at path with the identity file
// at identityPath. Surrounding whitespace in the plaintext is dropped.
func LoadSealed(path, identityPath string) (*Store, error) {
	plaintext, err := sealed.OpenFile(path, identityPath)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: opening sealed token: %w", err)
	}
	defer plaintext.Close()

	store := &Store{}
	if err := store.Set(trimSpace(plaintext.Bytes())); err != nil {
		return nil, err
	}
	return store, nil
}

// Set replaces the token and zeroes token. An empty token clears the
// store.
func (s *Store) Set(token []byte) error {
	var replacement *secret.Buffer
	if len(token) > 0 {
		var err error
		replacement, err = secret.NewFromBytes(token)
		if err != nil {
			return fmt.Errorf("tokenstore: %w", err)
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if replacement != nil {
			replacement.Close()
		}
		return ErrClosed
	}
	previous := s.current
	s.current = replacement
	s.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	return nil
}

// Token returns the current token, or "" when none is set.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.String()
}

// Close releases the token. Token returns "" afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	return err
}

// trimSpace returns the subslice of data without surrounding ASCII
// whitespace. Unlike bytes.TrimSpace it never allocates, so no heap
// copy of the token is made.
func trimSpace(data []byte) []byte {
	start, end := 0, len(data)
	for start < end && isSpace(data[start]) {
		start++
	}
	for end > start && isSpace(data[end-1]) {
		end--
	}
	return data[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
