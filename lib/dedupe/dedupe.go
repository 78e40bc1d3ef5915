// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dedupe drops updates the client has already delivered.
//
// A receive that is retried after a network failure, or a re-handshake
// that resumes from a saved cursor, can replay updates near the
// boundary. Filter remembers a fingerprint of the most recent updates
// in a bounded LRU and reports repeats.
package dedupe

import (
	"encoding/binary"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/pubsub/subscribe"
)

// Fingerprint identifies one update.
type Fingerprint [32]byte

// fingerprintKey separates update fingerprints from any other keyed
// BLAKE3 use: the ASCII domain name zero-padded to 32 bytes.
var fingerprintKey = [32]byte{
	'p', 'u', 'b', 's', 'u', 'b', '.', 'd', 'e', 'd', 'u', 'p', 'e', '.',
	'u', 'p', 'd', 'a', 't', 'e',
}

// Of fingerprints update from its channel, publish cursor, publisher,
// kind and payload. Each variable-length field is length-prefixed so
// field boundaries cannot shift.
func Of(update subscribe.Update) Fingerprint {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("dedupe: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	var scratch [8]byte
	writeField := func(field []byte) {
		binary.BigEndian.PutUint64(scratch[:], uint64(len(field)))
		hasher.Write(scratch[:])
		hasher.Write(field)
	}
	writeField([]byte(update.Channel))
	writeField([]byte(update.Publisher))
	binary.BigEndian.PutUint64(scratch[:], update.Published.Timetoken)
	hasher.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], uint64(update.Published.Region)<<8|uint64(update.Kind))
	hasher.Write(scratch[:])
	writeField(update.Payload)

	var fingerprint Fingerprint
	copy(fingerprint[:], hasher.Sum(nil))
	return fingerprint
}

// Filter reports updates seen within its last size fingerprints. It
// is safe for concurrent use.
type Filter struct {
	recent *lru.Cache[Fingerprint, struct{}]
}

// New returns a Filter that remembers size updates.
func New(size int) (*Filter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("dedupe: cache size must be positive, got %d", size)
	}
	recent, err := lru.New[Fingerprint, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("dedupe: %w", err)
	}
	return &Filter{recent: recent}, nil
}

// Seen records update and reports whether it was already recorded.
// Updates without a publish cursor cannot be told apart from genuine
// repeats and are never reported.
func (f *Filter) Seen(update subscribe.Update) bool {
	if update.Published.IsZero() {
		return false
	}
	found, _ := f.recent.ContainsOrAdd(Of(update), struct{}{})
	return found
}

// Len returns the number of fingerprints remembered.
func (f *Filter) Len() int { return f.recent.Len() }
