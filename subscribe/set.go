// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// PresenceSuffix marks the companion channel that carries presence
// events for a channel or group.
const PresenceSuffix = "-pnpres"

var (
	// ErrEmptyRequest is returned by mutations that name no channels
	// and no groups.
	ErrEmptyRequest = errors.New("subscribe: request names no channels or groups")

	// ErrInvalidName is returned for an empty name or one containing a
	// comma, which the wire format uses as a list separator.
	ErrInvalidName = errors.New("subscribe: invalid channel or group name")
)

// Set is an immutable set of channel and channel-group names plus the
// cursor the stream for those names has reached. Operations return new
// Sets; the zero Set is empty.
type Set struct {
	channels []string
	groups   []string
	cursor   Cursor
}

// NewSet builds a Set from names, dropping duplicates.
func NewSet(channels, groups []string) Set {
	return Set{channels: normalize(channels), groups: normalize(groups)}
}

// Channels returns the channel names in sorted order.
func (s Set) Channels() []string { return slices.Clone(s.channels) }

// Groups returns the channel-group names in sorted order.
func (s Set) Groups() []string { return slices.Clone(s.groups) }

// Cursor returns the stream position of the set.
func (s Set) Cursor() Cursor { return s.cursor }

// IsEmpty reports whether the set names nothing.
func (s Set) IsEmpty() bool { return len(s.channels) == 0 && len(s.groups) == 0 }

// HasChannel reports whether name is one of the set's channels.
func (s Set) HasChannel(name string) bool {
	_, found := slices.BinarySearch(s.channels, name)
	return found
}

// HasGroup reports whether name is one of the set's groups.
func (s Set) HasGroup(name string) bool {
	_, found := slices.BinarySearch(s.groups, name)
	return found
}

// SameNames reports whether s and other name the same channels and
// groups, ignoring cursors.
func (s Set) SameNames(other Set) bool {
	return slices.Equal(s.channels, other.channels) && slices.Equal(s.groups, other.groups)
}

// WithCursor returns s positioned at cursor.
func (s Set) WithCursor(cursor Cursor) Set {
	s.cursor = cursor
	return s
}

// Add returns s plus the given names.
func (s Set) Add(channels, groups []string) Set {
	return Set{
		channels: normalize(append(slices.Clone(s.channels), channels...)),
		groups:   normalize(append(slices.Clone(s.groups), groups...)),
		cursor:   s.cursor,
	}
}

// Remove returns s without the given names. Absent names are ignored.
func (s Set) Remove(channels, groups []string) Set {
	return Set{
		channels: without(s.channels, channels),
		groups:   without(s.groups, groups),
		cursor:   s.cursor,
	}
}

// Union returns the names of both sets at s's cursor.
func (s Set) Union(other Set) Set {
	return s.Add(other.channels, other.groups)
}

// Difference returns the names of s that other does not have, at s's
// cursor.
func (s Set) Difference(other Set) Set {
	return s.Remove(other.channels, other.groups)
}

// WithoutPresence drops the presence companion names. Heartbeat and
// leave requests only ever name the real channels and groups.
func (s Set) WithoutPresence() Set {
	keep := func(names []string) []string {
		var kept []string
		for _, name := range names {
			if !strings.HasSuffix(name, PresenceSuffix) {
				kept = append(kept, name)
			}
		}
		return kept
	}
	return Set{channels: keep(s.channels), groups: keep(s.groups), cursor: s.cursor}
}

// String renders the names for logs.
func (s Set) String() string {
	return fmt.Sprintf("channels=%v groups=%v cursor=%s", s.channels, s.groups, s.cursor)
}

// validateRequest checks a mutation request before anything is changed.
func validateRequest(channels, groups []string) error {
	if len(channels) == 0 && len(groups) == 0 {
		return ErrEmptyRequest
	}
	for _, name := range slices.Concat(channels, groups) {
		if err := validateName(name); err != nil {
			return err
		}
	}
	return nil
}

func validateName(name string) error {
	if name == "" || strings.ContainsRune(name, ',') {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func normalize(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

func without(names, remove []string) []string {
	var kept []string
	for _, name := range names {
		if !slices.Contains(remove, name) {
			kept = append(kept, name)
		}
	}
	return kept
}
