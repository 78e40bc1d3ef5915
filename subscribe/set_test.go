// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"errors"
	"slices"
	"testing"
)

func TestSetNormalizes(t *testing.T) {
	set := NewSet([]string{"b", "a", "b"}, []string{"g", "g"})
	if got := set.Channels(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Channels() = %v", got)
	}
	if got := set.Groups(); !slices.Equal(got, []string{"g"}) {
		t.Errorf("Groups() = %v", got)
	}
	if !set.HasChannel("a") || set.HasChannel("g") || !set.HasGroup("g") {
		t.Error("membership checks disagree with contents")
	}
}

func TestSetOperationsAreImmutable(t *testing.T) {
	base := NewSet([]string{"a"}, nil).WithCursor(Cursor{Timetoken: 5})

	added := base.Add([]string{"b"}, []string{"g"})
	if !slices.Equal(base.Channels(), []string{"a"}) {
		t.Fatalf("Add modified receiver: %v", base.Channels())
	}
	if added.Cursor() != base.Cursor() {
		t.Error("Add dropped the cursor")
	}

	removed := added.Remove([]string{"a", "missing"}, nil)
	if !slices.Equal(removed.Channels(), []string{"b"}) || !slices.Equal(removed.Groups(), []string{"g"}) {
		t.Errorf("Remove = %v", removed)
	}

	// Channels returns a copy.
	channels := added.Channels()
	channels[0] = "mutated"
	if added.Channels()[0] != "a" {
		t.Error("Channels exposed internal storage")
	}
}

func TestSetUnionDifference(t *testing.T) {
	left := NewSet([]string{"a", "b"}, []string{"g"})
	right := NewSet([]string{"b", "c"}, nil)

	if union := left.Union(right); !slices.Equal(union.Channels(), []string{"a", "b", "c"}) {
		t.Errorf("Union channels = %v", union.Channels())
	}
	difference := left.Difference(right)
	if !slices.Equal(difference.Channels(), []string{"a"}) || !slices.Equal(difference.Groups(), []string{"g"}) {
		t.Errorf("Difference = %v", difference)
	}
}

func TestSetSameNamesIgnoresCursor(t *testing.T) {
	a := NewSet([]string{"x"}, nil).WithCursor(Cursor{Timetoken: 1})
	b := NewSet([]string{"x"}, nil).WithCursor(Cursor{Timetoken: 2})
	if !a.SameNames(b) {
		t.Error("SameNames compared cursors")
	}
	if a.SameNames(NewSet(nil, []string{"x"})) {
		t.Error("SameNames confused a channel with a group")
	}
}

func TestSetWithoutPresence(t *testing.T) {
	set := NewSet([]string{"room", "room" + PresenceSuffix}, []string{"g" + PresenceSuffix})
	stripped := set.WithoutPresence()
	if !slices.Equal(stripped.Channels(), []string{"room"}) || len(stripped.Groups()) != 0 {
		t.Errorf("WithoutPresence = %v", stripped)
	}
}

func TestValidateRequest(t *testing.T) {
	if err := validateRequest(nil, nil); !errors.Is(err, ErrEmptyRequest) {
		t.Errorf("empty request error = %v", err)
	}
	for _, name := range []string{"", "a,b"} {
		if err := validateRequest([]string{name}, nil); !errors.Is(err, ErrInvalidName) {
			t.Errorf("channel %q error = %v", name, err)
		}
		if err := validateRequest(nil, []string{name}); !errors.Is(err, ErrInvalidName) {
			t.Errorf("group %q error = %v", name, err)
		}
	}
	if err := validateRequest([]string{"news.*"}, nil); err != nil {
		t.Errorf("wildcard channel rejected: %v", err)
	}
}
