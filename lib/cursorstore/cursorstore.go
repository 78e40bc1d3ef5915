// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cursorstore saves a subscriber's position to disk so a
// restarted process can resume where it stopped.
//
// A state file records the last cursor and the channels and groups
// that were subscribed when it was taken. It is CBOR (see lib/codec)
// and is written atomically: temporary file, fsync, rename into place,
// fsync of the parent directory. Readers never see a partial file.
//
// Restoring from a cursor that is too old is worse than starting
// fresh, because the service may no longer hold the messages it
// points at. [Check] therefore ignores files older than a caller
// supplied age.
package cursorstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/pubsub/lib/codec"
	"github.com/bureau-foundation/pubsub/subscribe"
)

// FormatVersion is the state file layout this package writes.
const FormatVersion = 1

// ErrUnsupportedVersion is returned for a state file written by a
// newer layout.
var ErrUnsupportedVersion = errors.New("cursorstore: unsupported state file version")

// State is one saved position.
type State struct {
	Version  int              `cbor:"version"`
	Cursor   subscribe.Cursor `cbor:"cursor"`
	Channels []string         `cbor:"channels,omitempty"`
	Groups   []string         `cbor:"groups,omitempty"`
	SavedAt  time.Time        `cbor:"saved_at"`
}

// Write atomically replaces the state file at path. A zero Version is
// filled in with FormatVersion. The parent directory must exist; the
// file is created with mode 0600.
func Write(path string, state State) error {
	if state.Version == 0 {
		state.Version = FormatVersion
	}
	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("cursorstore: encoding state: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("cursorstore: creating temporary file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("cursorstore: writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("cursorstore: syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("cursorstore: closing temporary file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("cursorstore: renaming state file into place: %w", err)
	}

	// Best effort: the rename is already visible, the directory sync
	// only makes it survive power loss.
	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// Read parses the state file at path. A missing file yields an error
// wrapping os.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := codec.Unmarshal(data, &state); err != nil {
		// Well-formed CBOR of the wrong shape is shown in diagnostic
		// notation.
		if diagnostic, diagnoseErr := codec.Diagnose(data); diagnoseErr == nil {
			return State{}, fmt.Errorf("cursorstore: parsing %s (contents %s): %w", path, diagnostic, err)
		}
		return State{}, fmt.Errorf("cursorstore: parsing %s: %w", path, err)
	}
	if state.Version > FormatVersion {
		return State{}, fmt.Errorf("%w: %s has version %d", ErrUnsupportedVersion, path, state.Version)
	}
	return state, nil
}

// Check reads the state file and reports whether it is usable: it
// exists and was saved no more than maxAge before now. A non-positive
// maxAge disables the age check. Errors other than a missing file are
// returned so that a corrupt file is not mistaken for no file.
func Check(path string, maxAge time.Duration, now time.Time) (State, bool, error) {
	state, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	if maxAge > 0 && now.Sub(state.SavedAt) > maxAge {
		return State{}, false, nil
	}
	return state, true, nil
}

// Clear removes the state file. It returns nil when there is none.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cursorstore: removing state file: %w", err)
	}
	return nil
}
