// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCursorFormat is returned by ParseCursor for any string that
// is not two decimal integers joined by a colon.
var ErrInvalidCursorFormat = errors.New("subscribe: invalid cursor format")

// Cursor marks a position in the update stream. Timetoken is the
// server's publish timestamp (ten-nanosecond units); Region names the
// data center that issued it. The zero Cursor means "start from now".
type Cursor struct {
	Timetoken uint64
	Region    uint32
}

// IsZero reports whether c is the "start from now" cursor.
func (c Cursor) IsZero() bool { return c.Timetoken == 0 && c.Region == 0 }

// Compare orders cursors by timetoken, then region. It returns -1, 0
// or +1.
func (c Cursor) Compare(other Cursor) int {
	switch {
	case c.Timetoken < other.Timetoken:
		return -1
	case c.Timetoken > other.Timetoken:
		return 1
	case c.Region < other.Region:
		return -1
	case c.Region > other.Region:
		return 1
	}
	return 0
}

// String renders "<timetoken>:<region>", the form ParseCursor accepts.
func (c Cursor) String() string {
	return strconv.FormatUint(c.Timetoken, 10) + ":" + strconv.FormatUint(uint64(c.Region), 10)
}

// ParseCursor parses the output of Cursor.String.
func ParseCursor(text string) (Cursor, error) {
	timetokenText, regionText, found := strings.Cut(text, ":")
	if !found || !isDecimal(timetokenText) || !isDecimal(regionText) {
		return Cursor{}, fmt.Errorf("%w: %q", ErrInvalidCursorFormat, text)
	}
	timetoken, err := strconv.ParseUint(timetokenText, 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: timetoken %q out of range", ErrInvalidCursorFormat, timetokenText)
	}
	region, err := strconv.ParseUint(regionText, 10, 32)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: region %q out of range", ErrInvalidCursorFormat, regionText)
	}
	return Cursor{Timetoken: timetoken, Region: uint32(region)}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Cursor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cursor) UnmarshalText(text []byte) error {
	parsed, err := ParseCursor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// isDecimal rejects signs, spaces and the empty string, all of which
// strconv would otherwise tolerate or report less precisely.
func isDecimal(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
