// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP body reads.
//
// Every response body the SDK reads goes through [ReadResponse] or
// [ReadEncoded], which stop at MaxResponseSize and report
// [ErrResponseTooLarge] instead of silently truncating. A subscribe
// long-poll response holds at most a few hundred updates, so the bound
// is generous; it exists to stop a misbehaving proxy from exhausting
// memory. gzip bodies are decoded with klauspost/compress and bounded
// after decompression.
package netutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// MaxResponseSize bounds a decoded response body: 32 MiB.
const MaxResponseSize int64 = 32 << 20

// ErrResponseTooLarge is returned when a body exceeds MaxResponseSize.
var ErrResponseTooLarge = errors.New("netutil: response body exceeds size limit")

// ReadResponse reads body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}

// ReadEncoded reads body according to its Content-Encoding header
// value. Empty and "identity" read the body as is; "gzip" decompresses.
func ReadEncoded(body io.Reader, contentEncoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return ReadResponse(body)
	case "gzip":
		reader, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip body: %w", err)
		}
		defer reader.Close()
		return ReadResponse(reader)
	default:
		return nil, fmt.Errorf("netutil: unsupported content encoding %q", contentEncoding)
	}
}

// DecodeResponse reads body (up to MaxResponseSize bytes) and
// JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody renders an error response body for diagnostics, cut to a
// length that fits in a log line.
func ErrorBody(data []byte) string {
	const limit = 512
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
