// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestReadResponse(t *testing.T) {
	t.Run("normal body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader([]byte(`{"t":{"t":"1","r":1},"m":[]}`)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"t":{"t":"1","r":1},"m":[]}` {
			t.Fatalf("got %q", data)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) != 0 {
			t.Fatalf("expected empty, got %d bytes", len(data))
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		_, err := ReadResponse(io.LimitReader(zeroReader{}, MaxResponseSize+10))
		if !errors.Is(err, ErrResponseTooLarge) {
			t.Fatalf("expected ErrResponseTooLarge, got %v", err)
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if _, err := ReadResponse(&failReader{}); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestReadEncoded(t *testing.T) {
	var compressed bytes.Buffer
	writer := gzip.NewWriter(&compressed)
	if _, err := writer.Write([]byte(`{"status":200}`)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	t.Run("gzip", func(t *testing.T) {
		data, err := ReadEncoded(bytes.NewReader(compressed.Bytes()), "gzip")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"status":200}` {
			t.Fatalf("got %q", data)
		}
	})

	t.Run("identity", func(t *testing.T) {
		data, err := ReadEncoded(strings.NewReader("plain"), "")
		if err != nil || string(data) != "plain" {
			t.Fatalf("got %q, %v", data, err)
		}
	})

	t.Run("corrupt gzip", func(t *testing.T) {
		if _, err := ReadEncoded(strings.NewReader("not gzip"), "gzip"); err == nil {
			t.Fatal("expected error for corrupt gzip body")
		}
	})

	t.Run("unknown encoding", func(t *testing.T) {
		if _, err := ReadEncoded(strings.NewReader("x"), "br"); err == nil {
			t.Fatal("expected error for unsupported encoding")
		}
	})
}

func TestDecodeResponse(t *testing.T) {
	var result struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}
	if err := DecodeResponse(strings.NewReader(`{"status":403,"message":"Forbidden"}`), &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != 403 || result.Message != "Forbidden" {
		t.Fatalf("decoded %+v", result)
	}
	if err := DecodeResponse(strings.NewReader(`not json`), &result); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody([]byte("short")); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := bytes.Repeat([]byte("x"), 600)
	if got := ErrorBody(long); len(got) != 515 || !strings.HasSuffix(got, "...") {
		t.Fatalf("long body rendered as %d bytes", len(got))
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

type failReader struct{}

func (f *failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("simulated read failure")
}
