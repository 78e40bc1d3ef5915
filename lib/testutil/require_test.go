// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// recordingTB captures Fatalf calls instead of stopping the test.
type recordingTB struct {
	failed  bool
	message string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second, "buffered value"); got != 7 {
		t.Fatalf("RequireReceive = %d, want 7", got)
	}
}

func TestRequireNoReceive(t *testing.T) {
	quiet := make(chan int)
	RequireNoReceive(t, quiet, 10*time.Millisecond, "quiet channel")

	noisy := make(chan int, 1)
	noisy <- 1
	recorder := &recordingTB{}
	RequireNoReceive(recorder, noisy, time.Second, "noisy channel on %s", "news")
	if !recorder.failed {
		t.Fatal("RequireNoReceive did not fail on a delivered value")
	}
	if recorder.message != "unexpected value 1: noisy channel on news" {
		t.Errorf("message = %q", recorder.message)
	}
}

func TestRequireClosed(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	RequireClosed(t, ch, time.Second, "closed channel")
}

func TestUniqueChannel(t *testing.T) {
	first := UniqueChannel("news")
	second := UniqueChannel("news")
	if first == second {
		t.Fatalf("UniqueChannel returned %q twice", first)
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		args []any
		want string
	}{
		{nil, "(no message)"},
		{[]any{"plain"}, "plain"},
		{[]any{42}, "42"},
		{[]any{"%s/%d", "a", 1}, "a/1"},
	}
	for _, test := range tests {
		if got := formatMessage(test.args); got != test.want {
			t.Errorf("formatMessage(%v) = %q, want %q", test.args, got, test.want)
		}
	}
}
