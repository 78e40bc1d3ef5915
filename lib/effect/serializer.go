// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package effect

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Serializer applies events one at a time, in the order they were
// posted, on whichever goroutine found it idle.
type Serializer[E any] struct {
	apply  func(E)
	logger *slog.Logger

	mu       sync.Mutex
	queue    []E
	draining bool
	closed   bool
	idle     *sync.Cond
}

// NewSerializer returns a Serializer that calls apply for each event.
// apply runs with no Serializer lock held and may post further events;
// they are applied after apply returns. A panic in apply is recovered,
// logged and does not stop the queue.
func NewSerializer[E any](apply func(E), logger *slog.Logger) *Serializer[E] {
	if logger == nil {
		logger = slog.Default()
	}
	serializer := &Serializer[E]{apply: apply, logger: logger}
	serializer.idle = sync.NewCond(&serializer.mu)
	return serializer
}

// Post enqueues event and, if no other goroutine is draining, drains
// the queue before returning. Posts after Close are dropped.
func (s *Serializer[E]) Post(event E) {
	if s.enqueue(event) {
		s.drain()
	}
}

// PostFrom posts event only if token is still live, and reports
// whether it did. The live-check and the enqueue happen under the token
// lock, so an event from a cancelled effect is never enqueued.
func (s *Serializer[E]) PostFrom(token *Token, event E) bool {
	becameDrainer := false
	if !token.Deliver(func() { becameDrainer = s.enqueue(event) }) {
		return false
	}
	if becameDrainer {
		s.drain()
	}
	return true
}

// Close drops queued events and rejects further posts. An apply call
// already running finishes.
func (s *Serializer[E]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.queue = nil
	s.idle.Broadcast()
}

// WaitIdle blocks until the queue is empty and no goroutine is
// draining. It must not be called from inside apply.
func (s *Serializer[E]) WaitIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.draining || len(s.queue) > 0 {
		s.idle.Wait()
	}
}

func (s *Serializer[E]) enqueue(event E) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.queue = append(s.queue, event)
	if s.draining {
		return false
	}
	s.draining = true
	return true
}

func (s *Serializer[E]) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.closed {
			s.draining = false
			s.idle.Broadcast()
			s.mu.Unlock()
			return
		}
		event := s.queue[0]
		var zero E
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.applyRecovering(event)
	}
}

func (s *Serializer[E]) applyRecovering(event E) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("event application panicked",
				"event", fmt.Sprintf("%T", event),
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.apply(event)
}
