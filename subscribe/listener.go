// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// Listener receives what the engine publishes. Calls are made from the
// engine's event loop, one at a time and in order; a listener that
// blocks stalls the engine. Listeners may call back into the engine.
type Listener interface {
	OnStatus(Status)
	OnUpdate(Update)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are
// skipped.
type ListenerFuncs struct {
	Status func(Status)
	Update func(Update)
}

func (f ListenerFuncs) OnStatus(status Status) {
	if f.Status != nil {
		f.Status(status)
	}
}

func (f ListenerFuncs) OnUpdate(update Update) {
	if f.Update != nil {
		f.Update(update)
	}
}

// Registry fans statuses and updates out to registered listeners. Each
// engine and each subscription set owns its own Registry.
type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners []registration
	nextID    uint64
}

type registration struct {
	id       uint64
	listener Listener
}

// NewRegistry returns an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Add registers listener and returns a function that removes it.
// Removing twice is harmless.
func (r *Registry) Add(listener Listener) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, registration{id: id, listener: listener})
	return func() { r.remove(id) }
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

func (r *Registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, entry := range r.listeners {
		if entry.id == id {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return
		}
	}
}

func (r *Registry) snapshot() []registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listeners
}

func (r *Registry) publishStatus(status Status) {
	for _, entry := range r.snapshot() {
		r.call(func() { entry.listener.OnStatus(status) }, "status", status.Category.String())
	}
}

func (r *Registry) publishUpdate(update Update) {
	for _, entry := range r.snapshot() {
		r.call(func() { entry.listener.OnUpdate(update) }, "update", update.Kind.String())
	}
}

func (r *Registry) call(deliver func(), what, kind string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("listener panicked",
				"delivery", what,
				"kind", kind,
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
		}
	}()
	deliver()
}
