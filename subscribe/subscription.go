// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

import (
	"sort"
	"sync"
)

// EntityKind says whether a Subscription names a channel or a channel
// group.
type EntityKind int

const (
	EntityChannel EntityKind = iota
	EntityChannelGroup
)

// Subscription is one entity a SubscriptionSet listens to.
type Subscription struct {
	Name string
	Kind EntityKind

	// Presence also subscribes to the entity's presence companion.
	Presence bool
}

// Channel returns a Subscription to the named channel.
func Channel(name string) Subscription {
	return Subscription{Name: name, Kind: EntityChannel}
}

// ChannelGroup returns a Subscription to the named channel group.
func ChannelGroup(name string) Subscription {
	return Subscription{Name: name, Kind: EntityChannelGroup}
}

// WithPresence returns s with presence events included.
func (s Subscription) WithPresence() Subscription {
	s.Presence = true
	return s
}

// names lists the wire names s contributes.
func (s Subscription) names() []string {
	if s.Presence {
		return []string{s.Name, s.Name + PresenceSuffix}
	}
	return []string{s.Name}
}

func (s Subscription) key() subscriptionKey {
	return subscriptionKey{kind: s.Kind, name: s.Name}
}

type subscriptionKey struct {
	kind EntityKind
	name string
}

// SubscriptionSet is a group of subscriptions managed together, with
// listeners that only hear about its own entities. A set contributes
// its names to the engine while subscribed; several sets and direct
// engine subscriptions may overlap, and a name stays subscribed while
// anything still wants it.
type SubscriptionSet struct {
	engine    *Engine
	id        uint64
	listeners *Registry

	mu      sync.Mutex
	members map[subscriptionKey]Subscription
}

// NewSubscriptionSet returns a detached set over subs. Call Subscribe
// to start receiving.
func (e *Engine) NewSubscriptionSet(subs ...Subscription) *SubscriptionSet {
	e.mu.Lock()
	e.nextSetID++
	id := e.nextSetID
	e.mu.Unlock()

	set := &SubscriptionSet{
		engine:    e,
		id:        id,
		listeners: NewRegistry(e.logger),
		members:   make(map[subscriptionKey]Subscription),
	}
	for _, sub := range subs {
		set.members[sub.key()] = sub
	}
	return set
}

// Add includes sub in the set. A subscription to an entity already in
// the set replaces it. When the set is subscribed the engine picks up
// the change.
func (s *SubscriptionSet) Add(sub Subscription) error {
	if err := validateName(sub.Name); err != nil {
		return err
	}
	s.mu.Lock()
	s.members[sub.key()] = sub
	s.mu.Unlock()
	s.changed()
	return nil
}

// Remove drops sub's entity from the set.
func (s *SubscriptionSet) Remove(sub Subscription) {
	s.mu.Lock()
	_, ok := s.members[sub.key()]
	delete(s.members, sub.key())
	s.mu.Unlock()
	if ok {
		s.changed()
	}
}

// Subscribe attaches the set to its engine. Subscribing an attached set
// is a no-op.
func (s *SubscriptionSet) Subscribe() error {
	for _, sub := range s.Subscriptions() {
		if err := validateName(sub.Name); err != nil {
			return err
		}
	}
	s.engine.attach(s)
	return nil
}

// Unsubscribe detaches the set. Names another source still wants stay
// subscribed.
func (s *SubscriptionSet) Unsubscribe() {
	s.engine.detach(s)
}

// Subscribed reports whether the set is attached.
func (s *SubscriptionSet) Subscribed() bool {
	return s.engine.isAttached(s)
}

// AddListener registers listener for statuses and for updates on this
// set's entities. The returned function removes it.
func (s *SubscriptionSet) AddListener(listener Listener) (remove func()) {
	return s.listeners.Add(listener)
}

// Subscriptions returns the members sorted by kind, then name.
func (s *SubscriptionSet) Subscriptions() []Subscription {
	s.mu.Lock()
	subs := make([]Subscription, 0, len(s.members))
	for _, sub := range s.members {
		subs = append(subs, sub)
	}
	s.mu.Unlock()
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Kind != subs[j].Kind {
			return subs[i].Kind < subs[j].Kind
		}
		return subs[i].Name < subs[j].Name
	})
	return subs
}

func (s *SubscriptionSet) changed() {
	if s.engine.isAttached(s) {
		s.engine.sourcesChanged()
	}
}

// names returns the set's contribution to the engine's effective set.
func (s *SubscriptionSet) names() Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	var channels, groups []string
	for _, sub := range s.members {
		if sub.Kind == EntityChannelGroup {
			groups = append(groups, sub.names()...)
		} else {
			channels = append(channels, sub.names()...)
		}
	}
	return NewSet(channels, groups)
}

// matches reports whether update arrived on one of the set's entities.
// Updates received through a group or a wildcard channel carry it in
// Subscription; direct channel updates leave Subscription empty.
func (s *SubscriptionSet) matches(update Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.members {
		if update.Kind == UpdatePresence && !sub.Presence {
			continue
		}
		if update.Subscription == sub.Name {
			return true
		}
		if sub.Kind == EntityChannel && update.Subscription == "" && update.Channel == sub.Name {
			return true
		}
	}
	return false
}
