// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/pubsub/subscribe"
)

// counterValue gathers registry and returns the value of the counter
// named name whose labels equal labels.
func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metric:
		for _, metric := range family.GetMetric() {
			if len(metric.GetLabel()) != len(labels) {
				continue
			}
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metric
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestEngineCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewEngine()
	registry.MustRegister(collector)

	set := subscribe.NewSet([]string{"news"}, nil)
	collector.ObserveTransition(subscribe.Unsubscribed{}, subscribe.Handshaking{Set: set}, subscribe.SubscriptionChanged{Set: set})
	collector.ObserveTransition(subscribe.Receiving{Set: set}, subscribe.Receiving{Set: set}, subscribe.ReceiveSuccess{})
	collector.ObserveTransition(subscribe.Receiving{Set: set}, subscribe.Receiving{Set: set}, subscribe.ReceiveSuccess{})
	collector.ObserveEffect(subscribe.KindReceive, subscribe.OutcomeStarted)
	collector.ObserveEffect(subscribe.KindReceive, subscribe.OutcomeSwallowed)
	collector.ObserveUpdate(subscribe.Update{Kind: subscribe.UpdateMessage})
	collector.ObserveUpdate(subscribe.Update{Kind: subscribe.UpdatePresence})
	collector.ObserveUpdate(subscribe.Update{Kind: subscribe.UpdateMessage})
	collector.ObserveGiveUp(subscribe.HandshakeFailed{Set: set, Reason: errors.New("denied")})

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"pubsub_engine_transitions_total", map[string]string{"from": "unsubscribed", "to": "handshaking"}, 1},
		{"pubsub_engine_transitions_total", map[string]string{"from": "receiving", "to": "receiving"}, 2},
		{"pubsub_engine_effects_total", map[string]string{"kind": "receive", "outcome": "started"}, 1},
		{"pubsub_engine_effects_total", map[string]string{"kind": "receive", "outcome": "swallowed"}, 1},
		{"pubsub_engine_updates_total", map[string]string{"kind": "message"}, 2},
		{"pubsub_engine_updates_total", map[string]string{"kind": "presence"}, 1},
		{"pubsub_engine_give_ups_total", map[string]string{}, 1},
	}
	for _, check := range checks {
		if got := counterValue(t, registry, check.name, check.labels); got != check.want {
			t.Errorf("%s%v = %v, want %v", check.name, check.labels, got, check.want)
		}
	}
}

func TestEngineRegistersOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewEngine()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	var already prometheus.AlreadyRegisteredError
	if err := registry.Register(NewEngine()); !errors.As(err, &already) {
		t.Fatalf("second Register: err = %v, want AlreadyRegisteredError", err)
	}
}
