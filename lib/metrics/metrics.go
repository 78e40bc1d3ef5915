// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports subscribe engine telemetry as Prometheus
// counters.
//
// [Engine] implements subscribe.Observer. Register it with a
// prometheus.Registerer and pass it as the engine's Observer:
//
//	collector := metrics.NewEngine()
//	registry.MustRegister(collector)
//	engine := subscribe.New(subscribe.Config{Observer: collector, ...}, executor)
//
// Series:
//
//	pubsub_engine_transitions_total{from,to}
//	pubsub_engine_effects_total{kind,outcome}
//	pubsub_engine_updates_total{kind}
//	pubsub_engine_give_ups_total
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/pubsub/subscribe"
)

const (
	namespace = "pubsub"
	subsystem = "engine"
)

// Engine counts subscribe engine activity.
type Engine struct {
	transitions *prometheus.CounterVec
	effects     *prometheus.CounterVec
	updates     *prometheus.CounterVec
	giveUps     prometheus.Counter
}

var _ subscribe.Observer = (*Engine)(nil)

// NewEngine returns unregistered engine counters.
func NewEngine() *Engine {
	return &Engine{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transitions_total",
			Help:      "State transitions applied by the subscribe engine.",
		}, []string{"from", "to"}),
		effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "effects_total",
			Help:      "Effect lifecycle events by effect kind and outcome.",
		}, []string{"kind", "outcome"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "updates_total",
			Help:      "Updates delivered to listeners, by update kind.",
		}, []string{"kind"}),
		giveUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "give_ups_total",
			Help:      "Times the engine stopped retrying and entered a failed state.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (e *Engine) Describe(descriptions chan<- *prometheus.Desc) {
	e.transitions.Describe(descriptions)
	e.effects.Describe(descriptions)
	e.updates.Describe(descriptions)
	e.giveUps.Describe(descriptions)
}

// Collect implements prometheus.Collector.
func (e *Engine) Collect(metrics chan<- prometheus.Metric) {
	e.transitions.Collect(metrics)
	e.effects.Collect(metrics)
	e.updates.Collect(metrics)
	e.giveUps.Collect(metrics)
}

// ObserveTransition counts a transition. Self-transitions count too:
// a receive success stays in Receiving.
func (e *Engine) ObserveTransition(from, to subscribe.State, _ subscribe.Event) {
	e.transitions.WithLabelValues(from.Name(), to.Name()).Inc()
}

// ObserveEffect counts one effect outcome.
func (e *Engine) ObserveEffect(kind subscribe.EffectKind, outcome subscribe.EffectOutcome) {
	e.effects.WithLabelValues(kind.String(), string(outcome)).Inc()
}

// ObserveUpdate counts one delivered update.
func (e *Engine) ObserveUpdate(update subscribe.Update) {
	e.updates.WithLabelValues(update.Kind.String()).Inc()
}

// ObserveGiveUp counts one give-up.
func (e *Engine) ObserveGiveUp(subscribe.State) {
	e.giveUps.Inc()
}
