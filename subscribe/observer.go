// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package subscribe

// EffectOutcome is how one effect instance ended, as reported to an
// Observer.
type EffectOutcome string

const (
	OutcomeStarted   EffectOutcome = "started"
	OutcomeSucceeded EffectOutcome = "succeeded"
	OutcomeFailed    EffectOutcome = "failed"
	OutcomeCancelled EffectOutcome = "cancelled"

	// OutcomeSwallowed is an outcome that arrived after its effect was
	// cancelled and was dropped.
	OutcomeSwallowed EffectOutcome = "swallowed"
)

// Observer receives engine telemetry. Calls are made from the event
// loop and from effect goroutines; implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	ObserveTransition(from, to State, event Event)
	ObserveEffect(kind EffectKind, outcome EffectOutcome)
	ObserveUpdate(update Update)

	// ObserveGiveUp is called when the engine enters HandshakeFailed
	// or ReceiveFailed.
	ObserveGiveUp(state State)
}

type nopObserver struct{}

func (nopObserver) ObserveTransition(State, State, Event)   {}
func (nopObserver) ObserveEffect(EffectKind, EffectOutcome) {}
func (nopObserver) ObserveUpdate(Update)                    {}
func (nopObserver) ObserveGiveUp(State)                     {}
