// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// Kind selects the delay curve of a Policy.
type Kind int

const (
	// None never retries.
	None Kind = iota

	// Linear waits Delay between attempts.
	Linear

	// Exponential waits min(BaseDelay * 2^attempt, MaxDelay).
	Exponential
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Policy is an immutable retry configuration. The zero value never
// retries.
type Policy struct {
	Kind Kind

	// Delay is the fixed wait of a Linear policy.
	Delay time.Duration

	// BaseDelay and MaxDelay bound an Exponential policy.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// MaxRetries is the number of retries allowed after the first
	// failure. A policy gives up once attempt >= MaxRetries.
	MaxRetries int

	// Excluded endpoints never retry, whatever the failure.
	Excluded []Endpoint

	// Jitter, when positive, adds a uniformly random extra delay in
	// [0, Jitter] to every computed delay. A server-requested
	// Retry-After is used as is.
	Jitter time.Duration
}

// DefaultLinear retries every two seconds, ten times.
func DefaultLinear() Policy {
	return Policy{Kind: Linear, Delay: 2 * time.Second, MaxRetries: 10, Jitter: time.Second}
}

// DefaultExponential starts at two seconds and caps at 150 seconds,
// retrying six times.
func DefaultExponential() Policy {
	return Policy{
		Kind:       Exponential,
		BaseDelay:  2 * time.Second,
		MaxDelay:   150 * time.Second,
		MaxRetries: 6,
		Jitter:     time.Second,
	}
}

// Decision is the outcome of Evaluate. When Retry is false the caller
// gives up.
type Decision struct {
	Retry bool
	After time.Duration
}

// GiveUp is the Decision that stops retrying.
var GiveUp = Decision{}

// Validate reports configuration errors.
func (p Policy) Validate() error {
	switch p.Kind {
	case None:
		return nil
	case Linear:
		if p.Delay <= 0 {
			return fmt.Errorf("retry: linear delay must be positive, got %v", p.Delay)
		}
	case Exponential:
		if p.BaseDelay <= 0 {
			return fmt.Errorf("retry: exponential base delay must be positive, got %v", p.BaseDelay)
		}
		if p.MaxDelay < p.BaseDelay {
			return fmt.Errorf("retry: exponential max delay %v is below base delay %v", p.MaxDelay, p.BaseDelay)
		}
	default:
		return fmt.Errorf("retry: unknown policy kind %d", int(p.Kind))
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("retry: max retries must not be negative, got %d", p.MaxRetries)
	}
	if p.Jitter < 0 {
		return fmt.Errorf("retry: jitter must not be negative, got %v", p.Jitter)
	}
	return nil
}

// Evaluate decides what to do after a request to endpoint failed with
// err. attempt is the number of earlier consecutive failures of the
// same operation, so the first failure is evaluated at attempt 0.
func (p Policy) Evaluate(attempt int, endpoint Endpoint, err error) Decision {
	if p.Kind == None || attempt >= p.MaxRetries {
		return GiveUp
	}
	if slices.Contains(p.Excluded, endpoint) {
		return GiveUp
	}

	failure := Classify(err)
	if !failure.Transient() {
		return GiveUp
	}
	if failure == FailureRateLimited {
		if delay, ok := RetryAfter(err); ok {
			return Decision{Retry: true, After: delay}
		}
	}
	return Decision{Retry: true, After: p.delay(attempt) + p.jitter()}
}

func (p Policy) delay(attempt int) time.Duration {
	if p.Kind == Linear {
		return p.Delay
	}
	delay := p.BaseDelay
	for range attempt {
		if delay >= p.MaxDelay {
			break
		}
		delay *= 2
	}
	return min(delay, p.MaxDelay)
}

func (p Policy) jitter() time.Duration {
	if p.Jitter <= 0 {
		return 0
	}
	return rand.N(p.Jitter + 1)
}
