// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMultiplier  = 2.0
	defaultMaxDelay    = 10 * time.Second
)

// RetryPolicy bounds the number of sends made for a transient failure and the
// exponential backoff between them.
type RetryPolicy struct {
	// MaxAttempts is the total number of sends, including the first.
	// Zero means 3. Negative values disable retries.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt.
	// Zero means 1s.
	BaseDelay time.Duration

	// Multiplier scales the delay after each attempt. Must be >= 1.
	// Zero means 2.
	Multiplier float64

	// MaxDelay caps a single wait. Must be >= BaseDelay.
	// Zero means 10s.
	MaxDelay time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	switch {
	case p.MaxAttempts == 0:
		p.MaxAttempts = defaultMaxAttempts
	case p.MaxAttempts < 0:
		p.MaxAttempts = 1
	}
	if p.BaseDelay == 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.Multiplier == 0 {
		p.Multiplier = defaultMultiplier
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = max(defaultMaxDelay, p.BaseDelay)
	}
	return p
}

func (p RetryPolicy) validate() error {
	p = p.withDefaults()

	if p.BaseDelay < 0 {
		return errors.Join(ErrValidation, fmt.Errorf("retry base delay must not be negative"))
	}
	if p.Multiplier < 1 || math.IsNaN(p.Multiplier) || math.IsInf(p.Multiplier, 0) {
		return errors.Join(ErrValidation, fmt.Errorf("retry multiplier %v must be a finite value >= 1", p.Multiplier))
	}
	if p.MaxDelay < p.BaseDelay {
		return errors.Join(ErrValidation,
			fmt.Errorf("retry max delay %s must not be less than base delay %s", p.MaxDelay, p.BaseDelay))
	}
	return nil
}

// Delay returns the wait after the given one-based attempt failed:
// min(MaxDelay, BaseDelay * Multiplier^(attempt-1)).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	backoff := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if backoff >= float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(backoff)
}

// retryState tracks one logical publish. It is never shared between calls.
type retryState struct {
	policy  RetryPolicy
	attempt int
}

func newRetryState(p RetryPolicy) *retryState {
	return &retryState{policy: p.withDefaults()}
}

// next advances to the next attempt and returns its number.
func (s *retryState) next() int {
	s.attempt++
	return s.attempt
}

// exhausted reports whether no attempts remain.
func (s *retryState) exhausted() bool {
	return s.attempt >= s.policy.MaxAttempts
}

// delay is the backoff before the next attempt.
func (s *retryState) delay() time.Duration {
	return s.policy.Delay(s.attempt)
}

// sleepContext waits for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
