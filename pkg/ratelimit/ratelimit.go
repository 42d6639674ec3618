package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Policy returns how long to pause after the given 1-based attempt.
type Policy func(attempt int) time.Duration

// Fixed pauses for d after every attempt.
func Fixed(d time.Duration) Policy {
	return func(int) time.Duration { return d }
}

// None never pauses.
func None() Policy {
	return Fixed(0)
}

// Pacer spaces out outbound calls according to a Policy, with optional jitter.
type Pacer struct {
	policy Policy
	jitter float64 // 0.0 to 1.0
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer. A nil policy never pauses. Jitter is clamped to
// [0, 1] and adds up to jitter*delay on top of the policy delay.
func NewPacer(policy Policy, jitter float64) *Pacer {
	if policy == nil {
		policy = None()
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Pacer{
		policy: policy,
		jitter: jitter,
		sleep:  sleepContext,
	}
}

// WithSleep replaces the function used to pause. Tests use it to record
// delays without waiting on the wall clock.
func (p *Pacer) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Pacer {
	if fn != nil {
		p.sleep = fn
	}
	return p
}

// Delay returns the pause for attempt, jitter included.
func (p *Pacer) Delay(attempt int) time.Duration {
	d := p.policy(attempt)
	if d <= 0 {
		return 0
	}
	if p.jitter > 0 {
		d += time.Duration(float64(d) * p.jitter * rand.Float64())
	}
	return d
}

// Wait blocks for the delay of attempt, or until ctx is canceled.
func (p *Pacer) Wait(ctx context.Context, attempt int) error {
	d := p.Delay(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
