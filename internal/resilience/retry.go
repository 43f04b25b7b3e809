package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff is a capped exponential retry policy with jitter.
type Backoff struct {
	// Attempts is the total number of tries, the first one included.
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	// Jitter is the +/- fraction applied to every delay.
	Jitter float64
	// Retryable overrides IsTransient.
	Retryable func(error) bool
}

// DefaultBackoff tries three times starting at 250ms.
func DefaultBackoff() Backoff {
	return Backoff{Attempts: 3, Initial: 250 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2}
}

// Delay returns the pause before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Initial << attempt
	if d <= 0 || d > b.Max {
		d = b.Max
	}
	if b.Jitter > 0 {
		d += time.Duration((rand.Float64()*2 - 1) * b.Jitter * float64(d))
	}
	return max(d, 0)
}

// Retry runs fn until it succeeds, fails permanently, exhausts the policy
// or ctx ends. Each retry is logged with op.
func Retry[T any](ctx context.Context, b Backoff, op string, fn func(context.Context) (T, error)) (T, error) {
	def := DefaultBackoff()
	if b.Attempts <= 0 {
		b.Attempts = def.Attempts
	}
	if b.Initial <= 0 {
		b.Initial = def.Initial
	}
	if b.Max <= 0 {
		b.Max = def.Max
	}
	retryable := b.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt+1 >= b.Attempts || ctx.Err() != nil || !retryable(err) {
			return zero, err
		}

		delay := b.Delay(attempt)
		zap.L().Warn("retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, err
		case <-t.C:
		}
	}
}
