// Package resilience guards calls to the remote estimator and retries
// startup table loads.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the position of a Breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned without calling through while the breaker is open.
var ErrOpen = eris.New("circuit breaker is open")

// BreakerConfig tunes a Breaker. Zero fields take the defaults of
// DefaultBreakerConfig.
type BreakerConfig struct {
	// Failures is the number of consecutive tripping failures that opens
	// the breaker.
	Failures int
	// Cooldown is how long an open breaker waits before letting one probe
	// through.
	Cooldown time.Duration
	// Trips decides whether an error counts as a failure. Nil counts every
	// non-nil error.
	Trips func(error) bool
	// OnChange observes state transitions. It runs under the breaker lock
	// and must not call back into the breaker.
	OnChange func(from, to State)
}

// DefaultBreakerConfig opens after 5 failures and probes after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Failures: 5, Cooldown: 30 * time.Second}
}

// Breaker is a consecutive-failure circuit breaker. A half-open breaker
// admits a single probe; its outcome closes or reopens the circuit.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker builds a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.Failures <= 0 {
		cfg.Failures = def.Failures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Call runs fn unless the breaker is open.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.record(err)
	if err != nil {
		return zero, err
	}
	return v, nil
}

// State reports the current state, surfacing an elapsed cooldown as
// half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrOpen
		}
		b.moveTo(StateHalfOpen)
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil
	if failed && b.cfg.Trips != nil {
		failed = b.cfg.Trips(err)
	}

	if b.state == StateHalfOpen {
		b.probing = false
		if failed {
			b.openedAt = b.now()
			b.moveTo(StateOpen)
			return
		}
		b.failures = 0
		b.moveTo(StateClosed)
		return
	}

	if !failed {
		b.failures = 0
		return
	}
	b.failures++
	if b.state == StateClosed && b.failures >= b.cfg.Failures {
		b.openedAt = b.now()
		b.moveTo(StateOpen)
	}
}

func (b *Breaker) moveTo(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnChange != nil {
		b.cfg.OnChange(from, to)
	}
}
