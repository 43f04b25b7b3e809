package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestBreaker(cfg BreakerConfig) (*Breaker, *clock) {
	c := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(cfg)
	b.now = c.now
	return b, c
}

func fail(context.Context) (float64, error) { return 0, errors.New("boom") }
func ok(context.Context) (float64, error)   { return 4.2, nil }

func TestBreaker_PassesThroughWhenClosed(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{})

	v, err := Call(context.Background(), b, ok)
	require.NoError(t, err)
	assert.InDelta(t, 4.2, v, 1e-9)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Failures: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for range 2 {
		_, _ = Call(ctx, b, fail)
	}
	_, _ = Call(ctx, b, ok)
	assert.Equal(t, StateClosed, b.State(), "a success resets the count")

	for range 3 {
		_, _ = Call(ctx, b, fail)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	_, err := Call(ctx, b, func(context.Context) (float64, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	var transitions []string
	b, c := newTestBreaker(BreakerConfig{
		Failures: 1,
		Cooldown: 10 * time.Second,
		OnChange: func(from, to State) { transitions = append(transitions, from.String()+">"+to.String()) },
	})
	ctx := context.Background()

	_, _ = Call(ctx, b, fail)
	require.Equal(t, StateOpen, b.State())

	c.t = c.t.Add(11 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	_, _ = Call(ctx, b, fail)
	assert.Equal(t, StateOpen, b.State(), "failed probe reopens")

	c.t = c.t.Add(11 * time.Second)
	_, err := Call(ctx, b, ok)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []string{
		"closed>open", "open>half-open", "half-open>open", "open>half-open", "half-open>closed",
	}, transitions)
}

func TestBreaker_TripsFilter(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Failures: 1, Trips: IsTransient})

	_, err := Call(context.Background(), b, fail)
	require.Error(t, err)
	assert.Equal(t, StateClosed, b.State(), "permanent errors do not trip")

	_, _ = Call(context.Background(), b, func(context.Context) (float64, error) {
		return 0, NewTransientError(errors.New("503"), 503)
	})
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_Concurrent(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Failures: 1000})
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = Call(context.Background(), b, fail)
				return
			}
			_, _ = Call(context.Background(), b, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, StateClosed, b.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
