package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisalud/hospital-api/pkg/clock"
)

var errDownstream = errors.New("connection refused")

func failing() error { return errDownstream }

func succeeding() error { return nil }

func newTestBreaker(clk clock.Clock) *Breaker {
	return New(Config{
		FailureThreshold: 3,
		Cooldown:         time.Minute,
		Clock:            clk,
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	b := newTestBreaker(clk)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(failing), errDownstream)
	}
	require.Equal(t, StateOpen, b.State())

	// While open, calls fail fast without reaching the downstream.
	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	b := newTestBreaker(clk)

	assert.Error(t, b.Do(failing))
	assert.Error(t, b.Do(failing))
	assert.NoError(t, b.Do(succeeding))
	assert.Error(t, b.Do(failing))
	assert.Error(t, b.Do(failing))

	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenProbeCloses(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	b := newTestBreaker(clk)

	for i := 0; i < 3; i++ {
		assert.Error(t, b.Do(failing))
	}
	require.Equal(t, StateOpen, b.State())

	clk.Advance(61 * time.Second)
	assert.NoError(t, b.Do(succeeding))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenProbeReopens(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	b := newTestBreaker(clk)

	for i := 0; i < 3; i++ {
		assert.Error(t, b.Do(failing))
	}

	clk.Advance(61 * time.Second)
	assert.ErrorIs(t, b.Do(failing), errDownstream)
	require.Equal(t, StateOpen, b.State())

	// A single half-open failure restarts the full cooldown.
	assert.ErrorIs(t, b.Do(failing), ErrOpen)
}

func TestBreakerReportsTransitions(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	var transitions []string
	b := New(Config{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
		Clock:            clk,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})

	assert.Error(t, b.Do(failing))
	clk.Advance(2 * time.Minute)
	assert.NoError(t, b.Do(succeeding))

	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, transitions)
}

func TestBreakerDefaults(t *testing.T) {
	b := New(Config{})
	assert.Equal(t, 5, b.cfg.FailureThreshold)
	assert.Equal(t, 30*time.Second, b.cfg.Cooldown)
	assert.NotNil(t, b.cfg.Clock)
}
