// Package circuitbreaker guards calls to flaky downstreams. The outbox
// publisher wraps broker publishes in one so a dead Redis fails fast and
// the outbox retry schedule takes over the pacing, instead of every poll
// cycle stalling on connection timeouts.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/intisalud/hospital-api/pkg/clock"
)

// ErrOpen is returned without invoking the call while the breaker is open.
var ErrOpen = errors.New("circuit breaker open")

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
	default:
		return "unknown"
	}
}

type Config struct {
	// FailureThreshold is the run of consecutive failures that opens the
	// breaker. Zero or negative falls back to 5.
	FailureThreshold int

	// Cooldown is how long the breaker stays open before admitting a probe
	// call. Zero or negative falls back to 30s.
	Cooldown time.Duration

	// OnStateChange, when set, runs after every transition. It is called
	// with the breaker's lock held and must not call back into the breaker.
	OnStateChange func(from, to State)

	// Clock defaults to the system clock.
	Clock clock.Clock
}

// Breaker is safe for concurrent use. Half-open admits all callers; the
// first recorded result decides whether the breaker closes or reopens.
type Breaker struct {
	cfg Config

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Breaker{cfg: cfg}
}

// Do runs fn unless the breaker is open. Failures count consecutively; a
// success anywhere resets the count and closes the breaker.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.cfg.Clock.Now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.transition(StateClosed)
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.cfg.Clock.Now()
		b.transition(StateOpen)
	}
}

// transition is a no-op when the state is unchanged. Callers hold mu.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
