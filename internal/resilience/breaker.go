// Package resilience provides a three-state circuit breaker used to guard
// calls to remote providers. When a chat backend goes down, the breaker trips
// after a run of failures so the dispatcher falls back to canned replies
// immediately instead of waiting out a network timeout on every turn.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] when the breaker is open and the cool-off
// period has not yet elapsed.
var ErrOpen = errors.New("resilience: breaker open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrOpen] until the cool-off elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. Successful
	// probes close the breaker; a single failure re-opens it.
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

// Breaker is a circuit breaker. It is safe for concurrent use.
type Breaker struct {
	name        string
	log         *slog.Logger
	maxFailures int
	coolOff     time.Duration
	probeBudget int

	mu         sync.Mutex
	state      State
	failures   int
	lastFail   time.Time
	probes     int
	probeFails int
}

// Option configures a [Breaker].
type Option func(*Breaker)

// WithMaxFailures sets how many consecutive failures trip the breaker.
func WithMaxFailures(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.maxFailures = n
		}
	}
}

// WithCoolOff sets how long the breaker stays open before probing again.
func WithCoolOff(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.coolOff = d
		}
	}
}

// WithProbeBudget sets how many half-open probe calls are allowed.
func WithProbeBudget(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.probeBudget = n
		}
	}
}

// WithBreakerLogger sets the logger used for state-transition messages.
func WithBreakerLogger(log *slog.Logger) Option {
	return func(b *Breaker) {
		if log != nil {
			b.log = log
		}
	}
}

// New creates a closed [Breaker] named name for log messages.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:        name,
		log:         slog.Default(),
		maxFailures: 3,
		coolOff:     30 * time.Second,
		probeBudget: 2,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Do runs fn if the breaker allows it. In the open state it returns [ErrOpen]
// without calling fn.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.lastFail) < b.coolOff {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.probes = 0
		b.probeFails = 0
		b.log.Info("breaker half-open", "name", b.name)

	case StateHalfOpen:
		if b.probes >= b.probeBudget {
			b.mu.Unlock()
			return ErrOpen
		}
	}

	probing := b.state == StateHalfOpen
	if probing {
		b.probes++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	b.lastFail = time.Now()

	if probing {
		b.probeFails++
		b.state = StateOpen
		b.failures = b.maxFailures
		b.log.Warn("breaker re-opened", "name", b.name)
		return
	}

	b.failures++
	if b.failures >= b.maxFailures && b.state == StateClosed {
		b.state = StateOpen
		b.log.Warn("breaker opened", "name", b.name, "failures", b.failures)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		if b.probes-b.probeFails >= b.probeBudget {
			b.state = StateClosed
			b.failures = 0
			b.log.Info("breaker closed", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// State reports the current state. An open breaker whose cool-off has elapsed
// reports half-open; the transition itself happens on the next [Do] call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastFail) >= b.coolOff {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probes = 0
	b.probeFails = 0
}
