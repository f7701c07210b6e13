package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"trading-signalsv1/internal/model"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = 0 // requests pass through
	StateOpen     State = 1 // requests rejected until resetTimeout elapses
	StateHalfOpen State = 2 // one probe request allowed through
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

// Breaker opens after maxFailures consecutive counted failures and rejects
// calls for resetTimeout. The first call after the timeout is a probe: success
// closes the breaker, failure reopens it.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	openedAt     time.Time
	now          func() time.Time

	// Counts decides which errors trip the breaker. Nil counts every error.
	Counts func(error) bool

	// OnStateChange is called with the lock held; it must not call back into the breaker.
	OnStateChange func(from, to State)
}

func NewBreaker(maxFailures int, resetTimeout time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &Breaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil && (b.Counts == nil || b.Counts(err)) {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
		return err
	}

	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
	b.failures = 0
	return err
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if to == StateClosed {
		b.failures = 0
	}
	if b.OnStateChange != nil {
		b.OnStateChange(from, to)
	}
}

// Guarded wraps a Provider with a Breaker. Missing-data answers and caller
// cancellation do not count as provider failures.
type Guarded struct {
	Provider
	breaker *Breaker
}

func NewGuarded(p Provider, maxFailures int, resetTimeout time.Duration) *Guarded {
	b := NewBreaker(maxFailures, resetTimeout)
	b.Counts = func(err error) bool {
		return !errors.Is(err, ErrNoData) && !errors.Is(err, context.Canceled)
	}
	name := p.Name()
	b.OnStateChange = func(from, to State) {
		log.Printf("[marketdata] %s breaker %s -> %s", name, from, to)
	}
	return &Guarded{Provider: p, breaker: b}
}

// Breaker exposes the breaker for health reporting.
func (g *Guarded) Breaker() *Breaker { return g.breaker }

func (g *Guarded) FetchBars(ctx context.Context, symbol string, r Range) ([]model.Bar, error) {
	var bars []model.Bar
	err := g.breaker.Execute(func() error {
		var err error
		bars, err = g.Provider.FetchBars(ctx, symbol, r)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, fmt.Errorf("%s %s: %w", g.Name(), symbol, err)
	}
	return bars, err
}
