package marketdata

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"trading-signalsv1/internal/model"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(max int, reset time.Duration) (*Breaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(max, reset)
	b.now = clk.now
	return b, clk
}

func TestBreaker_StartsClosed(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)
	if b.State() != StateClosed {
		t.Errorf("expected Closed, got %v", b.State())
	}
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)
	errFail := errors.New("fail")

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if b.State() != StateOpen {
		t.Errorf("expected Open after 3 failures, got %v", b.State())
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("expected rejection without call, got %v (called=%v)", err, called)
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b, clk := newTestBreaker(2, time.Second)
	errFail := errors.New("fail")
	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errFail })
	}

	clk.advance(time.Second)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("expected Closed after successful probe, got %v", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clk := newTestBreaker(2, time.Second)
	errFail := errors.New("fail")
	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errFail })
	}
	clk.advance(2 * time.Second)
	_ = b.Execute(func() error { return errFail })

	if b.State() != StateOpen {
		t.Errorf("expected Open after failed probe, got %v", b.State())
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen right after reopening, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(2, time.Second)
	errFail := errors.New("fail")
	_ = b.Execute(func() error { return errFail })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errFail })
	if b.State() != StateClosed {
		t.Errorf("non-consecutive failures must not trip, got %v", b.State())
	}
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	b, _ := newTestBreaker(1, time.Second)
	var changes []string
	b.OnStateChange = func(from, to State) {
		changes = append(changes, from.String()+"->"+to.String())
	}
	_ = b.Execute(func() error { return errors.New("fail") })
	if len(changes) != 1 || changes[0] != "closed->open" {
		t.Errorf("unexpected transitions %v", changes)
	}
}

// ────────────────────────────────────────────────────────────
// Guarded provider
// ────────────────────────────────────────────────────────────

type stubProvider struct {
	err   error
	calls int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) FetchBars(ctx context.Context, symbol string, r Range) ([]model.Bar, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []model.Bar{{Symbol: symbol, TS: time.Unix(0, 0), Close: 1}}, nil
}

func TestGuarded_NoDataDoesNotTrip(t *testing.T) {
	stub := &stubProvider{err: fmt.Errorf("stub XYZ: %w", ErrNoData)}
	g := NewGuarded(stub, 2, time.Minute)
	for i := 0; i < 5; i++ {
		if _, err := g.FetchBars(context.Background(), "XYZ", MustRange("2d", "15m")); !errors.Is(err, ErrNoData) {
			t.Fatalf("err = %v, want ErrNoData", err)
		}
	}
	if g.Breaker().State() != StateClosed {
		t.Errorf("ErrNoData must not open the breaker")
	}
}

func TestGuarded_TransportErrorsTrip(t *testing.T) {
	stub := &stubProvider{err: errors.New("connection refused")}
	g := NewGuarded(stub, 2, time.Minute)
	r := MustRange("2d", "15m")
	_, _ = g.FetchBars(context.Background(), "A", r)
	_, _ = g.FetchBars(context.Background(), "B", r)

	_, err := g.FetchBars(context.Background(), "C", r)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if stub.calls != 2 {
		t.Errorf("provider called %d times, want 2", stub.calls)
	}
}
