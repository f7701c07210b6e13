package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"trading-signalsv1/internal/model"
)

// Store serves bars previously saved to a model.BarStore, so backtests can
// run offline.
type Store struct {
	store model.BarStore
	now   func() time.Time
}

func NewStore(s model.BarStore) *Store {
	return &Store{store: s, now: time.Now}
}

func (s *Store) Name() string { return "sqlite" }

func (s *Store) FetchBars(ctx context.Context, symbol string, r Range) ([]model.Bar, error) {
	bars, err := s.store.ReadBars(ctx, symbol, r.Interval, r.Start(s.now()))
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("store %s %s: %w", symbol, r, ErrNoData)
	}
	return bars, nil
}

// Recorder passes fetches through to a Provider and saves every result to a
// BarStore. A failed save is logged, not returned.
type Recorder struct {
	Provider
	store model.BarStore
}

func NewRecorder(p Provider, s model.BarStore) *Recorder {
	return &Recorder{Provider: p, store: s}
}

func (r *Recorder) FetchBars(ctx context.Context, symbol string, rg Range) ([]model.Bar, error) {
	bars, err := r.Provider.FetchBars(ctx, symbol, rg)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveBars(ctx, rg.Interval, bars); err != nil {
		log.Printf("[marketdata] save %d bars for %s: %v", len(bars), symbol, err)
	}
	return bars, nil
}
