package indicator

import (
	"math"

	"trading-signalsv1/internal/model"
)

// Series holds indicator values aligned 1:1 with the bars they came from.
type Series struct {
	Bars      []model.Bar
	VWAP      []float64
	RSI       []float64
	VolumeAvg []float64
	SMA       []float64
	EMA       []float64
}

// Len returns the number of aligned points.
func (s *Series) Len() int { return len(s.Bars) }

// Point is one row of a Series.
type Point struct {
	Bar       model.Bar
	VWAP      float64
	RSI       float64
	VolumeAvg float64
	SMA       float64
	EMA       float64
}

// Defined reports whether every indicator value of the point is a number.
func (p Point) Defined() bool {
	for _, v := range [...]float64{p.Bar.Close, p.Bar.Volume, p.VWAP, p.RSI, p.VolumeAvg, p.SMA, p.EMA} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// At returns the i-th point. Negative indexes count from the end (-1 is last).
func (s *Series) At(i int) Point {
	if i < 0 {
		i += s.Len()
	}
	return Point{
		Bar:       s.Bars[i],
		VWAP:      s.VWAP[i],
		RSI:       s.RSI[i],
		VolumeAvg: s.VolumeAvg[i],
		SMA:       s.SMA[i],
		EMA:       s.EMA[i],
	}
}

// Engine builds indicator series for a validated Config.
// It holds no per-instrument state and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine for it.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Compute builds every indicator over bars. VWAP is anchored at bars[0], so
// callers control the VWAP session by choosing the window they pass in.
func (e *Engine) Compute(bars []model.Bar) Series {
	closes := model.Closes(bars)
	return Series{
		Bars:      bars,
		VWAP:      VWAP(bars),
		RSI:       RSI(closes, e.cfg.RSIPeriod, e.cfg.RSISmoothing),
		VolumeAvg: VolumeAverage(model.Volumes(bars), e.cfg.VolumeWindow),
		SMA:       SMA(closes, e.cfg.SMAWindow),
		EMA:       EMA(closes, e.cfg.EMASpan),
	}
}
