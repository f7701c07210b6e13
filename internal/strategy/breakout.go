package strategy

import (
	"fmt"
	"math"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/model"
)

// BreakoutConfig parameterizes rule set A.
type BreakoutConfig struct {
	VolumeMultiplier float64 `yaml:"volume_multiplier"`
	StopBuffer       float64 `yaml:"stop_buffer"`
	RiskReward       float64 `yaml:"risk_reward"`
	Oversold         float64 `yaml:"oversold"`
	Overbought       float64 `yaml:"overbought"`

	// TrackOpenPosition suppresses new entries while a position is open and
	// emits exits on a VWAP cross. Live monitoring runs with it off.
	TrackOpenPosition bool `yaml:"track_open_position"`
}

// DefaultBreakoutConfig returns multiplier 1, buffer 0.5%, reward 2:1 and RSI 30/70.
func DefaultBreakoutConfig() BreakoutConfig {
	return BreakoutConfig{
		VolumeMultiplier: 1.0,
		StopBuffer:       0.005,
		RiskReward:       2.0,
		Oversold:         30,
		Overbought:       70,
	}
}

// Validate reports the first invalid field as an *indicator.ConfigError.
func (c BreakoutConfig) Validate() error {
	switch {
	case c.VolumeMultiplier < 0 || math.IsNaN(c.VolumeMultiplier):
		return &indicator.ConfigError{Field: "volume_multiplier", Reason: "must be >= 0"}
	case c.StopBuffer < 0 || math.IsNaN(c.StopBuffer):
		return &indicator.ConfigError{Field: "stop_buffer", Reason: "must be >= 0"}
	case !(c.RiskReward > 0):
		return &indicator.ConfigError{Field: "risk_reward", Reason: "must be > 0"}
	case !(c.Oversold >= 0 && c.Oversold <= c.Overbought && c.Overbought <= 100):
		return &indicator.ConfigError{Field: "oversold/overbought", Reason: "must satisfy 0 <= oversold <= overbought <= 100"}
	}
	return nil
}

// Levels derives stop-loss and target for an entry at price against vwap.
//
//	Long:  stop = vwap*(1-buffer), target = entry + (entry-stop)*rr
//	Short: stop = vwap*(1+buffer), target = entry - (stop-entry)*rr
func Levels(dir model.Direction, entry, vwap, buffer, riskReward float64) (stop, target float64) {
	switch dir {
	case model.DirectionLong:
		stop = vwap * (1 - buffer)
		target = entry + (entry-stop)*riskReward
	case model.DirectionShort:
		stop = vwap * (1 + buffer)
		target = entry - (stop-entry)*riskReward
	}
	return stop, target
}

// Breakout is rule set A. With TrackOpenPosition it keeps one open position
// per symbol and is not safe for concurrent use; without it, it is stateless.
type Breakout struct {
	cfg  BreakoutConfig
	open map[string]*model.Position
}

// NewBreakout validates cfg and returns the rule set.
func NewBreakout(cfg BreakoutConfig) (*Breakout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Breakout{cfg: cfg, open: make(map[string]*model.Position)}, nil
}

func (b *Breakout) Name() string { return "VWAP_RSI_Volume" }

// Config returns the rule parameters.
func (b *Breakout) Config() BreakoutConfig { return b.cfg }

// Open returns the tracked position for symbol, if any.
func (b *Breakout) Open(symbol string) (model.Position, bool) {
	p, ok := b.open[symbol]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

// Classify applies the entry conditions to one point. All three conditions
// (price vs VWAP, RSI, volume surge) must hold.
func (b *Breakout) Classify(p indicator.Point) (model.Direction, error) {
	if math.IsNaN(p.Bar.Close) || math.IsNaN(p.VWAP) || math.IsNaN(p.RSI) ||
		math.IsNaN(p.Bar.Volume) || math.IsNaN(p.VolumeAvg) {
		return "", ErrUndefinedValue
	}
	surge := p.Bar.Volume > b.cfg.VolumeMultiplier*p.VolumeAvg
	switch {
	case p.Bar.Close > p.VWAP && p.RSI < b.cfg.Oversold && surge:
		return model.DirectionLong, nil
	case p.Bar.Close < p.VWAP && p.RSI > b.cfg.Overbought && surge:
		return model.DirectionShort, nil
	}
	return model.DirectionNeutral, nil
}

// Evaluate classifies point i and, when tracking positions, handles exits
// and entry suppression for symbol.
func (b *Breakout) Evaluate(symbol string, s *indicator.Series, i int) (Signal, error) {
	idx, err := resolveIndex(s, i)
	if err != nil {
		return Signal{}, err
	}
	p := s.At(idx)
	sig := Signal{
		Strategy:  b.Name(),
		Symbol:    symbol,
		Action:    ActionNone,
		Direction: model.DirectionNeutral,
		Price:     p.Bar.Close,
		Timestamp: p.Bar.TS,
	}

	if b.cfg.TrackOpenPosition {
		if pos, ok := b.open[symbol]; ok {
			if math.IsNaN(p.VWAP) || math.IsNaN(p.Bar.Close) {
				return Signal{}, ErrUndefinedValue
			}
			if (pos.Direction == model.DirectionLong && p.Bar.Close < p.VWAP) ||
				(pos.Direction == model.DirectionShort && p.Bar.Close > p.VWAP) {
				trade := pos.Close(p.Bar.Close, p.Bar.TS)
				delete(b.open, symbol)
				sig.Action = ActionExit
				sig.Direction = pos.Direction
				sig.Entry = pos.Entry
				sig.Trade = &trade
				sig.Reason = fmt.Sprintf("close %.2f crossed VWAP %.2f", p.Bar.Close, p.VWAP)
			}
			return sig, nil
		}
	}

	dir, err := b.Classify(p)
	if err != nil {
		return Signal{}, err
	}
	if dir == model.DirectionNeutral {
		return sig, nil
	}

	sig.Action = ActionEntry
	sig.Direction = dir
	sig.Entry = p.Bar.Close
	sig.StopLoss, sig.Target = Levels(dir, p.Bar.Close, p.VWAP, b.cfg.StopBuffer, b.cfg.RiskReward)
	sig.Reason = fmt.Sprintf("close %.2f vs VWAP %.2f, RSI %.2f, volume %.0f > %.2fx avg %.0f",
		p.Bar.Close, p.VWAP, p.RSI, p.Bar.Volume, b.cfg.VolumeMultiplier, p.VolumeAvg)

	if b.cfg.TrackOpenPosition {
		b.open[symbol] = &model.Position{
			Symbol:    symbol,
			Direction: dir,
			Entry:     p.Bar.Close,
			EntryTime: p.Bar.TS,
		}
	}
	return sig, nil
}
