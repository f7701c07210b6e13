package strategy

import (
	"fmt"
	"math"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/model"
)

// DefaultMinCrossoverPoints is the shortest series the crossover will classify.
const DefaultMinCrossoverPoints = 14

// Cross compares the previous and latest SMA/EMA pairs.
//
// CE (golden cross): sma was below ema and is now above.
// PE (death cross):  sma was above ema and is now below.
// Anything else, including ties on either bar, is Neutral.
func Cross(prevSMA, prevEMA, lastSMA, lastEMA float64) (model.Direction, error) {
	for _, v := range [...]float64{prevSMA, prevEMA, lastSMA, lastEMA} {
		if math.IsNaN(v) {
			return "", ErrUndefinedValue
		}
	}
	switch {
	case prevSMA < prevEMA && lastSMA > lastEMA:
		return model.DirectionCE, nil
	case prevSMA > prevEMA && lastSMA < lastEMA:
		return model.DirectionPE, nil
	}
	return model.DirectionNeutral, nil
}

// Crossover is rule set B. It is stateless.
type Crossover struct {
	MinPoints int
}

// NewCrossover returns a crossover requiring DefaultMinCrossoverPoints.
func NewCrossover() *Crossover {
	return &Crossover{MinPoints: DefaultMinCrossoverPoints}
}

func (c *Crossover) Name() string { return "SMA_EMA_Crossover" }

// Evaluate classifies the cross ending at point i using only points 0..i.
func (c *Crossover) Evaluate(symbol string, s *indicator.Series, i int) (Signal, error) {
	idx, err := resolveIndex(s, i)
	if err != nil {
		return Signal{}, err
	}
	need := c.MinPoints
	if need < 2 {
		need = 2
	}
	if have := idx + 1; have < need {
		return Signal{}, &InsufficientDataError{Need: need, Have: have}
	}

	dir, err := Cross(s.SMA[idx-1], s.EMA[idx-1], s.SMA[idx], s.EMA[idx])
	if err != nil {
		return Signal{}, err
	}

	p := s.At(idx)
	sig := Signal{
		Strategy:  c.Name(),
		Symbol:    symbol,
		Action:    ActionNone,
		Direction: dir,
		Price:     p.Bar.Close,
		Timestamp: p.Bar.TS,
		Reason:    fmt.Sprintf("SMA %.2f -> %.2f, EMA %.2f -> %.2f", s.SMA[idx-1], p.SMA, s.EMA[idx-1], p.EMA),
	}
	if dir != model.DirectionNeutral {
		sig.Action = ActionEntry
		sig.Entry = p.Bar.Close
	}
	return sig, nil
}
