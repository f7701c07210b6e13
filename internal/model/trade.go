package model

import "time"

// Direction is the discrete decision produced by a rule set.
type Direction string

const (
	DirectionLong    Direction = "LONG"
	DirectionShort   Direction = "SHORT"
	DirectionNeutral Direction = "NEUTRAL"

	// Option-side decisions used by the crossover classifier.
	DirectionCE Direction = "CE"
	DirectionPE Direction = "PE"
)

// Label returns the title-cased name used in trade logs and messages ("Long", "Short").
func (d Direction) Label() string {
	switch d {
	case DirectionLong:
		return "Long"
	case DirectionShort:
		return "Short"
	case DirectionNeutral:
		return "Neutral"
	default:
		return string(d)
	}
}

// Trade is a closed round trip produced by the backtester.
type Trade struct {
	Symbol    string        `json:"symbol"`
	Direction Direction     `json:"direction"`
	Entry     float64       `json:"entry"`
	Exit      float64       `json:"exit"`
	PnL       float64       `json:"pnl"`
	EntryTime time.Time     `json:"entry_time"`
	ExitTime  time.Time     `json:"exit_time"`
	Duration  time.Duration `json:"duration"`
}

// TradeLogEntry is one row of the live signal log. Result stays empty when
// written; it is filled in by whoever reconciles fills later.
type TradeLogEntry struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Entry     float64   `json:"entry"`
	StopLoss  float64   `json:"stop_loss"`
	Target    float64   `json:"target"`
	Result    string    `json:"result"`
	EntryTime time.Time `json:"entry_time"`
}
