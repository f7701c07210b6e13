// Package strategy turns indicator series into trading decisions.
//
// A Strategy looks at one point of an indicator.Series and returns a Signal.
// Rule set A (Breakout) classifies Long/Short/Neutral from VWAP, RSI and
// volume; rule set B (Crossover) classifies CE/PE/Neutral from an SMA/EMA
// cross. Neither strategy performs I/O.
package strategy

import (
	"errors"
	"fmt"
	"time"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/model"
)

var (
	// ErrInsufficientData means the series is too short to classify.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUndefinedValue means an indicator value needed by the rule is NaN.
	// Callers must treat it as "cannot classify", never as Neutral.
	ErrUndefinedValue = errors.New("undefined indicator value")
)

// InsufficientDataError carries how many points a rule needed.
type InsufficientDataError struct {
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d points, have %d", e.Need, e.Have)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// Action represents what a signal asks the consumer to do.
type Action string

const (
	ActionNone  Action = "NONE"
	ActionEntry Action = "ENTRY"
	ActionExit  Action = "EXIT"
)

// Signal is the ephemeral output of a strategy for one bar.
type Signal struct {
	Strategy  string          `json:"strategy"`
	Symbol    string          `json:"symbol"`
	Action    Action          `json:"action"`
	Direction model.Direction `json:"direction"`
	Entry     float64         `json:"entry"`
	StopLoss  float64         `json:"stop_loss,omitempty"`
	Target    float64         `json:"target,omitempty"`
	Price     float64         `json:"price"` // close of the evaluated bar
	Timestamp time.Time       `json:"timestamp"`
	Reason    string          `json:"reason,omitempty"`

	// Trade is set on exit signals when the strategy tracks positions.
	Trade *model.Trade `json:"trade,omitempty"`
}

// IsEntry reports whether the signal opens a Long or Short position.
func (s Signal) IsEntry() bool { return s.Action == ActionEntry }

// Strategy is implemented by both rule sets.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Evaluate classifies point i of the series (negative i counts from the end).
	Evaluate(symbol string, s *indicator.Series, i int) (Signal, error)
}

func resolveIndex(s *indicator.Series, i int) (int, error) {
	n := s.Len()
	if i < 0 {
		i += n
	}
	if n == 0 || i < 0 || i >= n {
		return 0, &InsufficientDataError{Need: 1, Have: n}
	}
	return i, nil
}
