// Package indicator computes technical indicator series over bar data.
//
// Every function is pure: it takes an ordered slice and returns a new slice of
// the same length. Empty input yields empty output, never an error. Values
// that cannot be computed are reported as NaN.
package indicator

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel wrapped by every configuration failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError names the offending field of an invalid configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// Smoothing selects how RSI averages the up and down moves.
type Smoothing string

const (
	// SmoothingSimple is a rolling mean over the last period deltas with an
	// expanding window until period deltas exist.
	SmoothingSimple Smoothing = "simple"

	// SmoothingExponential is an EWM with alpha = 1/period, seeded with the
	// first value and no bias adjustment.
	SmoothingExponential Smoothing = "exponential"
)

// ParseSmoothing accepts "simple" or "exponential" (empty means simple).
func ParseSmoothing(s string) (Smoothing, error) {
	switch Smoothing(s) {
	case "", SmoothingSimple:
		return SmoothingSimple, nil
	case SmoothingExponential:
		return SmoothingExponential, nil
	}
	return "", &ConfigError{Field: "rsi_smoothing", Reason: fmt.Sprintf("must be simple or exponential, got %q", s)}
}

// Config specifies the windows used to build a Series.
type Config struct {
	RSIPeriod    int       `yaml:"rsi_period"`
	RSISmoothing Smoothing `yaml:"rsi_smoothing"`
	VolumeWindow int       `yaml:"volume_window"`
	SMAWindow    int       `yaml:"sma_window"`
	EMASpan      int       `yaml:"ema_span"`
}

// DefaultConfig returns RSI(14, simple), volume window 20, SMA(3) and EMA(9).
func DefaultConfig() Config {
	return Config{
		RSIPeriod:    14,
		RSISmoothing: SmoothingSimple,
		VolumeWindow: 20,
		SMAWindow:    3,
		EMASpan:      9,
	}
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	if c.RSIPeriod <= 0 {
		return &ConfigError{Field: "rsi_period", Reason: "must be > 0"}
	}
	if c.VolumeWindow <= 0 {
		return &ConfigError{Field: "volume_window", Reason: "must be > 0"}
	}
	if c.SMAWindow <= 0 {
		return &ConfigError{Field: "sma_window", Reason: "must be > 0"}
	}
	if c.EMASpan <= 0 {
		return &ConfigError{Field: "ema_span", Reason: "must be > 0"}
	}
	if _, err := ParseSmoothing(string(c.RSISmoothing)); err != nil {
		return err
	}
	return nil
}
