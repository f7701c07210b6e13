package marketdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Range is a lookback period plus a bar interval, written the way chart
// APIs spell them: period "2d", "1wk", "1mo", "1y"; interval "15m", "1h", "1d".
type Range struct {
	Period   string `json:"period" yaml:"period"`
	Interval string `json:"interval" yaml:"interval"`
}

// ParseRange validates both halves of a range.
func ParseRange(period, interval string) (Range, error) {
	r := Range{Period: strings.TrimSpace(period), Interval: strings.TrimSpace(interval)}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// MustRange is ParseRange for package-level defaults.
func MustRange(period, interval string) Range {
	r, err := ParseRange(period, interval)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Range) String() string { return r.Period + "@" + r.Interval }

// Validate reports whether period and interval are well formed.
func (r Range) Validate() error {
	if _, _, err := splitUnit(r.Period, periodUnits); err != nil {
		return fmt.Errorf("period %q: %w", r.Period, err)
	}
	if _, err := r.Step(); err != nil {
		return err
	}
	return nil
}

// Start returns the beginning of the lookback window ending at now.
func (r Range) Start(now time.Time) time.Time {
	n, unit, err := splitUnit(r.Period, periodUnits)
	if err != nil {
		return now
	}
	switch unit {
	case "d":
		return now.AddDate(0, 0, -n)
	case "wk":
		return now.AddDate(0, 0, -7*n)
	case "mo":
		return now.AddDate(0, -n, 0)
	default: // "y"
		return now.AddDate(-n, 0, 0)
	}
}

// Step returns the bar interval as a duration. Months count as 30 days.
func (r Range) Step() (time.Duration, error) {
	n, unit, err := splitUnit(r.Interval, intervalUnits)
	if err != nil {
		return 0, fmt.Errorf("interval %q: %w", r.Interval, err)
	}
	switch unit {
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "wk":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default: // "mo"
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	}
}

// Intraday reports whether bars are shorter than a day.
func (r Range) Intraday() bool {
	step, err := r.Step()
	return err == nil && step < 24*time.Hour
}

var (
	periodUnits   = []string{"wk", "mo", "d", "y"}
	intervalUnits = []string{"wk", "mo", "m", "h", "d"}
)

// splitUnit parses "<n><unit>" with n > 0. Longer units are listed first so
// "mo" wins over "m".
func splitUnit(s string, units []string) (int, string, error) {
	for _, u := range units {
		if !strings.HasSuffix(s, u) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(s, u))
		if err != nil || n <= 0 {
			return 0, "", fmt.Errorf("want <positive int><%s>", u)
		}
		return n, u, nil
	}
	return 0, "", fmt.Errorf("unknown unit, want one of %v", units)
}
