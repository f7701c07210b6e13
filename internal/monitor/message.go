package monitor

import (
	"fmt"
	"strings"
	"time"

	"trading-signalsv1/internal/strategy"
)

// TimeLayout renders bar timestamps with their UTC offset, e.g.
// "2025-09-01 09:15:00+05:30".
const TimeLayout = "2006-01-02 15:04:05-07:00"

// Lifecycle messages.
const (
	StartMessage  = "Signal monitor started. Hello!"
	StatusMessage = "Code is still running. Status update!"
	StopMessage   = "Signal monitor stopped. Stop!"
)

// FormatSignal renders an entry signal as the chat message:
//
//	LONG Signal: SBIN.NS
//	Entry: 812.30
//	SL: 805.10
//	Target: 826.70
//	Time: 2025-09-01 09:15:00+05:30
func FormatSignal(sig strategy.Signal, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%s Signal: %s\nEntry: %.2f\nSL: %.2f\nTarget: %.2f\nTime: %s",
		strings.ToUpper(sig.Direction.Label()), sig.Symbol, sig.Entry, sig.StopLoss, sig.Target,
		sig.Timestamp.In(loc).Format(TimeLayout))
}
