// Package markethours answers "is the exchange trading right now" for a
// configurable daily session and holiday calendar.
package markethours

import (
	"fmt"
	"strings"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

const dateLayout = "2006-01-02"

// Session is a Mon-Fri trading window [Open, Close) in Loc, minus holidays.
type Session struct {
	Loc      *time.Location
	open     int // minutes after midnight
	close    int
	holidays map[string]bool
}

// NSE returns the 09:15-15:30 IST session with the built-in holiday list.
func NSE() *Session {
	s, _ := NewSession(IST, "09:15", "15:30", nseHolidays)
	return s
}

// NewSession parses "HH:MM" bounds and "YYYY-MM-DD" holidays.
func NewSession(loc *time.Location, open, close string, holidays []string) (*Session, error) {
	if loc == nil {
		loc = IST
	}
	o, err := parseClock(open)
	if err != nil {
		return nil, fmt.Errorf("session open: %w", err)
	}
	c, err := parseClock(close)
	if err != nil {
		return nil, fmt.Errorf("session close: %w", err)
	}
	if c <= o {
		return nil, fmt.Errorf("session close %s must be after open %s", close, open)
	}
	s := &Session{Loc: loc, open: o, close: c, holidays: make(map[string]bool, len(holidays))}
	for _, h := range holidays {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, err := time.ParseInLocation(dateLayout, h, loc); err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		s.holidays[h] = true
	}
	return s, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsHoliday reports whether t's local date is on the holiday list.
func (s *Session) IsHoliday(t time.Time) bool {
	return s.holidays[t.In(s.Loc).Format(dateLayout)]
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func (s *Session) IsTradingDay(t time.Time) bool {
	wd := t.In(s.Loc).Weekday()
	return wd != time.Saturday && wd != time.Sunday && !s.IsHoliday(t)
}

// IsOpen returns true if t falls within the session on a trading day.
func (s *Session) IsOpen(t time.Time) bool {
	if !s.IsTradingDay(t) {
		return false
	}
	lt := t.In(s.Loc)
	hm := lt.Hour()*60 + lt.Minute()
	return hm >= s.open && hm < s.close
}

func (s *Session) at(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, s.Loc)
}

// NextOpen returns the next session open at or after t. While the market is
// open it returns the following session's open.
func (s *Session) NextOpen(t time.Time) time.Time {
	lt := t.In(s.Loc)
	if today := s.at(lt, s.open); lt.Before(today) && s.IsTradingDay(lt) {
		return today
	}
	d := lt.AddDate(0, 0, 1)
	for i := 0; i < 30; i++ {
		if s.IsTradingDay(d) {
			return s.at(d, s.open)
		}
		d = d.AddDate(0, 0, 1)
	}
	return s.at(lt.AddDate(0, 0, 1), s.open)
}

// TimeUntilClose returns the duration until today's close, or 0 when closed.
func (s *Session) TimeUntilClose(t time.Time) time.Duration {
	if !s.IsOpen(t) {
		return 0
	}
	return s.at(t.In(s.Loc), s.close).Sub(t)
}

// StatusString returns a human-readable market status.
func (s *Session) StatusString(t time.Time) string {
	if s.IsOpen(t) {
		return fmt.Sprintf("Market open, closes in %s", fmtDur(s.TimeUntilClose(t)))
	}
	next := s.NextOpen(t)
	lt := next.In(s.Loc)
	return fmt.Sprintf("Market closed, opens %s %s (%s)",
		lt.Weekday().String()[:3], lt.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
