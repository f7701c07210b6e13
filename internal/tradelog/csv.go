// Package tradelog appends live signals to durable logs.
package tradelog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trading-signalsv1/internal/model"
)

// Header is the first row of every CSV trade log.
var Header = []string{"Stock", "Direction", "Entry", "SL", "Target", "Result", "Entry Time"}

// TimeLayout renders the entry time with its UTC offset so rows stay
// unambiguous, e.g. "2025-09-01 09:15:00+05:30".
const TimeLayout = "2006-01-02 15:04:05-07:00"

// CSV is an append-only CSV trade log. Existing rows are never rewritten.
type CSV struct {
	mu   sync.Mutex
	path string
	loc  *time.Location
	f    *os.File
	w    *csv.Writer
}

// OpenCSV opens path for appending, creating it (and its directory) with the
// header row if it does not exist or is empty. Entry times are written in loc,
// or UTC when loc is nil.
func OpenCSV(path string, loc *time.Location) (*CSV, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("trade log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	c := &CSV{path: path, loc: loc, f: f, w: csv.NewWriter(f)}
	if st.Size() == 0 {
		if err := c.w.Write(Header); err != nil {
			f.Close()
			return nil, err
		}
		c.w.Flush()
		if err := c.w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return c, nil
}

// Path returns the file being appended to.
func (c *CSV) Path() string { return c.path }

// Append writes one row and flushes it to the file.
func (c *CSV) Append(_ context.Context, e model.TradeLogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.w.Write(Row(e, c.loc)); err != nil {
		return fmt.Errorf("append trade log: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	return errors.Join(c.w.Error(), c.f.Close())
}

// Row renders an entry in Header order with prices at two decimals and the
// entry time in loc.
func Row(e model.TradeLogEntry, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	return []string{
		e.Symbol,
		e.Direction.Label(),
		decimal.NewFromFloat(e.Entry).StringFixed(2),
		decimal.NewFromFloat(e.StopLoss).StringFixed(2),
		decimal.NewFromFloat(e.Target).StringFixed(2),
		e.Result,
		e.EntryTime.In(loc).Format(TimeLayout),
	}
}

// ReadAll parses a trade log written by CSV. The header row is skipped.
func ReadAll(r io.Reader) ([][]string, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && rows[0][0] == Header[0] {
		rows = rows[1:]
	}
	return rows, nil
}

// Multi appends to every writer and joins their errors.
type Multi []model.TradeLogWriter

func (m Multi) Append(ctx context.Context, e model.TradeLogEntry) error {
	var errs []error
	for _, w := range m {
		if err := w.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}
