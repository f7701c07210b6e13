package tradelog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trading-signalsv1/internal/model"
)

func entry(sym string, dir model.Direction) model.TradeLogEntry {
	return model.TradeLogEntry{
		ID: "x", Symbol: sym, Direction: dir,
		Entry: 105, StopLoss: 99.5, Target: 116.004,
		EntryTime: time.Date(2025, 9, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestCSV_CreatesHeaderAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trade_log.csv")
	c, err := OpenCSV(path, nil)
	if err != nil {
		t.Fatalf("OpenCSV: %v", err)
	}
	if err := c.Append(context.Background(), entry("TCS.NS", model.DirectionLong)); err != nil {
		t.Fatal(err)
	}
	c.Close()

	// reopening must not write a second header
	c, err = OpenCSV(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Append(context.Background(), entry("INFY.NS", model.DirectionShort)); err != nil {
		t.Fatal(err)
	}
	c.Close()

	raw, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), raw)
	}
	if lines[0] != "Stock,Direction,Entry,SL,Target,Result,Entry Time" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "TCS.NS,Long,105.00,99.50,116.00,,2025-09-01 10:30:00+00:00" {
		t.Errorf("row = %q", lines[1])
	}

	f, _ := os.Open(path)
	defer f.Close()
	rows, err := ReadAll(f)
	if err != nil || len(rows) != 2 || rows[1][1] != "Short" {
		t.Errorf("ReadAll = %v, %v", rows, err)
	}
}

func TestRow_EntryTimeInLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	e := entry("SBIN.NS", model.DirectionLong)
	e.EntryTime = time.Date(2025, 9, 1, 3, 45, 0, 0, time.UTC) // market open

	if got := Row(e, ist)[6]; got != "2025-09-01 09:15:00+05:30" {
		t.Errorf("entry time = %q, want 2025-09-01 09:15:00+05:30", got)
	}
	if got := Row(e, nil)[6]; got != "2025-09-01 03:45:00+00:00" {
		t.Errorf("entry time (nil loc) = %q", got)
	}
}

func TestCSV_WritesEntryTimeInLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_log.csv")
	ist := time.FixedZone("IST", 5*3600+30*60)
	c, err := OpenCSV(path, ist)
	if err != nil {
		t.Fatal(err)
	}
	e := entry("SBIN.NS", model.DirectionShort)
	e.EntryTime = time.Date(2025, 9, 1, 3, 45, 0, 0, time.UTC)
	if err := c.Append(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	c.Close()

	f, _ := os.Open(path)
	defer f.Close()
	rows, err := ReadAll(f)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ReadAll = %v, %v", rows, err)
	}
	if rows[0][6] != "2025-09-01 09:15:00+05:30" {
		t.Errorf("entry time = %q", rows[0][6])
	}
}

type failingWriter struct{ n int }

func (f *failingWriter) Append(context.Context, model.TradeLogEntry) error {
	f.n++
	return errors.New("disk full")
}
func (f *failingWriter) Close() error { return nil }

func TestMulti_AppendsToAll(t *testing.T) {
	a, b := &failingWriter{}, &failingWriter{}
	err := Multi{a, b}.Append(context.Background(), entry("X", model.DirectionLong))
	if err == nil || a.n != 1 || b.n != 1 {
		t.Errorf("err=%v a=%d b=%d", err, a.n, b.n)
	}
}
