package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/marketdata"
	"trading-signalsv1/internal/markethours"
	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/notification"
	"trading-signalsv1/internal/strategy"
)

// ────────────────────────────────────────────────────────────
// fakes
// ────────────────────────────────────────────────────────────

var t0 = time.Date(2025, 9, 1, 3, 45, 0, 0, time.UTC) // 09:15 IST

// longSetup ends on a bar that qualifies for a long entry:
// VWAP anchored near 50, RSI 0 after a steady decline, last volume 5 vs avg 1.2.
func longSetup(symbol string) []model.Bar {
	mk := func(i int, p, v float64) model.Bar {
		return model.Bar{Symbol: symbol, TS: t0.Add(time.Duration(i) * 15 * time.Minute), Open: p, High: p, Low: p, Close: p, Volume: v}
	}
	bars := []model.Bar{mk(0, 50, 10000)}
	for i := 1; i <= 21; i++ {
		bars = append(bars, mk(i, float64(101-i), 1))
	}
	return append(bars, mk(22, 79, 5))
}

// quiet never qualifies: flat price, flat volume.
func quiet(symbol string) []model.Bar {
	var bars []model.Bar
	for i := 0; i < 30; i++ {
		bars = append(bars, model.Bar{Symbol: symbol, TS: t0.Add(time.Duration(i) * 15 * time.Minute), Open: 10, High: 10, Low: 10, Close: 10, Volume: 100})
	}
	return bars
}

type stubProvider struct {
	mu    sync.Mutex
	calls []string
	bars  map[string][]model.Bar
	errs  map[string]error
	hook  func()
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchBars(_ context.Context, symbol string, _ marketdata.Range) ([]model.Bar, error) {
	p.mu.Lock()
	p.calls = append(p.calls, symbol)
	p.mu.Unlock()
	if p.hook != nil {
		p.hook()
	}
	if err := p.errs[symbol]; err != nil {
		return nil, err
	}
	return p.bars[symbol], nil
}

type recorder struct {
	mu     sync.Mutex
	alerts []notification.Alert
	err    error
}

func (r *recorder) Send(_ context.Context, a notification.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return r.err
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.alerts))
	for i, a := range r.alerts {
		out[i] = a.Message
	}
	return out
}

type memLog struct{ entries []model.TradeLogEntry }

func (m *memLog) Append(_ context.Context, e model.TradeLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}
func (m *memLog) Close() error { return nil }

type memBus struct{ sigs []strategy.Signal }

func (m *memBus) PublishSignal(_ context.Context, s strategy.Signal) error {
	m.sigs = append(m.sigs, s)
	return nil
}

func newService(t *testing.T, symbols []string, deps Deps) *Service {
	t.Helper()
	svc, err := New(Config{
		Symbols:        symbols,
		Range:          marketdata.MustRange("2d", "15m"),
		Indicators:     indicator.DefaultConfig(),
		Rules:          strategy.DefaultBreakoutConfig(),
		PollInterval:   time.Hour,
		StatusInterval: time.Hour,
	}, deps)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

// ────────────────────────────────────────────────────────────
// message format
// ────────────────────────────────────────────────────────────

func TestFormatSignal(t *testing.T) {
	sig := strategy.Signal{
		Symbol: "SBIN.NS", Direction: model.DirectionShort,
		Entry: 812.3, StopLoss: 820.456, Target: 796.0,
		Timestamp: t0,
	}
	want := "SHORT Signal: SBIN.NS\nEntry: 812.30\nSL: 820.46\nTarget: 796.00\nTime: 2025-09-01 09:15:00+05:30"
	if got := FormatSignal(sig, markethours.IST); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

// ────────────────────────────────────────────────────────────
// cycles
// ────────────────────────────────────────────────────────────

func TestRunCycle_SignalFansOut(t *testing.T) {
	prov := &stubProvider{
		bars: map[string][]model.Bar{"A.NS": longSetup("A.NS"), "Q.NS": quiet("Q.NS")},
		errs: map[string]error{"BAD.NS": fmt.Errorf("stub: %w", marketdata.ErrNoData)},
	}
	notes, tlog, bus := &recorder{}, &memLog{}, &memBus{}
	svc := newService(t, []string{"BAD.NS", "A.NS", "Q.NS"}, Deps{Provider: prov, Notifier: notes, TradeLog: tlog, Publisher: bus})

	report := svc.RunCycle(context.Background())

	if len(report.Symbols) != 3 || report.Failed() != 1 {
		t.Fatalf("report = %+v", report)
	}
	if _, err := uuid.Parse(report.ID); err != nil {
		t.Errorf("cycle id %q: %v", report.ID, err)
	}
	if !errors.Is(report.Symbols[0].Err, marketdata.ErrNoData) {
		t.Errorf("BAD.NS err = %v", report.Symbols[0].Err)
	}
	sigs := report.Signals()
	if len(sigs) != 1 || sigs[0].Symbol != "A.NS" || sigs[0].Direction != model.DirectionLong || sigs[0].Entry != 79 {
		t.Fatalf("signals = %+v", sigs)
	}

	msgs := notes.messages()
	if len(msgs) != 1 || !strings.HasPrefix(msgs[0], "LONG Signal: A.NS\nEntry: 79.00\nSL: ") {
		t.Errorf("messages = %q", msgs)
	}
	if len(tlog.entries) != 1 || tlog.entries[0].Result != "" || tlog.entries[0].ID == "" {
		t.Errorf("trade log = %+v", tlog.entries)
	}
	if !tlog.entries[0].EntryTime.Equal(t0.Add(22 * 15 * time.Minute)) {
		t.Errorf("entry time = %s", tlog.entries[0].EntryTime)
	}
	if len(bus.sigs) != 1 {
		t.Errorf("published = %d", len(bus.sigs))
	}
}

func TestRunCycle_LiveModeRepeatsSignals(t *testing.T) {
	prov := &stubProvider{bars: map[string][]model.Bar{"A.NS": longSetup("A.NS")}}
	notes := &recorder{}
	svc := newService(t, []string{"A.NS"}, Deps{Provider: prov, Notifier: notes})

	svc.RunCycle(context.Background())
	svc.RunCycle(context.Background())
	if got := len(notes.messages()); got != 2 {
		t.Errorf("live mode must signal on every qualifying cycle, got %d", got)
	}
}

func TestRunCycle_NotifierFailureDoesNotStopSinks(t *testing.T) {
	prov := &stubProvider{bars: map[string][]model.Bar{"A.NS": longSetup("A.NS")}}
	notes, tlog, bus := &recorder{err: errors.New("telegram down")}, &memLog{}, &memBus{}
	svc := newService(t, []string{"A.NS"}, Deps{Provider: prov, Notifier: notes, TradeLog: tlog, Publisher: bus})

	report := svc.RunCycle(context.Background())
	if report.Failed() != 0 || len(tlog.entries) != 1 || len(bus.sigs) != 1 {
		t.Errorf("failed=%d log=%d bus=%d", report.Failed(), len(tlog.entries), len(bus.sigs))
	}
}

func TestRunCycle_EmptyAndUndefined(t *testing.T) {
	zeroVol := quiet("Z.NS")
	for i := range zeroVol {
		zeroVol[i].Volume = 0
	}
	prov := &stubProvider{bars: map[string][]model.Bar{"E.NS": nil, "Z.NS": zeroVol}}
	svc := newService(t, []string{"E.NS", "Z.NS"}, Deps{Provider: prov})

	report := svc.RunCycle(context.Background())
	if !errors.Is(report.Symbols[0].Err, marketdata.ErrNoData) {
		t.Errorf("empty bars err = %v", report.Symbols[0].Err)
	}
	if !errors.Is(report.Symbols[1].Err, strategy.ErrUndefinedValue) {
		t.Errorf("zero volume err = %v", report.Symbols[1].Err)
	}
}

func TestRunCycle_MarketClosedSkips(t *testing.T) {
	prov := &stubProvider{bars: map[string][]model.Bar{"A.NS": longSetup("A.NS")}}
	svc := newService(t, []string{"A.NS"}, Deps{Provider: prov})
	svc.cfg.Session = markethours.NSE()
	svc.now = func() time.Time { return time.Date(2025, 9, 6, 12, 0, 0, 0, markethours.IST) } // Saturday

	report := svc.RunCycle(context.Background())
	if !report.Skipped || len(prov.calls) != 0 {
		t.Errorf("skipped=%v calls=%v", report.Skipped, prov.calls)
	}
}

// ────────────────────────────────────────────────────────────
// lifecycle
// ────────────────────────────────────────────────────────────

func TestRun_StartAndStopMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	prov := &stubProvider{errs: map[string]error{"A.NS": marketdata.ErrNoData}, hook: cancel}
	notes := &recorder{}
	svc := newService(t, []string{"A.NS"}, Deps{Provider: prov, Notifier: notes})

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	msgs := notes.messages()
	if len(msgs) != 2 || msgs[0] != StartMessage || msgs[1] != StopMessage {
		t.Errorf("messages = %q", msgs)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{PollInterval: time.Minute, Range: marketdata.MustRange("2d", "15m"), Indicators: indicator.DefaultConfig(), Rules: strategy.DefaultBreakoutConfig()}, Deps{}); err == nil {
		t.Error("missing provider should fail")
	}
	cfg := Config{PollInterval: time.Minute, Range: marketdata.MustRange("2d", "15m"), Indicators: indicator.DefaultConfig(), Rules: strategy.DefaultBreakoutConfig()}
	cfg.Indicators.RSIPeriod = 0
	if _, err := New(cfg, Deps{Provider: &stubProvider{}}); !errors.Is(err, indicator.ErrInvalidConfig) {
		t.Errorf("err = %v", err)
	}
}
