// Package monitor is the live loop: every poll interval it fetches recent
// bars for each symbol, evaluates the breakout rules on the newest bar and
// fans entry signals out to notifiers, the trade log and the signal bus.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/logger"
	"trading-signalsv1/internal/marketdata"
	"trading-signalsv1/internal/markethours"
	"trading-signalsv1/internal/metrics"
	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/notification"
	"trading-signalsv1/internal/strategy"
)

// Publisher receives every entry signal, e.g. the Redis signal bus.
type Publisher interface {
	PublishSignal(ctx context.Context, sig strategy.Signal) error
}

// Config holds the loop parameters.
type Config struct {
	Symbols        []string
	Range          marketdata.Range
	Indicators     indicator.Config
	Rules          strategy.BreakoutConfig
	PollInterval   time.Duration
	StatusInterval time.Duration

	// Session, when set, skips cycles while the market is closed.
	Session *markethours.Session

	// Location used to print signal times. Defaults to IST.
	Location *time.Location
}

// Deps are the collaborators. Only Provider is required.
type Deps struct {
	Provider  marketdata.Provider
	Notifier  notification.Notifier
	TradeLog  model.TradeLogWriter
	Publisher Publisher
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
}

// SymbolReport is the outcome for one symbol in one cycle.
type SymbolReport struct {
	Symbol string           `json:"symbol"`
	Bars   int              `json:"bars"`
	Signal *strategy.Signal `json:"signal,omitempty"`
	Err    error            `json:"-"`
	Error  string           `json:"error,omitempty"`
}

// CycleReport collects every symbol's outcome; one failure never aborts a cycle.
type CycleReport struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Skipped    bool           `json:"skipped,omitempty"`
	Symbols    []SymbolReport `json:"symbols"`
}

// Failed counts symbols that produced an error.
func (r CycleReport) Failed() int {
	n := 0
	for _, s := range r.Symbols {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Signals returns the entry signals of the cycle in symbol order.
func (r CycleReport) Signals() []strategy.Signal {
	var out []strategy.Signal
	for _, s := range r.Symbols {
		if s.Signal != nil {
			out = append(out, *s.Signal)
		}
	}
	return out
}

// Service runs the live monitoring loop.
type Service struct {
	cfg    Config
	deps   Deps
	engine *indicator.Engine
	rules  *strategy.Breakout

	now        func() time.Time
	lastStatus time.Time
}

// New validates the configuration. Live evaluation never tracks positions:
// every qualifying bar produces a signal.
func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Provider == nil {
		return nil, errors.New("monitor: provider is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("monitor: poll interval must be > 0, got %s", cfg.PollInterval)
	}
	if err := cfg.Range.Validate(); err != nil {
		return nil, fmt.Errorf("monitor range: %w", err)
	}
	eng, err := indicator.NewEngine(cfg.Indicators)
	if err != nil {
		return nil, err
	}
	cfg.Rules.TrackOpenPosition = false
	rules, err := strategy.NewBreakout(cfg.Rules)
	if err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = markethours.IST
	}
	if deps.Notifier == nil {
		deps.Notifier = notification.NewLogNotifier()
	}
	return &Service{cfg: cfg, deps: deps, engine: eng, rules: rules, now: time.Now}, nil
}

// Run sends the start message, then cycles until ctx is cancelled and
// finally sends the stop message.
func (s *Service) Run(ctx context.Context) error {
	slog.Info("monitor starting",
		"symbols", len(s.cfg.Symbols),
		"range", s.cfg.Range.String(),
		"poll", s.cfg.PollInterval.String(),
		"provider", s.deps.Provider.Name())
	s.notify(ctx, StartMessage)
	s.lastStatus = s.now()

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.notify(stopCtx, StopMessage)
		slog.Info("monitor stopped")
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		report := s.RunCycle(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.logCycle(report)

		if s.cfg.StatusInterval > 0 && s.now().Sub(s.lastStatus) >= s.cfg.StatusInterval {
			s.notify(ctx, StatusMessage)
			s.lastStatus = s.now()
		}
		timer.Reset(s.cfg.PollInterval)
	}
}

// RunCycle evaluates every symbol once, in order.
func (s *Service) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{ID: logger.NewCycleID(), StartedAt: s.now()}
	ctx = logger.WithCycleID(ctx, report.ID)

	if s.cfg.Session != nil {
		open := s.cfg.Session.IsOpen(report.StartedAt)
		if s.deps.Metrics != nil {
			s.deps.Metrics.SetMarketOpen(open)
		}
		if !open {
			report.Skipped = true
			report.FinishedAt = s.now()
			slog.Info("cycle skipped", append(logger.Attrs(ctx),
				"status", s.cfg.Session.StatusString(report.StartedAt))...)
			return report
		}
	}

	for _, sym := range s.cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		report.Symbols = append(report.Symbols, s.evaluate(ctx, sym))
	}
	report.FinishedAt = s.now()

	if m := s.deps.Metrics; m != nil {
		m.ObserveCycle(report.StartedAt, report.FinishedAt)
	}
	if h := s.deps.Health; h != nil {
		h.RecordCycle(report.FinishedAt, len(report.Symbols), report.Failed())
	}
	return report
}

func (s *Service) evaluate(ctx context.Context, sym string) SymbolReport {
	rep := SymbolReport{Symbol: sym}
	fail := func(err error) SymbolReport {
		rep.Err = err
		rep.Error = err.Error()
		log.Printf("[monitor] %s: %v", sym, err)
		return rep
	}

	bars, err := s.deps.Provider.FetchBars(ctx, sym, s.cfg.Range)
	if err == nil && len(bars) == 0 {
		err = fmt.Errorf("%s: %w", sym, marketdata.ErrNoData)
	}
	if err != nil {
		if m := s.deps.Metrics; m != nil && !errors.Is(err, context.Canceled) {
			m.FetchFailures.WithLabelValues(s.deps.Provider.Name()).Inc()
		}
		return fail(err)
	}
	rep.Bars = len(bars)

	series := s.engine.Compute(bars)
	sig, err := s.rules.Evaluate(sym, &series, -1)
	if err != nil {
		return fail(err)
	}
	if !sig.IsEntry() {
		return rep
	}
	rep.Signal = &sig
	s.dispatch(ctx, sig)
	return rep
}

// dispatch delivers an entry signal. Each sink is independent: a failing
// notifier does not stop the trade log or the bus.
func (s *Service) dispatch(ctx context.Context, sig strategy.Signal) {
	msg := FormatSignal(sig, s.cfg.Location)
	slog.Info("signal", append(logger.Attrs(ctx),
		"symbol", sig.Symbol,
		"direction", string(sig.Direction),
		"entry", sig.Entry,
		"stop_loss", sig.StopLoss,
		"target", sig.Target)...)

	m := s.deps.Metrics
	if m != nil {
		m.SignalsTotal.WithLabelValues(sig.Strategy, string(sig.Direction)).Inc()
	}

	if err := s.deps.Notifier.Send(ctx, notification.Alert{
		Level:   notification.AlertInfo,
		Message: msg,
		Fields: map[string]any{
			"symbol":    sig.Symbol,
			"direction": sig.Direction,
			"entry":     sig.Entry,
			"stop_loss": sig.StopLoss,
			"target":    sig.Target,
			"time":      sig.Timestamp,
		},
	}); err != nil {
		log.Printf("[monitor] notify %s: %v", sig.Symbol, err)
	}

	if s.deps.TradeLog != nil {
		err := s.deps.TradeLog.Append(ctx, model.TradeLogEntry{
			ID:        uuid.NewString(),
			Symbol:    sig.Symbol,
			Direction: sig.Direction,
			Entry:     sig.Entry,
			StopLoss:  sig.StopLoss,
			Target:    sig.Target,
			EntryTime: sig.Timestamp,
		})
		if err != nil {
			log.Printf("[monitor] trade log %s: %v", sig.Symbol, err)
			if m != nil {
				m.TradeLogErrors.Inc()
			}
		}
	}

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishSignal(ctx, sig); err != nil {
			log.Printf("[monitor] publish %s: %v", sig.Symbol, err)
			if m != nil {
				m.BusPublishError.Inc()
			}
		}
	}
}

func (s *Service) notify(ctx context.Context, text string) {
	if err := s.deps.Notifier.Send(ctx, notification.Alert{Level: notification.AlertInfo, Message: text}); err != nil {
		log.Printf("[monitor] notify: %v", err)
	}
}

func (s *Service) logCycle(r CycleReport) {
	if r.Skipped {
		return
	}
	slog.Info("cycle done",
		"cycle_id", r.ID,
		"symbols", len(r.Symbols),
		"failed", r.Failed(),
		"signals", len(r.Signals()),
		"took", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String())
}
