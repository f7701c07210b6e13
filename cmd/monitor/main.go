// cmd/monitor polls market data on a fixed interval, evaluates the
// VWAP/RSI/volume breakout rules on the latest bar of every ticker and fans
// entry signals out to notifiers, the trade log and the Redis signal bus.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"trading-signalsv1/config"
	"trading-signalsv1/internal/logger"
	"trading-signalsv1/internal/marketdata"
	"trading-signalsv1/internal/markethours"
	"trading-signalsv1/internal/metrics"
	"trading-signalsv1/internal/monitor"
	"trading-signalsv1/internal/notification"
	redisstore "trading-signalsv1/internal/store/redis"
	sqlitestore "trading-signalsv1/internal/store/sqlite"
	"trading-signalsv1/internal/tradelog"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[monitor] config: %v", err)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[monitor] %v", err)
	}
	logger.Init("monitor", level)

	symbols, err := config.LoadTickers(cfg.TickersFile)
	if err != nil {
		log.Fatalf("[monitor] tickers: %v", err)
	}
	slog.Info("starting", "symbols", len(symbols), "provider", cfg.Provider,
		"range", cfg.LiveRange.String(), "poll", cfg.PollInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, prometheus.DefaultGatherer)
	metricsSrv.Start()

	// ---- SQLite: trade journal + bar store ----
	var store *sqlitestore.Store
	if cfg.SQLitePath != "" {
		os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
		store, err = sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("[monitor] sqlite init failed: %v", err)
		}
		defer store.Close()
		health.SetSQLiteOK(true)
	}

	// ---- Redis signal bus (optional) ----
	var bus *redisstore.Bus
	if cfg.RedisAddr != "" {
		bus, err = redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			log.Printf("[monitor] WARNING: redis init failed: %v (continuing without signal bus)", err)
			health.SetRedisConnected(false)
		} else {
			defer bus.Close()
			health.SetRedisConnected(true)
		}
	}

	switch {
	case bus != nil && store != nil:
		health.StartLivenessChecker(ctx, bus.Client(), store.DB(), 30*time.Second)
	case bus != nil:
		health.StartLivenessChecker(ctx, bus.Client(), nil, 30*time.Second)
	case store != nil:
		health.StartLivenessChecker(ctx, nil, store.DB(), 30*time.Second)
	}

	// ---- Market data ----
	opts := cfg.ProviderOptions()
	opts.OnBreakerChange = func(provider string, _, to marketdata.State) {
		prom.BreakerState.WithLabelValues(provider).Set(float64(to))
	}
	if store != nil {
		opts.Store = store
	}
	provider, err := marketdata.New(cfg.Provider, opts)
	if err != nil {
		log.Fatalf("[monitor] market data: %v", err)
	}

	// ---- Trade log: CSV file + SQLite journal ----
	var sinks tradelog.Multi
	if cfg.TradeLogFile != "" {
		csvLog, err := tradelog.OpenCSV(cfg.TradeLogFile, markethours.IST)
		if err != nil {
			log.Fatalf("[monitor] trade log: %v", err)
		}
		sinks = append(sinks, csvLog)
	}
	if store != nil {
		sinks = append(sinks, store)
	}
	defer sinks.Close()

	// ---- Notifications behind the toggle file ----
	toggle := notification.NewToggle(cfg.ToggleFile)
	go func() {
		if err := toggle.Watch(ctx); err != nil {
			log.Printf("[monitor] toggle watch: %v (re-reading file per send)", err)
		}
	}()
	gated := notification.NewGated(
		notification.Backends(cfg.TelegramToken, cfg.TelegramChatID, cfg.WebhookURL), toggle)
	gated.OnSent = func(_ notification.Alert, err error) {
		outcome := "sent"
		if err != nil {
			outcome = "failed"
		}
		prom.Notifications.WithLabelValues(outcome).Inc()
	}
	gated.OnSuppressed = func(notification.Alert) {
		prom.Notifications.WithLabelValues("suppressed").Inc()
	}

	// ---- Market session gate ----
	var session *markethours.Session
	if cfg.MarketHoursOnly {
		holidays := append(markethours.NSEHolidays(), cfg.ExtraHolidays...)
		session, err = markethours.NewSession(markethours.IST, cfg.SessionOpen, cfg.SessionClose, holidays)
		if err != nil {
			log.Fatalf("[monitor] session: %v", err)
		}
		slog.Info("market hours gate on", "status", session.StatusString(time.Now()))
	} else {
		health.MaxCycleAge = 3 * cfg.PollInterval
	}

	deps := monitor.Deps{
		Provider: provider,
		Notifier: gated,
		Metrics:  prom,
		Health:   health,
	}
	if len(sinks) > 0 {
		deps.TradeLog = sinks
	}
	if bus != nil {
		deps.Publisher = bus
	}
	svc, err := monitor.New(monitor.Config{
		Symbols:        symbols,
		Range:          cfg.LiveRange,
		Indicators:     cfg.Indicators,
		Rules:          cfg.Rules,
		PollInterval:   cfg.PollInterval,
		StatusInterval: cfg.StatusInterval,
		Session:        session,
	}, deps)
	if err != nil {
		log.Fatalf("[monitor] %v", err)
	}

	if err := svc.Run(ctx); err != nil {
		slog.Error("monitor stopped", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	log.Println("[monitor] stopped")
}
