// cmd/dashboard serves the option-chain crossover report API and streams
// live signals from the Redis signal bus to websocket clients.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-signalsv1/config"
	"trading-signalsv1/internal/dashboard"
	"trading-signalsv1/internal/logger"
	"trading-signalsv1/internal/marketdata"
	"trading-signalsv1/internal/notification"
	"trading-signalsv1/internal/report"
	redisstore "trading-signalsv1/internal/store/redis"
	sqlitestore "trading-signalsv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[dashboard] config: %v", err)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[dashboard] %v", err)
	}
	logger.Init("dashboard", level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	checks := make(map[string]func(context.Context) error)

	var store *sqlitestore.Store
	if cfg.SQLitePath != "" {
		if _, statErr := os.Stat(cfg.SQLitePath); statErr == nil {
			store, err = sqlitestore.Open(cfg.SQLitePath)
			if err != nil {
				log.Fatalf("[dashboard] sqlite init failed: %v", err)
			}
			defer store.Close()
			checks["sqlite"] = store.Ping
		} else {
			log.Printf("[dashboard] %s not found, trade log endpoint disabled", cfg.SQLitePath)
		}
	}

	opts := cfg.ProviderOptions()
	if store != nil {
		opts.Store = store
	}
	provider, err := marketdata.New(cfg.Provider, opts)
	if err != nil {
		log.Fatalf("[dashboard] market data: %v", err)
	}
	parser, err := report.NewTickerParser(cfg.ExpiryTag, cfg.TickerSuffix)
	if err != nil {
		log.Fatalf("[dashboard] %v", err)
	}
	analyzer, err := report.NewAnalyzer(provider, parser, report.Options{
		Range:      cfg.ReportRange,
		ChartRange: cfg.ChartRange,
		Indicators: cfg.Indicators,
		Workers:    cfg.Workers,
	})
	if err != nil {
		log.Fatalf("[dashboard] %v", err)
	}

	toggle := notification.NewToggle(cfg.ToggleFile)
	go func() {
		if err := toggle.Watch(ctx); err != nil {
			log.Printf("[dashboard] toggle watch: %v", err)
		}
	}()

	hub := dashboard.NewHub(500)
	deps := dashboard.Deps{
		Analyzer:   analyzer,
		Hub:        hub,
		Reports:    dashboard.NewReportStore(100),
		Toggle:     toggle,
		Checks:     checks,
		ArchiveDir: cfg.ReportDir,
	}
	if store != nil {
		deps.Journal = store
	}

	if cfg.RedisAddr != "" {
		bus, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			log.Printf("[dashboard] WARNING: redis init failed: %v (live signals disabled)", err)
		} else {
			defer bus.Close()
			deps.Feed = bus
			checks["redis"] = func(ctx context.Context) error { return bus.Client().Ping(ctx).Err() }
			go hub.Run(ctx, bus)
		}
	}

	srv, err := dashboard.NewServer(cfg.DashboardAddr, deps)
	if err != nil {
		log.Fatalf("[dashboard] %v", err)
	}
	srv.Start()
	slog.Info("dashboard ready", "addr", cfg.DashboardAddr, "provider", provider.Name(),
		"redis", deps.Feed != nil, "journal", deps.Journal != nil)

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("[dashboard] shutdown: %v", err)
	}
	log.Println("[dashboard] stopped")
}
