// cmd/backtest replays the VWAP/RSI/volume breakout rules over historical
// bars for every ticker, then writes trade and summary exports.
//
// Usage:
//
//	go run ./cmd/backtest --period=1y --interval=15m --out=results --provider=yahoo
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tidwall/pretty"

	"trading-signalsv1/config"
	"trading-signalsv1/internal/backtest"
	"trading-signalsv1/internal/export"
	"trading-signalsv1/internal/logger"
	"trading-signalsv1/internal/marketdata"
	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/notification"
	sqlitestore "trading-signalsv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[backtest] config: %v", err)
	}

	period := flag.String("period", cfg.BacktestRange.Period, "History period (e.g. 5d, 1mo, 1y)")
	interval := flag.String("interval", cfg.BacktestRange.Interval, "Bar interval (e.g. 15m, 1h, 1d)")
	out := flag.String("out", ".", "Directory for exported results")
	providerName := flag.String("provider", cfg.Provider, "Market data provider: yahoo, alpaca, angel or sqlite")
	tickers := flag.String("tickers", cfg.TickersFile, "CSV file with a Symbol column")
	withParquet := flag.Bool("parquet", true, "Also write trades as Parquet")
	withJSON := flag.Bool("json", false, "Also write the run as JSON")
	workers := flag.Int("workers", cfg.Workers, "Concurrent symbol fetches")
	flag.Parse()

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	logger.Init("backtest", level)

	rng, err := marketdata.ParseRange(*period, *interval)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}
	symbols, err := config.LoadTickers(*tickers)
	if err != nil {
		log.Fatalf("[backtest] tickers: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The store holds backtest runs and serves bars to the sqlite provider.
	var store *sqlitestore.Store
	if cfg.SQLitePath != "" {
		os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
		store, err = sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("[backtest] sqlite init failed: %v", err)
		}
		defer store.Close()
	}

	cfg.Provider = *providerName
	opts := cfg.ProviderOptions()
	var runs model.RunStore
	if store != nil {
		opts.Store = store
		runs = store
	}
	provider, err := marketdata.New(cfg.Provider, opts)
	if err != nil {
		log.Fatalf("[backtest] market data: %v", err)
	}

	notifier := notification.NewGated(
		notification.Backends(cfg.TelegramToken, cfg.TelegramChatID, cfg.WebhookURL),
		notification.NewToggle(cfg.ToggleFile))

	runner, err := backtest.NewRunner(backtest.Config{
		Range:      rng,
		Indicators: cfg.Indicators,
		Rules:      cfg.Rules,
		Workers:    *workers,
	}, provider, notifier, runs)
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	res, err := runner.Run(ctx, symbols)
	if err != nil {
		log.Fatalf("[backtest] run aborted: %v", err)
	}
	for _, s := range res.Symbols {
		if s.Open {
			log.Printf("[backtest] %s: position still open at end of data (not counted)", s.Symbol)
		}
	}

	outputs, err := export.WriteAll(export.Options{Dir: *out, Parquet: *withParquet, JSON: *withJSON}, res.Run, res.Trades)
	if err != nil {
		log.Fatalf("[backtest] export: %v", err)
	}
	runner.Finished(ctx, res, outputs)

	summary, _ := json.Marshal(map[string]any{
		"run_id":   res.Run.ID,
		"provider": res.Run.Provider,
		"range":    rng.String(),
		"symbols":  len(symbols),
		"failed":   res.Run.Failed,
		"summary":  res.Run.Summary,
		"win_rate": export.WinRate(res.Run.Summary.WinRate),
		"outputs":  outputs,
	})
	fmt.Println(string(pretty.Pretty(summary)))

	if len(symbols) > 0 && len(res.Run.Failed) == len(symbols) {
		log.Printf("[backtest] every symbol failed")
		os.Exit(1)
	}
}
