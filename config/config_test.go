package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trading-signalsv1/internal/indicator"
)

func TestFromEnv_Defaults(t *testing.T) {
	c, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if c.Provider != "yahoo" || c.PollInterval != 15*time.Minute || c.StatusInterval != time.Hour {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.LiveRange.String() != "2d@15m" || c.BacktestRange.String() != "1y@15m" {
		t.Errorf("ranges = %s, %s", c.LiveRange, c.BacktestRange)
	}
	if c.ReportRange.String() != "1mo@1d" || c.ChartRange.String() != "3mo@1d" {
		t.Errorf("report ranges = %s, %s", c.ReportRange, c.ChartRange)
	}
	if c.Indicators.RSIPeriod != 14 || c.Indicators.VolumeWindow != 20 {
		t.Errorf("indicators = %+v", c.Indicators)
	}
	if c.Rules.RiskReward != 2 || c.Rules.StopBuffer != 0.005 || c.Rules.VolumeMultiplier != 1 {
		t.Errorf("rules = %+v", c.Rules)
	}
	if c.TradeLogFile != "real_time_trade_log.csv" || c.ToggleFile != "telegram_toggle.txt" {
		t.Errorf("files = %s, %s", c.TradeLogFile, c.ToggleFile)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("RSI_PERIOD", "7")
	t.Setenv("RSI_SMOOTHING", "exponential")
	t.Setenv("RISK_REWARD", "3")
	t.Setenv("POLL_INTERVAL", "5m")
	t.Setenv("LIVE_PERIOD", "5d")
	t.Setenv("MARKET_HOURS_ONLY", "true")
	t.Setenv("EXTRA_HOLIDAYS", "2025-12-31, 2026-01-01")

	c, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if c.Indicators.RSIPeriod != 7 || c.Indicators.RSISmoothing != indicator.SmoothingExponential {
		t.Errorf("indicators = %+v", c.Indicators)
	}
	if c.Rules.RiskReward != 3 || c.PollInterval != 5*time.Minute || !c.MarketHoursOnly {
		t.Errorf("overrides not applied: %+v", c)
	}
	if c.LiveRange.String() != "5d@15m" {
		t.Errorf("live range = %s", c.LiveRange)
	}
	if len(c.ExtraHolidays) != 2 || c.ExtraHolidays[1] != "2026-01-01" {
		t.Errorf("holidays = %v", c.ExtraHolidays)
	}
}

func TestFromEnv_CollectsErrors(t *testing.T) {
	t.Setenv("RSI_PERIOD", "abc")
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("VOLUME_WINDOW", "0")

	_, err := FromEnv()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"RSI_PERIOD", "POLL_INTERVAL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
	if !errors.Is(err, indicator.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig in %v", err)
	}
}

func TestFromEnv_RulesFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yml := "indicators:\n  rsi_period: 21\n  volume_window: 10\nrules:\n  risk_reward: 1.5\n  oversold: 25\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RULES_FILE", path)
	t.Setenv("VOLUME_WINDOW", "30")

	c, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if c.Indicators.RSIPeriod != 21 {
		t.Errorf("file value lost: rsi_period = %d", c.Indicators.RSIPeriod)
	}
	if c.Indicators.VolumeWindow != 30 {
		t.Errorf("env should win: volume_window = %d", c.Indicators.VolumeWindow)
	}
	if c.Indicators.EMASpan != 9 || c.Rules.Overbought != 70 {
		t.Error("keys missing from the file should keep defaults")
	}
	if c.Rules.RiskReward != 1.5 || c.Rules.Oversold != 25 {
		t.Errorf("rules = %+v", c.Rules)
	}
}

func TestReadTickers(t *testing.T) {
	in := "\ufeffName,Symbol\nState Bank,SBIN.NS\nBlank,\nTCS,TCS.NS\nDup,SBIN.NS\nInfy, INFY.NS \n"
	got, err := ReadTickers(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"SBIN.NS", "TCS.NS", "INFY.NS"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReadTickers_MissingColumn(t *testing.T) {
	if _, err := ReadTickers(strings.NewReader("Ticker\nSBIN.NS\n")); err == nil {
		t.Error("expected error without a Symbol column")
	}
}

func TestProviderOptions(t *testing.T) {
	t.Setenv("MARKET_DATA_PROVIDER", "alpaca")
	t.Setenv("ALPACA_API_KEY", "key")
	t.Setenv("ALPACA_API_SECRET", "secret")
	t.Setenv("BREAKER_FAILURES", "3")
	c, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	o := c.ProviderOptions()
	if o.AlpacaKey != "key" || o.AlpacaSecret != "secret" || o.AlpacaFeed != "iex" {
		t.Errorf("alpaca options = %+v", o)
	}
	if o.BreakerFailures != 3 || o.BreakerReset != time.Minute {
		t.Errorf("breaker = %d/%s", o.BreakerFailures, o.BreakerReset)
	}
}
