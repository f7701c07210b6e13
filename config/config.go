package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trading-signalsv1/internal/indicator"
	"trading-signalsv1/internal/marketdata"
	"trading-signalsv1/internal/strategy"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Market data
	Provider        string
	YahooURL        string
	AlpacaKey       string
	AlpacaSecret    string
	AlpacaFeed      string
	AngelAPIKey     string
	AngelClientCode string
	AngelPassword   string
	AngelTOTPSecret string
	BreakerFailures int
	BreakerReset    time.Duration
	RecordBars      bool

	// Symbols
	TickersFile string

	// Notification
	TelegramToken  string
	TelegramChatID string
	WebhookURL     string
	ToggleFile     string

	// Infrastructure. Empty RedisAddr or SQLitePath disables that backend.
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	TradeLogFile  string
	MetricsAddr   string
	DashboardAddr string
	ReportDir     string
	LogLevel      string

	// Schedule
	PollInterval    time.Duration
	StatusInterval  time.Duration
	LiveRange       marketdata.Range
	BacktestRange   marketdata.Range
	ReportRange     marketdata.Range
	ChartRange      marketdata.Range
	Workers         int
	MarketHoursOnly bool
	SessionOpen     string
	SessionClose    string
	ExtraHolidays   []string

	// Signal parameters, optionally from RulesFile, env wins
	RulesFile  string
	Indicators indicator.Config
	Rules      strategy.BreakoutConfig

	// Option-chain sheet parsing
	ExpiryTag    string
	TickerSuffix string
}

// rulesFile is the YAML layout of RULES_FILE.
type rulesFile struct {
	Indicators indicator.Config        `yaml:"indicators"`
	Rules      strategy.BreakoutConfig `yaml:"rules"`
}

// Load reads an optional .env file, then the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] .env: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*Config, error) {
	e := &envReader{}
	c := &Config{
		Provider:        getEnv("MARKET_DATA_PROVIDER", "yahoo"),
		YahooURL:        getEnv("YAHOO_URL", ""),
		AlpacaKey:       getEnv("ALPACA_API_KEY", ""),
		AlpacaSecret:    getEnv("ALPACA_API_SECRET", ""),
		AlpacaFeed:      getEnv("ALPACA_FEED", "iex"),
		AngelAPIKey:     getEnv("ANGEL_API_KEY", ""),
		AngelClientCode: getEnv("ANGEL_CLIENT_CODE", ""),
		AngelPassword:   getEnv("ANGEL_PASSWORD", ""),
		AngelTOTPSecret: getEnv("ANGEL_TOTP_SECRET", ""),
		BreakerFailures: e.getInt("BREAKER_FAILURES", 5),
		BreakerReset:    e.getDuration("BREAKER_RESET", time.Minute),
		RecordBars:      e.getBool("RECORD_BARS", false),

		TickersFile: getEnv("TICKERS_FILE", "tickers.csv"),

		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:     getEnv("WEBHOOK_URL", ""),
		ToggleFile:     getEnv("TELEGRAM_TOGGLE_FILE", "telegram_toggle.txt"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/signals.db"),
		TradeLogFile:  getEnv("TRADE_LOG_FILE", "real_time_trade_log.csv"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		DashboardAddr: getEnv("DASHBOARD_ADDR", ":8080"),
		ReportDir:     getEnv("REPORT_DIR", "reports"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		PollInterval:    e.getDuration("POLL_INTERVAL", 15*time.Minute),
		StatusInterval:  e.getDuration("STATUS_INTERVAL", time.Hour),
		LiveRange:       e.getRange("LIVE_PERIOD", "2d", "LIVE_INTERVAL", "15m"),
		BacktestRange:   e.getRange("BACKTEST_PERIOD", "1y", "BACKTEST_INTERVAL", "15m"),
		ReportRange:     e.getRange("REPORT_PERIOD", "1mo", "REPORT_INTERVAL", "1d"),
		ChartRange:      e.getRange("CHART_PERIOD", "3mo", "CHART_INTERVAL", "1d"),
		Workers:         e.getInt("WORKERS", 4),
		MarketHoursOnly: e.getBool("MARKET_HOURS_ONLY", false),
		SessionOpen:     getEnv("SESSION_OPEN", "09:15"),
		SessionClose:    getEnv("SESSION_CLOSE", "15:30"),
		ExtraHolidays:   splitList(getEnv("EXTRA_HOLIDAYS", "")),

		RulesFile:  getEnv("RULES_FILE", ""),
		Indicators: indicator.DefaultConfig(),
		Rules:      strategy.DefaultBreakoutConfig(),

		ExpiryTag:    getEnv("EXPIRY_TAG", "25SEP"),
		TickerSuffix: getEnv("TICKER_SUFFIX", ".NS"),
	}

	if c.RulesFile != "" {
		if err := c.loadRules(c.RulesFile); err != nil {
			e.errs = append(e.errs, err)
		}
	}

	c.Indicators.RSIPeriod = e.getInt("RSI_PERIOD", c.Indicators.RSIPeriod)
	c.Indicators.VolumeWindow = e.getInt("VOLUME_WINDOW", c.Indicators.VolumeWindow)
	c.Indicators.SMAWindow = e.getInt("SMA_WINDOW", c.Indicators.SMAWindow)
	c.Indicators.EMASpan = e.getInt("EMA_SPAN", c.Indicators.EMASpan)
	if v := os.Getenv("RSI_SMOOTHING"); v != "" {
		s, err := indicator.ParseSmoothing(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("RSI_SMOOTHING: %w", err))
		}
		c.Indicators.RSISmoothing = s
	}
	c.Rules.VolumeMultiplier = e.getFloat("VOLUME_MULTIPLIER", c.Rules.VolumeMultiplier)
	c.Rules.StopBuffer = e.getFloat("STOP_BUFFER", c.Rules.StopBuffer)
	c.Rules.RiskReward = e.getFloat("RISK_REWARD", c.Rules.RiskReward)
	c.Rules.Oversold = e.getFloat("RSI_OVERSOLD", c.Rules.Oversold)
	c.Rules.Overbought = e.getFloat("RSI_OVERBOUGHT", c.Rules.Overbought)

	if err := c.Indicators.Validate(); err != nil {
		e.errs = append(e.errs, err)
	}
	if err := c.Rules.Validate(); err != nil {
		e.errs = append(e.errs, err)
	}
	if c.PollInterval <= 0 {
		e.errs = append(e.errs, fmt.Errorf("POLL_INTERVAL must be > 0"))
	}
	if err := errors.Join(e.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

func (c *Config) loadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("RULES_FILE: %w", err)
	}
	rf := rulesFile{Indicators: c.Indicators, Rules: c.Rules}
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return fmt.Errorf("RULES_FILE %s: %w", path, err)
	}
	c.Indicators, c.Rules = rf.Indicators, rf.Rules
	return nil
}

// RequireAngel fails fast when the Angel One provider is selected without
// credentials.
func (c *Config) RequireAngel() {
	c.AngelAPIKey = mustEnv("ANGEL_API_KEY")
	c.AngelClientCode = mustEnv("ANGEL_CLIENT_CODE")
	c.AngelPassword = mustEnv("ANGEL_PASSWORD")
	c.AngelTOTPSecret = mustEnv("ANGEL_TOTP_SECRET")
}

// ProviderOptions maps the market data settings onto marketdata.Options.
// Selecting the angel provider without credentials exits the process.
func (c *Config) ProviderOptions() marketdata.Options {
	if strings.EqualFold(c.Provider, "angel") {
		c.RequireAngel()
	}
	return marketdata.Options{
		YahooURL:     c.YahooURL,
		AlpacaKey:    c.AlpacaKey,
		AlpacaSecret: c.AlpacaSecret,
		AlpacaFeed:   c.AlpacaFeed,
		Angel: marketdata.AngelConfig{
			APIKey:     c.AngelAPIKey,
			ClientCode: c.AngelClientCode,
			Password:   c.AngelPassword,
			TOTPSecret: c.AngelTOTPSecret,
		},
		Record:          c.RecordBars,
		BreakerFailures: c.BreakerFailures,
		BreakerReset:    c.BreakerReset,
	}
}

// LoadTickers reads the Symbol column of a CSV file: blanks dropped,
// duplicates removed, first-seen order kept.
func LoadTickers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tickers: %w", err)
	}
	defer f.Close()
	return ReadTickers(f)
}

// ReadTickers is LoadTickers over a reader.
func ReadTickers(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("tickers header: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == "Symbol" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("tickers: no Symbol column in %v", header)
	}

	seen := make(map[string]bool)
	var out []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tickers: %w", err)
		}
		if col >= len(rec) {
			continue
		}
		s := strings.TrimSpace(rec[col])
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envReader parses typed variables and collects every error so one Load
// reports all bad values at once.
type envReader struct {
	errs []error
}

func (e *envReader) getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (e *envReader) getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (e *envReader) getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (e *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (e *envReader) getRange(periodKey, period, intervalKey, interval string) marketdata.Range {
	r, err := marketdata.ParseRange(getEnv(periodKey, period), getEnv(intervalKey, interval))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s/%s: %w", periodKey, intervalKey, err))
		return marketdata.Range{Period: period, Interval: interval}
	}
	return r
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
