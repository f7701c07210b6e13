package marketdata

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"trading-signalsv1/internal/model"
	"trading-signalsv1/pkg/smartconnect"
)

// AngelConfig holds Angel One SmartAPI credentials.
type AngelConfig struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string
	Exchange   string // default NSE
	RootURL    string // tests only
}

// Angel fetches NSE candles through Angel One SmartAPI. Symbols may be given
// as Yahoo-style "SBIN.NS" or as the bare trading symbol.
type Angel struct {
	cfg AngelConfig
	sc  *smartconnect.SmartConnect
	now func() time.Time

	mu       sync.Mutex
	loggedIn bool
	tokens   map[string]string // symbol -> symboltoken
}

// NewAngel creates the provider. Login happens lazily on the first fetch.
func NewAngel(cfg AngelConfig) *Angel {
	if cfg.Exchange == "" {
		cfg.Exchange = "NSE"
	}
	a := &Angel{
		cfg:    cfg,
		sc:     smartconnect.NewSmartConnect(smartconnect.Config{APIKey: cfg.APIKey, RootURL: cfg.RootURL}),
		now:    time.Now,
		tokens: make(map[string]string),
	}
	a.sc.SessionExpiryHook = func() {
		a.mu.Lock()
		a.loggedIn = false
		a.mu.Unlock()
	}
	return a
}

func (a *Angel) Name() string { return "angel" }

func (a *Angel) login(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loggedIn {
		return nil
	}
	code, err := totp.GenerateCode(a.cfg.TOTPSecret, a.now())
	if err != nil {
		return fmt.Errorf("angel: generate totp: %w", err)
	}
	profile, err := a.sc.GenerateSession(ctx, a.cfg.ClientCode, a.cfg.Password, code)
	if err != nil {
		return fmt.Errorf("angel: %w", err)
	}
	a.loggedIn = true
	log.Printf("[angel] session established for %s", profile.ClientCode)
	return nil
}

// symbolToken resolves "SBIN.NS" to the exchange token of "SBIN-EQ".
func (a *Angel) symbolToken(ctx context.Context, symbol string) (string, error) {
	a.mu.Lock()
	tok, ok := a.tokens[symbol]
	a.mu.Unlock()
	if ok {
		return tok, nil
	}

	base := strings.TrimSuffix(strings.TrimSuffix(strings.ToUpper(symbol), ".NS"), ".BO")
	want := base
	if !strings.Contains(base, "-") {
		want = base + "-EQ"
	}
	matches, err := a.sc.SearchScrip(ctx, a.cfg.Exchange, base)
	if err != nil {
		return "", fmt.Errorf("angel search %s: %w", base, err)
	}
	for _, m := range matches {
		if strings.EqualFold(m.TradingSymbol, want) {
			a.mu.Lock()
			a.tokens[symbol] = m.SymbolToken
			a.mu.Unlock()
			return m.SymbolToken, nil
		}
	}
	return "", fmt.Errorf("angel: %s not listed on %s: %w", want, a.cfg.Exchange, ErrNoData)
}

// FetchBars logs in if needed and returns candles for r.
func (a *Angel) FetchBars(ctx context.Context, symbol string, r Range) ([]model.Bar, error) {
	interval, err := angelInterval(r.Interval)
	if err != nil {
		return nil, err
	}
	if err := a.login(ctx); err != nil {
		return nil, err
	}
	token, err := a.symbolToken(ctx, symbol)
	if err != nil {
		return nil, err
	}

	end := a.now()
	candles, err := a.sc.GetCandleData(ctx, smartconnect.CandleRequest{
		Exchange:    a.cfg.Exchange,
		SymbolToken: token,
		Interval:    interval,
		From:        r.Start(end),
		To:          end,
	})
	if err != nil {
		return nil, fmt.Errorf("angel %s: %w", symbol, err)
	}

	bars := make([]model.Bar, len(candles))
	for i, c := range candles {
		bars[i] = model.Bar{
			Symbol: symbol,
			TS:     c.Time.UTC(),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		}
	}
	bars = clean(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("angel %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

func angelInterval(interval string) (smartconnect.Interval, error) {
	switch interval {
	case "1m":
		return smartconnect.OneMinute, nil
	case "3m":
		return smartconnect.ThreeMinute, nil
	case "5m":
		return smartconnect.FiveMinute, nil
	case "10m":
		return smartconnect.TenMinute, nil
	case "15m":
		return smartconnect.FifteenMinute, nil
	case "30m":
		return smartconnect.ThirtyMinute, nil
	case "1h", "60m":
		return smartconnect.OneHour, nil
	case "1d":
		return smartconnect.OneDay, nil
	}
	return "", fmt.Errorf("angel: unsupported interval %q", interval)
}
