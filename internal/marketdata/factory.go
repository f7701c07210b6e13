package marketdata

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"trading-signalsv1/internal/model"
)

// Options configures New.
type Options struct {
	YahooURL    string
	HTTPTimeout time.Duration

	AlpacaKey    string
	AlpacaSecret string
	AlpacaFeed   string

	Angel AngelConfig

	// Store backs the "sqlite" provider, and when Record is set it also
	// receives every bar fetched from a remote provider.
	Store  model.BarStore
	Record bool

	// BreakerFailures > 0 wraps remote providers in a circuit breaker.
	BreakerFailures int
	BreakerReset    time.Duration

	// OnBreakerChange observes breaker transitions, e.g. for metrics.
	OnBreakerChange func(provider string, from, to State)
}

// New builds a provider by name: yahoo, alpaca, angel or sqlite.
func New(name string, opts Options) (Provider, error) {
	if opts.HTTPTimeout == 0 {
		opts.HTTPTimeout = 15 * time.Second
	}

	var p Provider
	switch strings.ToLower(name) {
	case "", "yahoo":
		p = NewYahoo(opts.YahooURL, &http.Client{Timeout: opts.HTTPTimeout})
	case "alpaca":
		if opts.AlpacaKey == "" || opts.AlpacaSecret == "" {
			return nil, fmt.Errorf("alpaca provider needs ALPACA_API_KEY and ALPACA_API_SECRET")
		}
		p = NewAlpaca(opts.AlpacaKey, opts.AlpacaSecret, opts.AlpacaFeed)
	case "angel":
		if opts.Angel.APIKey == "" || opts.Angel.ClientCode == "" || opts.Angel.TOTPSecret == "" {
			return nil, fmt.Errorf("angel provider needs ANGEL_API_KEY, ANGEL_CLIENT_CODE and ANGEL_TOTP_SECRET")
		}
		p = NewAngel(opts.Angel)
	case "sqlite", "store":
		if opts.Store == nil {
			return nil, fmt.Errorf("sqlite provider needs a bar store")
		}
		return NewStore(opts.Store), nil
	default:
		return nil, fmt.Errorf("unknown market data provider %q", name)
	}

	if opts.BreakerFailures > 0 {
		g := NewGuarded(p, opts.BreakerFailures, opts.BreakerReset)
		if hook := opts.OnBreakerChange; hook != nil {
			name, logChange := p.Name(), g.breaker.OnStateChange
			g.breaker.OnStateChange = func(from, to State) {
				logChange(from, to)
				hook(name, from, to)
			}
		}
		p = g
	}
	if opts.Record && opts.Store != nil {
		p = NewRecorder(p, opts.Store)
	}
	return p, nil
}
