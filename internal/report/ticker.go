package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Defaults for NSE monthly option symbols such as "RELIANCE25SEP3000CE".
const (
	DefaultExpiryTag = "25SEP"
	DefaultSuffix    = ".NS"
)

// TickerParser extracts underlying tickers from option symbols.
type TickerParser struct {
	re     *regexp.Regexp
	suffix string
}

// NewTickerParser matches "<base><expiryTag>" where base is [A-Z0-9-]+.
func NewTickerParser(expiryTag, suffix string) (*TickerParser, error) {
	if expiryTag == "" {
		expiryTag = DefaultExpiryTag
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}
	re, err := regexp.Compile(`([A-Z0-9-]+)` + regexp.QuoteMeta(expiryTag))
	if err != nil {
		return nil, fmt.Errorf("expiry tag %q: %w", expiryTag, err)
	}
	return &TickerParser{re: re, suffix: suffix}, nil
}

// BaseTicker returns "<base><suffix>", or "" when the symbol does not match.
func (p *TickerParser) BaseTicker(optionSymbol string) string {
	m := p.re.FindStringSubmatch(optionSymbol)
	if m == nil {
		return ""
	}
	return m[1] + p.suffix
}

// Ticker turns a stock name back into a provider ticker.
func (p *TickerParser) Ticker(stock string) string { return stock + p.suffix }

// Stocks returns the sorted, de-duplicated stock names (ticker without the
// exchange suffix) found in symbols. Sorting happens on the full ticker.
func (p *TickerParser) Stocks(symbols []string) []string {
	seen := make(map[string]bool)
	var tickers []string
	for _, s := range symbols {
		t := p.BaseTicker(s)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	out := make([]string, len(tickers))
	for i, t := range tickers {
		out[i] = strings.TrimSuffix(t, p.suffix)
	}
	return out
}
