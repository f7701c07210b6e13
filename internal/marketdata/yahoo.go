package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"trading-signalsv1/internal/model"
)

const defaultYahooURL = "https://query1.finance.yahoo.com"

// Yahoo reads the public chart endpoint. NSE symbols carry the ".NS" suffix.
type Yahoo struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// NewYahoo returns a Yahoo chart provider. Empty baseURL uses the public host.
func NewYahoo(baseURL string, client *http.Client) *Yahoo {
	if baseURL == "" {
		baseURL = defaultYahooURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Yahoo{baseURL: baseURL, client: client, userAgent: "Mozilla/5.0 (X11; Linux x86_64)"}
}

func (y *Yahoo) Name() string { return "yahoo" }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchBars returns unadjusted bars for symbol over r.
func (y *Yahoo) FetchBars(ctx context.Context, symbol string, r Range) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("range", r.Period)
	q.Set("interval", r.Interval)
	q.Set("includePrePost", "false")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", y.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: read body: %w", symbol, err)
	}

	var payload yahooChart
	decodeErr := json.Unmarshal(body, &payload)
	if e := payload.Chart.Error; decodeErr == nil && e != nil {
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("yahoo %s: %s: %w", symbol, e.Description, ErrNoData)
		}
		return nil, fmt.Errorf("yahoo %s: %s: %s", symbol, e.Code, e.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: status %d: %s", symbol, resp.StatusCode, truncate(body, 200))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("yahoo %s: decode: %w", symbol, decodeErr)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	res := payload.Chart.Result[0]
	quote := res.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		bars = append(bars, model.Bar{
			Symbol: symbol,
			TS:     time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
		})
	}

	bars = clean(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

// at returns NaN for null or missing entries so clean() drops the row.
func at(col []*float64, i int) float64 {
	if i >= len(col) || col[i] == nil {
		return math.NaN()
	}
	return *col[i]
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
