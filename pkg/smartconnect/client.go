// Package smartconnect is a minimal Angel One SmartAPI client covering the
// endpoints a read-only market data consumer needs: login, profile,
// historical candles and scrip search.
//
// Usage example:
//
//	sc := smartconnect.NewSmartConnect(smartconnect.Config{APIKey: "your_api_key"})
//	if _, err := sc.GenerateSession(ctx, "CLIENTID", "PIN", totpCode); err != nil { log.Fatal(err) }
//	candles, err := sc.GetCandleData(ctx, smartconnect.CandleRequest{
//	    Exchange: "NSE", SymbolToken: "3045", Interval: smartconnect.FifteenMinute,
//	    From: time.Now().AddDate(0, 0, -2), To: time.Now(),
//	})
package smartconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ---- Config & client ----

type Config struct {
	APIKey      string
	AccessToken string

	RootURL        string        // default: https://apiconnect.angelone.in
	Debug          bool          // log request/response bodies
	Timeout        time.Duration // default: 7s
	UserType       string        // default: USER
	SourceID       string        // default: WEB
	ClientPublicIP string        // default: 106.193.147.98
	ClientLocalIP  string        // default: first non-loopback IPv4, else 127.0.0.1
	ClientMAC      string        // default: first interface MAC

	HTTPClient *http.Client // optional, overrides Timeout
}

type SmartConnect struct {
	apiKey string

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	feedToken    string
	userID       string

	rootURL    string
	debug      bool
	httpClient *http.Client

	userType       string
	sourceID       string
	clientPublicIP string
	clientLocalIP  string
	clientMAC      string

	// Optional callback for 403 TokenException
	SessionExpiryHook func()
}

const defaultRoot = "https://apiconnect.angelone.in"

var routes = map[string]string{
	"api.login":        "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":       "/rest/secure/angelbroking/user/v1/logout",
	"api.user.profile": "/rest/secure/angelbroking/user/v1/getProfile",
	"api.candle.data":  "/rest/secure/angelbroking/historical/v1/getCandleData",
	"api.search.scrip": "/rest/secure/angelbroking/order/v1/searchScrip",
}

// ErrAPI wraps every failure reported by the API itself (status=false or error_type).
var ErrAPI = errors.New("smartapi error")

// localIP finds the first non-loopback IPv4 address.
func localIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, address := range addrs {
		if ipNet, ok := address.(*net.IPNet); ok && !ipNet.IP.IsLoopback() {
			if ipNet.IP.To4() != nil {
				return ipNet.IP.String(), nil
			}
		}
	}
	return "", fmt.Errorf("no local IP found")
}

// NewSmartConnect initializes the client. It performs no network I/O.
func NewSmartConnect(cfg Config) *SmartConnect {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	if cfg.UserType == "" {
		cfg.UserType = "USER"
	}
	if cfg.SourceID == "" {
		cfg.SourceID = "WEB"
	}
	if cfg.ClientLocalIP == "" {
		ip, err := localIP()
		if err != nil {
			log.Printf("[smartconnect] local IP: %v", err)
		}
		cfg.ClientLocalIP = firstNonEmpty(ip, "127.0.0.1")
	}
	cfg.ClientPublicIP = firstNonEmpty(cfg.ClientPublicIP, "106.193.147.98")
	if cfg.ClientMAC == "" {
		cfg.ClientMAC = macFallback()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &SmartConnect{
		apiKey:         cfg.APIKey,
		accessToken:    cfg.AccessToken,
		rootURL:        strings.TrimRight(cfg.RootURL, "/"),
		debug:          cfg.Debug,
		httpClient:     client,
		userType:       cfg.UserType,
		sourceID:       cfg.SourceID,
		clientPublicIP: cfg.ClientPublicIP,
		clientLocalIP:  cfg.ClientLocalIP,
		clientMAC:      cfg.ClientMAC,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func macFallback() string {
	ifs, _ := net.Interfaces()
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return "00:11:22:33:44:55"
}

// ---- Helpers ----

func (sc *SmartConnect) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-ClientLocalIP", sc.clientLocalIP)
	h.Set("X-ClientPublicIP", sc.clientPublicIP)
	h.Set("X-MACAddress", sc.clientMAC)
	h.Set("X-PrivateKey", sc.apiKey)
	h.Set("X-UserType", sc.userType)
	h.Set("X-SourceID", sc.sourceID)
	if tok := sc.AccessToken(); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return h
}

// envelope is the common response shape of every SmartAPI endpoint.
type envelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

// post sends params as JSON to route and decodes the envelope's data into out.
func (sc *SmartConnect) post(ctx context.Context, route string, params map[string]any, out any) error {
	uri, ok := routes[route]
	if !ok {
		return fmt.Errorf("unknown route: %s", route)
	}
	b, err := json.Marshal(params)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.rootURL+uri, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header = sc.requestHeaders()

	if sc.debug {
		log.Printf("[smartconnect] request: POST %s", route)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("smartapi %s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("smartapi %s: read body: %w", route, err)
	}
	if sc.debug {
		log.Printf("[smartconnect] response: %s code=%d body=%s", route, resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("smartapi %s: couldn't parse JSON response (status %d): %w", route, resp.StatusCode, err)
	}
	if env.ErrorType != "" {
		if sc.SessionExpiryHook != nil && resp.StatusCode == http.StatusForbidden && env.ErrorType == "TokenException" {
			sc.SessionExpiryHook()
		}
		return fmt.Errorf("%w: %s: %s", ErrAPI, env.ErrorType, env.Message)
	}
	if !env.Status {
		return fmt.Errorf("%w: %s: %s (%s)", ErrAPI, route, env.Message, env.ErrorCode)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("smartapi %s: decode data: %w", route, err)
	}
	return nil
}

// ---- Setters/Getters ----

func (sc *SmartConnect) AccessToken() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.accessToken
}

func (sc *SmartConnect) FeedToken() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.feedToken
}

func (sc *SmartConnect) UserID() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.userID
}

// ---- Session ----

// Profile is the subset of getProfile used by callers.
type Profile struct {
	ClientCode string   `json:"clientcode"`
	Name       string   `json:"name"`
	Exchanges  []string `json:"exchanges"`
}

// GenerateSession logs in with client code, PIN and a current TOTP code,
// stores the returned tokens and fetches the user profile.
func (sc *SmartConnect) GenerateSession(ctx context.Context, clientCode, password, totp string) (Profile, error) {
	var tokens struct {
		JWTToken     string `json:"jwtToken"`
		RefreshToken string `json:"refreshToken"`
		FeedToken    string `json:"feedToken"`
	}
	params := map[string]any{"clientcode": clientCode, "password": password, "totp": totp}
	if err := sc.post(ctx, "api.login", params, &tokens); err != nil {
		return Profile{}, fmt.Errorf("login failed: %w", err)
	}
	if tokens.JWTToken == "" {
		return Profile{}, errors.New("login failed: empty jwt token")
	}

	sc.mu.Lock()
	sc.accessToken = tokens.JWTToken
	sc.refreshToken = tokens.RefreshToken
	sc.feedToken = tokens.FeedToken
	sc.mu.Unlock()

	profile, err := sc.GetProfile(ctx)
	if err != nil {
		return Profile{}, err
	}
	if profile.ClientCode != "" {
		sc.mu.Lock()
		sc.userID = profile.ClientCode
		sc.mu.Unlock()
	}
	return profile, nil
}

func (sc *SmartConnect) GetProfile(ctx context.Context) (Profile, error) {
	sc.mu.RLock()
	refresh := sc.refreshToken
	sc.mu.RUnlock()

	var p Profile
	err := sc.post(ctx, "api.user.profile", map[string]any{"refreshToken": refresh}, &p)
	return p, err
}

func (sc *SmartConnect) TerminateSession(ctx context.Context, clientCode string) error {
	return sc.post(ctx, "api.logout", map[string]any{"clientcode": clientCode}, nil)
}

// ---- Market data ----

// Interval is a SmartAPI candle interval name.
type Interval string

const (
	OneMinute     Interval = "ONE_MINUTE"
	ThreeMinute   Interval = "THREE_MINUTE"
	FiveMinute    Interval = "FIVE_MINUTE"
	TenMinute     Interval = "TEN_MINUTE"
	FifteenMinute Interval = "FIFTEEN_MINUTE"
	ThirtyMinute  Interval = "THIRTY_MINUTE"
	OneHour       Interval = "ONE_HOUR"
	OneDay        Interval = "ONE_DAY"
)

const candleTimeForm = "2006-01-02 15:04"

type CandleRequest struct {
	Exchange    string
	SymbolToken string
	Interval    Interval
	From, To    time.Time
}

// Candle is one historical OHLCV row.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// GetCandleData returns historical candles, oldest first. Candle rows arrive
// as [timestamp, open, high, low, close, volume] arrays.
func (sc *SmartConnect) GetCandleData(ctx context.Context, r CandleRequest) ([]Candle, error) {
	params := map[string]any{
		"exchange":    r.Exchange,
		"symboltoken": r.SymbolToken,
		"interval":    string(r.Interval),
		"fromdate":    r.From.In(ist).Format(candleTimeForm),
		"todate":      r.To.In(ist).Format(candleTimeForm),
	}
	var rows [][]json.RawMessage
	if err := sc.post(ctx, "api.candle.data", params, &rows); err != nil {
		return nil, err
	}

	out := make([]Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("candle row %d: want 6 fields, got %d", i, len(row))
		}
		var ts string
		if err := json.Unmarshal(row[0], &ts); err != nil {
			return nil, fmt.Errorf("candle row %d: timestamp: %w", i, err)
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("candle row %d: timestamp %q: %w", i, ts, err)
		}
		c := Candle{Time: t}
		for j, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			if err := json.Unmarshal(row[j+1], dst); err != nil {
				return nil, fmt.Errorf("candle row %d field %d: %w", i, j+1, err)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// Scrip is one searchScrip match.
type Scrip struct {
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"tradingsymbol"`
	SymbolToken   string `json:"symboltoken"`
}

func (sc *SmartConnect) SearchScrip(ctx context.Context, exchange, query string) ([]Scrip, error) {
	var out []Scrip
	err := sc.post(ctx, "api.search.scrip", map[string]any{"exchange": exchange, "searchscrip": query}, &out)
	return out, err
}

var ist = time.FixedZone("IST", 5*3600+30*60)
