package smartconnect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *SmartConnect {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSmartConnect(Config{
		APIKey:        "key",
		RootURL:       srv.URL,
		ClientLocalIP: "10.0.0.1",
		ClientMAC:     "aa:bb:cc:dd:ee:ff",
	})
}

func TestGenerateSession_StoresTokens(t *testing.T) {
	sc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "loginByPassword"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["totp"] != "123456" {
				t.Errorf("totp = %q", body["totp"])
			}
			_, _ = w.Write([]byte(`{"status":true,"message":"SUCCESS","data":{"jwtToken":"jwt-1","refreshToken":"ref-1","feedToken":"feed-1"}}`))
		case strings.HasSuffix(r.URL.Path, "getProfile"):
			if got := r.Header.Get("Authorization"); got != "Bearer jwt-1" {
				t.Errorf("Authorization = %q", got)
			}
			_, _ = w.Write([]byte(`{"status":true,"message":"SUCCESS","data":{"clientcode":"C123","name":"Test"}}`))
		default:
			http.NotFound(w, r)
		}
	})

	p, err := sc.GenerateSession(context.Background(), "C123", "1111", "123456")
	if err != nil {
		t.Fatalf("GenerateSession: %v", err)
	}
	if p.ClientCode != "C123" || sc.UserID() != "C123" {
		t.Errorf("profile = %+v, userID = %q", p, sc.UserID())
	}
	if sc.AccessToken() != "jwt-1" || sc.FeedToken() != "feed-1" {
		t.Errorf("tokens not stored: %q %q", sc.AccessToken(), sc.FeedToken())
	}
}

func TestGenerateSession_Failure(t *testing.T) {
	sc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid totp","errorcode":"AB1050","data":null}`))
	})
	_, err := sc.GenerateSession(context.Background(), "C123", "1111", "000000")
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("err = %v, want ErrAPI", err)
	}
}

func TestGetCandleData(t *testing.T) {
	sc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["interval"] != "FIFTEEN_MINUTE" || body["symboltoken"] != "3045" {
			t.Errorf("unexpected params %v", body)
		}
		if body["fromdate"] != "2025-09-01 09:15" {
			t.Errorf("fromdate = %q", body["fromdate"])
		}
		_, _ = w.Write([]byte(`{"status":true,"message":"SUCCESS","data":[
			["2025-09-01T09:15:00+05:30",800.5,805,799,803.25,12000],
			["2025-09-01T09:30:00+05:30",803.25,806,802,805,9000]
		]}`))
	})

	from := time.Date(2025, 9, 1, 9, 15, 0, 0, ist)
	candles, err := sc.GetCandleData(context.Background(), CandleRequest{
		Exchange: "NSE", SymbolToken: "3045", Interval: FifteenMinute,
		From: from, To: from.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("GetCandleData: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles", len(candles))
	}
	if !candles[0].Time.Equal(from) || candles[0].Close != 803.25 || candles[1].Volume != 9000 {
		t.Errorf("unexpected candles %+v", candles)
	}
}

func TestTokenException_CallsHook(t *testing.T) {
	sc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_type":"TokenException","message":"expired"}`))
	})
	called := false
	sc.SessionExpiryHook = func() { called = true }

	_, err := sc.SearchScrip(context.Background(), "NSE", "SBIN")
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("err = %v, want ErrAPI", err)
	}
	if !called {
		t.Error("SessionExpiryHook not called")
	}
}
