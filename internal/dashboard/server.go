// Package dashboard serves the crossover report API and relays live signals
// to websocket clients.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"trading-signalsv1/internal/model"
	"trading-signalsv1/internal/report"
)

// SignalFeed returns recently published signals, newest first.
type SignalFeed interface {
	Recent(ctx context.Context, n int64) ([]json.RawMessage, error)
}

// Journal queries the live trade log, newest first.
type Journal interface {
	TradeLog(ctx context.Context, symbol string, limit int) ([]model.TradeLogEntry, error)
}

// Switch is the notification on/off toggle.
type Switch interface {
	Enabled() bool
	Set(on bool) error
}

// Deps wires the dashboard. Analyzer, Hub and Reports are required; the
// other endpoints answer 503 when their dependency is nil.
type Deps struct {
	Analyzer *report.Analyzer
	Hub      *Hub
	Reports  *ReportStore
	Feed     SignalFeed
	Journal  Journal
	Toggle   Switch
	// Checks are named health probes, e.g. "redis" or "sqlite".
	Checks map[string]func(context.Context) error
	// ArchiveDir, when set, receives a copy of every report's exports.
	ArchiveDir string
}

// Server is the dashboard HTTP server.
type Server struct {
	deps    Deps
	addr    string
	srv     *http.Server
	started time.Time
}

const maxUploadBytes = 32 << 20

func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Analyzer == nil || deps.Hub == nil || deps.Reports == nil {
		return nil, errors.New("dashboard: analyzer, hub and report store are required")
	}
	s := &Server{deps: deps, addr: addr, started: time.Now()}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[dashboard] listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[dashboard] server error: %v", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/signals", s.handleWS)
	mux.HandleFunc("POST /api/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/v1/reports/{id}", s.handleReport)
	mux.HandleFunc("GET /api/v1/reports/{id}/xlsx", s.handleReportXLSX)
	mux.HandleFunc("GET /api/v1/reports/{id}/charts", s.handleReportCharts)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/signals/recent", s.handleRecentSignals)
	mux.HandleFunc("GET /api/v1/notifications", s.handleGetNotifications)
	mux.HandleFunc("PUT /api/v1/notifications", s.handlePutNotifications)
	mux.HandleFunc("GET /api/v1/tradelog", s.handleTradeLog)
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
