package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal monitor.
type Metrics struct {
	CyclesTotal   prometheus.Counter
	CycleDuration prometheus.Histogram
	LastCycleUnix prometheus.Gauge

	// Per-symbol fetch failures, labelled by provider
	FetchFailures *prometheus.CounterVec

	// Signals by strategy and direction
	SignalsTotal *prometheus.CounterVec

	// Notification outcomes: sent, suppressed, failed
	Notifications *prometheus.CounterVec

	TradeLogErrors  prometheus.Counter
	BusPublishError prometheus.Counter

	// Provider circuit breaker (0=closed, 1=open, 2=half-open)
	BreakerState *prometheus.GaugeVec

	// Market session (0=closed, 1=open)
	MarketState prometheus.Gauge
}

// NewMetrics registers all metrics with reg. A nil reg uses the default
// Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signals_monitor_cycles_total",
			Help: "Completed monitor cycles",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signals_monitor_cycle_duration_seconds",
			Help:    "Wall time of one monitor cycle over all symbols",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LastCycleUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signals_monitor_last_cycle_timestamp_seconds",
			Help: "Unix time the last monitor cycle finished",
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_fetch_failures_total",
			Help: "Per-symbol market data fetch failures",
		}, []string{"provider"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_emitted_total",
			Help: "Entry signals emitted",
		}, []string{"strategy", "direction"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_notifications_total",
			Help: "Notification attempts by outcome",
		}, []string{"outcome"}),
		TradeLogErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signals_tradelog_errors_total",
			Help: "Trade log append failures",
		}),
		BusPublishError: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signals_bus_publish_errors_total",
			Help: "Signal bus publish failures",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signals_provider_breaker_state",
			Help: "Provider circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"provider"}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signals_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.LastCycleUnix,
		m.FetchFailures,
		m.SignalsTotal,
		m.Notifications,
		m.TradeLogErrors,
		m.BusPublishError,
		m.BreakerState,
		m.MarketState,
	)

	return m
}

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(started, finished time.Time) {
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(finished.Sub(started).Seconds())
	m.LastCycleUnix.Set(float64(finished.Unix()))
}

// SetMarketOpen flips the market state gauge.
func (m *Metrics) SetMarketOpen(open bool) {
	if open {
		m.MarketState.Set(1)
	} else {
		m.MarketState.Set(0)
	}
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool `json:"redis_enabled"`
	RedisConnected bool `json:"redis_connected"`
	SQLiteEnabled  bool `json:"sqlite_enabled"`
	SQLiteOK       bool `json:"sqlite_ok"`

	LastCycleAt      time.Time `json:"last_cycle_at"`
	LastCycleSymbols int       `json:"last_cycle_symbols"`
	LastCycleFailed  int       `json:"last_cycle_failed"`

	// A cycle older than MaxCycleAge marks the service degraded. Zero disables the check.
	MaxCycleAge time.Duration `json:"-"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`

	now func() time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
		now:       time.Now,
	}
}

// RecordCycle stores the outcome of the latest monitor cycle.
func (h *HealthStatus) RecordCycle(at time.Time, symbols, failed int) {
	h.mu.Lock()
	h.LastCycleAt = at
	h.LastCycleSymbols = symbols
	h.LastCycleFailed = failed
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteOK(v bool) {
	h.mu.Lock()
	h.SQLiteEnabled = true
	h.SQLiteOK = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteEnabled = true
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Either client may be nil.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// Status reports "healthy", "degraded" or "unhealthy".
func (h *HealthStatus) Status() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.statusLocked()
}

func (h *HealthStatus) statusLocked() string {
	if h.LastCycleSymbols > 0 && h.LastCycleFailed == h.LastCycleSymbols {
		return "unhealthy"
	}
	if (h.RedisEnabled && !h.RedisConnected) || (h.SQLiteEnabled && !h.SQLiteOK) {
		return "degraded"
	}
	if h.MaxCycleAge > 0 && !h.LastCycleAt.IsZero() && h.now().Sub(h.LastCycleAt) > h.MaxCycleAge {
		return "degraded"
	}
	return "healthy"
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := h.statusLocked()

	cycleAge := ""
	if !h.LastCycleAt.IsZero() {
		cycleAge = h.now().Sub(h.LastCycleAt).Round(time.Second).String()
	}

	status := struct {
		Status           string  `json:"status"`
		Uptime           string  `json:"uptime"`
		LastCycleAt      string  `json:"last_cycle_at,omitempty"`
		CycleAge         string  `json:"cycle_age,omitempty"`
		LastCycleSymbols int     `json:"last_cycle_symbols"`
		LastCycleFailed  int     `json:"last_cycle_failed"`
		RedisConnected   bool    `json:"redis_connected"`
		RedisLatencyMs   float64 `json:"redis_latency_ms"`
		SQLiteOK         bool    `json:"sqlite_ok"`
		SQLiteLatencyMs  float64 `json:"sqlite_latency_ms"`
		LastCheckAt      string  `json:"last_check_at,omitempty"`
	}{
		Status:           overallStatus,
		Uptime:           h.now().Sub(h.StartedAt).Round(time.Second).String(),
		CycleAge:         cycleAge,
		LastCycleSymbols: h.LastCycleSymbols,
		LastCycleFailed:  h.LastCycleFailed,
		RedisConnected:   h.RedisConnected,
		RedisLatencyMs:   h.RedisLatencyMs,
		SQLiteOK:         h.SQLiteOK,
		SQLiteLatencyMs:  h.SQLiteLatencyMs,
	}
	if !h.LastCycleAt.IsZero() {
		status.LastCycleAt = h.LastCycleAt.Format(time.RFC3339)
	}
	if !h.LastCheckAt.IsZero() {
		status.LastCheckAt = h.LastCheckAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if overallStatus != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server. A nil gatherer serves the
// default Prometheus registry.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	if gatherer == nil {
		mux.Handle("/metrics", promhttp.Handler())
	} else {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
