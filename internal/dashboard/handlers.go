package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"trading-signalsv1/internal/report"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS streams signals. ?last_seq=N replays buffered signals after N;
// without it nothing is replayed.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	lastSeq := int64(-1)
	if v := r.URL.Query().Get("last_seq"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "last_seq must be a non-negative integer")
			return
		}
		lastSeq = n
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[dashboard] ws upgrade error: %v", err)
		return
	}
	s.deps.Hub.Attach(conn, lastSeq)
}

type reportResponse struct {
	*report.Report
	Links map[string]string `json:"links"`
}

func withLinks(rep *report.Report) reportResponse {
	base := "/api/v1/reports/" + rep.ID
	return reportResponse{Report: rep, Links: map[string]string{
		"self":   base,
		"xlsx":   base + "/xlsx",
		"charts": base + "/charts",
	}}
}

// handleAnalyze accepts a multipart upload ("file") of an option chain and
// an optional comma-separated "stocks" filter.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing upload field \"file\"")
		return
	}
	defer file.Close()

	sheet, err := report.LoadSheet(header.Filename, file)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, report.ErrInvalidFormat) || errors.Is(err, report.ErrMissingColumns) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	stocks := s.deps.Analyzer.Parser().Stocks(sheet.CESymbols())
	if filter := splitStocks(r.FormValue("stocks")); len(filter) > 0 {
		stocks = keep(stocks, filter)
	}
	if len(stocks) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no stocks found in "+header.Filename)
		return
	}

	start := time.Now()
	rep := s.deps.Analyzer.Analyze(r.Context(), stocks)
	s.deps.Reports.Put(rep)
	if s.deps.ArchiveDir != "" {
		if _, err := report.Save(s.deps.ArchiveDir, rep); err != nil {
			log.Printf("[dashboard] archive report %s: %v", rep.ID, err)
		}
	}
	log.Printf("[dashboard] report %s: %d stocks from %s in %s",
		rep.ID, len(stocks), header.Filename, time.Since(start).Round(time.Millisecond))

	writeJSON(w, http.StatusCreated, withLinks(rep))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*report.Report, bool) {
	rep, ok := s.deps.Reports.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
	}
	return rep, ok
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if rep, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, withLinks(rep))
	}
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, rep); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	setCORS(w)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.WorkbookFile))
	w.Write(buf.Bytes())
}

func (s *Server) handleReportCharts(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.RenderCharts(&buf, rep); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	setCORS(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := make(map[string]string, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"checks":     checks,
		"ws_clients": s.deps.Hub.ClientCount(),
		"last_seq":   s.deps.Hub.Seq(),
		"reports":    s.deps.Reports.Len(),
		"uptime_sec": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleRecentSignals(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feed == nil {
		writeError(w, http.StatusServiceUnavailable, "signal feed not configured")
		return
	}
	limit, err := limitParam(r, 50, 1000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sigs, err := s.deps.Feed.Recent(r.Context(), int64(limit))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if sigs == nil {
		sigs = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": sigs})
}

type notificationState struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	if s.deps.Toggle == nil {
		writeError(w, http.StatusServiceUnavailable, "notification toggle not configured")
		return
	}
	writeJSON(w, http.StatusOK, notificationState{Enabled: s.deps.Toggle.Enabled()})
}

func (s *Server) handlePutNotifications(w http.ResponseWriter, r *http.Request) {
	if s.deps.Toggle == nil {
		writeError(w, http.StatusServiceUnavailable, "notification toggle not configured")
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, `body must be {"enabled": true|false}`)
		return
	}
	if err := s.deps.Toggle.Set(*req.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, notificationState{Enabled: s.deps.Toggle.Enabled()})
}

func (s *Server) handleTradeLog(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, "trade journal not configured")
		return
	}
	limit, err := limitParam(r, 100, 1000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	entries, err := s.deps.Journal.TradeLog(r.Context(), symbol, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

func limitParam(r *http.Request, def, max int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if n > max {
		n = max
	}
	return n, nil
}

func splitStocks(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// keep returns the stocks present in filter, in stocks order.
func keep(stocks, filter []string) []string {
	want := make(map[string]bool, len(filter))
	for _, f := range filter {
		want[f] = true
	}
	var out []string
	for _, s := range stocks {
		if want[s] {
			out = append(out, s)
		}
	}
	return out
}
