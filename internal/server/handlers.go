package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/queue"
)

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/webhook", s.handleWebhook)
	s.router.Get("/api/signals/{instrument}", s.handleSignalHistory)
	s.router.Get("/api/hedges", s.handleHedges)
	s.router.Get("/api/margin", s.handleMargin)
	if s.cfg.Confirmation != nil {
		s.router.Get("/api/confirmations/pending", s.handlePendingConfirmations)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleWebhook is the TradingView signal ingestion endpoint. It decodes
// the request body straight into domain.Signal and runs it through
// internal/engine's nine-step pipeline, per spec.md §4.J. When a queue
// is configured it enqueues onto the bounded channel and waits for the
// worker's result rather than calling Engine.Process directly, so a
// saturated queue returns the "busy" envelope spec.md §5 calls for
// instead of blocking the caller or the engine's hot path.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var sig domain.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed signal payload"})
		return
	}
	if sig.ReceivedAt.IsZero() {
		sig.ReceivedAt = time.Now()
	}

	var result domain.Result
	if s.cfg.Queue != nil {
		resultCh := make(chan domain.Result, 1)
		if err := s.cfg.Queue.Enqueue(queue.Job{Signal: sig, Result: resultCh}); err != nil {
			writeJSON(w, http.StatusTooManyRequests, domain.Busy("ingestion queue saturated, retry shortly"))
			return
		}
		select {
		case result = <-resultCh:
		case <-r.Context().Done():
			return
		}
	} else {
		result = s.cfg.Engine.Process(r.Context(), sig)
	}

	status := http.StatusOK
	if result.Outcome == domain.OutcomeError {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

// handleSignalHistory serves GET /api/signals/{instrument}?limit=50 from
// the audit trail.
func (s *Server) handleSignalHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Audit == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "audit store not configured"})
		return
	}
	instrument := domain.Instrument(chi.URLParam(r, "instrument"))
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	history, err := s.cfg.Audit.SignalHistory(r.Context(), instrument, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// handleHedges serves GET /api/hedges, the active-hedge registry for the
// configured session (component N).
func (s *Server) handleHedges(w http.ResponseWriter, r *http.Request) {
	if s.cfg.HedgeLedger == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "hedge ledger not configured"})
		return
	}
	active, err := s.cfg.HedgeLedger.ActiveHedges(r.Context(), s.cfg.HedgeSession)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, active)
}

// handleMargin serves GET /api/margin, a fresh intraday margin snapshot
// from component L.
func (s *Server) handleMargin(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Margin == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "margin monitor not configured"})
		return
	}
	snap, err := s.cfg.Margin.CaptureSnapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handlePendingConfirmations serves GET /api/confirmations/pending, the
// set of escalations component O is currently waiting on an operator
// decision for.
func (s *Server) handlePendingConfirmations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Confirmation.Pending())
}

// handleHealth reports process uptime plus CPU/RAM usage, grounded on
// the same gopsutil-backed sampling the original status dashboard used.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		cpuPercent = []float64{0}
	}
	memStat, err := mem.VirtualMemory()
	ramPercent := 0.0
	if err == nil {
		ramPercent = memStat.UsedPercent
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"uptime_secs":  time.Since(s.cfg.StartupTime).Seconds(),
		"cpu_percent":  cpuPercent[0],
		"ram_percent":  ramPercent,
	})
}
