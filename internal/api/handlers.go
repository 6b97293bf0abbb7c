package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/briancarter456546/paper-trading-system/internal/model"
	"github.com/briancarter456546/paper-trading-system/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	var status model.PositionStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := model.ParsePositionStatus(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = st
	}
	positions, err := s.store.Positions(r.Context(), status)
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]positionView, 0, len(positions))
	for _, p := range positions {
		out = append(out, newPositionView(p))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}
	hist, err := s.store.MetricsHistory(r.Context(), limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]metricsView, 0, len(hist))
	for _, m := range hist {
		out = append(out, newMetricsView(m))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	var date time.Time
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}
	recs, err := s.store.Signals(r.Context(), date)
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]signalView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, newSignalView(rec))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limit(w, r)
	if !ok {
		return
	}
	runs, err := s.store.Runs(r.Context(), limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		out = append(out, newRunView(run))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("request failed")
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

var _ Reader = (*store.Store)(nil)
