package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jacksenechal/humanebench-eval/internal/store"
)

// overview handles GET /api/v1/overview?range=24h|7d|30d|all
func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured")
		return
	}
	window := r.URL.Query().Get("range")
	since, err := store.RangeStart(window, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ov, err := s.reports.Overview(r.Context(), since)
	if err != nil {
		s.logger.Error("overview query failed", "range", window, "error", err)
		writeError(w, http.StatusInternalServerError, "overview query failed")
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// incidents handles GET /api/v1/incidents?dimension=&limit=
func (s *Server) incidents(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured")
		return
	}

	limit := store.DefaultIncidentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	dimension := r.URL.Query().Get("dimension")

	incidents, err := s.reports.Incidents(r.Context(), dimension, limit)
	if err != nil {
		s.logger.Error("incidents query failed", "dimension", dimension, "error", err)
		writeError(w, http.StatusInternalServerError, "incidents query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incidents": incidents,
		"count":     len(incidents),
	})
}
