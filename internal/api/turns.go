package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jacksenechal/humanebench-eval/internal/pipeline"
	"github.com/jacksenechal/humanebench-eval/internal/session"
)

// chatEval runs a turn in a fresh session.
func (s *Server) chatEval(w http.ResponseWriter, r *http.Request) {
	s.runTurn(w, r, "")
}

func (s *Server) createTurn(w http.ResponseWriter, r *http.Request) {
	s.runTurn(w, r, chi.URLParam(r, "sessionID"))
}

func (s *Server) runTurn(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req pipeline.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	for i, m := range req.History {
		if !m.Role.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("history[%d]: unknown role %q", i, m.Role))
			return
		}
	}

	resp, err := s.pipeline.Run(r.Context(), sessionID, req)
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "Input is required.")
		return
	case errors.Is(err, pipeline.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.logger.Error("turn failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.pipeline.Sessions().Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

func (s *Server) trend(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sess.ID,
		"points":    sess.Trend(),
	})
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	turn, ok := sess.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no turns recorded")
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (s *Server) listTurns(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	turns := sess.Turns()
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": sess.ID,
		"turns":     turns,
		"count":     len(turns),
	})
}
