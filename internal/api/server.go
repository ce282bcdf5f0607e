package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jacksenechal/humanebench-eval/internal/metrics"
	"github.com/jacksenechal/humanebench-eval/internal/pipeline"
	"github.com/jacksenechal/humanebench-eval/internal/store"
)

// maxBodyBytes bounds turn request bodies.
const maxBodyBytes = 1 << 20

// Reporter serves aggregate reporting over archived turns.
type Reporter interface {
	Overview(ctx context.Context, since time.Time) (*store.Overview, error)
	Incidents(ctx context.Context, dimension string, limit int) ([]store.Incident, error)
}

// Info is static deployment metadata reported by /api/v1/status.
type Info struct {
	Provider  string `json:"provider"`
	ChatModel string `json:"chat_model"`
	EvalModel string `json:"eval_model"`
	Schema    string `json:"schema"`
}

type Server struct {
	router   *chi.Mux
	port     int
	pipeline *pipeline.Pipeline
	reports  Reporter
	info     Info
	logger   *slog.Logger
	httpSrv  *http.Server
}

// NewServer wires the HTTP API. reports may be nil when no archive is
// configured; the reporting endpoints then answer 503. m may be nil.
func NewServer(port int, apiToken string, p *pipeline.Pipeline, reports Reporter, info Info, m *metrics.Metrics, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	if m != nil {
		router.Use(m.Middleware)
	}

	s := &Server{
		router:   router,
		port:     port,
		pipeline: p,
		reports:  reports,
		info:     info,
		logger:   logger,
	}

	router.Get("/health", s.health)
	if m != nil {
		router.Method(http.MethodGet, "/metrics", m.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/status", s.status)
		r.Post("/chat-eval", s.chatEval)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/turns", s.createTurn)
			r.Get("/turns", s.listTurns)
			r.Get("/trend", s.trend)
			r.Get("/latest", s.latest)
		})
		r.Get("/overview", s.overview)
		r.Get("/incidents", s.incidents)
	})

	return s
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight turns.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":  "humanebench",
		"status":   "ok",
		"info":     s.info,
		"sessions": s.pipeline.Sessions().Len(),
		"archive":  s.reports != nil,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
