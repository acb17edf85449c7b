package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/soundlens/soundlens/internal/events"
	"github.com/soundlens/soundlens/internal/pipeline"
	"github.com/soundlens/soundlens/internal/qa"
)

// Server exposes the pipeline over HTTP. Analyzed datasets are held in
// memory only, keyed by id; a restart forgets them all.
type Server struct {
	router *chi.Mux
	port   int
	pipe   *pipeline.Pipeline
	qa     *qa.Adapter
	events *events.Publisher
	logger *slog.Logger

	mu       sync.Mutex
	datasets map[uuid.UUID]*pipeline.Result
}

func NewServer(port int, pipe *pipeline.Pipeline, adapter *qa.Adapter, pub *events.Publisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		pipe:     pipe,
		qa:       adapter,
		events:   pub,
		logger:   logger,
		datasets: make(map[uuid.UUID]*pipeline.Result),
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/status", s.status)
	router.Route("/api/v1/datasets", func(r chi.Router) {
		r.Post("/", s.createDataset)
		r.Get("/{id}/kpis", s.getKPIs)
		r.Get("/{id}/context", s.getContext)
		r.Post("/{id}/ask", s.ask)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	count := len(s.datasets)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"service":  "soundlens",
		"datasets": count,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
