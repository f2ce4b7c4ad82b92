// Package server exposes the jobs API over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/model"
	"github.com/atlas-esg/esia-review/internal/pipeline"
	"github.com/atlas-esg/esia-review/internal/store"
)

// Server serves job submission and inspection endpoints.
type Server struct {
	cfg   config.ServerConfig
	store store.Store
	pipe  *pipeline.Pipeline
}

// New creates a Server.
func New(cfg config.ServerConfig, st store.Store, pipe *pipeline.Pipeline) *Server {
	return &Server{cfg: cfg, store: st, pipe: pipe}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Get("/{id}/facts", s.handleFacts)
	})
	return r
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path        string `json:"path"`
		Title       string `json:"title"`
		ProjectType string `json:"project_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	doc := model.DocumentRef{
		Path:        req.Path,
		Title:       req.Title,
		ProjectType: req.ProjectType,
	}

	// The analysis runs in the background; the job record tracks progress.
	go func() {
		result, err := s.pipe.Run(context.Background(), doc)
		if err != nil {
			zap.L().Error("server: analysis failed",
				zap.String("document", doc.Path),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("server: analysis complete",
			zap.String("document", doc.Path),
			zap.Int("facts", result.Facts),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"document": req.Path,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{
		Status:       model.JobStatus(r.URL.Query().Get("status")),
		DocumentPath: r.URL.Query().Get("path"),
	}

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list jobs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleFacts(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	filter := store.FactFilter{
		Category:     r.URL.Query().Get("category"),
		ConflictOnly: r.URL.Query().Get("conflicts") == "true",
	}

	facts, err := s.store.ListFacts(r.Context(), jobID, filter)
	if err != nil {
		zap.L().Error("server: list facts", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list facts")
		return
	}
	if facts == nil {
		facts = []model.ConsolidatedFact{}
	}
	writeJSON(w, http.StatusOK, facts)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
