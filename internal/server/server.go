// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the research pipeline and document index over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/docindex"
	"github.com/pdiddy/research-assistant/internal/pipeline"
	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// PassageSearcher is the optional full-text passage search surface,
// provided by the SQLite store.
type PassageSearcher interface {
	SearchPassages(ctx context.Context, documentID, query string, limit int) ([]types.DocumentPassage, error)
}

// Server routes HTTP requests to the pipeline engine, job store, and
// document index.
type Server struct {
	engine   *pipeline.Engine
	jobs     store.JobStore
	index    *docindex.Index
	passages PassageSearcher
	cfg      types.ServerConfig
	log      *zap.Logger
}

// New builds a Server. passages may be nil when no durable store is
// configured.
func New(engine *pipeline.Engine, jobs store.JobStore, index *docindex.Index, passages PassageSearcher, cfg types.ServerConfig, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{engine: engine, jobs: jobs, index: index, passages: passages, cfg: cfg, log: log}
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/research", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/", s.handleList)
		r.Get("/{id}/status", s.handleStatus)
		r.Get("/{id}/result", s.handleResult)
		r.Delete("/{id}", s.handleDelete)
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/{id}", s.handleDocument)
		r.Post("/{id}/ask", s.handleAsk)
		r.Get("/{id}/passages", s.handlePassageSearch)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.BindAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req types.ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	job, err := s.engine.Submit(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	jobs, err := s.jobs.ListJobs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if jobs == nil {
		jobs = []types.ResearchJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if job.Status != types.JobCompleted {
		writeError(w, http.StatusConflict, fmt.Errorf("job %s is %s, result not available", id, job.Status))
		return
	}

	result, err := s.jobs.GetResult(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	// A live job is cancelled before its record is removed.
	if !job.Status.Terminal() {
		if err := s.engine.Cancel(r.Context(), id); err != nil {
			s.log.Warn("cancelling job before delete", zap.String("job", id), zap.Error(err))
		}
	}
	if err := s.jobs.DeleteJob(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parsing upload: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("reading upload: %w", err))
		return
	}

	doc, err := s.index.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		// The document record, in the failed state, still comes back so
		// the client can inspect it.
		writeJSON(w, statusFor(err), doc)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.index.Document(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	ans, err := s.index.Ask(r.Context(), chi.URLParam(r, "id"), req.Question)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handlePassageSearch(w http.ResponseWriter, r *http.Request) {
	if s.passages == nil {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("passage search requires the durable store"))
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("q is required"))
		return
	}

	hits, err := s.passages.SearchPassages(r.Context(), chi.URLParam(r, "id"), query, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if hits == nil {
		hits = []types.DocumentPassage{}
	}
	writeJSON(w, http.StatusOK, hits)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrJobNotFound), errors.Is(err, types.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDocumentNotReady):
		return http.StatusConflict
	case errors.Is(err, types.ErrParseFailed), errors.Is(err, types.ErrNoRelevantContext):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
