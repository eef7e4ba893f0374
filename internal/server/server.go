// Package server implements the HTTP server that exposes the page store and
// the question-answering pipeline as a REST API.
// The server is started by the `notion serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IslandRhythms/notion-clone/internal/logging"
	"github.com/IslandRhythms/notion-clone/internal/page"
)

// callerHeader carries the caller's user id. The authentication layer in
// front of this service is trusted to set it; an absent header means an
// anonymous caller.
const callerHeader = "X-User-ID"

// New constructs a Server from the page service, the answer pipeline, and the
// config. reg receives the server's Prometheus metrics; pass a fresh registry
// in tests and prometheus.DefaultRegisterer in production.
func New(pages pageService, answers answerer, cfg *Config, reg prometheus.Registerer) (*Server, error) {
	if pages == nil {
		return nil, fmt.Errorf("server: page service must not be nil")
	}
	if answers == nil {
		return nil, fmt.Errorf("server: answer pipeline must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Answer synthesis can take a while on slow backends.
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		pages:   pages,
		answers: answers,
		cfg:     cfg,
		log:     log,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(reg),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		log.Warn("server: NOTION_API_KEY not set — API authentication is disabled")
	}

	// protected wraps an API handler with the full middleware chain:
	// metrics → rate limit → auth. Request logging wraps the whole mux once.
	protected := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, rl.middleware(authMiddleware(cfg.APIKey, h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/pages", protected("pages_create", s.handleCreatePage))
	mux.Handle("GET /api/pages", protected("pages_list", s.handleListPages))
	mux.Handle("GET /api/pages/{id}", protected("pages_get", s.handleGetPage))
	mux.Handle("PUT /api/pages/{id}", protected("pages_update", s.handleUpdatePage))
	mux.Handle("DELETE /api/pages/{id}", protected("pages_delete", s.handleDeletePage))
	mux.Handle("POST /api/answer", protected("answer", s.handleAnswer))

	// Health, readiness, and metrics stay outside auth so probes and scrapers
	// need no credentials.
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	if g, ok := reg.(prometheus.Gatherer); ok {
		mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the server's root handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// callerID returns the trusted caller identity from the request headers.
func callerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(callerHeader))
}

// handleCreatePage handles POST /api/pages.
func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req savePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := s.pages.Save(r.Context(), callerID(r), &page.Page{Blocks: req.Blocks})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toPageResponse(saved))
}

// handleListPages handles GET /api/pages.
func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	ids, err := s.pages.List(r.Context(), callerID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, r, http.StatusOK, listPagesResponse{Pages: ids})
}

// handleGetPage handles GET /api/pages/{id}.
func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	p, err := s.pages.Get(r.Context(), callerID(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toPageResponse(p))
}

// handleUpdatePage handles PUT /api/pages/{id}. The body's block list
// replaces the stored blocks and the page is reindexed.
func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var req savePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := s.pages.Save(r.Context(), callerID(r), &page.Page{
		ID:     r.PathValue("id"),
		Blocks: req.Blocks,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toPageResponse(saved))
}

// handleDeletePage handles DELETE /api/pages/{id}.
func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if err := s.pages.Delete(r.Context(), callerID(r), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAnswer handles POST /api/answer.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	s.metrics.answerActive.Inc()
	defer s.metrics.answerActive.Dec()

	res, err := s.answers.Ask(r.Context(), callerID(r), req.Question)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.answerRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.answerDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sources := make([]string, 0, len(res.Pages))
	for _, p := range res.Pages {
		sources = append(sources, p.ID)
	}
	writeJSON(w, r, http.StatusOK, answerResponse{
		Question: res.Question,
		Sources:  sources,
		Answer:   res.Answer,
	})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps domain errors to HTTP status codes. Upstream model
// failures surface as 502 so callers can tell them from local faults.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, page.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, page.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, page.ErrInvalidQuestion), errors.Is(err, page.ErrEmptyInput):
		status = http.StatusBadRequest
	case errors.Is(err, page.ErrEmbeddingUnavailable), errors.Is(err, page.ErrSynthesisUnavailable):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	}
	http.Error(w, err.Error(), status)
}

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("response encode error", slog.Any("error", err))
	}
}
