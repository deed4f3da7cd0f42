// Package api exposes the HTTP interface for the article generation service.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/articlr/articlr/internal/config"
	"github.com/articlr/articlr/internal/metrics"
	"github.com/articlr/articlr/internal/pipeline"
)

// Runner is the pipeline contract the server dispatches to.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// Server wires HTTP handlers to the generation pipeline.
type Server struct {
	router   chi.Router
	pipeline Runner
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(p Runner, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline: p,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second))
	if cfg.Auth.Enabled {
		r.Use(basicAuthMiddleware(cfg.Auth.User, cfg.Auth.Password))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/api/generate", s.generate)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

// errorResponse is the wire shape of every failure, with partial artifacts
// attached when earlier phases produced them.
type errorResponse struct {
	Error    string             `json:"error"`
	Outline  *pipeline.Outline  `json:"outline,omitempty"`
	Warnings []pipeline.Warning `json:"warnings,omitempty"`
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(s.logger, w, http.StatusBadRequest,
			errorResponse{Error: "リクエスト本文を解釈できませんでした。"})
		return
	}

	resp, err := s.pipeline.Run(r.Context(), req)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, resp)
}

func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var validationErr *pipeline.ValidationError
	if errors.As(err, &validationErr) {
		writeJSON(s.logger, w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
		return
	}

	var noSourcesErr *pipeline.NoSourcesError
	if errors.As(err, &noSourcesErr) {
		writeJSON(s.logger, w, http.StatusBadGateway, errorResponse{
			Error:    noSourcesErr.Error(),
			Warnings: noSourcesErr.Warnings,
		})
		return
	}

	var outlineErr *pipeline.OutlineError
	if errors.As(err, &outlineErr) {
		writeJSON(s.logger, w, http.StatusBadGateway, errorResponse{
			Error:    outlineErr.Error(),
			Warnings: outlineErr.Warnings,
		})
		return
	}

	var articleErr *pipeline.ArticleError
	if errors.As(err, &articleErr) {
		writeJSON(s.logger, w, http.StatusBadGateway, errorResponse{
			Error:    articleErr.Error(),
			Outline:  &articleErr.Outline,
			Warnings: articleErr.Warnings,
		})
		return
	}

	s.logger.Error("pipeline failed with unclassified error", zap.Error(err))
	writeJSON(s.logger, w, http.StatusInternalServerError,
		errorResponse{Error: "internal server error"})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
			)
			metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, elapsed)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeJSON(logger, w, http.StatusInternalServerError,
						errorResponse{Error: "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func basicAuthMiddleware(user, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser, gotPass, ok := r.BasicAuth()
			userOK := subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(gotPass), []byte(password)) == 1
			if !ok || !userOK || !passOK {
				w.Header().Set("WWW-Authenticate", `Basic realm="ArticlrApp"`)
				writeJSON(zap.NewNop(), w, http.StatusUnauthorized,
					errorResponse{Error: "認証が必要です。"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}
