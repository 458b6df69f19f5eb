// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the query pipeline over HTTP.
//
// Endpoints:
//
//	POST /v1/candidates  {query, top_k}              initial similarity search
//	POST /v1/related     {query, seeds, max_papers}  expansion and re-ranking
//	POST /v1/ask         {question}                  answer with sources
//	GET  /v1/papers?match=<substring>                title search
//	GET  /healthz
//	GET  /metrics
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/icite/internal/pipeline"
	"github.com/pdiddy/icite/pkg/types"
)

const requestIDHeader = "X-Request-ID"

// shutdownTimeout bounds graceful shutdown in Run.
const shutdownTimeout = 10 * time.Second

// Service is the part of the orchestrator the API serves.
type Service interface {
	FindInitialCandidates(ctx context.Context, query string, topK int) ([]types.Paper, error)
	FindRelatedPapers(ctx context.Context, query string, seeds []string, opts ...pipeline.RelatedOption) (types.Related, error)
	Ask(ctx context.Context, question string) (types.Answer, error)
	MatchTitles(ctx context.Context, substring string) ([]types.Paper, error)
}

// Server is the HTTP API.
type Server struct {
	svc      Service
	log      *slog.Logger
	timeout  time.Duration
	gatherer prometheus.Gatherer
	engine   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithTimeout bounds each pipeline call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New builds the API around svc.
func New(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/candidates", s.handleCandidates)
	v1.POST("/related", s.handleRelated)
	v1.POST("/ask", s.handleAsk)
	v1.GET("/papers", s.handlePapers)

	s.engine = r
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// requestID tags each request with an X-Request-ID header, reusing the
// client's when present, and logs the finished request.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()
		s.log.Info("request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
