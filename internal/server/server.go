// Package server exposes the claim intake and status API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/klaimcare/cyberclaim/internal/archive"
	"github.com/klaimcare/cyberclaim/internal/async"
	"github.com/klaimcare/cyberclaim/internal/common"
	"github.com/klaimcare/cyberclaim/internal/pipeline"
	"github.com/klaimcare/cyberclaim/internal/repository"
)

type Server struct {
	cfg       common.ServerConfig
	uploads   common.PipelineConfig
	claims    repository.ClaimRepository
	findings  repository.FraudRepository
	queue     async.Queue
	extractor *archive.Extractor
	fraud     *pipeline.FraudStage
	pool      *pgxpool.Pool
	log       *slog.Logger

	httpServer *http.Server
}

type Deps struct {
	Config    common.ServerConfig
	Pipeline  common.PipelineConfig
	Claims    repository.ClaimRepository
	Findings  repository.FraudRepository
	Queue     async.Queue
	Extractor *archive.Extractor
	Fraud     *pipeline.FraudStage
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
}

func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	s := &Server{
		cfg:       d.Config,
		uploads:   d.Pipeline,
		claims:    d.Claims,
		findings:  d.Findings,
		queue:     d.Queue,
		extractor: d.Extractor,
		fraud:     d.Fraud,
		pool:      d.Pool,
		log:       d.Logger,
	}
	s.httpServer = &http.Server{
		Addr:              d.Config.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/claims", func(r chi.Router) {
		r.Post("/", s.handleUploadClaim)
		r.Get("/{claimID}", s.handleGetClaim)
		r.Post("/{claimID}/fraud-check", s.handleFraudCheck)
	})
	return r
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", "addr", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests bounded by the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler { return s.routes() }
