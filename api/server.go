// Package api serves the generation pipeline, async jobs and design history
// over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"roomify/core"
	"roomify/db"
	"roomify/jobs"
	"roomify/logging"
	"roomify/metrics"
	"roomify/objectstore"
)

// DefaultMaxBodyBytes bounds request bodies; photos arrive base64 encoded.
const DefaultMaxBodyBytes = 25 * core.BytesPerMB

// Config holds transport settings.
type Config struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// APITokenHash is a bcrypt hash; empty disables auth.
	APITokenHash string
	PageSize     int
	MaxBodyBytes int64
	Version      string
}

// ConfigFromCore maps the process configuration.
func ConfigFromCore(c *core.Config) Config {
	return Config{
		CORSOrigins:    c.CORSOrigins,
		RateLimitRPS:   c.RateLimitRPS,
		RateLimitBurst: c.RateLimitBurst,
		APITokenHash:   c.APITokenHash,
		PageSize:       c.HistoryPageSize,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		Version:        core.Version,
	}
}

// Tracker counts in-flight generations so shutdown can drain them.
// *shutdown.Manager implements it.
type Tracker interface {
	Track(ctx context.Context, fn func(context.Context) error) error
	ActiveOperations() int64
}

// HealthFunc probes the model backend.
type HealthFunc func(ctx context.Context) error

// Deps are the collaborators behind the routes. Only Generator is
// required; missing optional ones disable their routes.
type Deps struct {
	Generator *Generator
	Queue     *jobs.Queue
	Designs   *db.Repository
	Images    objectstore.Store
	Metrics   *metrics.Store
	Health    HealthFunc
	Logger    *logging.Logger
}

// Server is the HTTP front end.
type Server struct {
	cfg     Config
	deps    Deps
	logger  *logging.Logger
	limiter *ipLimiter
	tokens  *tokenVerifier
	router  chi.Router
}

// NewServer builds the router.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Generator == nil {
		return nil, errors.New("api: generator is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = 5
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  deps.Logger.Named("api"),
		limiter: newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		tokens:  newTokenVerifier(cfg.APITokenHash),
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the handler with timeouts suited to long generations.
func (s *Server) HTTPServer(addr string, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer, s.cors)

	r.Get("/health", s.handleHealth)
	if local, ok := s.deps.Images.(*objectstore.LocalStore); ok {
		r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(local.Root()))))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.auth)

		r.Get("/api/options", s.handleOptions)
		r.Get("/api/stats", s.handleStats)

		r.Route("/designs", func(r chi.Router) {
			r.Get("/", s.handleListDesigns)
			r.Get("/{id}", s.handleGetDesign)
			r.Delete("/{id}", s.handleDeleteDesign)
		})

		r.Get("/status/{id}", s.handleJobStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/generate", s.handleGenerate)
			r.Post("/api/predict", s.handlePredict)
			r.Post("/api/predict/", s.handlePredict)
			r.Post("/run", s.handleRun)
			r.Post("/runsync", s.handleRunSync)
		})
	})
	return r
}
