// Package app wires configuration into a running Roomify instance. Both the
// long-running server and the Lambda entrypoint build through New.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"roomify/api"
	"roomify/core"
	"roomify/core/validation"
	"roomify/db"
	"roomify/inference"
	"roomify/jobs"
	"roomify/logging"
	"roomify/metrics"
	"roomify/objectstore"
	"roomify/pipeline"
	"roomify/prompt"
	"roomify/shutdown"
)

// metricsCapacity is how many generations the stats ring keeps.
const metricsCapacity = 500

// Options tune what New starts.
type Options struct {
	// Tracker drains in-flight generations on shutdown. Nil runs untracked.
	Tracker api.Tracker
	// Jobs enables the async job queue behind /run and /runsync.
	Jobs    bool
}

// App holds the wired components.
type App struct {
	Config    *core.Config
	Bundle    *inference.ModelBundle
	Pipeline  *pipeline.Pipeline
	Metrics   *metrics.Store
	Database  *db.Database
	Designs   *db.Repository
	Images    objectstore.Store
	Generator *api.Generator
	Queue     *jobs.Queue
	Server    *api.Server

	logger *logging.Logger
}

// New builds every component for cfg. On error, whatever was already
// opened is closed again.
func New(ctx context.Context, cfg *core.Config, logger *logging.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, logger: logger.Named("app")}

	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.Background())
		}
	}()

	pcfg, err := pipeline.FromCore(cfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	a.Bundle, err = inference.NewBundle(BackendConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("inference backend: %w", err)
	}

	composer, err := newComposer(cfg)
	if err != nil {
		return nil, err
	}

	a.Metrics = metrics.NewStore(metricsCapacity, core.Version, time.Now())
	a.Pipeline, err = pipeline.New(pcfg, a.Bundle, composer, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	a.Pipeline.WithRecorder(a.Metrics)

	if cfg.HistoryEnabled() {
		a.Images, err = objectstore.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
		a.Database, err = db.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("history database: %w", err)
		}
		a.Designs = db.NewRepository(a.Database)
	}

	a.Generator = api.NewGenerator(a.Pipeline, a.Designs, a.Images, opts.Tracker, logger)

	if opts.Jobs {
		a.Queue = jobs.New(jobs.Config{
			Workers:   cfg.JobWorkers,
			QueueSize: cfg.JobQueueSize,
			ResultTTL: cfg.JobResultTTL,
		}, a.Generator.HandleJob, logger)
	}

	a.Server, err = api.NewServer(api.ConfigFromCore(cfg), api.Deps{
		Generator: a.Generator,
		Queue:     a.Queue,
		Designs:   a.Designs,
		Images:    a.Images,
		Metrics:   a.Metrics,
		Health:    a.Health(),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// Start launches the job workers and the history sweeper. Both stop when
// ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	if a.Queue != nil {
		a.Queue.Start(ctx)
	}
	if a.Designs != nil && a.Config.RetentionDays > 0 {
		cfg := db.DefaultSweeperConfig(a.Config.RetentionDays)
		cfg.OnExpired = a.Generator.Expire
		cfg.OnSweep = func(n int, err error) {
			if err != nil {
				a.logger.Warn("History sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				a.logger.Info("Expired old designs", zap.Int("count", n), zap.Int("retention_days", a.Config.RetentionDays))
			}
		}
		a.Designs.StartSweeper(ctx, cfg)
	}
}

// Health returns the model server probe, or nil when no backend exposes one.
func (a *App) Health() api.HealthFunc {
	if a.Bundle == nil {
		return nil
	}
	if h, ok := a.Bundle.Depth.(healthChecker); ok {
		return h.Health
	}
	if h, ok := a.Bundle.Diffuser.(healthChecker); ok {
		return h.Health
	}
	return nil
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// RegisterHooks adds the queue, model and storage shutdown hooks to mgr.
// The HTTP server hook is registered by whoever owns the listener.
func (a *App) RegisterHooks(mgr *shutdown.Manager) {
	if a.Queue != nil {
		mgr.Register("job-queue", shutdown.PriorityWorkers, a.Queue.Stop)
	}
	mgr.Register("models", shutdown.PriorityModels, func(context.Context) error {
		return a.Bundle.Close()
	})
	if a.Database != nil {
		mgr.Register("database", shutdown.PriorityStorage, func(context.Context) error {
			return a.Database.Close()
		})
	}
}

// Close releases everything New opened. It is used where no shutdown
// manager runs, such as Lambda and tests.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Queue != nil {
		if err := a.Queue.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Bundle != nil {
		if err := a.Bundle.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Database != nil {
		if err := a.Database.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BackendConfig maps the core settings onto the inference backend.
func BackendConfig(cfg *core.Config) inference.BackendConfig {
	return inference.BackendConfig{
		Kind:             cfg.InferenceBackend,
		ModelServerURL:   cfg.ModelServerURL,
		ModelServerToken: cfg.ModelServerToken,
		Timeout:          cfg.InferenceTimeout,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		OpenAIModel:      cfg.OpenAIImageModel,
		MaxConcurrent:    cfg.MaxConcurrent,
	}
}

// ModelServerProbe returns a startup health probe for the model server, or
// nil when the configured backend never talks to one.
func ModelServerProbe(cfg *core.Config) validation.HealthProbe {
	switch cfg.InferenceBackend {
	case "http":
	case "openai":
		if cfg.ModelServerURL == "" {
			return nil
		}
	default:
		return nil
	}
	return func(ctx context.Context) error {
		backend, err := inference.NewHTTPBackend(inference.HTTPBackendConfig{
			BaseURL: cfg.ModelServerURL,
			Token:   cfg.ModelServerToken,
			Timeout: cfg.InferenceTimeout,
		})
		if err != nil {
			return err
		}
		return backend.Health(ctx)
	}
}

func newComposer(cfg *core.Config) (*prompt.Composer, error) {
	if cfg.PromptTemplatesFile == "" {
		return prompt.NewComposer(nil), nil
	}
	t, err := prompt.LoadTemplates(cfg.PromptTemplatesFile)
	if err != nil {
		return nil, fmt.Errorf("prompt templates: %w", err)
	}
	return prompt.NewComposer(t), nil
}
