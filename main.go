package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"roomify/app"
	"roomify/core"
	"roomify/core/validation"
	"roomify/logging"
	"roomify/shutdown"
)

// writeTimeoutMargin is added to the inference timeout so a slow
// generation can still write its response.
const writeTimeoutMargin = 30 * time.Second

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Println(core.VersionString())
			return
		}
		if HandleServiceCommand(os.Args) {
			return
		}
	}

	isService, err := RunAsService()
	if isService {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(core.ExitCodeError)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	os.Exit(run(context.Background(), true))
}

// run serves until ctx is cancelled, a signal arrives (when handleSignals
// is set) or the listener fails. It returns the process exit code.
func run(ctx context.Context, handleSignals bool) int {
	cfg := core.LoadConfig()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer func() { _ = logger.Sync() }()

	// Run startup validation before heavy operations
	if code := runStartupValidation(cfg, logger); code != core.ExitCodeSuccess {
		return code
	}

	logger.Info("Configuration loaded",
		zap.String("version", core.Version),
		zap.Int("port", cfg.Port),
		zap.String("variant", cfg.PipelineVariant),
		zap.String("precision", cfg.Precision),
		zap.String("inference_backend", cfg.InferenceBackend),
		zap.String("storage_backend", cfg.StorageBackend),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
		zap.Duration("inference_timeout", cfg.InferenceTimeout),
		zap.Bool("auth", cfg.AuthEnabled()),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	mgr := shutdown.NewManager(logger)
	if handleSignals {
		mgr.Start()
	}
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("Stop requested. Shutting down...")
			mgr.Trigger()
		case <-mgr.Context().Done():
		}
	}()

	a, err := app.New(mgr.Context(), cfg, logger, app.Options{Tracker: mgr, Jobs: true})
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		return core.ExitCodeError
	}
	a.Start(mgr.Context())

	srv := a.Server.HTTPServer(":"+strconv.Itoa(cfg.Port), cfg.InferenceTimeout+writeTimeoutMargin)
	mgr.Register("http-server", shutdown.PriorityServer, srv.Shutdown)
	a.RegisterHooks(mgr)
	mgr.Register("logger", shutdown.PriorityLogger, func(context.Context) error {
		_ = logger.Sync()
		return nil
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-mgr.Context().Done():
		return mgr.Shutdown()
	case err := <-serveErr:
		logger.Error("HTTP server failed", zap.Error(err))
		mgr.Shutdown()
		return core.ExitCodeError
	}
}

func newLogger(cfg *core.Config) (*logging.Logger, error) {
	lc := logging.Config{Development: cfg.DevMode, FilePath: cfg.LogFile}
	if os.Getenv("LOG_LEVEL") != "" {
		def := zapcore.InfoLevel
		if cfg.DevMode {
			def = zapcore.DebugLevel
		}
		level := logging.ParseLogLevel("LOG_LEVEL", def)
		lc.Level = &level
	}
	return logging.NewLoggerWithConfig(lc)
}

// runStartupValidation performs comprehensive startup validation.
//
// Returns the appropriate exit code:
//   - ExitCodeSuccess (0) if all validations pass
//   - ExitCodeError (1) if any validation fails
func runStartupValidation(cfg *core.Config, logger *logging.Logger) int {
	logger.Info("Starting startup validation...")

	suite := validation.NewValidationSuite(cfg).
		WithHealthProbe(app.ModelServerProbe(cfg)).
		WithShowProgress(true)

	result := suite.Validate()

	if !result.Success {
		logger.Error("Configuration validation failed",
			zap.Int("passed", result.PassedSteps),
			zap.Int("failed", result.FailedSteps),
			zap.Duration("duration", result.Duration),
		)

		// Log individual failures for debugging
		for _, step := range result.Steps {
			if step.Status == validation.StepFailed {
				logger.Error("Validation step failed",
					zap.String("step", step.Name),
					zap.String("message", step.Message),
					zap.Error(step.Error),
				)
			}
		}

		return core.ExitCodeError
	}

	logger.Info("Startup validation complete",
		zap.Int("checks_passed", result.PassedSteps),
		zap.Int("warnings", result.Warnings),
		zap.Duration("duration", result.Duration),
	)
	return core.ExitCodeSuccess
}
