// Command roomify-lambda serves the Roomify HTTP API from AWS Lambda behind
// an API Gateway proxy integration. Async jobs are disabled because work
// cannot outlive an invocation; use STORAGE_BACKEND=s3 or none.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"roomify/app"
	"roomify/core"
	"roomify/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := core.LoadConfig()
	logger, err := logging.NewLoggerWithConfig(logging.Config{Development: cfg.DevMode})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(core.ExitCodeError)
	}

	a, err := app.New(context.Background(), cfg, logger, app.Options{})
	if err != nil {
		logger.Error("Failed to initialize application", zap.Error(err))
		_ = logger.Sync()
		os.Exit(core.ExitCodeError)
	}

	logger.Info("Lambda handler ready",
		zap.String("version", core.Version),
		zap.String("variant", cfg.PipelineVariant),
		zap.String("storage_backend", cfg.StorageBackend),
	)
	lambda.Start(NewHandler(a.Server.Handler(), logger).Handle)
}
