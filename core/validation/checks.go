package validation

import (
	"context"
	"fmt"
	"os"
	"time"

	"roomify/core"
	"roomify/prompt"
)

// HealthProbe pings the model server. inference.HTTPBackend.Health fits.
type HealthProbe func(ctx context.Context) error

func checkEnvFile(path string) (StepStatus, string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return StepWarning, fmt.Sprintf("%s not found, using process environment", path), nil
		}
		return StepFailed, "", err
	}
	return StepPassed, path, nil
}

func checkConfig(cfg *core.Config) (StepStatus, string, error) {
	if err := cfg.Validate(); err != nil {
		return StepFailed, "", err
	}
	return StepPassed, fmt.Sprintf("variant %s on %s backend", cfg.PipelineVariant, cfg.InferenceBackend), nil
}

func checkDataDir(cfg *core.Config) (StepStatus, string, error) {
	if err := core.EnsureDataDirectory(cfg.DataDir); err != nil {
		return StepFailed, "", err
	}
	ds, err := GetDiskSpace(cfg.DataDir)
	if err != nil {
		return StepWarning, "disk space unknown", nil
	}
	msg := fmt.Sprintf("%s free", core.FormatBytes(ds.Free))
	if ds.Free < MinFreeBytes {
		return StepWarning, msg + ", generated images may fail to save", nil
	}
	return StepPassed, msg, nil
}

func checkTemplates(cfg *core.Config) (StepStatus, string, error) {
	if cfg.PromptTemplatesFile == "" {
		return StepPassed, "built-in templates", nil
	}
	t, err := prompt.LoadTemplates(cfg.PromptTemplatesFile)
	if err != nil {
		return StepFailed, "", err
	}
	interior, exterior := t.RoomTypes()
	return StepPassed, fmt.Sprintf("%d interior, %d exterior", len(interior), len(exterior)), nil
}

func checkModelServer(cfg *core.Config, probe HealthProbe, timeout time.Duration) (StepStatus, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	if err := probe(ctx); err != nil {
		return StepFailed, "", core.ErrServerUnreachable(cfg.ModelServerURL, err.Error())
	}
	return StepPassed, fmt.Sprintf("%s (latency: %v)", cfg.ModelServerURL, time.Since(start).Round(time.Millisecond)), nil
}
