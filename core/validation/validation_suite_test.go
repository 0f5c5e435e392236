package validation

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roomify/core"
)

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{
		Port:             8080,
		DataDir:          filepath.Join(t.TempDir(), "data"),
		PipelineVariant:  "depth-seg",
		Precision:        "fp16",
		InferenceSteps:   30,
		GuidanceScale:    7.5,
		InferenceBackend: "http",
		ModelServerURL:   "http://127.0.0.1:7860",
		MaxConcurrent:    2,
		StorageBackend:   "local",
		JobWorkers:       2,
		JobQueueSize:     32,
		HistoryPageSize:  5,
	}
}

func stepNamed(r SuiteResult, name string) ValidationStep {
	for _, s := range r.Steps {
		if s.Name == name {
			return s
		}
	}
	return ValidationStep{}
}

func TestValidate_AllPass(t *testing.T) {
	cfg := testConfig(t)
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("PORT=8080\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer

	probed := false
	r := NewValidationSuite(cfg).
		WithOutput(&out).
		WithEnvPath(envPath).
		WithHealthProbe(func(context.Context) error { probed = true; return nil }).
		Validate()

	if !r.Success {
		t.Fatalf("Validate() failed: %s\n%s", r.Summary(), out.String())
	}
	if !probed {
		t.Error("health probe not called")
	}
	if !strings.Contains(out.String(), "Validation Passed") {
		t.Errorf("summary missing from output: %s", out.String())
	}
}

func TestValidate_MissingEnvFileWarns(t *testing.T) {
	cfg := testConfig(t)
	cfg.InferenceBackend = "stub"

	r := NewValidationSuite(cfg).
		WithShowProgress(false).
		WithEnvPath(filepath.Join(t.TempDir(), "missing.env")).
		Validate()

	if !r.Success {
		t.Fatalf("missing .env should only warn: %s", r.Summary())
	}
	if got := stepNamed(r, "Environment File").Status; got != StepWarning {
		t.Errorf("Environment File status = %v", got)
	}
	if got := stepNamed(r, "Model Server").Status; got != StepSkipped {
		t.Errorf("Model Server status = %v for stub backend", got)
	}
}

func TestValidate_InvalidConfigSkipsProbe(t *testing.T) {
	cfg := testConfig(t)
	cfg.PipelineVariant = "lineart"

	r := NewValidationSuite(cfg).
		WithShowProgress(false).
		WithHealthProbe(func(context.Context) error {
			t.Error("probe should not run with invalid config")
			return nil
		}).
		Validate()

	if r.Success {
		t.Fatal("Validate() succeeded with invalid variant")
	}
	if core.GetErrorCode(r.FirstError()) != core.ErrCodeInvalidValue {
		t.Errorf("FirstError() = %v", r.FirstError())
	}
	if got := stepNamed(r, "Model Server").Status; got != StepSkipped {
		t.Errorf("Model Server status = %v", got)
	}
}

func TestValidate_ProbeFailure(t *testing.T) {
	cfg := testConfig(t)

	r := NewValidationSuite(cfg).
		WithShowProgress(false).
		WithEnvPath(filepath.Join(t.TempDir(), "missing.env")).
		WithHealthProbe(func(context.Context) error { return errors.New("connection refused") }).
		Validate()

	step := stepNamed(r, "Model Server")
	if step.Status != StepFailed {
		t.Fatalf("Model Server status = %v", step.Status)
	}
	if core.GetErrorCode(step.Error) != core.ErrCodeServerUnreachable {
		t.Errorf("error = %v", step.Error)
	}
}

func TestValidate_FailFast(t *testing.T) {
	cfg := testConfig(t)
	cfg.InferenceSteps = 0

	r := NewValidationSuite(cfg).WithShowProgress(false).WithFailFast(true).Validate()

	if len(r.Steps) != 2 {
		t.Errorf("ran %d steps, want 2", len(r.Steps))
	}
}

func TestValidate_BadTemplatesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.InferenceBackend = "stub"
	cfg.PromptTemplatesFile = filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(cfg.PromptTemplatesFile, []byte("interior: [not, a, map"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := NewValidationSuite(cfg).WithShowProgress(false).Validate()

	if got := stepNamed(r, "Prompt Templates").Status; got != StepFailed {
		t.Errorf("Prompt Templates status = %v", got)
	}
}

func TestGetDiskSpace_MissingPathUsesParent(t *testing.T) {
	dir := t.TempDir()
	ds, err := GetDiskSpace(filepath.Join(dir, "not", "yet"))
	if err != nil {
		t.Fatalf("GetDiskSpace() error = %v", err)
	}
	if ds.Path != dir {
		t.Errorf("Path = %q, want %q", ds.Path, dir)
	}
	if ds.Total <= 0 {
		t.Errorf("Total = %d", ds.Total)
	}
}
