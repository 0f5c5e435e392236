// Package validation runs the startup checks and prints a colored report.
package validation

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"roomify/core"
)

// StepStatus is the outcome of one validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// ValidationStep is one executed check.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// SuiteResult aggregates all steps.
type SuiteResult struct {
	Steps       []ValidationStep
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool
}

// ValidationSuite checks configuration, data directory, prompt templates
// and model server reachability before the server starts.
type ValidationSuite struct {
	cfg          *core.Config
	output       io.Writer
	envPath      string
	probe        HealthProbe
	timeout      time.Duration
	showProgress bool
	failFast     bool
}

// NewValidationSuite creates a suite for cfg printing to stdout.
func NewValidationSuite(cfg *core.Config) *ValidationSuite {
	return &ValidationSuite{
		cfg:          cfg,
		output:       os.Stdout,
		envPath:      ".env",
		timeout:      10 * time.Second,
		showProgress: true,
	}
}

func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

func (s *ValidationSuite) WithEnvPath(path string) *ValidationSuite {
	s.envPath = path
	return s
}

// WithHealthProbe enables the model server step.
func (s *ValidationSuite) WithHealthProbe(p HealthProbe) *ValidationSuite {
	s.probe = p
	return s
}

func (s *ValidationSuite) WithTimeout(timeout time.Duration) *ValidationSuite {
	s.timeout = timeout
	return s
}

func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops at the first failed step.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

// Validate runs every step in order. The model server is only probed when
// the configuration itself is valid and a probe is set.
func (s *ValidationSuite) Validate() SuiteResult {
	start := time.Now()
	if s.showProgress {
		s.printHeader("Roomify Startup Validation")
	}

	checks := []struct {
		name string
		fn   func() (StepStatus, string, error)
	}{
		{"Environment File", func() (StepStatus, string, error) { return checkEnvFile(s.envPath) }},
		{"Configuration", func() (StepStatus, string, error) { return checkConfig(s.cfg) }},
		{"Data Directory", func() (StepStatus, string, error) { return checkDataDir(s.cfg) }},
		{"Prompt Templates", func() (StepStatus, string, error) { return checkTemplates(s.cfg) }},
	}

	var steps []ValidationStep
	for _, c := range checks {
		step := s.runStep(c.name, c.fn)
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			return s.finish(steps, start)
		}
	}

	switch {
	case s.probe == nil || s.cfg.InferenceBackend != "http":
		steps = append(steps, s.skip("Model Server", "not using the http backend"))
	case !allPassed(steps):
		steps = append(steps, s.skip("Model Server", "skipped due to configuration errors"))
	default:
		steps = append(steps, s.runStep("Model Server", func() (StepStatus, string, error) {
			return checkModelServer(s.cfg, s.probe, s.timeout)
		}))
	}

	return s.finish(steps, start)
}

func (s *ValidationSuite) runStep(name string, fn func() (StepStatus, string, error)) ValidationStep {
	if s.showProgress {
		fmt.Fprintf(s.output, "  ◌ %s...", name)
	}
	start := time.Now()
	status, msg, err := fn()
	step := ValidationStep{Name: name, Status: status, Message: msg, Error: err, Latency: time.Since(start)}
	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func (s *ValidationSuite) skip(name, reason string) ValidationStep {
	step := ValidationStep{Name: name, Status: StepSkipped, Message: reason}
	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func (s *ValidationSuite) finish(steps []ValidationStep, start time.Time) SuiteResult {
	r := SuiteResult{Steps: steps, Duration: time.Since(start), Success: true}
	for _, st := range steps {
		switch st.Status {
		case StepPassed:
			r.PassedSteps++
		case StepFailed:
			r.FailedSteps++
			r.Success = false
		case StepWarning:
			r.Warnings++
		}
	}
	if s.showProgress {
		s.printSummary(r)
	}
	return r
}

func allPassed(steps []ValidationStep) bool {
	for _, st := range steps {
		if st.Status == StepFailed {
			return false
		}
	}
	return true
}

func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	color.New(color.FgCyan, color.Bold).Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

func (s *ValidationSuite) printStep(step ValidationStep) {
	icon, clr := "?", color.New(color.FgWhite)
	switch step.Status {
	case StepPassed:
		icon, clr = "✓", color.New(color.FgGreen)
	case StepFailed:
		icon, clr = "✗", color.New(color.FgRed)
	case StepWarning:
		icon, clr = "!", color.New(color.FgYellow)
	case StepSkipped:
		icon, clr = "○", color.New(color.FgHiBlack)
	}

	fmt.Fprint(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Status == StepFailed && step.Error != nil {
		color.New(color.FgRed).Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

func (s *ValidationSuite) printSummary(r SuiteResult) {
	fmt.Fprintln(s.output)
	if r.Success {
		c := color.New(color.FgGreen, color.Bold)
		c.Fprint(s.output, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed in %v)",
			r.PassedSteps, len(r.Steps), r.Duration.Round(time.Millisecond))
		c.Fprintln(s.output, " ━━━")
	} else {
		c := color.New(color.FgRed, color.Bold)
		c.Fprint(s.output, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)", r.PassedSteps, r.FailedSteps)
		c.Fprintln(s.output, " ━━━")
	}
	fmt.Fprintln(s.output)
}

// FirstError returns the error of the first failed step.
func (r SuiteResult) FirstError() error {
	for _, st := range r.Steps {
		if st.Error != nil {
			return st.Error
		}
	}
	return nil
}

// Summary is a one-line description suitable for logging.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	if r.Success {
		sb.WriteString("Validation Passed: ")
	} else {
		sb.WriteString("Validation Failed: ")
	}
	fmt.Fprintf(&sb, "%d/%d checks passed", r.PassedSteps, len(r.Steps))
	if r.FailedSteps > 0 {
		fmt.Fprintf(&sb, ", %d failed", r.FailedSteps)
	}
	if r.Warnings > 0 {
		fmt.Fprintf(&sb, ", %d warnings", r.Warnings)
	}
	fmt.Fprintf(&sb, " (took %v)", r.Duration.Round(time.Millisecond))
	return sb.String()
}
