package core

import (
	"errors"
	"fmt"
)

// ConfigError is a configuration problem with an actionable fix.
type ConfigError struct {
	Code    string // stable identifier for programmatic handling
	Message string
	Action  string // what the operator should change
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Configuration error codes.
const (
	ErrCodeEnvFileMissing    = "ENV_FILE_MISSING"
	ErrCodeInvalidValue      = "INVALID_VALUE"
	ErrCodeOutOfRange        = "OUT_OF_RANGE"
	ErrCodeInvalidServerURL  = "INVALID_SERVER_URL"
	ErrCodeMissingAuth       = "MISSING_AUTH"
	ErrCodeMissingConfig     = "MISSING_CONFIG"
	ErrCodeDataDir           = "DATA_DIR_UNWRITABLE"
	ErrCodeServerUnreachable = "SERVER_UNREACHABLE"
)

// ErrEnvFileMissing reports a missing .env file.
func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Copy example.env to .env or export the variables directly",
	}
}

// ErrInvalidValue reports a value outside an enumerated set.
func ErrInvalidValue(varName, value string, allowed []string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s %q", varName, value),
		Action:  fmt.Sprintf("Set %s to one of %v", varName, allowed),
	}
}

// ErrOutOfRange reports a numeric value outside [min, max].
func ErrOutOfRange(varName string, value, min, max float64) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeOutOfRange,
		Message: fmt.Sprintf("%s=%g is out of range", varName, value),
		Action:  fmt.Sprintf("Set %s between %g and %g", varName, min, max),
	}
}

// ErrInvalidServerURL reports a malformed model server URL.
func ErrInvalidServerURL(url, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidServerURL,
		Message: fmt.Sprintf("Invalid MODEL_SERVER_URL '%s': %s", url, reason),
		Action:  "Set MODEL_SERVER_URL to the inference server (e.g., http://127.0.0.1:7860)",
	}
}

// ErrMissingAuth reports missing credentials for a backend.
func ErrMissingAuth(service string) *ConfigError {
	action := fmt.Sprintf("Set the credentials for %s in your .env file", service)
	if service == "openai" {
		action = "Set OPENAI_API_KEY in your .env file or choose INFERENCE_BACKEND=http"
	}
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("Missing authentication credentials for %s", service),
		Action:  action,
	}
}

// ErrMissingConfig reports a required variable that is unset.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrServerUnreachable reports a model server that did not answer its health probe.
func ErrServerUnreachable(url, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeServerUnreachable,
		Message: fmt.Sprintf("Cannot reach model server at %s: %s", url, reason),
		Action:  "Start the inference server or set INFERENCE_BACKEND=stub for local testing",
	}
}

// IsConfigError unwraps err to a *ConfigError.
func IsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// GetErrorCode returns the ConfigError code of err, or "".
func GetErrorCode(err error) string {
	if ce, ok := IsConfigError(err); ok {
		return ce.Code
	}
	return ""
}

var (
	errEmptyURL  = errors.New("URL cannot be empty")
	errURLScheme = errors.New("URL must use http or https scheme")
	errURLHost   = errors.New("URL must include a host")
)
