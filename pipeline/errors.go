// Package pipeline turns one room photo plus style parameters into a
// generated design: decode, conditioning, scene classification, prompt
// composition, inference and encoding, in that order.
package pipeline

import (
	"errors"
	"fmt"

	"roomify/inference"
)

var (
	ErrUnknownVariant = errors.New("pipeline: unknown variant")
	ErrInvalidConfig  = errors.New("pipeline: invalid config")
	ErrMissingImage   = errors.New("pipeline: image is required")
)

// Kind classifies a failed run.
type Kind string

const (
	// InputError means the caller sent something unusable. Never retried.
	InputError Kind = "InputError"
	// InferenceError means a model call or encoding failed.
	InferenceError Kind = "InferenceError"
)

// Error is the only error type Run returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func inputErr(msg string, err error) *Error {
	return &Error{Kind: InputError, Message: msg, Err: err}
}

func inferenceErr(msg string, err error) *Error {
	return &Error{Kind: InferenceError, Message: msg, Err: err}
}

// KindOf returns the Kind of err, treating unclassified errors as
// inference failures.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return InferenceError
}

// BackendUnavailable reports whether err stems from an unreachable model
// server rather than a failed generation.
func BackendUnavailable(err error) bool {
	return errors.Is(err, inference.ErrBackendUnavailable)
}
