// Package inference defines the contract for the external diffusion model
// and the backends that satisfy it: a JSON model server, the OpenAI image
// API as a cloud fallback, and deterministic stubs.
package inference

import "errors"

// Sentinel errors for inference operations.
var (
	// Request validation
	ErrInvalidParams          = errors.New("inference: invalid generation parameters")
	ErrInvalidPrompt          = errors.New("inference: invalid prompt")
	ErrMisalignedConditioning = errors.New("inference: conditioning images and scales are not aligned")

	// Backend failures
	ErrBackendUnavailable = errors.New("inference: backend unavailable")
	ErrBackendStatus      = errors.New("inference: backend returned an error status")
	ErrGenerationFailed   = errors.New("inference: image generation failed")
	ErrInvalidResponse    = errors.New("inference: backend response is invalid")
	ErrMissingDiffuser    = errors.New("inference: no diffuser configured")
	ErrUnknownBackend     = errors.New("inference: unknown backend")

	// Slot pool
	ErrSlotPoolClosed = errors.New("inference: slot pool is closed")
	ErrAcquireTimeout = errors.New("inference: timeout acquiring generation slot")
)
