package inference

import (
	"fmt"
	"strings"
)

// Parameter limits.
const (
	MinSteps = 1
	MaxSteps = 100

	MinGuidanceScale = 1.0
	MaxGuidanceScale = 30.0

	MinConditioningScale = 0.0
	MaxConditioningScale = 2.0

	MinImageSize      = 64
	MaxImageSize      = 2048
	ImageSizeMultiple = 8

	MaxPromptLength = 2000
)

// ValidatePrompt requires non-blank text without NUL bytes.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt cannot be empty", ErrInvalidPrompt)
	}
	if len(prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt length %d exceeds maximum %d", ErrInvalidPrompt, len(prompt), MaxPromptLength)
	}
	if strings.ContainsRune(prompt, 0) {
		return fmt.Errorf("%w: prompt contains null bytes", ErrInvalidPrompt)
	}
	return nil
}

// ValidateRequest checks a request before it reaches a backend.
func ValidateRequest(r GenerateRequest) error {
	if err := ValidatePrompt(r.Prompt); err != nil {
		return err
	}
	if len(r.NegativePrompt) > MaxPromptLength || strings.ContainsRune(r.NegativePrompt, 0) {
		return fmt.Errorf("%w: negative prompt", ErrInvalidPrompt)
	}

	if r.Steps < MinSteps || r.Steps > MaxSteps {
		return fmt.Errorf("%w: steps %d must be between %d and %d", ErrInvalidParams, r.Steps, MinSteps, MaxSteps)
	}
	if r.GuidanceScale < MinGuidanceScale || r.GuidanceScale > MaxGuidanceScale {
		return fmt.Errorf("%w: guidance scale %.2f must be between %.1f and %.1f",
			ErrInvalidParams, r.GuidanceScale, MinGuidanceScale, MaxGuidanceScale)
	}
	if r.Precision != "" {
		if _, err := ParsePrecision(string(r.Precision)); err != nil {
			return err
		}
	}

	if len(r.Images) == 0 {
		return fmt.Errorf("%w: at least one conditioning image is required", ErrMisalignedConditioning)
	}
	if len(r.Images) != len(r.Scales) {
		return fmt.Errorf("%w: %d images, %d scales", ErrMisalignedConditioning, len(r.Images), len(r.Scales))
	}

	size := r.Size()
	for i, img := range r.Images {
		if img == nil {
			return fmt.Errorf("%w: image %d is nil", ErrMisalignedConditioning, i)
		}
		if img.Bounds().Size() != size {
			return fmt.Errorf("%w: image %d is %v, image 0 is %v", ErrMisalignedConditioning, i, img.Bounds().Size(), size)
		}
		if s := r.Scales[i]; s < MinConditioningScale || s > MaxConditioningScale {
			return fmt.Errorf("%w: scale %d (%.2f) must be between %.1f and %.1f",
				ErrInvalidParams, i, s, MinConditioningScale, MaxConditioningScale)
		}
	}

	for _, d := range []int{size.X, size.Y} {
		if d < MinImageSize || d > MaxImageSize {
			return fmt.Errorf("%w: dimension %d must be between %d and %d", ErrInvalidParams, d, MinImageSize, MaxImageSize)
		}
		if d%ImageSizeMultiple != 0 {
			return fmt.Errorf("%w: dimension %d must be divisible by %d", ErrInvalidParams, d, ImageSizeMultiple)
		}
	}

	return nil
}
