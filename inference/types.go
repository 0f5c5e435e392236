package inference

import (
	"context"
	"fmt"
	"image"
	"strings"

	"roomify/conditioning"
)

// Precision is the numeric precision the diffusion weights run at.
type Precision string

const (
	FP16 Precision = "fp16"
	FP32 Precision = "fp32"
)

// ParsePrecision accepts fp16/fp32 in any case.
func ParsePrecision(s string) (Precision, error) {
	switch p := Precision(strings.ToLower(strings.TrimSpace(s))); p {
	case FP16, FP32:
		return p, nil
	}
	return "", fmt.Errorf("%w: precision %q", ErrInvalidParams, s)
}

// GenerateRequest is everything the diffusion model needs for one image.
// Images[i] is weighted by Scales[i].
type GenerateRequest struct {
	Prompt         string
	NegativePrompt string
	Images         []image.Image
	Scales         []float64
	Steps          int
	GuidanceScale  float64
	Seed           int64
	Precision      Precision
}

// Size returns the shared resolution of the conditioning images.
func (r GenerateRequest) Size() image.Point {
	if len(r.Images) == 0 {
		return image.Point{}
	}
	return r.Images[0].Bounds().Size()
}

// Diffuser generates one image per request. Implementations must derive
// all randomness from req.Seed through a single generator.
type Diffuser interface {
	Generate(ctx context.Context, req GenerateRequest) (image.Image, error)
}

// conditioningSupport is implemented by diffusers that may ignore
// conditioning images.
type conditioningSupport interface {
	SupportsConditioning() bool
}

// SupportsConditioning reports whether d honours conditioning images.
func SupportsConditioning(d Diffuser) bool {
	if cs, ok := d.(conditioningSupport); ok {
		return cs.SupportsConditioning()
	}
	return true
}

// ModelBundle is the set of loaded models shared by every request. Models
// are read-only after construction.
type ModelBundle struct {
	Name      string
	Diffuser  Diffuser
	Depth     conditioning.DepthEstimator
	Segmenter conditioning.Segmenter

	closers []func() error
}

// Validate requires a diffuser.
func (b *ModelBundle) Validate() error {
	if b == nil || b.Diffuser == nil {
		return ErrMissingDiffuser
	}
	return nil
}

// Labels returns the segmenter's label table, or ADE20K when none is set.
func (b *ModelBundle) Labels() conditioning.LabelTable {
	if b.Segmenter != nil {
		if t := b.Segmenter.Labels(); len(t) > 0 {
			return t
		}
	}
	return conditioning.ADE20K
}

// Close releases backend resources in reverse order of acquisition.
func (b *ModelBundle) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}
