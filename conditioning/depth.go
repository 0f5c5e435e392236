package conditioning

import (
	"context"
	"fmt"
	"image"
	"math"

	"roomify/vision"
)

// DepthField is a raw, unnormalized depth prediction stored row-major.
type DepthField struct {
	Width  int
	Height int
	Values []float32
}

// Validate checks that the value buffer matches the declared shape.
func (f *DepthField) Validate() error {
	if f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Values) != f.Width*f.Height {
		return ErrInvalidDepth
	}
	return nil
}

// DepthEstimator is a monocular depth model.
type DepthEstimator interface {
	EstimateDepth(ctx context.Context, img image.Image) (*DepthField, error)
}

// DepthMap resizes img to target with bicubic interpolation, runs the
// estimator, upsamples the prediction back to target and min-max scales it
// to 0..255. A flat prediction (max == min) produces an all-black map.
// The result is replicated to three channels.
func DepthMap(ctx context.Context, est DepthEstimator, img *image.RGBA, target image.Point) (*image.RGBA, error) {
	if est == nil {
		return nil, fmt.Errorf("%w: depth estimator", ErrMissingModel)
	}

	resized := vision.Resize(img, target, vision.Bicubic)
	field, err := est.EstimateDepth(ctx, resized)
	if err != nil {
		return nil, fmt.Errorf("estimate depth: %w", err)
	}
	if err := field.Validate(); err != nil {
		return nil, err
	}

	return vision.GrayToRGB(NormalizeDepth(field.Resize(target.X, target.Y))), nil
}

// NormalizeDepth min-max scales the field to the full 8-bit range.
func NormalizeDepth(f *DepthField) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	if len(f.Values) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range f.Values {
		fv := float64(v)
		if math.IsNaN(fv) {
			continue
		}
		lo = math.Min(lo, fv)
		hi = math.Max(hi, fv)
	}
	span := hi - lo
	if !(span > 0) {
		return out
	}

	for i, v := range f.Values {
		fv := float64(v)
		if math.IsNaN(fv) {
			continue
		}
		scaled := (fv - lo) / span * 255
		out.Pix[(i/f.Width)*out.Stride+i%f.Width] = uint8(math.Min(255, math.Max(0, scaled)))
	}
	return out
}

// Resize resamples the field with a bicubic kernel (a = -0.75) using
// half-pixel centres and clamped edge access.
func (f *DepthField) Resize(w, h int) *DepthField {
	if w == f.Width && h == f.Height {
		values := make([]float32, len(f.Values))
		copy(values, f.Values)
		return &DepthField{Width: w, Height: h, Values: values}
	}

	// horizontal pass
	tmp := make([]float64, f.Height*w)
	xs := vision.CubicTaps(f.Width, w)
	for y := 0; y < f.Height; y++ {
		row := f.Values[y*f.Width : (y+1)*f.Width]
		for x := 0; x < w; x++ {
			t := xs[x]
			var acc float64
			for k := 0; k < 4; k++ {
				acc += float64(row[t.Index[k]]) * t.Weight[k]
			}
			tmp[y*w+x] = acc
		}
	}

	// vertical pass
	out := &DepthField{Width: w, Height: h, Values: make([]float32, w*h)}
	ys := vision.CubicTaps(f.Height, h)
	for y := 0; y < h; y++ {
		t := ys[y]
		for x := 0; x < w; x++ {
			var acc float64
			for k := 0; k < 4; k++ {
				acc += tmp[t.Index[k]*w+x] * t.Weight[k]
			}
			out.Values[y*w+x] = float32(acc)
		}
	}
	return out
}
