package inference

import (
	"context"
	"fmt"
	"image"
	"math/rand"

	"roomify/conditioning"
	"roomify/vision"
)

// StubDiffuser renders a deterministic image without a model: the first
// conditioning image blended with seeded noise. Identical requests produce
// identical pixels.
type StubDiffuser struct {
	// Blend is the noise weight in [0,1]. Zero means 0.5.
	Blend float64
}

func (d StubDiffuser) Generate(ctx context.Context, req GenerateRequest) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	blend := d.Blend
	if blend <= 0 || blend > 1 {
		blend = 0.5
	}

	base := vision.ToRGB(req.Images[0])
	out := image.NewRGBA(base.Bounds())
	rng := rand.New(rand.NewSource(req.Seed))

	for i := 0; i < len(base.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			noise := float64(rng.Intn(256))
			out.Pix[i+c] = uint8(float64(base.Pix[i+c])*(1-blend) + noise*blend)
		}
		out.Pix[i+3] = 0xff
	}
	return out, nil
}

// StubDepth predicts depth increasing from the top of the frame to the bottom.
type StubDepth struct{}

func (StubDepth) EstimateDepth(ctx context.Context, img image.Image) (*conditioning.DepthField, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidParams)
	}

	f := &conditioning.DepthField{Width: w, Height: h, Values: make([]float32, w*h)}
	for y := 0; y < h; y++ {
		v := float32(y) / float32(h)
		for x := 0; x < w; x++ {
			f.Values[y*w+x] = v
		}
	}
	return f, nil
}

// StubSegmenter returns a fixed room layout: ceiling on top, floor at the
// bottom, wall in between, plus an optional window and curtain on the wall.
type StubSegmenter struct {
	Window  bool
	Curtain bool
}

// ADE20K class indices used by the stub layout.
const (
	classWall       = 0
	classFloor      = 3
	classCeiling    = 5
	classWindowpane = 8
	classCurtain    = 18
)

func (s StubSegmenter) Segment(ctx context.Context, img image.Image) (*conditioning.SegmentationMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidParams)
	}

	m := &conditioning.SegmentationMap{Width: w, Height: h, Classes: make([]uint16, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			class := uint16(classWall)
			switch {
			case y < h/6:
				class = classCeiling
			case y >= h*2/3:
				class = classFloor
			case s.Window && x >= w*2/5 && x < w*3/5 && y < h/2:
				class = classWindowpane
			case s.Curtain && (x >= w/3 && x < w*2/5) && y < h/2:
				class = classCurtain
			}
			m.Classes[y*w+x] = class
		}
	}
	return m, nil
}

func (StubSegmenter) Labels() conditioning.LabelTable {
	return conditioning.ADE20K
}

// NewStubBundle returns a bundle that needs no model server.
func NewStubBundle(window, curtain bool) *ModelBundle {
	return &ModelBundle{
		Name:      "stub",
		Diffuser:  StubDiffuser{},
		Depth:     StubDepth{},
		Segmenter: StubSegmenter{Window: window, Curtain: curtain},
	}
}
