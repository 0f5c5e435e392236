package conditioning

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"
)

type gradientDepth struct {
	w, h int
}

func (g gradientDepth) EstimateDepth(_ context.Context, img image.Image) (*DepthField, error) {
	w, h := g.w, g.h
	if w == 0 {
		w, h = img.Bounds().Dx(), img.Bounds().Dy()
	}
	f := &DepthField{Width: w, Height: h, Values: make([]float32, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Values[y*w+x] = float32(y)
		}
	}
	return f, nil
}

type brokenDepth struct{}

func (brokenDepth) EstimateDepth(context.Context, image.Image) (*DepthField, error) {
	return &DepthField{Width: 4, Height: 4, Values: make([]float32, 3)}, nil
}

func TestNormalizeDepth(t *testing.T) {
	f := &DepthField{Width: 2, Height: 2, Values: []float32{2, 4, 6, 10}}
	got := NormalizeDepth(f)
	want := []uint8{0, 63, 127, 255}
	for i, w := range want {
		if got.Pix[i] != w {
			t.Errorf("pixel %d = %d, want %d", i, got.Pix[i], w)
		}
	}
}

func TestNormalizeDepth_FlatFieldIsBlack(t *testing.T) {
	f := &DepthField{Width: 3, Height: 1, Values: []float32{7, 7, 7}}
	for i, v := range NormalizeDepth(f).Pix {
		if v != 0 {
			t.Errorf("pixel %d = %d, want 0", i, v)
		}
	}
}

func TestDepthFieldResize_PreservesConstant(t *testing.T) {
	f := &DepthField{Width: 5, Height: 3, Values: make([]float32, 15)}
	for i := range f.Values {
		f.Values[i] = 3.5
	}
	r := f.Resize(17, 11)
	if r.Width != 17 || r.Height != 11 || len(r.Values) != 17*11 {
		t.Fatalf("unexpected shape %dx%d (%d values)", r.Width, r.Height, len(r.Values))
	}
	for i, v := range r.Values {
		if math.Abs(float64(v)-3.5) > 1e-4 {
			t.Fatalf("value %d = %v, want 3.5", i, v)
		}
	}
}

func TestDepthMap(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	target := image.Pt(96, 64)

	out, err := DepthMap(context.Background(), gradientDepth{w: 24, h: 16}, img, target)
	if err != nil {
		t.Fatalf("DepthMap() error: %v", err)
	}
	if out.Bounds().Size() != target {
		t.Fatalf("size = %v, want %v", out.Bounds().Size(), target)
	}

	var sawMin, sawMax bool
	for i := 0; i < len(out.Pix); i += 4 {
		r, g, b := out.Pix[i], out.Pix[i+1], out.Pix[i+2]
		if r != g || g != b {
			t.Fatalf("pixel %d is not grey: %d %d %d", i/4, r, g, b)
		}
		sawMin = sawMin || r == 0
		sawMax = sawMax || r == 255
	}
	if !sawMin || !sawMax {
		t.Errorf("depth map not stretched to full range (min seen %v, max seen %v)", sawMin, sawMax)
	}
}

func TestDepthMap_Errors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))

	if _, err := DepthMap(context.Background(), nil, img, image.Pt(8, 8)); !errors.Is(err, ErrMissingModel) {
		t.Errorf("nil estimator: error = %v, want ErrMissingModel", err)
	}
	if _, err := DepthMap(context.Background(), brokenDepth{}, img, image.Pt(8, 8)); !errors.Is(err, ErrInvalidDepth) {
		t.Errorf("bad shape: error = %v, want ErrInvalidDepth", err)
	}
}
