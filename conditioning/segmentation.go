package conditioning

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"

	"roomify/vision"
)

// SegmentationMap holds one class index per pixel, row-major.
// It is the source of truth for label checks; its colour rendering is a
// separate conditioning image.
type SegmentationMap struct {
	Width   int
	Height  int
	Classes []uint16
}

// Validate checks that the class buffer matches the declared shape.
func (m *SegmentationMap) Validate() error {
	if m == nil || m.Width <= 0 || m.Height <= 0 || len(m.Classes) != m.Width*m.Height {
		return ErrInvalidSegmentation
	}
	return nil
}

// At returns the class index at (x, y).
func (m *SegmentationMap) At(x, y int) int {
	return int(m.Classes[y*m.Width+x])
}

// Distinct returns the sorted set of class indices present in the map.
func (m *SegmentationMap) Distinct() []int {
	seen := make(map[uint16]struct{})
	for _, c := range m.Classes {
		seen[c] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for c := range seen {
		ids = append(ids, int(c))
	}
	sort.Ints(ids)
	return ids
}

// ResizeNearest resamples the map without blending class indices.
func (m *SegmentationMap) ResizeNearest(w, h int) *SegmentationMap {
	out := &SegmentationMap{Width: w, Height: h, Classes: make([]uint16, w*h)}
	for y := 0; y < h; y++ {
		sy := y * m.Height / h
		for x := 0; x < w; x++ {
			out.Classes[y*w+x] = m.Classes[sy*m.Width+x*m.Width/w]
		}
	}
	return out
}

// Segmenter is a semantic segmentation model returning per-pixel argmax classes.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image) (*SegmentationMap, error)
	// Labels maps class indices to human-readable names.
	Labels() LabelTable
}

// Segment resizes img to target with bicubic interpolation and runs the
// segmenter. The returned map is always target-sized.
func Segment(ctx context.Context, seg Segmenter, img *image.RGBA, target image.Point) (*SegmentationMap, error) {
	if seg == nil {
		return nil, fmt.Errorf("%w: segmenter", ErrMissingModel)
	}

	m, err := seg.Segment(ctx, vision.Resize(img, target, vision.Bicubic))
	if err != nil {
		return nil, fmt.Errorf("segment image: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Width != target.X || m.Height != target.Y {
		m = m.ResizeNearest(target.X, target.Y)
	}
	return m, nil
}

// ColormapStep spaces class indices across the colormap. Indices beyond
// 255/ColormapStep wrap around modulo 256 and reuse colours.
const ColormapStep = 10

// SegmentationImage renders the map through the jet colormap and resizes
// the result to target with nearest-neighbour sampling.
func SegmentationImage(m *SegmentationMap, target image.Point) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < m.Width; x++ {
			c := jet[uint8(m.Classes[y*m.Width+x]*ColormapStep)]
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = c[0], c[1], c[2], 0xff
		}
	}
	return vision.Resize(img, target, vision.Nearest)
}

// jet approximates the classic jet lookup table in RGB order.
var jet = func() (lut [256][3]uint8) {
	ch := func(v, shift float64) uint8 {
		f := 1.5 - math.Abs(4*v-shift)
		f = math.Max(0, math.Min(1, f))
		return uint8(math.Round(f * 255))
	}
	for i := range lut {
		v := float64(i) / 255
		lut[i] = [3]uint8{ch(v, 3), ch(v, 2), ch(v, 1)}
	}
	return lut
}()
