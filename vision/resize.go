package vision

import (
	"image"
	"math"
)

// Interpolation selects the resampling kernel.
//
// The kernels follow OpenCV's cv2.resize: half-pixel centres, replicated
// borders, bicubic with a = -0.75, and no kernel widening when shrinking.
// Nearest picks floor(dst * scale) like INTER_NEAREST.
type Interpolation int

const (
	Bilinear Interpolation = iota
	Bicubic
	Nearest
)

// CubicA is the bicubic kernel's free parameter.
const CubicA = -0.75

// Tap lists the source indices and weights contributing to one output
// sample. Unused slots have zero weight.
type Tap struct {
	Index  [4]int
	Weight [4]float64
}

// LinearTaps maps out samples onto in source samples with a two-tap
// triangle kernel.
func LinearTaps(in, out int) []Tap {
	taps := make([]Tap, out)
	scale := float64(in) / float64(out)
	for d := range taps {
		src := (float64(d)+0.5)*scale - 0.5
		base := math.Floor(src)
		t := src - base
		taps[d].Index[0] = clamp(int(base), 0, in-1)
		taps[d].Index[1] = clamp(int(base)+1, 0, in-1)
		taps[d].Weight[0] = 1 - t
		taps[d].Weight[1] = t
	}
	return taps
}

// CubicTaps maps out samples onto in source samples with a four-tap
// bicubic kernel.
func CubicTaps(in, out int) []Tap {
	taps := make([]Tap, out)
	scale := float64(in) / float64(out)
	for d := range taps {
		src := (float64(d)+0.5)*scale - 0.5
		base := math.Floor(src)
		t := src - base
		for k := 0; k < 4; k++ {
			taps[d].Index[k] = clamp(int(base)-1+k, 0, in-1)
			taps[d].Weight[k] = cubicWeight(t - float64(k-1))
		}
	}
	return taps
}

func cubicWeight(x float64) float64 {
	x = math.Abs(x)
	switch {
	case x <= 1:
		return ((CubicA+2)*x-(CubicA+3))*x*x + 1
	case x < 2:
		return ((CubicA*x-5*CubicA)*x+8*CubicA)*x - 4*CubicA
	default:
		return 0
	}
}

// Resize scales src to exactly size. Aspect ratio is not preserved and the
// result is opaque.
func Resize(src image.Image, size image.Point, interp Interpolation) *image.RGBA {
	in := asRGBA(src)
	if in.Bounds().Size() == size {
		dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
		copy(dst.Pix, in.Pix)
		return dst
	}

	switch interp {
	case Nearest:
		return resizeNearest(in, size)
	case Bicubic:
		return resizeSeparable(in, size, CubicTaps)
	default:
		return resizeSeparable(in, size, LinearTaps)
	}
}

func asRGBA(img image.Image) *image.RGBA {
	if r, ok := img.(*image.RGBA); ok && r.Bounds().Min == (image.Point{}) && r.Stride == 4*r.Bounds().Dx() {
		return r
	}
	return ToRGB(img)
}

func resizeNearest(src *image.RGBA, size image.Point) *image.RGBA {
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))

	xs := make([]int, size.X)
	for x := range xs {
		xs[x] = min(int(math.Floor(float64(x)*float64(sw)/float64(size.X))), sw-1)
	}
	for y := 0; y < size.Y; y++ {
		sy := min(int(math.Floor(float64(y)*float64(sh)/float64(size.Y))), sh-1)
		srow := src.Pix[sy*src.Stride:]
		drow := dst.Pix[y*dst.Stride:]
		for x, sx := range xs {
			copy(drow[x*4:x*4+3], srow[sx*4:sx*4+3])
			drow[x*4+3] = 0xff
		}
	}
	return dst
}

// resizeSeparable runs a horizontal then a vertical pass in float64 and
// rounds once at the end.
func resizeSeparable(src *image.RGBA, size image.Point, tapsFor func(in, out int) []Tap) *image.RGBA {
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	w, h := size.X, size.Y

	tmp := make([]float64, sh*w*3)
	xs := tapsFor(sw, w)
	for y := 0; y < sh; y++ {
		row := src.Pix[y*src.Stride:]
		for x, t := range xs {
			var r, g, b float64
			for k := 0; k < 4; k++ {
				if t.Weight[k] == 0 {
					continue
				}
				i := t.Index[k] * 4
				r += float64(row[i]) * t.Weight[k]
				g += float64(row[i+1]) * t.Weight[k]
				b += float64(row[i+2]) * t.Weight[k]
			}
			o := (y*w + x) * 3
			tmp[o], tmp[o+1], tmp[o+2] = r, g, b
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	ys := tapsFor(sh, h)
	for y, t := range ys {
		drow := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			var c [3]float64
			for k := 0; k < 4; k++ {
				if t.Weight[k] == 0 {
					continue
				}
				o := (t.Index[k]*w + x) * 3
				c[0] += tmp[o] * t.Weight[k]
				c[1] += tmp[o+1] * t.Weight[k]
				c[2] += tmp[o+2] * t.Weight[k]
			}
			i := x * 4
			drow[i] = toByte(c[0])
			drow[i+1] = toByte(c[1])
			drow[i+2] = toByte(c[2])
			drow[i+3] = 0xff
		}
	}
	return dst
}

func toByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GrayToRGB replicates a single channel across R, G and B.
func GrayToRGB(g *image.Gray) *image.RGBA {
	b := g.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		src := g.Pix[off : off+b.Dx()]
		row := dst.Pix[y*dst.Stride:]
		for x, v := range src {
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = v, v, v, 0xff
		}
	}
	return dst
}
