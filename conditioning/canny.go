package conditioning

import "image"

// Default hysteresis thresholds on an 8-bit intensity scale.
const (
	DefaultCannyLow  = 100
	DefaultCannyHigh = 200
)

// Fixed-point tan(22.5deg) used for gradient direction binning.
const (
	cannyShift = 15
	cannyTG22  = 13573
)

const (
	edgeWeak   uint8 = 0
	edgeNone   uint8 = 1
	edgeStrong uint8 = 2
)

// Canny detects edges on a colour image and returns a binary map (0 or 255).
//
// Gradients come from a 3x3 Sobel operator with replicated borders. For
// every pixel the channel with the largest L1 magnitude supplies the
// gradient. No smoothing is applied before differentiation. Pixels whose
// magnitude survives non-maximum suppression and exceeds high seed edges;
// pixels above low are kept when 8-connected to a seed.
func Canny(img *image.RGBA, low, high int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	if low > high {
		low, high = high, low
	}

	n := w * h
	gx := make([]int32, n)
	gy := make([]int32, n)
	mag := make([]int32, n)

	px := func(x, y, c int) int32 {
		x = clampInt(x, 0, w-1)
		y = clampInt(y, 0, h-1)
		return int32(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)+c])
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			best := int32(-1)
			for c := 0; c < 3; c++ {
				dx := px(x+1, y-1, c) + 2*px(x+1, y, c) + px(x+1, y+1, c) -
					px(x-1, y-1, c) - 2*px(x-1, y, c) - px(x-1, y+1, c)
				dy := px(x-1, y+1, c) + 2*px(x, y+1, c) + px(x+1, y+1, c) -
					px(x-1, y-1, c) - 2*px(x, y-1, c) - px(x+1, y-1, c)
				if m := abs32(dx) + abs32(dy); m > best {
					best, gx[i], gy[i] = m, dx, dy
				}
			}
			mag[i] = best
		}
	}

	magAt := func(x, y int) int32 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	state := make([]uint8, n)
	stack := make([]int, 0, 256)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			state[i] = edgeNone
			m := mag[i]
			if m <= int32(low) {
				continue
			}

			ax, ay := int64(abs32(gx[i])), int64(abs32(gy[i]))
			tg22x := ax * cannyTG22
			yy := ay << cannyShift

			var keep bool
			switch {
			case yy < tg22x:
				keep = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case yy > tg22x+(ax<<(cannyShift+1)):
				keep = m > magAt(x, y-1) && m >= magAt(x, y+1)
			default:
				s := 1
				if (gx[i] ^ gy[i]) < 0 {
					s = -1
				}
				keep = m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
			}
			if !keep {
				continue
			}

			if m > int32(high) {
				state[i] = edgeStrong
				stack = append(stack, i)
			} else {
				state[i] = edgeWeak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == edgeWeak {
					state[j] = edgeStrong
					stack = append(stack, j)
				}
			}
		}
	}

	for i, s := range state {
		if s == edgeStrong {
			out.Pix[(i/w)*out.Stride+i%w] = 0xff
		}
	}
	return out
}

// EdgeRatio is the fraction of non-zero pixels in a single-channel edge map.
func EdgeRatio(edges *image.Gray) float64 {
	b := edges.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	count := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := edges.PixOffset(b.Min.X, y)
		for _, v := range edges.Pix[off : off+b.Dx()] {
			if v > 0 {
				count++
			}
		}
	}
	return float64(count) / float64(total)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
