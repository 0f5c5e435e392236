package inference

import (
	"image"
	"image/color"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// validRequest returns a request that passes ValidateRequest.
func validRequest() GenerateRequest {
	return GenerateRequest{
		Prompt:         "A modern bedroom",
		NegativePrompt: "blurry",
		Images:         []image.Image{solid(64, 64, color.RGBA{10, 20, 30, 255}), solid(64, 64, color.RGBA{200, 0, 0, 255})},
		Scales:         []float64{0.5, 0.1},
		Steps:          30,
		GuidanceScale:  7.5,
		Seed:           42,
		Precision:      FP16,
	}
}
