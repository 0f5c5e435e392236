// Package vision holds the raster plumbing shared by the generation pipeline:
// base64 decoding with padding repair, RGB normalization, PNG encoding,
// orientation selection and resampling.
package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MinEncodedLength is the shortest base64 payload accepted before decoding is attempted.
const MinEncodedLength = 100

// Decoded rasters are capped before any pixels are allocated. A 40 MP RGBA
// raster is 160 MB, and decoding keeps two copies alive at once.
const (
	MaxImageSide   = 8192
	MaxImagePixels = 40_000_000
)

var (
	// ErrDecode is the parent of every decode failure. Callers classify with errors.Is.
	ErrDecode = errors.New("vision: cannot decode image")

	ErrImageTooShort    = fmt.Errorf("%w: payload shorter than %d characters", ErrDecode, MinEncodedLength)
	ErrInvalidBase64    = fmt.Errorf("%w: invalid base64", ErrDecode)
	ErrUnsupportedImage = fmt.Errorf("%w: unsupported or corrupt image container", ErrDecode)
	ErrEmptyImage       = fmt.Errorf("%w: image has no pixels", ErrDecode)
	ErrImageTooLarge    = fmt.Errorf("%w: image dimensions exceed %d px per side or %d px total", ErrDecode, MaxImageSide, MaxImagePixels)
)

// StripDataURL removes an optional "data:<mime>;base64," prefix.
func StripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.IndexByte(s, ','); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// RepairPadding appends '=' until the length is a multiple of four.
func RepairPadding(s string) string {
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return s
}

// DecodeBase64 turns a client-supplied payload into an opaque RGB raster.
//
// The length guard applies to the raw payload, before the data URL prefix
// is removed. Whitespace (line-wrapped base64) is ignored.
func DecodeBase64(payload string) (*image.RGBA, error) {
	payload = strings.TrimSpace(payload)
	if len(payload) < MinEncodedLength {
		return nil, ErrImageTooShort
	}

	body := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, StripDataURL(payload))

	raw, err := base64.StdEncoding.DecodeString(RepairPadding(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}

	return DecodeBytes(raw)
}

// DecodeBytes decodes an image container (PNG, JPEG, GIF, WebP, BMP, TIFF),
// applies EXIF orientation and normalizes the result to RGB. The header is
// checked against MaxImageSide and MaxImagePixels first.
func DecodeBytes(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if err := CheckDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	return ToRGB(img), nil
}

// CheckDimensions rejects rasters larger than MaxImageSide or MaxImagePixels.
func CheckDimensions(width, height int) error {
	if width > MaxImageSide || height > MaxImageSide || int64(width)*int64(height) > MaxImagePixels {
		return fmt.Errorf("%w: got %dx%d", ErrImageTooLarge, width, height)
	}
	return nil
}

// ToRGB copies img into a zero-origin *image.RGBA with every pixel opaque.
// Alpha is discarded rather than composited, so a transparent pixel keeps
// its straight RGB value.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := x * 4
			row[i] = c.R
			row[i+1] = c.G
			row[i+2] = c.B
			row[i+3] = 0xff
		}
	}

	return dst
}

// EncodePNG serializes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("vision: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64PNG serializes img as PNG and returns standard base64 with no prefix.
func EncodeBase64PNG(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
