package vision

import "image"

// Orientation is the closed set of working resolutions.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

// Fixed working sizes. Both sides are divisible by 8.
var (
	LandscapeSize = image.Pt(768, 512)
	PortraitSize  = image.Pt(512, 768)
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// Size returns the working resolution (width, height) of the orientation.
func (o Orientation) Size() image.Point {
	if o == Landscape {
		return LandscapeSize
	}
	return PortraitSize
}

// OrientationOf depends only on width > height. Square images are portrait.
func OrientationOf(b image.Rectangle) Orientation {
	if b.Dx() > b.Dy() {
		return Landscape
	}
	return Portrait
}

// TargetSize is shorthand for OrientationOf(b).Size().
func TargetSize(b image.Rectangle) image.Point {
	return OrientationOf(b).Size()
}
