package conditioning

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"
	"roomify/vision"
)

// Signal names one conditioning image kind.
type Signal string

const (
	SignalEdge         Signal = "edge"
	SignalDepth        Signal = "depth"
	SignalSegmentation Signal = "segmentation"
)

// ParseSignal validates a signal name.
func ParseSignal(s string) (Signal, error) {
	switch sig := Signal(s); sig {
	case SignalEdge, SignalDepth, SignalSegmentation:
		return sig, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSignal, s)
}

// Plan lists what a request needs derived.
type Plan struct {
	// Signals are the conditioning images, in inference order.
	Signals []Signal
	// Labels requests a segmentation map even when the segmentation
	// image itself is not a conditioning signal.
	Labels bool
}

func (p Plan) has(s Signal) bool {
	for _, v := range p.Signals {
		if v == s {
			return true
		}
	}
	return false
}

// Set is the result of one Build call. Every image is Target-sized.
type Set struct {
	Target       image.Point
	Edges        *image.Gray
	Segmentation *SegmentationMap
	images       map[Signal]*image.RGBA
}

// Image returns the conditioning image for s.
func (s *Set) Image(sig Signal) (*image.RGBA, bool) {
	img, ok := s.images[sig]
	return img, ok
}

// Ordered returns the conditioning images in the order given.
func (s *Set) Ordered(signals []Signal) ([]image.Image, error) {
	out := make([]image.Image, 0, len(signals))
	for _, sig := range signals {
		img, ok := s.images[sig]
		if !ok {
			return nil, fmt.Errorf("%w: %q not built", ErrUnknownSignal, sig)
		}
		out = append(out, img)
	}
	return out, nil
}

// Builder derives conditioning images from a decoded photo.
// Models are shared read-only across requests; a Builder holds no
// per-request state and is safe for concurrent use.
type Builder struct {
	Depth     DepthEstimator
	Segmenter Segmenter

	CannyLow  int
	CannyHigh int

	// Parallel runs independent derivations concurrently.
	Parallel bool
}

// NewBuilder returns a Builder with the default Canny thresholds.
func NewBuilder(depth DepthEstimator, seg Segmenter) *Builder {
	return &Builder{
		Depth:     depth,
		Segmenter: seg,
		CannyLow:  DefaultCannyLow,
		CannyHigh: DefaultCannyHigh,
	}
}

// Build derives everything in plan at the orientation target of img.
// Parallel and sequential execution produce identical results.
func (b *Builder) Build(ctx context.Context, img *image.RGBA, plan Plan) (*Set, error) {
	target := vision.TargetSize(img.Bounds())

	var (
		edges    *image.Gray
		edgeImg  *image.RGBA
		depthImg *image.RGBA
		segMap   *SegmentationMap
		segImg   *image.RGBA
	)

	var tasks []func(context.Context) error

	if plan.has(SignalEdge) {
		tasks = append(tasks, func(context.Context) error {
			edges = Canny(vision.Resize(img, target, vision.Bilinear), b.CannyLow, b.CannyHigh)
			edgeImg = vision.GrayToRGB(edges)
			return nil
		})
	}
	if plan.has(SignalDepth) {
		tasks = append(tasks, func(ctx context.Context) error {
			var err error
			depthImg, err = DepthMap(ctx, b.Depth, img, target)
			return err
		})
	}
	if plan.has(SignalSegmentation) || plan.Labels {
		wantImage := plan.has(SignalSegmentation)
		tasks = append(tasks, func(ctx context.Context) error {
			m, err := Segment(ctx, b.Segmenter, img, target)
			if err != nil {
				return err
			}
			segMap = m
			if wantImage {
				segImg = SegmentationImage(m, target)
			}
			return nil
		})
	}

	if b.Parallel && len(tasks) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for _, task := range tasks {
			g.Go(func() error { return task(gctx) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, task := range tasks {
			if err := task(ctx); err != nil {
				return nil, err
			}
		}
	}

	set := &Set{
		Target:       target,
		Edges:        edges,
		Segmentation: segMap,
		images:       make(map[Signal]*image.RGBA, 3),
	}
	if edgeImg != nil {
		set.images[SignalEdge] = edgeImg
	}
	if depthImg != nil {
		set.images[SignalDepth] = depthImg
	}
	if segImg != nil {
		set.images[SignalSegmentation] = segImg
	}
	return set, nil
}
