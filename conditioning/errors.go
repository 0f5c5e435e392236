// Package conditioning derives the control images fed to the diffusion
// model: Canny edge maps, normalized depth maps and segmentation maps with
// their colour visualization.
package conditioning

import "errors"

var (
	ErrMissingModel        = errors.New("conditioning: model not configured")
	ErrInvalidDepth        = errors.New("conditioning: depth prediction has invalid shape")
	ErrInvalidSegmentation = errors.New("conditioning: segmentation map has invalid shape")
	ErrUnknownSignal       = errors.New("conditioning: unknown signal")
)
