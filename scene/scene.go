// Package scene derives scalar and boolean signals from conditioning
// outputs: how furnished a room looks (edge density) and which objects the
// segmentation model saw.
package scene

import (
	"image"
	"strings"

	"go.uber.org/zap/zapcore"
	"roomify/conditioning"
)

// Bucket is the edge-density class of a photo.
type Bucket string

const (
	BucketEmpty     Bucket = "empty"
	BucketSemi      Bucket = "semi"
	BucketFurnished Bucket = "furnished"
)

// Edge-density thresholds. Comparisons are strict, so a ratio equal to a
// threshold lands in the higher bucket.
const (
	EmptyThreshold = 0.04
	SemiThreshold  = 0.07
)

// Seeds paired with each bucket.
const (
	SparseSeed    int64 = 576906284
	FurnishedSeed int64 = 42
)

// EdgeDensityBucket maps an edge ratio to its bucket, conditioning scale and seed.
func EdgeDensityBucket(edgeRatio float64) (Bucket, float64, int64) {
	switch {
	case edgeRatio < EmptyThreshold:
		return BucketEmpty, 0.3, SparseSeed
	case edgeRatio < SemiThreshold:
		return BucketSemi, 0.4, SparseSeed
	default:
		return BucketFurnished, 0.5, FurnishedSeed
	}
}

// ClassifyEdges computes the edge ratio of a single-channel edge map and buckets it.
func ClassifyEdges(edges *image.Gray) Signals {
	ratio := conditioning.EdgeRatio(edges)
	bucket, scale, seed := EdgeDensityBucket(ratio)
	return Signals{
		EdgeRatio:         ratio,
		Bucket:            bucket,
		ConditioningScale: scale,
		Seed:              seed,
	}
}

// Keyword sets for label detection. Matching is a case-insensitive
// substring heuristic, so "windowpane" also matches "window".
var (
	WindowKeywords  = []string{"window", "windowpane"}
	CurtainKeywords = []string{"curtain", "drape"}
)

// MatchedLabels returns the names of the classes present in m that contain
// any keyword.
func MatchedLabels(m *conditioning.SegmentationMap, labels conditioning.LabelTable, keywords []string) []string {
	if m == nil || len(keywords) == 0 {
		return nil
	}

	var matched []string
	for _, id := range m.Distinct() {
		name := strings.ToLower(labels.Name(id))
		if name == "" {
			continue
		}
		for _, kw := range keywords {
			if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
				matched = append(matched, name)
				break
			}
		}
	}
	return matched
}

// LabelPresent reports whether any class present in m resolves to a label
// containing one of keywords.
func LabelPresent(m *conditioning.SegmentationMap, labels conditioning.LabelTable, keywords []string) bool {
	return len(MatchedLabels(m, labels, keywords)) > 0
}

// Signals is derived once per request and read-only afterwards.
type Signals struct {
	EdgeRatio         float64 `json:"edge_ratio"`
	Bucket            Bucket  `json:"bucket,omitempty"`
	ConditioningScale float64 `json:"conditioning_scale"`
	Seed              int64   `json:"seed"`
	HasWindow         bool    `json:"has_window"`
	HasCurtain        bool    `json:"has_curtain"`

	// WindowChecked and CurtainChecked record which detectors ran; an
	// unchecked label never contributes a prompt clause.
	WindowChecked  bool `json:"-"`
	CurtainChecked bool `json:"-"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Signals) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddFloat64("edge_ratio", s.EdgeRatio)
	if s.Bucket != "" {
		enc.AddString("bucket", string(s.Bucket))
	}
	enc.AddFloat64("conditioning_scale", s.ConditioningScale)
	enc.AddInt64("seed", s.Seed)
	if s.WindowChecked {
		enc.AddBool("has_window", s.HasWindow)
	}
	if s.CurtainChecked {
		enc.AddBool("has_curtain", s.HasCurtain)
	}
	return nil
}
