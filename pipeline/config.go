package pipeline

import (
	"fmt"
	"sort"

	"roomify/conditioning"
	"roomify/core"
	"roomify/inference"
	"roomify/scene"
)

// Variant names.
const (
	VariantEdgeAdaptive    = "edge-adaptive"
	VariantEdgeFixed       = "edge-fixed"
	VariantDepthSeg        = "depth-seg"
	VariantDepthSegCurtain = "depth-seg-curtain"
)

// Config parameterizes one pipeline. Every handler variant is a Config
// value rather than a separate code path.
type Config struct {
	Name      string
	Precision inference.Precision

	// Signals are the conditioning images in inference order, with Scales
	// aligned to them.
	Signals []conditioning.Signal
	Scales  []float64

	// AdaptiveEdge derives scale and seed from the edge density bucket.
	// It requires a single edge signal and ignores Scales and Seed.
	AdaptiveEdge bool
	Seed         int64

	DetectWindow  bool
	DetectCurtain bool

	Steps    int
	Guidance float64

	// NegativeBase overrides the template table's negative prompt.
	NegativeBase string

	// Parallel derives conditioning images concurrently.
	Parallel bool
}

// Default inference parameters.
const (
	DefaultSteps    = 30
	DefaultGuidance = 7.5
)

var presets = map[string]Config{
	VariantEdgeAdaptive: {
		Signals:      []conditioning.Signal{conditioning.SignalEdge},
		AdaptiveEdge: true,
	},
	VariantEdgeFixed: {
		Signals: []conditioning.Signal{conditioning.SignalEdge},
		Scales:  []float64{0.5},
		Seed:    scene.FurnishedSeed,
	},
	VariantDepthSeg: {
		Signals:      []conditioning.Signal{conditioning.SignalDepth, conditioning.SignalSegmentation},
		Scales:       []float64{0.5, 0.1},
		Seed:         scene.FurnishedSeed,
		DetectWindow: true,
	},
	VariantDepthSegCurtain: {
		Signals:       []conditioning.Signal{conditioning.SignalDepth, conditioning.SignalSegmentation},
		Scales:        []float64{0.5, 0.1},
		Seed:          scene.FurnishedSeed,
		DetectWindow:  true,
		DetectCurtain: true,
	},
}

// Preset returns the named variant at fp16 with default steps and guidance.
func Preset(name string) (Config, error) {
	p, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	p.Name = name
	p.Precision = inference.FP16
	p.Steps = DefaultSteps
	p.Guidance = DefaultGuidance
	p.Signals = append([]conditioning.Signal(nil), p.Signals...)
	p.Scales = append([]float64(nil), p.Scales...)
	return p, nil
}

// Variants lists the preset names.
func Variants() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks internal consistency.
func (c Config) Validate() error {
	if len(c.Signals) == 0 {
		return fmt.Errorf("%w: no conditioning signals", ErrInvalidConfig)
	}
	for _, s := range c.Signals {
		if _, err := conditioning.ParseSignal(string(s)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.AdaptiveEdge {
		if len(c.Signals) != 1 || c.Signals[0] != conditioning.SignalEdge {
			return fmt.Errorf("%w: adaptive edge requires exactly one edge signal", ErrInvalidConfig)
		}
	} else if len(c.Scales) != len(c.Signals) {
		return fmt.Errorf("%w: %d signals, %d scales", ErrInvalidConfig, len(c.Signals), len(c.Scales))
	}
	if _, err := inference.ParsePrecision(string(c.Precision)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Steps < inference.MinSteps || c.Steps > inference.MaxSteps {
		return fmt.Errorf("%w: steps %d", ErrInvalidConfig, c.Steps)
	}
	if c.Guidance < inference.MinGuidanceScale || c.Guidance > inference.MaxGuidanceScale {
		return fmt.Errorf("%w: guidance %.2f", ErrInvalidConfig, c.Guidance)
	}
	return nil
}

func (c Config) has(s conditioning.Signal) bool {
	for _, v := range c.Signals {
		if v == s {
			return true
		}
	}
	return false
}

func (c Config) plan() conditioning.Plan {
	return conditioning.Plan{
		Signals: c.Signals,
		Labels:  c.DetectWindow || c.DetectCurtain,
	}
}

func (c Config) needsDepth() bool {
	return c.has(conditioning.SignalDepth)
}

func (c Config) needsSegmenter() bool {
	return c.has(conditioning.SignalSegmentation) || c.DetectWindow || c.DetectCurtain
}

// FromCore builds the Config for the configured variant.
func FromCore(c *core.Config) (Config, error) {
	cfg, err := Preset(c.PipelineVariant)
	if err != nil {
		return Config{}, err
	}
	prec, err := inference.ParsePrecision(c.Precision)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Precision = prec
	cfg.Steps = c.InferenceSteps
	cfg.Guidance = c.GuidanceScale
	cfg.Parallel = c.ParallelConditioning
	return cfg, cfg.Validate()
}
