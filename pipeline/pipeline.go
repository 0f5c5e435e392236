package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"roomify/conditioning"
	"roomify/inference"
	"roomify/logging"
	"roomify/prompt"
	"roomify/scene"
	"roomify/vision"
)

// Recorder receives one entry per run. metrics.Store implements it.
type Recorder interface {
	Record(m logging.GenerationMetrics)
}

// Pipeline runs requests against a shared ModelBundle. It holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	cfg      Config
	bundle   *inference.ModelBundle
	builder  *conditioning.Builder
	composer *prompt.Composer
	logger   *logging.Logger
	recorder Recorder
}

// New validates cfg and wires the conditioning builder to bundle. A nil
// composer uses the embedded templates.
func New(cfg Config, bundle *inference.ModelBundle, composer *prompt.Composer, logger *logging.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	if composer == nil {
		composer = prompt.NewComposer(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("pipeline").With(zap.String("variant", cfg.Name))

	if !inference.SupportsConditioning(bundle.Diffuser) {
		logger.Warn("diffuser ignores conditioning images; layout will not follow the photo",
			zap.String("backend", bundle.Name))
	}
	if cfg.needsDepth() && bundle.Depth == nil {
		logger.Warn("variant needs a depth model but none is configured; requests will fail")
	}
	if cfg.needsSegmenter() && bundle.Segmenter == nil {
		logger.Warn("variant needs a segmentation model but none is configured; requests will fail")
	}

	builder := conditioning.NewBuilder(bundle.Depth, bundle.Segmenter)
	builder.Parallel = cfg.Parallel

	return &Pipeline{
		cfg:      cfg,
		bundle:   bundle,
		builder:  builder,
		composer: composer.WithNegativeBase(cfg.NegativeBase),
		logger:   logger,
	}, nil
}

// WithRecorder sets the metrics sink.
func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Composer exposes the prompt composer, e.g. for listing options.
func (p *Pipeline) Composer() *prompt.Composer {
	return p.composer
}

// Run processes one request. Every error is a *Error; no partial result
// is returned alongside one.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	m := logging.GenerationMetrics{
		RequestID: req.RequestID,
		Variant:   p.cfg.Name,
		Backend:   p.bundle.Name,
		Steps:     p.cfg.Steps,
	}
	start := time.Now()

	res, err := p.run(ctx, req, &m)

	m.TotalDuration = time.Since(start)
	m.Success = err == nil
	log := p.logger.With(zap.String("request_id", req.RequestID))
	if err != nil {
		m.Error = err.Error()
		m.ErrorKind = string(KindOf(err))
		log.Warn("generation failed", m.Field())
	} else {
		log.Info("generation complete", m.Field(), zap.Object("signals", res.Signals))
	}
	if p.recorder != nil {
		p.recorder.Record(m)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, req Request, m *logging.GenerationMetrics) (*Result, error) {
	if strings.TrimSpace(req.Image) == "" {
		return nil, inputErr("No image provided", ErrMissingImage)
	}

	t := time.Now()
	img, err := vision.DecodeBase64(req.Image)
	m.DecodeDuration = time.Since(t)
	if err != nil {
		return nil, inputErr("Invalid image data", err)
	}

	t = time.Now()
	set, err := p.builder.Build(ctx, img, p.cfg.plan())
	m.ConditioningDuration = time.Since(t)
	if err != nil {
		return nil, inferenceErr("Failed to build conditioning images", err)
	}
	m.Width, m.Height = set.Target.X, set.Target.Y

	sig := p.classify(set)
	m.Seed = sig.Seed
	m.Bucket = string(sig.Bucket)
	m.EdgeRatio = sig.EdgeRatio

	pair := p.composer.Build(prompt.Request{
		RoomType:     req.RoomType,
		DesignStyle:  req.DesignStyle,
		ColorTone:    req.ColorTone,
		CustomPrompt: req.Prompt,
	}, sig)
	if err := inference.ValidatePrompt(pair.Positive); err != nil {
		return nil, inputErr("Invalid prompt", err)
	}

	images, err := set.Ordered(p.cfg.Signals)
	if err != nil {
		return nil, inferenceErr("Failed to build conditioning images", err)
	}
	scales := p.scales(sig)
	m.Scales = scales

	t = time.Now()
	out, err := p.bundle.Diffuser.Generate(ctx, inference.GenerateRequest{
		Prompt:         pair.Positive,
		NegativePrompt: pair.Negative,
		Images:         images,
		Scales:         scales,
		Steps:          p.cfg.Steps,
		GuidanceScale:  p.cfg.Guidance,
		Seed:           sig.Seed,
		Precision:      p.cfg.Precision,
	})
	m.InferenceDuration = time.Since(t)
	if err != nil {
		if errors.Is(err, inference.ErrInvalidPrompt) {
			return nil, inputErr("Invalid prompt", err)
		}
		return nil, inferenceErr("Image generation failed", err)
	}

	t = time.Now()
	png, err := vision.EncodePNG(vision.ToRGB(out))
	m.EncodeDuration = time.Since(t)
	if err != nil {
		return nil, inferenceErr("Failed to encode generated image", err)
	}

	return &Result{
		Variant:       p.cfg.Name,
		Target:        set.Target,
		Scales:        scales,
		Prompt:        pair,
		Signals:       sig,
		EdgesComputed: set.Edges != nil,
		PNG:           png,
		Base64:        base64.StdEncoding.EncodeToString(png),
		Request:       req,
	}, nil
}

// classify derives the scene signals once from the built conditioning set.
func (p *Pipeline) classify(set *conditioning.Set) scene.Signals {
	var sig scene.Signals
	switch {
	case p.cfg.AdaptiveEdge:
		sig = scene.ClassifyEdges(set.Edges)
	default:
		if set.Edges != nil {
			sig.EdgeRatio = conditioning.EdgeRatio(set.Edges)
		}
		sig.Seed = p.cfg.Seed
		sig.ConditioningScale = p.cfg.Scales[0]
	}

	labels := p.bundle.Labels()
	if p.cfg.DetectWindow {
		sig.WindowChecked = true
		sig.HasWindow = scene.LabelPresent(set.Segmentation, labels, scene.WindowKeywords)
	}
	if p.cfg.DetectCurtain {
		sig.CurtainChecked = true
		sig.HasCurtain = scene.LabelPresent(set.Segmentation, labels, scene.CurtainKeywords)
	}
	return sig
}

func (p *Pipeline) scales(sig scene.Signals) []float64 {
	if p.cfg.AdaptiveEdge {
		return []float64{sig.ConditioningScale}
	}
	return append([]float64(nil), p.cfg.Scales...)
}
