package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"roomify/conditioning"
	"roomify/vision"
)

// Model server endpoints.
const (
	PathGenerate = "/generate"
	PathDepth    = "/depth"
	PathSegment  = "/segment"
	PathHealth   = "/health"
)

// maxErrorBody caps how much of an error response is echoed back.
const maxErrorBody = 512

// HTTPBackendConfig configures a JSON model server client.
type HTTPBackendConfig struct {
	// BaseURL is the model server root, e.g. http://127.0.0.1:7860
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds each call. Zero means DefaultHTTPTimeout.
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	// Labels is the segmentation vocabulary. Nil means ADE20K.
	Labels conditioning.LabelTable
}

// DefaultHTTPTimeout matches the time a 30-step generation may take on a cold GPU.
const DefaultHTTPTimeout = 120 * time.Second

// HTTPBackend talks to a model server that hosts the diffusion pipeline,
// the depth estimator and the segmentation model. It implements Diffuser,
// conditioning.DepthEstimator and conditioning.Segmenter.
type HTTPBackend struct {
	baseURL string
	token   string
	client  *http.Client
	labels  conditioning.LabelTable
}

// NewHTTPBackend validates cfg and returns a backend.
func NewHTTPBackend(cfg HTTPBackendConfig) (*HTTPBackend, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid model server URL %q", ErrBackendUnavailable, cfg.BaseURL)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	labels := cfg.Labels
	if len(labels) == 0 {
		labels = conditioning.ADE20K
	}

	return &HTTPBackend{
		baseURL: strings.TrimRight(u.String(), "/"),
		token:   cfg.Token,
		client:  client,
		labels:  labels,
	}, nil
}

type generatePayload struct {
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt"`
	ControlImages  []string  `json:"control_images"`
	ControlScales  []float64 `json:"control_scales"`
	Steps          int       `json:"steps"`
	GuidanceScale  float64   `json:"guidance_scale"`
	Seed           int64     `json:"seed"`
	Precision      Precision `json:"precision,omitempty"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
}

type imagePayload struct {
	Image string `json:"image"`
}

type imageResponse struct {
	Image string `json:"image"`
	Error string `json:"error,omitempty"`
}

type depthResponse struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Depth  []float32 `json:"depth"`
	Error  string    `json:"error,omitempty"`
}

type segmentResponse struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Labels []uint16 `json:"labels"`
	Error  string   `json:"error,omitempty"`
}

// Generate runs the diffusion pipeline on the server.
func (b *HTTPBackend) Generate(ctx context.Context, req GenerateRequest) (image.Image, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	images := make([]string, len(req.Images))
	for i, img := range req.Images {
		enc, err := vision.EncodeBase64PNG(img)
		if err != nil {
			return nil, err
		}
		images[i] = enc
	}

	size := req.Size()
	payload := generatePayload{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		ControlImages:  images,
		ControlScales:  req.Scales,
		Steps:          req.Steps,
		GuidanceScale:  req.GuidanceScale,
		Seed:           req.Seed,
		Precision:      req.Precision,
		Width:          size.X,
		Height:         size.Y,
	}

	var resp imageResponse
	if err := b.post(ctx, PathGenerate, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, resp.Error)
	}
	return decodeImageField(resp.Image)
}

// EstimateDepth returns the raw depth prediction for img.
func (b *HTTPBackend) EstimateDepth(ctx context.Context, img image.Image) (*conditioning.DepthField, error) {
	enc, err := vision.EncodeBase64PNG(img)
	if err != nil {
		return nil, err
	}

	var resp depthResponse
	if err := b.post(ctx, PathDepth, imagePayload{Image: enc}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: depth: %s", ErrGenerationFailed, resp.Error)
	}

	f := &conditioning.DepthField{Width: resp.Width, Height: resp.Height, Values: resp.Depth}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return f, nil
}

// Segment returns the per-pixel argmax class map for img.
func (b *HTTPBackend) Segment(ctx context.Context, img image.Image) (*conditioning.SegmentationMap, error) {
	enc, err := vision.EncodeBase64PNG(img)
	if err != nil {
		return nil, err
	}

	var resp segmentResponse
	if err := b.post(ctx, PathSegment, imagePayload{Image: enc}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: segment: %s", ErrGenerationFailed, resp.Error)
	}

	m := &conditioning.SegmentationMap{Width: resp.Width, Height: resp.Height, Classes: resp.Labels}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return m, nil
}

// Labels returns the segmentation vocabulary.
func (b *HTTPBackend) Labels() conditioning.LabelTable {
	return b.labels
}

// Health checks that the server answers GET /health with a 2xx status.
func (b *HTTPBackend) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+PathHealth, nil)
	if err != nil {
		return err
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: health returned %d", ErrBackendStatus, resp.StatusCode)
	}
	return nil
}

func (b *HTTPBackend) authorize(req *http.Request) {
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
}

func (b *HTTPBackend) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("inference: marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("inference: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s returned %d: %s", ErrBackendStatus, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, path, err)
	}
	return nil
}

func decodeImageField(s string) (image.Image, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: missing image", ErrInvalidResponse)
	}
	raw, err := base64.StdEncoding.DecodeString(vision.RepairPadding(vision.StripDataURL(s)))
	if err != nil {
		return nil, fmt.Errorf("%w: image is not base64: %v", ErrInvalidResponse, err)
	}
	img, err := vision.DecodeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return img, nil
}
