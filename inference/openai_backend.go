package inference

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"roomify/vision"
)

// OpenAIConfig configures the cloud fallback diffuser.
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API root, e.g. for an Azure-compatible proxy.
	BaseURL string
	// Model defaults to dall-e-3.
	Model      string
	HTTPClient *http.Client
}

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.CreateImageModelDallE3

// OpenAIDiffuser generates images through the OpenAI image API. The API
// accepts text only, so conditioning images are not transmitted; the
// result is resized to the conditioning resolution so downstream code sees
// the same shape as from a conditioned backend.
type OpenAIDiffuser struct {
	client *openai.Client
	model  string
}

// NewOpenAIDiffuser builds a client from cfg.
func NewOpenAIDiffuser(cfg OpenAIConfig) (*OpenAIDiffuser, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", ErrBackendUnavailable)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIDiffuser{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// SupportsConditioning is always false for the image API.
func (d *OpenAIDiffuser) SupportsConditioning() bool {
	return false
}

// Generate requests one image. Steps, guidance and seed have no API
// equivalent and are ignored; the negative prompt is folded into the text.
func (d *OpenAIDiffuser) Generate(ctx context.Context, req GenerateRequest) (image.Image, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	size := req.Size()
	apiReq := openai.ImageRequest{
		Prompt:         openAIPrompt(req),
		Model:          d.model,
		N:              1,
		Size:           openAISize(d.model, size),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}

	resp, err := d.client.CreateImage(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", ErrGenerationFailed, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("%w: openai returned no image data", ErrInvalidResponse)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: openai image is not base64: %v", ErrInvalidResponse, err)
	}
	img, err := vision.DecodeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return vision.Resize(img, size, vision.Bicubic), nil
}

func openAIPrompt(req GenerateRequest) string {
	if strings.TrimSpace(req.NegativePrompt) == "" {
		return req.Prompt
	}
	return req.Prompt + ". Avoid: " + req.NegativePrompt
}

// openAISize picks the closest supported canvas for the target orientation.
func openAISize(model string, target image.Point) string {
	if model != openai.CreateImageModelDallE3 {
		return openai.CreateImageSize1024x1024
	}
	switch {
	case target.X > target.Y:
		return openai.CreateImageSize1792x1024
	case target.Y > target.X:
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}
