package inference

import (
	"fmt"
	"strings"
	"time"
)

// Backend kinds.
const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
	BackendStub   = "stub"
)

// BackendConfig selects and configures the model backends.
type BackendConfig struct {
	Kind string

	ModelServerURL   string
	ModelServerToken string
	Timeout          time.Duration

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// MaxConcurrent bounds simultaneous generations.
	MaxConcurrent int

	// StubWindow and StubCurtain shape the stub segmentation layout.
	StubWindow  bool
	StubCurtain bool
}

// NewBundle builds the ModelBundle for cfg. The diffuser is always wrapped
// in a SlotPool.
//
// With the openai backend, depth and segmentation still come from the
// model server when ModelServerURL is set; otherwise they are left nil and
// pipelines that need them fail at request time.
func NewBundle(cfg BackendConfig) (*ModelBundle, error) {
	var bundle *ModelBundle

	switch kind := strings.ToLower(strings.TrimSpace(cfg.Kind)); kind {
	case BackendHTTP, "":
		h, err := NewHTTPBackend(HTTPBackendConfig{
			BaseURL: cfg.ModelServerURL,
			Token:   cfg.ModelServerToken,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		bundle = &ModelBundle{Name: BackendHTTP, Diffuser: h, Depth: h, Segmenter: h}

	case BackendOpenAI:
		d, err := NewOpenAIDiffuser(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return nil, err
		}
		bundle = &ModelBundle{Name: BackendOpenAI, Diffuser: d}
		if cfg.ModelServerURL != "" {
			h, err := NewHTTPBackend(HTTPBackendConfig{
				BaseURL: cfg.ModelServerURL,
				Token:   cfg.ModelServerToken,
				Timeout: cfg.Timeout,
			})
			if err != nil {
				return nil, err
			}
			bundle.Depth, bundle.Segmenter = h, h
		}

	case BackendStub:
		bundle = NewStubBundle(cfg.StubWindow, cfg.StubCurtain)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Kind)
	}

	size := cfg.MaxConcurrent
	if size <= 0 {
		size = 1
	}
	pool, err := NewSlotPool(bundle.Diffuser, size)
	if err != nil {
		return nil, err
	}
	bundle.Diffuser = pool
	bundle.closers = append(bundle.closers, pool.Close)

	return bundle, nil
}
