package inference

import (
	"context"
	"errors"
	"testing"
)

func TestNewBundle(t *testing.T) {
	tests := []struct {
		name     string
		cfg      BackendConfig
		wantErr  error
		wantName string
		hasDepth bool
	}{
		{"stub", BackendConfig{Kind: "stub", MaxConcurrent: 2}, nil, BackendStub, true},
		{"http", BackendConfig{Kind: "HTTP", ModelServerURL: "http://127.0.0.1:7860"}, nil, BackendHTTP, true},
		{"http default kind", BackendConfig{ModelServerURL: "http://127.0.0.1:7860"}, nil, BackendHTTP, true},
		{"http bad url", BackendConfig{Kind: "http", ModelServerURL: "::"}, ErrBackendUnavailable, "", false},
		{"openai without key", BackendConfig{Kind: "openai"}, ErrBackendUnavailable, "", false},
		{"openai text only", BackendConfig{Kind: "openai", OpenAIAPIKey: "sk-test"}, nil, BackendOpenAI, false},
		{"openai with model server", BackendConfig{Kind: "openai", OpenAIAPIKey: "sk-test", ModelServerURL: "http://gpu:7860"}, nil, BackendOpenAI, true},
		{"unknown", BackendConfig{Kind: "onnx"}, ErrUnknownBackend, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBundle(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewBundle() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBundle() error: %v", err)
			}
			defer b.Close()

			if b.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", b.Name, tt.wantName)
			}
			if _, ok := b.Diffuser.(*SlotPool); !ok {
				t.Errorf("Diffuser is %T, want *SlotPool", b.Diffuser)
			}
			if (b.Depth != nil) != tt.hasDepth {
				t.Errorf("Depth set = %v, want %v", b.Depth != nil, tt.hasDepth)
			}
		})
	}
}

func TestNewBundle_StubGenerates(t *testing.T) {
	b, err := NewBundle(BackendConfig{Kind: BackendStub})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Diffuser.Generate(context.Background(), validRequest()); err != nil {
		t.Errorf("Generate() error: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Diffuser.Generate(context.Background(), validRequest()); !errors.Is(err, ErrSlotPoolClosed) {
		t.Errorf("Generate() after Close error = %v, want ErrSlotPoolClosed", err)
	}
}
