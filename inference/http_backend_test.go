package inference

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"roomify/vision"
)

type fakeModelServer struct {
	lastGenerate generatePayload
	token        string
}

func (f *fakeModelServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if f.token != "" && r.Header.Get("Authorization") != "Bearer "+f.token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc(PathGenerate, auth(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&f.lastGenerate); err != nil {
			t.Errorf("decode generate payload: %v", err)
		}
		out, _ := vision.EncodeBase64PNG(solid(f.lastGenerate.Width, f.lastGenerate.Height, color.RGBA{1, 2, 3, 255}))
		json.NewEncoder(w).Encode(imageResponse{Image: out})
	}))
	mux.HandleFunc(PathDepth, auth(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(depthResponse{Width: 2, Height: 2, Depth: []float32{0, 1, 2, 3}})
	}))
	mux.HandleFunc(PathSegment, auth(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(segmentResponse{Width: 2, Height: 1, Labels: []uint16{0, 8}})
	}))
	mux.HandleFunc(PathHealth, auth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return mux
}

func newTestBackend(t *testing.T, f *fakeModelServer) *HTTPBackend {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	b, err := NewHTTPBackend(HTTPBackendConfig{BaseURL: srv.URL + "/", Token: f.token})
	if err != nil {
		t.Fatalf("NewHTTPBackend() error: %v", err)
	}
	return b
}

func TestNewHTTPBackend_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://host", "localhost:7860", "http://"} {
		if _, err := NewHTTPBackend(HTTPBackendConfig{BaseURL: u}); !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("NewHTTPBackend(%q) error = %v, want ErrBackendUnavailable", u, err)
		}
	}
}

func TestHTTPBackend_Generate(t *testing.T) {
	f := &fakeModelServer{token: "secret"}
	b := newTestBackend(t, f)

	img, err := b.Generate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if img.Bounds().Size() != image.Pt(64, 64) {
		t.Errorf("size = %v, want 64x64", img.Bounds().Size())
	}

	got := f.lastGenerate
	if len(got.ControlImages) != 2 || len(got.ControlScales) != 2 {
		t.Fatalf("payload carried %d images, %d scales", len(got.ControlImages), len(got.ControlScales))
	}
	if got.ControlScales[0] != 0.5 || got.ControlScales[1] != 0.1 {
		t.Errorf("scales = %v, want [0.5 0.1]", got.ControlScales)
	}
	if got.Seed != 42 || got.Steps != 30 || got.GuidanceScale != 7.5 || got.Precision != FP16 {
		t.Errorf("unexpected payload %+v", got)
	}

	first, err := decodeImageField(got.ControlImages[0])
	if err != nil {
		t.Fatalf("control image 0 is not decodable: %v", err)
	}
	if c := vision.ToRGB(first).RGBAAt(0, 0); c != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("control image 0 pixel = %v, want the depth image", c)
	}
}

func TestHTTPBackend_DepthAndSegment(t *testing.T) {
	b := newTestBackend(t, &fakeModelServer{})
	img := solid(8, 8, color.RGBA{})

	f, err := b.EstimateDepth(context.Background(), img)
	if err != nil {
		t.Fatalf("EstimateDepth() error: %v", err)
	}
	if f.Width != 2 || len(f.Values) != 4 {
		t.Errorf("unexpected depth field %+v", f)
	}

	m, err := b.Segment(context.Background(), img)
	if err != nil {
		t.Fatalf("Segment() error: %v", err)
	}
	if m.At(1, 0) != 8 {
		t.Errorf("class at (1,0) = %d, want 8", m.At(1, 0))
	}
	if b.Labels().Name(8) != "windowpane" {
		t.Error("default labels should be ADE20K")
	}
}

func TestHTTPBackend_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(PathGenerate, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "CUDA out of memory", http.StatusInternalServerError)
	})
	mux.HandleFunc(PathDepth, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(depthResponse{Width: 3, Height: 3, Depth: []float32{1}})
	})
	mux.HandleFunc(PathSegment, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b, _ := NewHTTPBackend(HTTPBackendConfig{BaseURL: srv.URL})
	ctx := context.Background()

	if _, err := b.Generate(ctx, validRequest()); !errors.Is(err, ErrBackendStatus) {
		t.Errorf("Generate() error = %v, want ErrBackendStatus", err)
	}
	if _, err := b.EstimateDepth(ctx, solid(8, 8, color.RGBA{})); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("EstimateDepth() error = %v, want ErrInvalidResponse", err)
	}
	if _, err := b.Segment(ctx, solid(8, 8, color.RGBA{})); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("Segment() error = %v, want ErrInvalidResponse", err)
	}
	if err := b.Health(ctx); !errors.Is(err, ErrBackendStatus) {
		t.Errorf("Health() error = %v, want ErrBackendStatus", err)
	}
}

func TestHTTPBackend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	b, _ := NewHTTPBackend(HTTPBackendConfig{BaseURL: url})
	if _, err := b.Generate(context.Background(), validRequest()); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Generate() error = %v, want ErrBackendUnavailable", err)
	}
}

func TestHTTPBackend_Unauthorized(t *testing.T) {
	f := &fakeModelServer{token: "secret"}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	b, _ := NewHTTPBackend(HTTPBackendConfig{BaseURL: srv.URL, Token: "wrong"})
	if err := b.Health(context.Background()); !errors.Is(err, ErrBackendStatus) {
		t.Errorf("Health() error = %v, want ErrBackendStatus", err)
	}

	good := newTestBackend(t, f)
	if err := good.Health(context.Background()); err != nil {
		t.Errorf("Health() error: %v", err)
	}
}
