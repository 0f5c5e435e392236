package inference

import (
	"bytes"
	"context"
	"image"
	"testing"

	"roomify/conditioning"
	"roomify/scene"
)

func TestStubDiffuser_Deterministic(t *testing.T) {
	d := StubDiffuser{}
	a, err := d.Generate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	b, _ := d.Generate(context.Background(), validRequest())

	if !bytes.Equal(a.(*image.RGBA).Pix, b.(*image.RGBA).Pix) {
		t.Error("same seed produced different images")
	}

	other := validRequest()
	other.Seed = 43
	c, _ := d.Generate(context.Background(), other)
	if bytes.Equal(a.(*image.RGBA).Pix, c.(*image.RGBA).Pix) {
		t.Error("different seeds produced identical images")
	}

	if a.Bounds().Size() != validRequest().Size() {
		t.Errorf("size = %v, want %v", a.Bounds().Size(), validRequest().Size())
	}
}

func TestStubDiffuser_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (StubDiffuser{}).Generate(ctx, validRequest()); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestStubSegmenter_Labels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 120, 90))

	tests := []struct {
		seg         StubSegmenter
		wantWindow  bool
		wantCurtain bool
	}{
		{StubSegmenter{}, false, false},
		{StubSegmenter{Window: true}, true, false},
		{StubSegmenter{Window: true, Curtain: true}, true, true},
	}

	for _, tt := range tests {
		m, err := tt.seg.Segment(context.Background(), img)
		if err != nil {
			t.Fatalf("Segment() error: %v", err)
		}
		if err := m.Validate(); err != nil {
			t.Fatalf("invalid map: %v", err)
		}
		if got := scene.LabelPresent(m, tt.seg.Labels(), scene.WindowKeywords); got != tt.wantWindow {
			t.Errorf("%+v: window = %v, want %v", tt.seg, got, tt.wantWindow)
		}
		if got := scene.LabelPresent(m, tt.seg.Labels(), scene.CurtainKeywords); got != tt.wantCurtain {
			t.Errorf("%+v: curtain = %v, want %v", tt.seg, got, tt.wantCurtain)
		}
	}
}

func TestStubDepth(t *testing.T) {
	f, err := StubDepth{}.EstimateDepth(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 4)))
	if err != nil {
		t.Fatal(err)
	}
	if f.Width != 8 || f.Height != 4 || f.Values[0] >= f.Values[8*3] {
		t.Errorf("unexpected depth field %+v", f)
	}
}

func TestModelBundle(t *testing.T) {
	var empty *ModelBundle
	if err := empty.Validate(); err == nil {
		t.Error("nil bundle must not validate")
	}

	b := NewStubBundle(true, false)
	if err := b.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	if b.Labels().Name(8) != "windowpane" {
		t.Error("stub bundle should expose ADE20K labels")
	}

	noSeg := &ModelBundle{Diffuser: StubDiffuser{}}
	if len(noSeg.Labels()) != len(conditioning.ADE20K) {
		t.Error("bundle without segmenter should default to ADE20K")
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
