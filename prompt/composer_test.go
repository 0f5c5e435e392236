package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roomify/scene"
)

var noDetection = scene.Signals{}

func TestBuild_CustomPromptVerbatim(t *testing.T) {
	c := NewComposer(nil)
	custom := "  a moody library with green walls  "

	sig := scene.Signals{WindowChecked: true, HasWindow: true}
	got := c.Build(Request{RoomType: "bedroom", DesignStyle: "modern", CustomPrompt: custom}, sig)

	if got.Positive != custom {
		t.Errorf("Positive = %q, want %q", got.Positive, custom)
	}
	if got.Source != SourceCustom {
		t.Errorf("Source = %q, want custom", got.Source)
	}
}

func TestBuild_BlankCustomPromptIsIgnored(t *testing.T) {
	got := NewComposer(nil).Build(Request{RoomType: "kitchen", CustomPrompt: "   "}, noDetection)
	if got.Source != SourceInterior {
		t.Errorf("Source = %q, want interior", got.Source)
	}
}

func TestBuild_BedroomTemplate(t *testing.T) {
	c := NewComposer(nil)
	got := c.Build(Request{RoomType: "bedroom", DesignStyle: "modern", ColorTone: "warm"}, noDetection)

	want := strings.NewReplacer("{design_style}", "modern", "{color_tone}", "warm", "{window}", "").
		Replace(c.Templates().Interior["bedroom"])
	if got.Positive != want {
		t.Errorf("Positive = %q\nwant %q", got.Positive, want)
	}
	for _, ph := range []string{PlaceholderDesignStyle, PlaceholderColorTone, PlaceholderWindow} {
		if strings.Contains(got.Positive, ph) {
			t.Errorf("Positive still contains %s", ph)
		}
	}
}

func TestBuild_Resolution(t *testing.T) {
	tests := []struct {
		room       string
		wantSource Source
		contains   string
	}{
		{"Living Room", SourceInterior, "living room"},
		{"  LIVING_room ", SourceInterior, "living room"},
		{"balcony", SourceInterior, "A Stylish balcony,"},
		{"Garden", SourceExterior, "garden"},
		{"swimming-pool area", SourceExterior, "swimming pool area"},
		{"Wine Cellar", SourceFallback, "A Stylish Wine Cellar"},
		{"", SourceFallback, "A Stylish room"},
	}

	c := NewComposer(nil)
	for _, tt := range tests {
		t.Run(tt.room, func(t *testing.T) {
			got := c.Build(Request{RoomType: tt.room}, noDetection)
			if got.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSource)
			}
			if !strings.Contains(got.Positive, tt.contains) {
				t.Errorf("Positive = %q, want it to contain %q", got.Positive, tt.contains)
			}
			if !strings.Contains(got.Positive, "neutral tones") {
				t.Errorf("Positive = %q, want default tone", got.Positive)
			}
		})
	}
}

func TestBuild_WindowAsymmetry(t *testing.T) {
	c := NewComposer(nil)
	req := Request{RoomType: "living room", DesignStyle: "modern", ColorTone: "warm"}

	present := c.Build(req, scene.Signals{WindowChecked: true, HasWindow: true})
	if !strings.Contains(present.Positive, "A modern living room, with window in place,") {
		t.Errorf("Positive = %q, want window clause after room mention", present.Positive)
	}
	if strings.Contains(present.Negative, "no window") {
		t.Errorf("Negative = %q, must not mention window", present.Negative)
	}

	absent := c.Build(req, scene.Signals{WindowChecked: true})
	if strings.Contains(absent.Positive, "window in place") {
		t.Errorf("Positive = %q, must not carry window clause", absent.Positive)
	}
	if !strings.HasSuffix(absent.Negative, NoWindowClause) {
		t.Errorf("Negative = %q, want suffix %q", absent.Negative, NoWindowClause)
	}

	unchecked := c.Build(req, noDetection)
	if unchecked.Negative != c.Templates().Negative {
		t.Errorf("Negative = %q, want bare base", unchecked.Negative)
	}
}

func TestBuild_NegativeClauses(t *testing.T) {
	c := NewComposer(nil).WithNegativeBase("blurry, lowres")

	tests := []struct {
		name string
		sig  scene.Signals
		want string
	}{
		{"nothing checked", scene.Signals{}, "blurry, lowres"},
		{"window missing", scene.Signals{WindowChecked: true}, "blurry, lowres, no window"},
		{"curtain missing", scene.Signals{CurtainChecked: true}, "blurry, lowres, no curtain"},
		{"both missing", scene.Signals{WindowChecked: true, CurtainChecked: true}, "blurry, lowres, no window, no curtain"},
		{"both present", scene.Signals{WindowChecked: true, HasWindow: true, CurtainChecked: true, HasCurtain: true}, "blurry, lowres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Build(Request{RoomType: "bedroom"}, tt.sig).Negative; got != tt.want {
				t.Errorf("Negative = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuild_NeverEmpty(t *testing.T) {
	tmpl := DefaultTemplates()
	tmpl.Interior["bedroom"] = "   "
	c := NewComposer(tmpl)

	got := c.Build(Request{RoomType: "bedroom"}, noDetection)
	if strings.TrimSpace(got.Positive) == "" {
		t.Fatal("Positive is empty")
	}
	if !strings.Contains(got.Positive, "bedroom") {
		t.Errorf("Positive = %q, want fallback mentioning the room", got.Positive)
	}
}

func TestBuild_TemplateWithoutWindowPlaceholder(t *testing.T) {
	tmpl := DefaultTemplates()
	tmpl.Interior["office"] = "A {design_style} study"
	got := NewComposer(tmpl).Build(Request{RoomType: "office"}, scene.Signals{WindowChecked: true, HasWindow: true})
	if got.Positive != "A Stylish study, with window in place" {
		t.Errorf("Positive = %q", got.Positive)
	}
}

func TestParseTemplates_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":          "fallback: [",
		"empty fallback":    "negative: x\nfallback: ''",
		"empty negative":    "fallback: x",
		"shadowed exterior": "fallback: x\nnegative: y\ninterior:\n  balcony: a\nexterior:\n  Balcony: b\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseTemplates([]byte(doc)); !errors.Is(err, ErrInvalidTemplates) {
				t.Errorf("error = %v, want ErrInvalidTemplates", err)
			}
		})
	}
}

func TestLoadTemplates_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	doc := "negative: ugly\ninterior:\n  Wine Cellar: \"A {design_style} wine cellar{window}\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	tmpl, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("LoadTemplates() error: %v", err)
	}
	if tmpl.Negative != "ugly" {
		t.Errorf("Negative = %q, want override", tmpl.Negative)
	}
	if _, ok := tmpl.Interior["bedroom"]; !ok {
		t.Error("default bedroom template lost")
	}

	got := NewComposer(tmpl).Build(Request{RoomType: "wine cellar", DesignStyle: "rustic"}, noDetection)
	if got.Positive != "A rustic wine cellar" || got.Source != SourceInterior {
		t.Errorf("Build() = %+v", got)
	}
}

func TestLoadTemplates_RejectsShadowedExterior(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	doc := "exterior:\n  bedroom: \"A {design_style} bedroom patio\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTemplates(path); !errors.Is(err, ErrInvalidTemplates) {
		t.Errorf("error = %v, want ErrInvalidTemplates", err)
	}
}

func TestDefaultTemplates_DisjointTables(t *testing.T) {
	tmpl := DefaultTemplates()
	for k := range tmpl.Exterior {
		if _, ok := tmpl.Interior[k]; ok {
			t.Errorf("%q is in both tables", k)
		}
	}
}

func TestLoadTemplates_MissingFile(t *testing.T) {
	if _, err := LoadTemplates(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOptions(t *testing.T) {
	opts := NewComposer(nil).Options()
	if len(opts.InteriorRooms) != 15 || len(opts.ExteriorAreas) != 5 {
		t.Errorf("got %d interior, %d exterior", len(opts.InteriorRooms), len(opts.ExteriorAreas))
	}
	if len(opts.ColorTones) != 32 {
		t.Errorf("got %d tones, want 32", len(opts.ColorTones))
	}
}
