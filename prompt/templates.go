// Package prompt builds the positive and negative text prompts for a
// redesign request from room type, design style, colour tone and the scene
// signals derived from the photo.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// Placeholders recognised in templates.
const (
	PlaceholderDesignStyle = "{design_style}"
	PlaceholderColorTone   = "{color_tone}"
	PlaceholderRoomType    = "{room_type}"
	PlaceholderWindow      = "{window}"
)

var (
	ErrInvalidTemplates = errors.New("prompt: invalid template table")
)

// Templates is the template table. Keys of Interior and Exterior are
// normalized room types.
type Templates struct {
	Fallback     string            `yaml:"fallback"`
	Negative     string            `yaml:"negative"`
	WindowClause string            `yaml:"window_clause"`
	Interior     map[string]string `yaml:"interior"`
	Exterior     map[string]string `yaml:"exterior"`
}

// DefaultTemplates returns a fresh copy of the embedded table.
func DefaultTemplates() *Templates {
	t, err := ParseTemplates(defaultTemplatesYAML)
	if err != nil {
		panic(fmt.Sprintf("prompt: embedded templates: %v", err))
	}
	return t
}

// ParseTemplates decodes a YAML table and validates it.
func ParseTemplates(data []byte) (*Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplates, err)
	}
	t.Interior = normalizeKeys(t.Interior)
	t.Exterior = normalizeKeys(t.Exterior)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTemplates reads a YAML file and overlays it on the embedded table.
// Entries present in the file replace the defaults; others are kept.
func LoadTemplates(path string) (*Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read templates: %w", err)
	}

	var override Templates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTemplates, path, err)
	}

	t := DefaultTemplates()
	if s := strings.TrimSpace(override.Fallback); s != "" {
		t.Fallback = s
	}
	if s := strings.TrimSpace(override.Negative); s != "" {
		t.Negative = s
	}
	if s := strings.TrimSpace(override.WindowClause); s != "" {
		t.WindowClause = s
	}
	for k, v := range normalizeKeys(override.Interior) {
		t.Interior[k] = v
	}
	for k, v := range normalizeKeys(override.Exterior) {
		t.Exterior[k] = v
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Validate requires a usable fallback and negative base. A room type may
// appear in only one table, since interior entries always win.
func (t *Templates) Validate() error {
	if strings.TrimSpace(t.Fallback) == "" {
		return fmt.Errorf("%w: fallback template is empty", ErrInvalidTemplates)
	}
	if strings.TrimSpace(t.Negative) == "" {
		return fmt.Errorf("%w: negative prompt base is empty", ErrInvalidTemplates)
	}
	for _, k := range sortedKeys(t.Exterior) {
		if _, ok := t.Interior[k]; ok {
			return fmt.Errorf("%w: %q is listed as both interior and exterior", ErrInvalidTemplates, k)
		}
	}
	return nil
}

// RoomTypes lists the keys of both tables, sorted.
func (t *Templates) RoomTypes() (interior, exterior []string) {
	return sortedKeys(t.Interior), sortedKeys(t.Exterior)
}

// NormalizeRoomType lower-cases, trims and collapses separators so that
// "Living_Room" and " living  room " resolve to the same key.
func NormalizeRoomType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func normalizeKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[NormalizeRoomType(k)] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
