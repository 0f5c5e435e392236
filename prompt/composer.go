package prompt

import (
	"strings"

	"roomify/scene"
)

// Defaults substituted for blank request fields.
const (
	DefaultDesignStyle = "Stylish"
	DefaultColorTone   = "neutral"
	DefaultRoomType    = "room"
)

// Clauses appended to the negative prompt for labels the scene lacks.
const (
	NoWindowClause  = ", no window"
	NoCurtainClause = ", no curtain"
)

// Source records which rule produced the positive prompt.
type Source string

const (
	SourceCustom   Source = "custom"
	SourceInterior Source = "interior"
	SourceExterior Source = "exterior"
	SourceFallback Source = "fallback"
)

// Request carries the user-facing style parameters.
type Request struct {
	RoomType     string
	DesignStyle  string
	ColorTone    string
	CustomPrompt string
}

// Pair is the fully resolved prompt text handed to inference unchanged.
type Pair struct {
	Positive string `json:"prompt"`
	Negative string `json:"negative_prompt"`
	Source   Source `json:"prompt_source"`
}

// Composer builds prompt pairs from a template table. It is immutable and
// safe for concurrent use.
type Composer struct {
	templates    *Templates
	negativeBase string
}

// NewComposer returns a Composer over t. A nil t uses the embedded table.
func NewComposer(t *Templates) *Composer {
	if t == nil {
		t = DefaultTemplates()
	}
	return &Composer{templates: t, negativeBase: t.Negative}
}

// WithNegativeBase returns a copy of c using base as the negative prompt
// before label clauses. A blank base keeps the table's default.
func (c *Composer) WithNegativeBase(base string) *Composer {
	cp := *c
	if s := strings.TrimSpace(base); s != "" {
		cp.negativeBase = s
	}
	return &cp
}

// Templates exposes the table the composer reads from.
func (c *Composer) Templates() *Templates {
	return c.templates
}

// Build resolves the positive prompt (custom, interior, exterior, then
// fallback) and the negative prompt.
//
// A detected window adds a positive clause next to the room mention; an
// undetected one adds ", no window" to the negative prompt. Curtains only
// ever affect the negative prompt. Labels whose detector did not run add
// nothing. A custom prompt is used verbatim.
func (c *Composer) Build(req Request, sig scene.Signals) Pair {
	return Pair{
		Positive: c.positive(req, sig),
		Negative: c.negative(sig),
		Source:   c.source(req),
	}
}

func (c *Composer) source(req Request) Source {
	if strings.TrimSpace(req.CustomPrompt) != "" {
		return SourceCustom
	}
	key := NormalizeRoomType(req.RoomType)
	if _, ok := c.templates.Interior[key]; ok {
		return SourceInterior
	}
	if _, ok := c.templates.Exterior[key]; ok {
		return SourceExterior
	}
	return SourceFallback
}

func (c *Composer) positive(req Request, sig scene.Signals) string {
	if custom := strings.TrimSpace(req.CustomPrompt); custom != "" {
		return req.CustomPrompt
	}

	window := ""
	if sig.WindowChecked && sig.HasWindow && c.templates.WindowClause != "" {
		window = ", " + c.templates.WindowClause
	}

	key := NormalizeRoomType(req.RoomType)
	tmpl, ok := c.templates.Interior[key]
	if !ok {
		tmpl, ok = c.templates.Exterior[key]
	}
	if ok {
		if out := c.fill(tmpl, req, window); out != "" {
			return out
		}
	}

	if out := c.fill(c.templates.Fallback, req, window); out != "" {
		return out
	}
	return c.fill(DefaultTemplates().Fallback, req, window)
}

func (c *Composer) fill(tmpl string, req Request, window string) string {
	room := strings.TrimSpace(req.RoomType)
	if room == "" {
		room = DefaultRoomType
	}

	if window != "" && !strings.Contains(tmpl, PlaceholderWindow) {
		tmpl += window
		window = ""
	}

	r := strings.NewReplacer(
		PlaceholderDesignStyle, orDefault(req.DesignStyle, DefaultDesignStyle),
		PlaceholderColorTone, orDefault(req.ColorTone, DefaultColorTone),
		PlaceholderRoomType, room,
		PlaceholderWindow, window,
	)
	return strings.TrimSpace(r.Replace(tmpl))
}

func (c *Composer) negative(sig scene.Signals) string {
	neg := c.negativeBase
	if sig.WindowChecked && !sig.HasWindow {
		neg += NoWindowClause
	}
	if sig.CurtainChecked && !sig.HasCurtain {
		neg += NoCurtainClause
	}
	return neg
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
