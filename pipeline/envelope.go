package pipeline

import (
	"errors"
	"image"

	"roomify/prompt"
	"roomify/scene"
)

// SuccessMessage accompanies every successful envelope.
const SuccessMessage = "Image generated successfully"

// Request is the inbound generation request.
type Request struct {
	Image       string `json:"image"`
	RoomType    string `json:"room_type"`
	DesignStyle string `json:"design_style"`
	ColorTone   string `json:"color_tone"`
	Prompt      string `json:"prompt,omitempty"`

	// RequestID tags log entries; it is not part of the wire format.
	RequestID string `json:"-"`
}

// Result is a completed run.
type Result struct {
	Variant string
	Target  image.Point
	Scales  []float64

	Prompt  prompt.Pair
	Signals scene.Signals

	// EdgesComputed is set when an edge map was derived, so EdgeRatio is
	// meaningful.
	EdgesComputed bool

	PNG    []byte
	Base64 string

	Request Request
}

// Envelope is the response body for both outcomes. OK selects which
// fields are populated.
type Envelope struct {
	OK bool `json:"ok"`

	ErrorKind Kind   `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`
	Details   string `json:"details,omitempty"`

	GeneratedImage string `json:"generatedImage,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	RoomType       string `json:"room_type,omitempty"`
	DesignStyle    string `json:"design_style,omitempty"`
	ColorTone      string `json:"color_tone,omitempty"`

	HasWindow  *bool    `json:"has_window,omitempty"`
	HasCurtain *bool    `json:"has_curtain,omitempty"`
	EdgeRatio  *float64 `json:"edge_ratio,omitempty"`
	Bucket     string   `json:"bucket,omitempty"`
	Seed       *int64   `json:"seed,omitempty"`
	Variant    string   `json:"variant,omitempty"`

	// DesignID is set by the transport when the result was saved.
	DesignID string `json:"design_id,omitempty"`
}

// Success builds the envelope for r. Label flags appear only for the
// detectors the variant ran.
func Success(r *Result) Envelope {
	env := Envelope{
		OK:             true,
		Message:        SuccessMessage,
		GeneratedImage: r.Base64,
		Prompt:         r.Prompt.Positive,
		NegativePrompt: r.Prompt.Negative,
		RoomType:       r.Request.RoomType,
		DesignStyle:    r.Request.DesignStyle,
		ColorTone:      r.Request.ColorTone,
		Bucket:         string(r.Signals.Bucket),
		Variant:        r.Variant,
	}
	seed := r.Signals.Seed
	env.Seed = &seed
	if r.Signals.WindowChecked {
		v := r.Signals.HasWindow
		env.HasWindow = &v
	}
	if r.Signals.CurtainChecked {
		v := r.Signals.HasCurtain
		env.HasCurtain = &v
	}
	if r.EdgesComputed {
		v := r.Signals.EdgeRatio
		env.EdgeRatio = &v
	}
	return env
}

// Failure builds the envelope for err. No image is ever included.
func Failure(err error) Envelope {
	env := Envelope{OK: false, ErrorKind: InferenceError, Message: "Image generation failed"}
	var pe *Error
	if errors.As(err, &pe) {
		env.ErrorKind = pe.Kind
		env.Message = pe.Message
		if pe.Err != nil {
			env.Details = pe.Err.Error()
		}
		return env
	}
	if err != nil {
		env.Details = err.Error()
	}
	return env
}
