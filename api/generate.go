package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"roomify/pipeline"
)

// Defaults the legacy predict route applies to blank fields.
const (
	LegacyRoomType    = "bedroom"
	LegacyDesignStyle = "modern"
	LegacyColorTone   = "vanilla latte"
)

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if status, err := s.decode(w, r, &req); err != nil {
		s.writeJSON(w, status, badBody(err))
		return
	}
	req.RequestID = middleware.GetReqID(r.Context())

	env, status := s.deps.Generator.Generate(r.Context(), req)
	s.writeJSON(w, status, env)
}

// predictRequest is the positional form: [image, room_type, design_style,
// color_tone, prompt?].
type predictRequest struct {
	Data []any `json:"data"`
}

type predictResponse struct {
	pipeline.Envelope
	Data []string `json:"data,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var in predictRequest
	if status, err := s.decode(w, r, &in); err != nil {
		s.writeJSON(w, status, badBody(err))
		return
	}
	req, err := in.toRequest()
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, badBody(err))
		return
	}
	req.RequestID = middleware.GetReqID(r.Context())

	env, status := s.deps.Generator.Generate(r.Context(), req)
	out := predictResponse{Envelope: env}
	if env.OK {
		out.Data = []string{env.GeneratedImage}
	}
	s.writeJSON(w, status, out)
}

func (p predictRequest) toRequest() (pipeline.Request, error) {
	if len(p.Data) == 0 {
		return pipeline.Request{}, fmt.Errorf("data must hold at least the image")
	}
	fields := make([]string, 5)
	for i := 0; i < len(p.Data) && i < len(fields); i++ {
		switch v := p.Data[i].(type) {
		case string:
			fields[i] = v
		case nil:
		default:
			return pipeline.Request{}, fmt.Errorf("data[%d] must be a string", i)
		}
	}
	return pipeline.Request{
		Image:       fields[0],
		RoomType:    orDefault(fields[1], LegacyRoomType),
		DesignStyle: orDefault(fields[2], LegacyDesignStyle),
		ColorTone:   orDefault(fields[3], LegacyColorTone),
		Prompt:      fields[4],
	}, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
