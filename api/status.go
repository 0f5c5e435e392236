package api

import (
	"context"
	"net/http"
	"time"

	"roomify/metrics"
	"roomify/pipeline"
	"roomify/prompt"
)

const healthTimeout = 5 * time.Second

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Variant     string `json:"variant"`
	ModelServer string `json:"model_server"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Version:     s.cfg.Version,
		Variant:     s.deps.Generator.Pipeline().Config().Name,
		ModelServer: "skipped",
	}
	status := http.StatusOK

	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			resp.Status = "degraded"
			resp.ModelServer = "unreachable"
			resp.Error = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.ModelServer = "ok"
		}
	}
	s.writeJSON(w, status, resp)
}

type statsResponse struct {
	Summary metrics.Summary            `json:"summary"`
	System  metrics.SystemStatus       `json:"system"`
	Recent  []metrics.GenerationRecord `json:"recent"`
	Queue   *queueStats                `json:"queue,omitempty"`
	Designs *int                       `json:"designs,omitempty"`
}

type queueStats struct {
	Pending int `json:"pending"`
}

const recentLimit = 20

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Metrics == nil {
		s.writeError(w, http.StatusNotFound, "metrics are disabled")
		return
	}
	resp := statsResponse{
		Summary: s.deps.Metrics.Summary(),
		System:  s.deps.Metrics.Status(int(s.deps.Generator.ActiveOperations())),
		Recent:  s.deps.Metrics.Recent(recentLimit),
	}
	if s.deps.Queue != nil {
		resp.Queue = &queueStats{Pending: s.deps.Queue.Pending()}
	}
	if s.deps.Designs != nil {
		if n, err := s.deps.Designs.CountDesigns(r.Context()); err == nil {
			resp.Designs = &n
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type optionsResponse struct {
	prompt.Options
	Variants      []string `json:"variants"`
	ActiveVariant string   `json:"active_variant"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	p := s.deps.Generator.Pipeline()
	s.writeJSON(w, http.StatusOK, optionsResponse{
		Options:       p.Composer().Options(),
		Variants:      pipeline.Variants(),
		ActiveVariant: p.Config().Name,
	})
}
