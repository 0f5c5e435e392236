package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"roomify/jobs"
	"roomify/pipeline"
)

// jobRequest is the queue-style body: {"input": {...}}.
type jobRequest struct {
	Input *pipeline.Request `json:"input"`
}

func (s *Server) readJob(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	if s.deps.Queue == nil {
		s.writeError(w, http.StatusServiceUnavailable, "async jobs are disabled")
		return pipeline.Request{}, false
	}
	var in jobRequest
	if status, err := s.decode(w, r, &in); err != nil {
		s.writeError(w, status, err.Error())
		return pipeline.Request{}, false
	}
	if in.Input == nil {
		s.writeError(w, http.StatusBadRequest, "input is required")
		return pipeline.Request{}, false
	}
	return *in.Input, true
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readJob(w, r)
	if !ok {
		return
	}
	job, err := s.deps.Queue.Submit(req)
	switch {
	case errors.Is(err, jobs.ErrQueueFull):
		w.Header().Set("Retry-After", "5")
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, job)
	}
}

func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readJob(w, r)
	if !ok {
		return
	}
	job, err := s.deps.Queue.RunSync(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Queue == nil {
		s.writeError(w, http.StatusServiceUnavailable, "async jobs are disabled")
		return
	}
	job, err := s.deps.Queue.Status(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}
