package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"roomify/pipeline"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warnw("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: http.StatusText(status), Message: message})
}

// decode reads a JSON body of at most MaxBodyBytes into v. The returned
// status is the one to answer with when err is non-nil.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, err
		}
		return http.StatusBadRequest, err
	}
	return http.StatusOK, nil
}

func badBody(err error) pipeline.Envelope {
	return pipeline.Envelope{
		OK:        false,
		ErrorKind: pipeline.InputError,
		Message:   "Invalid request body",
		Details:   err.Error(),
	}
}
