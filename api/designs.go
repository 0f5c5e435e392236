package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"roomify/db"
)

const historyDisabled = "design history is disabled"

func (s *Server) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Designs == nil {
		s.writeError(w, http.StatusNotFound, historyDisabled)
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", s.cfg.PageSize)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.deps.Designs.ListDesigns(r.Context(), page, limit)
	if err != nil {
		s.logger.Errorw("failed to list designs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list designs")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetDesign(w http.ResponseWriter, r *http.Request) {
	if s.deps.Designs == nil {
		s.writeError(w, http.StatusNotFound, historyDisabled)
		return
	}
	d, err := s.deps.Designs.GetDesign(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "design not found")
		return
	}
	if err != nil {
		s.logger.Errorw("failed to get design", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get design")
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDesign(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Generator.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, db.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "design not found")
		return
	}
	if err != nil {
		s.logger.Errorw("failed to delete design", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete design")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return n, nil
}
