package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/plumber-cd/ez-netmap/internal/domain"
	"go.uber.org/zap"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.repo.Graph(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.ObserveGraph(g)
	respondJSON(w, http.StatusOK, g)
}

func (s *Server) listViews(w http.ResponseWriter, r *http.Request) {
	views, err := s.repo.ListViews(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	attrs, err := s.repo.GetView(r.Context(), chi.URLParam(r, "viewID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, attrs)
}

// createView handles POST /views and responds with the new view id.
func (s *Server) createView(w http.ResponseWriter, r *http.Request) {
	attrs, ok := s.decodeView(w, r)
	if !ok {
		return
	}
	attrs.ViewID = ""
	id, err := s.repo.SaveView(r.Context(), attrs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.metrics.ViewsSaved.WithLabelValues("create").Inc()
	s.logger.Info("view created", zap.String("viewID", id), zap.String("title", attrs.Title))
	respondJSON(w, http.StatusCreated, id)
}

// updateView handles PUT /views/{viewID} and responds with the view id.
func (s *Server) updateView(w http.ResponseWriter, r *http.Request) {
	attrs, ok := s.decodeView(w, r)
	if !ok {
		return
	}
	attrs.ViewID = chi.URLParam(r, "viewID")
	id, err := s.repo.SaveView(r.Context(), attrs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.metrics.ViewsSaved.WithLabelValues("update").Inc()
	s.logger.Info("view updated", zap.String("viewID", id), zap.String("title", attrs.Title))
	respondJSON(w, http.StatusOK, id)
}

func (s *Server) deleteView(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteView(r.Context(), chi.URLParam(r, "viewID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeView(w http.ResponseWriter, r *http.Request) (domain.ViewAttributes, bool) {
	var attrs domain.ViewAttributes
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body: " + err.Error()})
		return attrs, false
	}
	if err := attrs.Validate(); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation error: " + err.Error()})
		return attrs, false
	}
	return attrs, true
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
