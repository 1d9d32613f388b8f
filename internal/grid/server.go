// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grid

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes a local Coordinator as a scheduler over HTTP, so a worker
// host can accept jobs from remote submitters using the Client in this
// package.
type Server struct {
	coord *Coordinator
}

// NewServer wraps a coordinator whose cluster has already been started.
func NewServer(coord *Coordinator) *Server {
	return &Server{coord: coord}
}

// Router builds the scheduler API: job submission, status lookup, listing,
// cancellation, and a health probe.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/jobs", s.handleSubmit)
	r.Get("/jobs", s.handleList)
	r.Get("/jobs/{id}", s.handleStatus)
	r.Delete("/jobs/{id}", s.handleCancel)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if _, ok := s.coord.ClusterInfo(); !ok {
		http.Error(w, "no active cluster", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.InputDir == "" {
		http.Error(w, "input_dir is required", http.StatusBadRequest)
		return
	}

	rec, err := s.coord.SubmitJob(req.InputDir, req.OutputDir)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, errQueueFull) {
			status = http.StatusTooManyRequests
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Jobs())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.coord.JobStatus(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "unknown job", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.coord.JobStatus(id); !ok {
		http.Error(w, "unknown job", http.StatusNotFound)
		return
	}
	if !s.coord.CancelJob(id) {
		// Already terminal: cancellation is a no-op.
		http.Error(w, "job already finished", http.StatusConflict)
		return
	}
	rec, _ := s.coord.JobStatus(id)
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
