package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/OCAP2/launch-telemetry/internal/geo"
)

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.loader.List(r.Context())
	if err != nil {
		s.log.Error("Failed to list missions", "error", err)
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"missions": summaries,
		"count":    len(summaries),
	})
}

// handleTrajectory serves the planned stage paths of a mission as GeoJSON.
func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.loader.Load(r.Context(), id)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	data, err := geo.FeatureCollection(m.MissionID, geo.PlannedTrajectories(m))
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Errorf("encode trajectory: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
