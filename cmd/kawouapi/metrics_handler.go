package main

import (
	"net/http"

	"kawourelay/internal/metrics"
)

// handleMetrics exposes the in-process metrics snapshot as JSON.
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
