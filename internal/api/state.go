package api

import (
	"net/http"
	"strconv"
)

// stateEntry is one shadow cell in the snapshot response.
type stateEntry struct {
	DeviceID string `json:"device_id"`
	CellID   string `json:"cell_id"`
	Value    any    `json:"value"`
}

// handleGetState returns the whole-plant shadow snapshot.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.shadow.Snapshot()

	entries := make([]stateEntry, 0, len(snapshot))
	for key, value := range snapshot {
		entries = append(entries, stateEntry{
			DeviceID: key.DeviceID,
			CellID:   key.CellID,
			Value:    value,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"state": entries,
		"cells": len(entries),
	})
}

// maxActivationsLimit caps the history page size.
const maxActivationsLimit = 200

// handleListActivations returns recent transition results, newest first.
func (s *Server) handleListActivations(w http.ResponseWriter, r *http.Request) {
	if s.activations == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "activation history not configured")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxActivationsLimit)
	}

	results, err := s.activations.List(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"activations": results,
	})
}
