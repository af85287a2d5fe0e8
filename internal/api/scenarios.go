package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/scenesync/internal/scenario"
)

// scenarioSummary is the list-view projection of a scenario.
type scenarioSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Targets int    `json:"targets"`
	Active  bool   `json:"active"`
}

// handleListScenarios returns all defined scenarios.
func (s *Server) handleListScenarios(w http.ResponseWriter, _ *http.Request) {
	active := s.engine.ActiveScenario()

	scenarios := s.scenarios.List()
	out := make([]scenarioSummary, 0, len(scenarios))
	for i := range scenarios {
		out = append(out, scenarioSummary{
			ID:      scenarios[i].ID,
			Name:    scenarios[i].Name,
			Targets: len(scenarios[i].Targets),
			Active:  scenarios[i].ID == active,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": out,
		"active":    active,
	})
}

// handleGetScenario returns one scenario's full definition.
func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sc, err := s.scenarios.Get(id)
	if err != nil {
		if errors.Is(err, scenario.ErrUnknownScenario) {
			writeNotFound(w, "scenario not found: "+id)
			return
		}
		writeInternalError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// handleActiveScenario returns the currently active scenario ID.
func (s *Server) handleActiveScenario(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active": s.engine.ActiveScenario(),
	})
}

// handleActivateScenario requests a transition to the named scenario.
//
// The call blocks until the transition completes and returns the full
// step-by-step result. Partial activation still returns 200: the result
// body carries the per-step outcomes, and callers decide what a partial
// result means for them.
func (s *Server) handleActivateScenario(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := s.engine.Activate(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
