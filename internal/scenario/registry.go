package scenario

import (
	"fmt"
	"sync"
)

// Registry holds the loaded scenario definitions.
// Immutable once loaded; Reload swaps the whole set atomically.
// All methods are thread-safe and return deep copies.
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]*Scenario
	order     []string
}

// Get retrieves a scenario by ID.
// Returns ErrUnknownScenario if it does not exist.
func (r *Registry) Get(scenarioID string) (*Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scenarios[scenarioID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, scenarioID)
	}
	return s.DeepCopy(), nil
}

// List returns all scenarios in declaration order.
func (r *Registry) List() []Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scenarios := make([]Scenario, 0, len(r.order))
	for _, id := range r.order {
		scenarios = append(scenarios, *r.scenarios[id].DeepCopy())
	}
	return scenarios
}

// Len returns the number of loaded scenarios.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scenarios)
}

// ReplaceFrom swaps this registry's contents with another's.
// Used for reloads: validate into a fresh registry first, then swap, so
// a broken file never clobbers a running set.
func (r *Registry) ReplaceFrom(fresh *Registry) {
	fresh.mu.RLock()
	scenarios := fresh.scenarios
	order := fresh.order
	fresh.mu.RUnlock()

	r.mu.Lock()
	r.scenarios = scenarios
	r.order = order
	r.mu.Unlock()
}
