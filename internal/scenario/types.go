package scenario

import (
	"fmt"

	"github.com/nerrad567/scenesync/internal/shadow"
)

// Scenario is a named target configuration of device cell values plus
// ordered startup/shutdown action sequences.
//
// Scenarios are immutable value objects reloaded from configuration;
// which scenario is *active* is process state owned by the orchestrator,
// not part of the definition.
type Scenario struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`

	// Targets maps cells to desired values, in declaration order.
	// Order matters: the diff engine emits value steps in this order.
	Targets []Target `yaml:"targets" json:"targets"`

	// StartupActions run, in order, when transitioning into this
	// scenario from a different one.
	StartupActions []Action `yaml:"startup_actions,omitempty" json:"startup_actions,omitempty"`

	// ShutdownActions run, in order, when transitioning away from this
	// scenario, ahead of the incoming scenario's value diffs.
	ShutdownActions []Action `yaml:"shutdown_actions,omitempty" json:"shutdown_actions,omitempty"`
}

// Target is a desired value for a single cell.
// Valid for state cells and toggle cells; momentary cells carry no state
// and may only appear in action sequences.
type Target struct {
	DeviceID string       `json:"device_id"`
	CellID   string       `json:"cell_id"`
	Value    shadow.Value `json:"value"`
}

// Action is one explicit actuation step in a startup or shutdown
// sequence: pulse or set a cell, optionally gated by a pre-condition.
type Action struct {
	DeviceID string `json:"device_id"`
	CellID   string `json:"cell_id"`

	// Value is required for state cells, optional for toggle cells
	// (absent means "just pulse"), and absent for momentary cells.
	Value *shadow.Value `json:"value,omitempty"`

	// When gates the action against current shadow state. An unmet
	// condition skips the step; it never aborts the plan.
	When *Condition `json:"when,omitempty"`
}

// Condition is a boolean predicate over current shadow state.
type Condition struct {
	DeviceID string       `json:"device_id"`
	CellID   string       `json:"cell_id"`
	Equals   shadow.Value `json:"equals"`
}

// Met evaluates the condition against a shadow snapshot.
// Unknown shadow state never satisfies an equality condition.
func (c *Condition) Met(snapshot map[shadow.Key]shadow.Value) bool {
	current := snapshot[shadow.Key{DeviceID: c.DeviceID, CellID: c.CellID}]
	return current.Equal(c.Equals)
}

// DeepCopy creates an independent copy of the Scenario.
func (s *Scenario) DeepCopy() *Scenario {
	if s == nil {
		return nil
	}

	cpy := *s
	if s.Targets != nil {
		cpy.Targets = make([]Target, len(s.Targets))
		copy(cpy.Targets, s.Targets)
	}
	cpy.StartupActions = copyActions(s.StartupActions)
	cpy.ShutdownActions = copyActions(s.ShutdownActions)
	return &cpy
}

func copyActions(actions []Action) []Action {
	if actions == nil {
		return nil
	}
	cpy := make([]Action, len(actions))
	copy(cpy, actions)
	for i := range cpy {
		if actions[i].Value != nil {
			v := *actions[i].Value
			cpy[i].Value = &v
		}
		if actions[i].When != nil {
			w := *actions[i].When
			cpy[i].When = &w
		}
	}
	return cpy
}

// decodeValue converts a YAML scalar into a shadow value.
// Booleans, numbers and strings map onto the three value kinds.
func decodeValue(raw any) (shadow.Value, error) {
	switch v := raw.(type) {
	case bool:
		return shadow.BoolValue(v), nil
	case int:
		return shadow.NumberValue(float64(v)), nil
	case int64:
		return shadow.NumberValue(float64(v)), nil
	case float64:
		return shadow.NumberValue(v), nil
	case string:
		return shadow.TextValue(v), nil
	default:
		return shadow.Unknown(), fmt.Errorf("unsupported value %v (%T)", raw, raw)
	}
}
