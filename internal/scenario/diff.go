package scenario

import (
	"fmt"

	"github.com/nerrad567/scenesync/internal/registry"
	"github.com/nerrad567/scenesync/internal/shadow"
)

// StepKind classifies where a plan step came from.
type StepKind string

const (
	// StepShutdownAction is an explicit action from the outgoing
	// scenario's shutdown sequence.
	StepShutdownAction StepKind = "shutdown_action"

	// StepValueDiff drives a cell from its shadow value to the target
	// scenario's value. These steps are state-defining: their failures
	// block the active-scenario switch.
	StepValueDiff StepKind = "value_diff"

	// StepStartupAction is an explicit action from the incoming
	// scenario's startup sequence.
	StepStartupAction StepKind = "startup_action"
)

// Step is one planned actuation.
type Step struct {
	Kind     StepKind `json:"kind"`
	DeviceID string   `json:"device_id"`
	CellID   string   `json:"cell_id"`

	// CellKind is resolved from the registry at plan time so the
	// executor doesn't re-resolve per step.
	CellKind registry.CellKind `json:"cell_kind"`

	// Cooldown is the cell's debounce override in seconds (0 = default).
	// Only meaningful for pulse cells.
	Cooldown int `json:"cooldown,omitempty"`

	// Value is the shadow value to record after a successful dispatch.
	// Nil for bare pulses (momentary cells, valueless toggle actions).
	Value *shadow.Value `json:"value,omitempty"`

	// When gates the step against shadow state at execution time.
	// Only set for action steps.
	When *Condition `json:"when,omitempty"`
}

// StateDefining reports whether a failure of this step must block
// persisting the active-scenario switch. Value diffs define membership
// in the scenario state; startup/shutdown actions are side-effect
// sequences and do not.
func (s *Step) StateDefining() bool {
	return s.Kind == StepValueDiff
}

// Plan is the ordered actuation list for one transition.
// Order is deterministic and semantically load-bearing: shutdown steps
// of the outgoing scenario, then value diffs in target declaration
// order, then startup steps of the incoming scenario.
type Plan struct {
	ScenarioID string `json:"scenario_id"`
	PreviousID string `json:"previous_id,omitempty"`
	Steps      []Step `json:"steps"`
}

// Engine computes minimal actuation plans against shadow state.
type Engine struct {
	devices *registry.Registry
}

// NewEngine creates a diff engine over the device registry.
func NewEngine(devices *registry.Registry) *Engine {
	return &Engine{devices: devices}
}

// Diff computes the plan that moves the plant from the shadow snapshot
// to the target scenario.
//
// outgoing is the currently active scenario, or nil if none. When the
// target is already active, shutdown and startup sections are omitted
// and only residual value diffs remain (re-running a satisfied scenario
// yields an empty plan, making caller-level retries safe).
func (e *Engine) Diff(snapshot map[shadow.Key]shadow.Value, target *Scenario, outgoing *Scenario) (*Plan, error) {
	plan := &Plan{ScenarioID: target.ID}
	transition := outgoing == nil || outgoing.ID != target.ID

	if outgoing != nil {
		plan.PreviousID = outgoing.ID
		if transition {
			steps, err := e.actionSteps(StepShutdownAction, outgoing.ShutdownActions)
			if err != nil {
				return nil, err
			}
			plan.Steps = append(plan.Steps, steps...)
		}
	}

	diffSteps, err := e.valueDiffSteps(snapshot, target)
	if err != nil {
		return nil, err
	}
	plan.Steps = append(plan.Steps, diffSteps...)

	if transition {
		steps, err := e.actionSteps(StepStartupAction, target.StartupActions)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, steps...)
	}

	return plan, nil
}

// valueDiffSteps emits one step per target cell whose shadow value
// differs from the desired value, in declaration order.
func (e *Engine) valueDiffSteps(snapshot map[shadow.Key]shadow.Value, target *Scenario) ([]Step, error) {
	var steps []Step

	for i := range target.Targets {
		t := &target.Targets[i]
		cell, err := e.devices.ResolveCell(t.DeviceID, t.CellID)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", target.ID, err)
		}

		current := snapshot[shadow.Key{DeviceID: t.DeviceID, CellID: t.CellID}]

		// Unknown never equals anything, so a never-actuated cell always
		// produces a step: the only way to reach a known state is to
		// command one.
		if current.Equal(t.Value) {
			continue
		}

		value := t.Value
		steps = append(steps, Step{
			Kind:     StepValueDiff,
			DeviceID: t.DeviceID,
			CellID:   t.CellID,
			CellKind: cell.Kind,
			Cooldown: cell.CooldownSeconds,
			Value:    &value,
		})
	}

	return steps, nil
}

// actionSteps converts an action sequence into plan steps, preserving
// declared order. Conditions travel with the step and are evaluated at
// execution time against then-current shadow state.
func (e *Engine) actionSteps(kind StepKind, actions []Action) ([]Step, error) {
	var steps []Step

	for i := range actions {
		a := &actions[i]
		cell, err := e.devices.ResolveCell(a.DeviceID, a.CellID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}

		step := Step{
			Kind:     kind,
			DeviceID: a.DeviceID,
			CellID:   a.CellID,
			CellKind: cell.Kind,
			Cooldown: cell.CooldownSeconds,
		}
		if a.Value != nil {
			v := *a.Value
			step.Value = &v
		}
		if a.When != nil {
			w := *a.When
			step.When = &w
		}
		steps = append(steps, step)
	}

	return steps, nil
}
