package orchestrator

import (
	"context"
	"time"

	"github.com/nerrad567/scenesync/internal/scenario"
	"github.com/nerrad567/scenesync/internal/shadow"
)

// Command is one actuation handed to the command sink.
type Command struct {
	// ID is a unique command identifier, used by sinks that correlate
	// acknowledgements (the MQTT sink keys ack topics on it).
	ID string `json:"id"`

	DeviceID string `json:"device_id"`
	CellID   string `json:"cell_id"`

	// Pulse is true for toggle/momentary cells: the sink should fire
	// the actuator rather than write a value.
	Pulse bool `json:"pulse"`

	// Value is the value to write for state cells. For pulse commands
	// it is advisory (the value the engine believes the pulse reaches).
	Value *shadow.Value `json:"value,omitempty"`
}

// CommandSink dispatches commands to the outside world.
//
// Send is invoked once per planned step, sequentially, with a bounded
// context. An acknowledgement does not imply real-world effect; the
// engine's correctness is probabilistic by design. Implementations map
// failures onto ErrUnreachable / ErrRejected. Retry policy, if any,
// belongs to the sink, never to the engine.
type CommandSink interface {
	Send(ctx context.Context, cmd Command) error
}

// Outcome is the per-step result enumeration.
type Outcome string

const (
	// OutcomeApplied means the command was dispatched and the shadow
	// update committed.
	OutcomeApplied Outcome = "applied"

	// OutcomeSkippedLocked means the cell's debounce window rejected the
	// pulse. Expected and non-fatal.
	OutcomeSkippedLocked Outcome = "skipped_locked"

	// OutcomeSkippedCondition means the step's pre-condition was unmet
	// against shadow state at execution time.
	OutcomeSkippedCondition Outcome = "skipped_condition"

	// OutcomeFailed means dispatch or the write-through persistence
	// failed. Remaining steps still run.
	OutcomeFailed Outcome = "failed"
)

// StepResult is the recorded outcome of one plan step.
type StepResult struct {
	Step    scenario.Step `json:"step"`
	Outcome Outcome       `json:"outcome"`

	// Error carries the failure detail for OutcomeFailed.
	Error string `json:"error,omitempty"`

	// Persistence marks a failure as a persistence fault, distinct from
	// a dispatch failure: shadow state may be wrong after next restart.
	Persistence bool `json:"persistence,omitempty"`

	// LockRemaining is the cooldown left for OutcomeSkippedLocked.
	LockRemaining time.Duration `json:"lock_remaining,omitempty"`
}

// Status summarises a whole activation.
type Status string

const (
	// StatusComplete means every step applied or was legitimately
	// skipped.
	StatusComplete Status = "complete"

	// StatusPartial means at least one step failed. Partial activation
	// is an accepted, reported outcome, not a fatal error.
	StatusPartial Status = "partial"
)

// Kind distinguishes the two transition operations.
type Kind string

const (
	KindActivate Kind = "activate"
	KindShutdown Kind = "shutdown"
)

// ActivationResult enumerates what one transition actually did.
type ActivationResult struct {
	ID string `json:"id"`

	Kind Kind `json:"kind"`

	// ScenarioID is set for activations, RoomID for room shutdowns.
	ScenarioID string `json:"scenario_id,omitempty"`
	RoomID     string `json:"room_id,omitempty"`

	// PreviousID is the scenario that was active when the transition
	// started, if any.
	PreviousID string `json:"previous_id,omitempty"`

	Steps []StepResult `json:"steps"`

	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`

	// Switched is true when the active-scenario identifier was
	// persisted. It stays false if any state-defining diff failed.
	Switched bool `json:"switched"`

	// PersistenceFault is true when any step or the active-scenario
	// write hit a persistence error. Surfaced distinctly because it
	// implies shadow state may be wrong on next restart.
	PersistenceFault bool `json:"persistence_fault,omitempty"`

	Status Status `json:"status"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the wall time the transition took.
func (r *ActivationResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// tally recomputes the counters and status from the step results.
func (r *ActivationResult) tally() {
	r.Applied, r.Skipped, r.Failed = 0, 0, 0
	for i := range r.Steps {
		switch r.Steps[i].Outcome {
		case OutcomeApplied:
			r.Applied++
		case OutcomeSkippedLocked, OutcomeSkippedCondition:
			r.Skipped++
		case OutcomeFailed:
			r.Failed++
			if r.Steps[i].Persistence {
				r.PersistenceFault = true
			}
		}
	}

	r.Status = StatusComplete
	if r.Failed > 0 {
		r.Status = StatusPartial
	}
}
