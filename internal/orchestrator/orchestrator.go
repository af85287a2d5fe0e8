package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/scenesync/internal/debounce"
	"github.com/nerrad567/scenesync/internal/registry"
	"github.com/nerrad567/scenesync/internal/scenario"
	"github.com/nerrad567/scenesync/internal/shadow"
)

// Logger defines the logging interface used by the Orchestrator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broadcaster pushes transition events to connected clients.
// The websocket hub satisfies this; nil is fine.
type Broadcaster interface {
	BroadcastActivation(result *ActivationResult)
}

// Telemetry records actuation metrics. The influxdb client satisfies
// this; nil is fine (telemetry is best-effort by design).
type Telemetry interface {
	WriteActuation(deviceID, cellID, outcome string, latency time.Duration)
	WriteActivation(kind, scenarioID, roomID string, applied, skipped, failed int, elapsed time.Duration)
	WriteLockRejection(deviceID, cellID string, remaining time.Duration)
}

// Config tunes the orchestrator's execution behaviour.
type Config struct {
	// StepTimeout bounds each individual sink dispatch.
	StepTimeout time.Duration

	// QueueSize caps pending activation requests.
	QueueSize int
}

// Orchestrator executes transition plans against the real world.
//
// It is the single owner of shadow-state and lock-manager mutations: all
// transitions are serialised through one worker goroutine consuming a
// request queue, so no two activations ever interleave and toggle
// shadows cannot suffer lost updates. Callers block on a reply channel
// for their result.
type Orchestrator struct {
	devices   *registry.Registry
	scenarios *scenario.Registry
	engine    *scenario.Engine
	store     *shadow.Store
	locks     *debounce.Manager
	sink      CommandSink
	appState  AppStateRepository
	history   ActivationRepository
	cfg       Config

	logger      Logger
	telemetry   Telemetry
	broadcaster Broadcaster

	// active is the in-memory active scenario ID, loaded from the
	// repository at Start. Only the worker goroutine mutates it.
	active string

	requests chan request
	running  bool
	mu       sync.Mutex
	done     chan struct{}
}

// request is one queued transition.
type request struct {
	kind  Kind
	id    string // scenario ID or room ID
	ctx   context.Context
	reply chan reply
}

type reply struct {
	result *ActivationResult
	err    error
}

// New creates an orchestrator. sink is required; history may be nil to
// skip recording.
func New(
	devices *registry.Registry,
	scenarios *scenario.Registry,
	store *shadow.Store,
	locks *debounce.Manager,
	sink CommandSink,
	appState AppStateRepository,
	history ActivationRepository,
	cfg Config,
) *Orchestrator {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}

	return &Orchestrator{
		devices:   devices,
		scenarios: scenarios,
		engine:    scenario.NewEngine(devices),
		store:     store,
		locks:     locks,
		sink:      sink,
		appState:  appState,
		history:   history,
		cfg:       cfg,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.logger = logger
}

// SetTelemetry sets the telemetry recorder.
func (o *Orchestrator) SetTelemetry(t Telemetry) {
	o.telemetry = t
}

// SetBroadcaster sets the event broadcaster.
func (o *Orchestrator) SetBroadcaster(b Broadcaster) {
	o.broadcaster = b
}

// Start restores the active scenario and launches the worker.
// The worker runs until ctx is cancelled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return nil
	}

	active, err := o.appState.LoadActiveScenario(ctx)
	if err != nil {
		return fmt.Errorf("restoring active scenario: %w", err)
	}
	// A stale ID pointing at a scenario removed from the site file is
	// treated as no active scenario, not an error.
	if active != "" {
		if _, err := o.scenarios.Get(active); err != nil {
			o.logger.Warn("persisted active scenario no longer defined", "scenario_id", active)
			active = ""
		}
	}
	o.active = active

	o.requests = make(chan request, o.cfg.QueueSize)
	o.done = make(chan struct{})
	o.running = true

	go o.worker(ctx)

	o.logger.Info("orchestrator started",
		"active_scenario", active,
		"queue_size", o.cfg.QueueSize,
		"step_timeout", o.cfg.StepTimeout,
	)
	return nil
}

// Stop shuts the worker down after the in-flight transition finishes.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	close(o.requests)
	done := o.done
	o.mu.Unlock()

	<-done
	o.logger.Info("orchestrator stopped")
}

// ActiveScenario returns the current active scenario ID ("" if none).
func (o *Orchestrator) ActiveScenario() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Activate requests a transition to the given scenario and blocks until
// it completes or ctx is cancelled.
//
// Unknown scenarios are rejected synchronously with ErrUnknownScenario.
// Step-level failures never surface as an error: they are enumerated in
// the returned ActivationResult.
func (o *Orchestrator) Activate(ctx context.Context, scenarioID string) (*ActivationResult, error) {
	if _, err := o.scenarios.Get(scenarioID); err != nil {
		return nil, err
	}
	return o.enqueue(ctx, request{kind: KindActivate, id: scenarioID})
}

// ShutdownRoom drives every device in the room to its off state: state
// boolean cells to false, toggles with shadow on to off. Cells whose
// shadow is Unknown are left alone (pulsing them might switch them on),
// as are momentary and non-boolean state cells.
func (o *Orchestrator) ShutdownRoom(ctx context.Context, roomID string) (*ActivationResult, error) {
	if _, err := o.devices.Room(roomID); err != nil {
		return nil, err
	}
	return o.enqueue(ctx, request{kind: KindShutdown, id: roomID})
}

func (o *Orchestrator) enqueue(ctx context.Context, req request) (*ActivationResult, error) {
	req.ctx = ctx
	req.reply = make(chan reply, 1)

	// The send happens under the lock so Stop cannot close the channel
	// between the running check and the enqueue.
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return nil, ErrNotRunning
	}
	select {
	case o.requests <- req:
		o.mu.Unlock()
	default:
		o.mu.Unlock()
		return nil, ErrQueueFull
	}

	select {
	case rep := <-req.reply:
		return rep.result, rep.err
	case <-ctx.Done():
		// The worker will still process the request; the caller just
		// stopped waiting for the answer.
		return nil, ctx.Err()
	}
}

// worker consumes requests strictly one at a time.
func (o *Orchestrator) worker(ctx context.Context) {
	defer close(o.done)

	for {
		select {
		case <-ctx.Done():
			o.mu.Lock()
			o.running = false
			o.mu.Unlock()
			return
		case req, ok := <-o.requests:
			if !ok {
				return
			}
			result, err := o.process(req)
			req.reply <- reply{result: result, err: err}
		}
	}
}

// process executes one queued transition.
func (o *Orchestrator) process(req request) (*ActivationResult, error) {
	switch req.kind {
	case KindActivate:
		return o.runActivation(req.ctx, req.id)
	case KindShutdown:
		return o.runRoomShutdown(req.ctx, req.id)
	default:
		return nil, fmt.Errorf("orchestrator: unknown request kind %q", req.kind)
	}
}

// runActivation plans and executes a scenario transition.
func (o *Orchestrator) runActivation(ctx context.Context, scenarioID string) (*ActivationResult, error) {
	target, err := o.scenarios.Get(scenarioID)
	if err != nil {
		return nil, err
	}

	var outgoing *scenario.Scenario
	if o.active != "" && o.active != scenarioID {
		// An outgoing scenario that vanished in a reload contributes no
		// shutdown actions; the diff still runs.
		if s, err := o.scenarios.Get(o.active); err == nil {
			outgoing = s
		}
	} else if o.active == scenarioID {
		outgoing = target
	}

	plan, err := o.engine.Diff(o.store.Snapshot(), target, outgoing)
	if err != nil {
		return nil, err
	}

	result := &ActivationResult{
		ID:         uuid.New().String(),
		Kind:       KindActivate,
		ScenarioID: scenarioID,
		PreviousID: plan.PreviousID,
		StartedAt:  time.Now().UTC(),
	}

	o.logger.Info("activation started",
		"activation_id", result.ID,
		"scenario_id", scenarioID,
		"previous_id", plan.PreviousID,
		"steps", len(plan.Steps),
	)

	o.executeSteps(ctx, result, plan.Steps)
	o.finishActivation(ctx, result, scenarioID)
	return result, nil
}

// runRoomShutdown builds and executes the bulk off plan for a room.
func (o *Orchestrator) runRoomShutdown(ctx context.Context, roomID string) (*ActivationResult, error) {
	devices, err := o.devices.DevicesInRoom(roomID)
	if err != nil {
		return nil, err
	}

	steps := o.shutdownSteps(devices)

	result := &ActivationResult{
		ID:        uuid.New().String(),
		Kind:      KindShutdown,
		RoomID:    roomID,
		StartedAt: time.Now().UTC(),
	}

	o.logger.Info("room shutdown started",
		"activation_id", result.ID,
		"room_id", roomID,
		"steps", len(steps),
	)

	o.executeSteps(ctx, result, steps)
	result.FinishedAt = time.Now().UTC()
	result.tally()

	o.record(ctx, result)
	o.notify(result)
	return result, nil
}

// shutdownSteps computes the off steps for a set of devices.
func (o *Orchestrator) shutdownSteps(devices []registry.Device) []scenario.Step {
	off := shadow.BoolValue(false)
	var steps []scenario.Step

	for i := range devices {
		d := &devices[i]
		for j := range d.Cells {
			c := &d.Cells[j]
			current := o.store.Get(d.ID, c.ID)

			var want bool
			switch c.Kind {
			case registry.CellKindState:
				want = c.Value == registry.ValueKindBool && !current.Equal(off) && !current.IsUnknown()
			case registry.CellKindToggle:
				want = current.Equal(shadow.BoolValue(true))
			case registry.CellKindMomentary:
				// Nothing to shut down.
			}
			if !want {
				continue
			}

			value := off
			steps = append(steps, scenario.Step{
				Kind:     scenario.StepValueDiff,
				DeviceID: d.ID,
				CellID:   c.ID,
				CellKind: c.Kind,
				Cooldown: c.CooldownSeconds,
				Value:    &value,
			})
		}
	}

	return steps
}

// finishActivation persists the active-scenario switch and records the
// result. The switch is blocked by failed state-defining diffs only:
// startup/shutdown action failures are side effects, not membership in
// the scenario state.
func (o *Orchestrator) finishActivation(ctx context.Context, result *ActivationResult, scenarioID string) {
	result.FinishedAt = time.Now().UTC()
	result.tally()

	blocked := false
	for i := range result.Steps {
		if result.Steps[i].Outcome == OutcomeFailed && result.Steps[i].Step.StateDefining() {
			blocked = true
			break
		}
	}

	if !blocked {
		if err := o.appState.SaveActiveScenario(ctx, scenarioID); err != nil {
			o.logger.Error("persisting active scenario failed",
				"activation_id", result.ID,
				"scenario_id", scenarioID,
				"error", err,
			)
			result.PersistenceFault = true
			result.Status = StatusPartial
		} else {
			o.mu.Lock()
			o.active = scenarioID
			o.mu.Unlock()
			result.Switched = true
		}
	}

	o.logger.Info("activation finished",
		"activation_id", result.ID,
		"scenario_id", scenarioID,
		"status", result.Status,
		"applied", result.Applied,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"switched", result.Switched,
	)

	o.record(ctx, result)
	o.notify(result)
}

// executeSteps runs the plan sequentially, recording every outcome.
// A failed step never aborts the remainder: most steps are independent
// devices, and partial activation is a reported outcome.
func (o *Orchestrator) executeSteps(ctx context.Context, result *ActivationResult, steps []scenario.Step) {
	for i := range steps {
		result.Steps = append(result.Steps, o.executeStep(ctx, steps[i]))
	}
	o.locks.Prune()
}

// executeStep runs one step: condition gate, debounce gate, dispatch,
// shadow write-through.
func (o *Orchestrator) executeStep(ctx context.Context, step scenario.Step) StepResult {
	res := StepResult{Step: step}

	// Conditions are evaluated against shadow state as it is now, after
	// earlier steps in this same plan have run.
	if step.When != nil && !step.When.Met(o.store.Snapshot()) {
		res.Outcome = OutcomeSkippedCondition
		o.observe(step, res, 0)
		return res
	}

	pulse := step.CellKind == registry.CellKindToggle || step.CellKind == registry.CellKindMomentary

	if pulse {
		cooldown := time.Duration(step.Cooldown) * time.Second
		if err := o.locks.TryAcquire(step.DeviceID, step.CellID, cooldown); err != nil {
			var lockErr *debounce.LockedError
			if errors.As(err, &lockErr) {
				res.Outcome = OutcomeSkippedLocked
				res.LockRemaining = lockErr.Remaining
				if o.telemetry != nil {
					o.telemetry.WriteLockRejection(step.DeviceID, step.CellID, lockErr.Remaining)
				}
				o.observe(step, res, 0)
				return res
			}
			res.Outcome = OutcomeFailed
			res.Error = err.Error()
			o.observe(step, res, 0)
			return res
		}
	}

	cmd := Command{
		ID:       uuid.New().String(),
		DeviceID: step.DeviceID,
		CellID:   step.CellID,
		Pulse:    pulse,
		Value:    step.Value,
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, o.cfg.StepTimeout)
	started := time.Now()
	err := o.sink.Send(dispatchCtx, cmd)
	latency := time.Since(started)
	cancel()

	if err != nil {
		// The pulse never reached the device; hand the window back so a
		// caller-level retry isn't debounced into a no-op.
		if pulse {
			o.locks.Release(step.DeviceID, step.CellID)
		}
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		o.logger.Warn("step dispatch failed",
			"device_id", step.DeviceID,
			"cell_id", step.CellID,
			"error", err,
		)
		o.observe(step, res, latency)
		return res
	}

	if err := o.updateShadow(ctx, step); err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		res.Persistence = true
		o.observe(step, res, latency)
		return res
	}

	res.Outcome = OutcomeApplied
	o.observe(step, res, latency)
	return res
}

// updateShadow records the engine's new belief after a successful
// dispatch. The write-through must commit before the step counts as
// applied.
func (o *Orchestrator) updateShadow(ctx context.Context, step scenario.Step) error {
	switch step.CellKind {
	case registry.CellKindMomentary:
		// Fire-and-forget; no shadow to track.
		return nil
	case registry.CellKindToggle:
		if step.Value != nil {
			return o.store.Set(ctx, step.DeviceID, step.CellID, *step.Value)
		}
		// A bare toggle pulse flips the known shadow. If the shadow is
		// Unknown the phase stays unknowable, so it remains Unknown.
		current := o.store.Get(step.DeviceID, step.CellID)
		if current.IsUnknown() {
			return nil
		}
		return o.store.Set(ctx, step.DeviceID, step.CellID, shadow.BoolValue(!current.Bool))
	default:
		if step.Value == nil {
			return fmt.Errorf("state step %s/%s has no value", step.DeviceID, step.CellID)
		}
		return o.store.Set(ctx, step.DeviceID, step.CellID, *step.Value)
	}
}

// observe emits per-step telemetry.
func (o *Orchestrator) observe(step scenario.Step, res StepResult, latency time.Duration) {
	if o.telemetry == nil {
		return
	}
	o.telemetry.WriteActuation(step.DeviceID, step.CellID, string(res.Outcome), latency)
}

// record persists the activation history; failures are logged, never
// surfaced, because history is diagnostics rather than state.
func (o *Orchestrator) record(ctx context.Context, result *ActivationResult) {
	if o.history == nil {
		return
	}
	if err := o.history.Record(ctx, result); err != nil {
		o.logger.Error("recording activation failed",
			"activation_id", result.ID,
			"error", err,
		)
	}

	if o.telemetry != nil {
		o.telemetry.WriteActivation(
			string(result.Kind),
			result.ScenarioID,
			result.RoomID,
			result.Applied,
			result.Skipped,
			result.Failed,
			result.Duration(),
		)
	}
}

// notify pushes the result to connected clients.
func (o *Orchestrator) notify(result *ActivationResult) {
	if o.broadcaster != nil {
		o.broadcaster.BroadcastActivation(result)
	}
}
