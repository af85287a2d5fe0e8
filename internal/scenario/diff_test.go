package scenario

import (
	"testing"

	"github.com/nerrad567/scenesync/internal/registry"
	"github.com/nerrad567/scenesync/internal/shadow"
)

// testDevices builds a registry with a hi-fi pair: amplifier (toggle
// power, text input, numeric volume) and CD player (toggle power,
// momentary next_track).
func testDevices(t *testing.T) *registry.Registry {
	t.Helper()

	min, max := 0.0, 100.0
	r, err := registry.Load(registry.Definitions{
		Devices: []registry.Device{
			{
				ID: "amp-1", Name: "Amplifier",
				Cells: []registry.Cell{
					{ID: "power", Kind: registry.CellKindToggle, CooldownSeconds: 10},
					{ID: "input", Kind: registry.CellKindState, Value: registry.ValueKindText},
					{ID: "volume", Kind: registry.CellKindState, Value: registry.ValueKindNumber, Min: &min, Max: &max},
				},
			},
			{
				ID: "cd-1", Name: "CD Player",
				Cells: []registry.Cell{
					{ID: "power", Kind: registry.CellKindToggle},
					{ID: "next_track", Kind: registry.CellKindMomentary},
				},
			},
		},
		Rooms: []registry.Room{
			{ID: "cinema", DeviceIDs: []string{"amp-1", "cd-1"}},
		},
	})
	if err != nil {
		t.Fatalf("building test registry: %v", err)
	}
	return r
}

func valuePtr(v shadow.Value) *shadow.Value { return &v }

// scenarioCD targets amp on, input cd, volume 30.
func scenarioCD() *Scenario {
	return &Scenario{
		ID: "listen-cd",
		Targets: []Target{
			{DeviceID: "amp-1", CellID: "power", Value: shadow.BoolValue(true)},
			{DeviceID: "amp-1", CellID: "input", Value: shadow.TextValue("cd")},
			{DeviceID: "amp-1", CellID: "volume", Value: shadow.NumberValue(30)},
		},
	}
}

// snapshotFor builds a shadow snapshot from device/cell/value triples.
func snapshotFor(entries ...struct {
	device, cell string
	value        shadow.Value
}) map[shadow.Key]shadow.Value {
	snapshot := make(map[shadow.Key]shadow.Value)
	for _, e := range entries {
		snapshot[shadow.Key{DeviceID: e.device, CellID: e.cell}] = e.value
	}
	return snapshot
}

func entry(device, cell string, value shadow.Value) struct {
	device, cell string
	value        shadow.Value
} {
	return struct {
		device, cell string
		value        shadow.Value
	}{device, cell, value}
}

func TestDiff_UnknownForcesActuation(t *testing.T) {
	engine := NewEngine(testDevices(t))

	// Fresh process: shadow entirely Unknown. Every targeted cell must
	// produce a step, including the toggle whose physical state might
	// already match.
	plan, err := engine.Diff(map[shadow.Key]shadow.Value{}, scenarioCD(), nil)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	if len(plan.Steps) != 3 {
		t.Fatalf("plan has %d steps, want 3 (all cells Unknown)", len(plan.Steps))
	}
	if plan.Steps[0].CellID != "power" || plan.Steps[0].CellKind != registry.CellKindToggle {
		t.Errorf("step 0 = %s/%s, want toggle pulse for amp power", plan.Steps[0].DeviceID, plan.Steps[0].CellID)
	}
}

func TestDiff_Idempotence(t *testing.T) {
	engine := NewEngine(testDevices(t))
	target := scenarioCD()

	// Shadow already matches the target exactly; re-activating the same
	// scenario must plan nothing.
	snapshot := snapshotFor(
		entry("amp-1", "power", shadow.BoolValue(true)),
		entry("amp-1", "input", shadow.TextValue("cd")),
		entry("amp-1", "volume", shadow.NumberValue(30)),
	)

	plan, err := engine.Diff(snapshot, target, target)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(plan.Steps) != 0 {
		t.Errorf("re-activation plan has %d steps, want 0: %+v", len(plan.Steps), plan.Steps)
	}
}

func TestDiff_Minimality(t *testing.T) {
	engine := NewEngine(testDevices(t))

	// Worked example: scenario A = {ampPower: on, input: "cd"},
	// scenario B = {ampPower: on, input: "phono"}, shadow = A's state.
	// activate(B) must plan [set input=phono] only.
	a := &Scenario{
		ID: "scenario-a",
		Targets: []Target{
			{DeviceID: "amp-1", CellID: "power", Value: shadow.BoolValue(true)},
			{DeviceID: "amp-1", CellID: "input", Value: shadow.TextValue("cd")},
		},
	}
	b := &Scenario{
		ID: "scenario-b",
		Targets: []Target{
			{DeviceID: "amp-1", CellID: "power", Value: shadow.BoolValue(true)},
			{DeviceID: "amp-1", CellID: "input", Value: shadow.TextValue("phono")},
		},
	}
	snapshot := snapshotFor(
		entry("amp-1", "power", shadow.BoolValue(true)),
		entry("amp-1", "input", shadow.TextValue("cd")),
	)

	plan, err := engine.Diff(snapshot, b, a)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	if len(plan.Steps) != 1 {
		t.Fatalf("plan has %d steps, want exactly 1: %+v", len(plan.Steps), plan.Steps)
	}
	step := plan.Steps[0]
	if step.CellID != "input" || step.Value == nil || !step.Value.Equal(shadow.TextValue("phono")) {
		t.Errorf("step = %+v, want input=phono", step)
	}
	if step.Kind != StepValueDiff || !step.StateDefining() {
		t.Errorf("step kind = %q, want state-defining value diff", step.Kind)
	}
}

func TestDiff_TogglePulseOnlyOnMismatch(t *testing.T) {
	engine := NewEngine(testDevices(t))
	target := &Scenario{
		ID: "amp-on",
		Targets: []Target{
			{DeviceID: "amp-1", CellID: "power", Value: shadow.BoolValue(true)},
		},
	}

	tests := []struct {
		name      string
		current   shadow.Value
		wantSteps int
	}{
		{name: "shadow off wants on", current: shadow.BoolValue(false), wantSteps: 1},
		{name: "shadow already on", current: shadow.BoolValue(true), wantSteps: 0},
		{name: "shadow unknown", current: shadow.Unknown(), wantSteps: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := snapshotFor(entry("amp-1", "power", tt.current))
			plan, err := engine.Diff(snapshot, target, nil)
			if err != nil {
				t.Fatalf("Diff() error = %v", err)
			}
			if len(plan.Steps) != tt.wantSteps {
				t.Errorf("plan has %d steps, want %d", len(plan.Steps), tt.wantSteps)
			}
		})
	}
}

func TestDiff_ShutdownBeforeDiffsBeforeStartup(t *testing.T) {
	engine := NewEngine(testDevices(t))

	outgoing := &Scenario{
		ID: "listen-cd",
		Targets: []Target{
			{DeviceID: "cd-1", CellID: "power", Value: shadow.BoolValue(true)},
		},
		ShutdownActions: []Action{
			{DeviceID: "cd-1", CellID: "power", Value: valuePtr(shadow.BoolValue(false))},
		},
	}
	incoming := &Scenario{
		ID: "listen-phono",
		Targets: []Target{
			{DeviceID: "amp-1", CellID: "input", Value: shadow.TextValue("phono")},
		},
		StartupActions: []Action{
			{DeviceID: "cd-1", CellID: "next_track"},
		},
	}
	snapshot := snapshotFor(
		entry("cd-1", "power", shadow.BoolValue(true)),
		entry("amp-1", "input", shadow.TextValue("cd")),
	)

	plan, err := engine.Diff(snapshot, incoming, outgoing)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	if len(plan.Steps) != 3 {
		t.Fatalf("plan has %d steps, want 3: %+v", len(plan.Steps), plan.Steps)
	}
	wantKinds := []StepKind{StepShutdownAction, StepValueDiff, StepStartupAction}
	for i, kind := range wantKinds {
		if plan.Steps[i].Kind != kind {
			t.Errorf("step %d kind = %q, want %q", i, plan.Steps[i].Kind, kind)
		}
	}
	if plan.PreviousID != "listen-cd" {
		t.Errorf("PreviousID = %q, want listen-cd", plan.PreviousID)
	}
}

func TestDiff_SameScenarioSkipsActionSequences(t *testing.T) {
	engine := NewEngine(testDevices(t))

	s := &Scenario{
		ID: "listen-cd",
		Targets: []Target{
			{DeviceID: "amp-1", CellID: "volume", Value: shadow.NumberValue(30)},
		},
		StartupActions: []Action{
			{DeviceID: "cd-1", CellID: "next_track"},
		},
		ShutdownActions: []Action{
			{DeviceID: "cd-1", CellID: "power", Value: valuePtr(shadow.BoolValue(false))},
		},
	}

	// Volume drifted (someone re-set shadow); re-activation repairs the
	// value but must not replay startup or shutdown sequences.
	snapshot := snapshotFor(entry("amp-1", "volume", shadow.NumberValue(55)))

	plan, err := engine.Diff(snapshot, s, s)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Kind != StepValueDiff {
		t.Fatalf("plan = %+v, want single value diff", plan.Steps)
	}
}

func TestDiff_OverlappingTargetsEmitNothing(t *testing.T) {
	engine := NewEngine(testDevices(t))

	// Outgoing and incoming both target amp power on; shadow already on.
	// No pulse may be emitted for the overlap (idempotence edge case).
	outgoing := &Scenario{
		ID: "scenario-a",
		Targets: []Target{
			{DeviceID: "amp-1", CellID: "power", Value: shadow.BoolValue(true)},
		},
	}
	incoming := &Scenario{
		ID: "scenario-b",
		Targets: []Target{
			{DeviceID: "amp-1", CellID: "power", Value: shadow.BoolValue(true)},
			{DeviceID: "amp-1", CellID: "input", Value: shadow.TextValue("phono")},
		},
	}
	snapshot := snapshotFor(
		entry("amp-1", "power", shadow.BoolValue(true)),
		entry("amp-1", "input", shadow.TextValue("phono")),
	)

	plan, err := engine.Diff(snapshot, incoming, outgoing)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(plan.Steps) != 0 {
		t.Errorf("plan has %d steps, want 0: %+v", len(plan.Steps), plan.Steps)
	}
}

func TestDiff_ConditionTravelsWithStep(t *testing.T) {
	engine := NewEngine(testDevices(t))

	incoming := &Scenario{
		ID: "listen-cd",
		Targets: []Target{
			{DeviceID: "amp-1", CellID: "input", Value: shadow.TextValue("cd")},
		},
		StartupActions: []Action{
			{
				DeviceID: "cd-1", CellID: "next_track",
				When: &Condition{DeviceID: "cd-1", CellID: "power", Equals: shadow.BoolValue(true)},
			},
		},
	}

	plan, err := engine.Diff(map[shadow.Key]shadow.Value{}, incoming, nil)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("plan has %d steps, want 2", len(plan.Steps))
	}

	startup := plan.Steps[1]
	if startup.When == nil {
		t.Fatal("startup step lost its condition")
	}
	if startup.When.CellID != "power" {
		t.Errorf("condition cell = %q, want power", startup.When.CellID)
	}
}

func TestConditionMet(t *testing.T) {
	cond := &Condition{DeviceID: "cd-1", CellID: "power", Equals: shadow.BoolValue(true)}

	if cond.Met(snapshotFor(entry("cd-1", "power", shadow.BoolValue(false)))) {
		t.Error("condition met against differing value")
	}
	if !cond.Met(snapshotFor(entry("cd-1", "power", shadow.BoolValue(true)))) {
		t.Error("condition not met against equal value")
	}
	// Unknown never satisfies an equality condition
	if cond.Met(map[shadow.Key]shadow.Value{}) {
		t.Error("condition met against Unknown shadow")
	}
}
