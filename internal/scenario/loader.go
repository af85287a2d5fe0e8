package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/scenesync/internal/registry"
	"github.com/nerrad567/scenesync/internal/shadow"
)

// UnmarshalYAML decodes a target, converting the loose YAML scalar into
// a typed shadow value.
func (t *Target) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Device string `yaml:"device"`
		Cell   string `yaml:"cell"`
		Value  any    `yaml:"value"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Value == nil {
		return fmt.Errorf("target %s/%s: missing value", raw.Device, raw.Cell)
	}

	value, err := decodeValue(raw.Value)
	if err != nil {
		return fmt.Errorf("target %s/%s: %w", raw.Device, raw.Cell, err)
	}

	t.DeviceID = raw.Device
	t.CellID = raw.Cell
	t.Value = value
	return nil
}

// UnmarshalYAML decodes an action with its optional value and condition.
func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Device string `yaml:"device"`
		Cell   string `yaml:"cell"`
		Value  any    `yaml:"value"`
		When   *struct {
			Device string `yaml:"device"`
			Cell   string `yaml:"cell"`
			Equals any    `yaml:"equals"`
		} `yaml:"when"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	a.DeviceID = raw.Device
	a.CellID = raw.Cell
	a.Value = nil
	a.When = nil

	if raw.Value != nil {
		value, err := decodeValue(raw.Value)
		if err != nil {
			return fmt.Errorf("action %s/%s: %w", raw.Device, raw.Cell, err)
		}
		a.Value = &value
	}

	if raw.When != nil {
		if raw.When.Equals == nil {
			return fmt.Errorf("action %s/%s: condition missing equals", raw.Device, raw.Cell)
		}
		equals, err := decodeValue(raw.When.Equals)
		if err != nil {
			return fmt.Errorf("action %s/%s condition: %w", raw.Device, raw.Cell, err)
		}
		a.When = &Condition{
			DeviceID: raw.When.Device,
			CellID:   raw.When.Cell,
			Equals:   equals,
		}
	}

	return nil
}

// LoadFile reads the scenarios section from the YAML site file and
// returns a Registry validated against the device registry. The file is
// the same one the device registry parses; other sections are ignored.
func LoadFile(path string, devices *registry.Registry) (*Registry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from config
	if err != nil {
		return nil, fmt.Errorf("reading site definitions: %w", err)
	}

	var defs struct {
		Scenarios []Scenario `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("%w: parsing scenarios: %w", ErrInvalidDefinition, err)
	}

	return Load(defs.Scenarios, devices)
}

// Load validates scenario definitions against the device registry and
// builds a Registry. All problems are collected and reported together.
func Load(scenarios []Scenario, devices *registry.Registry) (*Registry, error) {
	if problems := validate(scenarios, devices); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(problems, "; "))
	}

	r := &Registry{scenarios: make(map[string]*Scenario, len(scenarios))}
	for i := range scenarios {
		s := scenarios[i]
		r.scenarios[s.ID] = &s
		r.order = append(r.order, s.ID)
	}
	return r, nil
}

// validate checks every cell reference against the device registry and
// enforces the closed-variant rules: momentary cells never appear in
// targets, toggle targets are boolean, state targets match their cell's
// value kind and bounds.
func validate(scenarios []Scenario, devices *registry.Registry) []string {
	var problems []string

	ids := make(map[string]bool, len(scenarios))
	for i := range scenarios {
		s := &scenarios[i]
		if s.ID == "" {
			problems = append(problems, fmt.Sprintf("scenario %d: empty id", i))
			continue
		}
		if ids[s.ID] {
			problems = append(problems, fmt.Sprintf("scenario %q: duplicate id", s.ID))
			continue
		}
		ids[s.ID] = true

		problems = append(problems, validateTargets(s, devices)...)
		problems = append(problems, validateActions(s, "startup_actions", s.StartupActions, devices)...)
		problems = append(problems, validateActions(s, "shutdown_actions", s.ShutdownActions, devices)...)
	}

	return problems
}

func validateTargets(s *Scenario, devices *registry.Registry) []string {
	var problems []string

	seen := make(map[string]bool, len(s.Targets))
	for _, t := range s.Targets {
		cell, err := devices.ResolveCell(t.DeviceID, t.CellID)
		if err != nil {
			problems = append(problems,
				fmt.Sprintf("scenario %q: target %s/%s: %v", s.ID, t.DeviceID, t.CellID, err))
			continue
		}

		key := t.DeviceID + "/" + t.CellID
		if seen[key] {
			problems = append(problems,
				fmt.Sprintf("scenario %q: duplicate target %s", s.ID, key))
			continue
		}
		seen[key] = true

		switch cell.Kind {
		case registry.CellKindMomentary:
			// Momentary cells have no persisted state to target.
			problems = append(problems,
				fmt.Sprintf("scenario %q: target %s is a momentary cell", s.ID, key))
		case registry.CellKindToggle:
			if t.Value.Kind != shadow.KindBool {
				problems = append(problems,
					fmt.Sprintf("scenario %q: target %s: toggle cells take a boolean", s.ID, key))
			}
		case registry.CellKindState:
			if p := checkStateValue(cell, t.Value); p != "" {
				problems = append(problems,
					fmt.Sprintf("scenario %q: target %s: %s", s.ID, key, p))
			}
		}
	}

	return problems
}

func validateActions(s *Scenario, section string, actions []Action, devices *registry.Registry) []string {
	var problems []string

	for i, a := range actions {
		where := fmt.Sprintf("scenario %q: %s[%d] %s/%s", s.ID, section, i, a.DeviceID, a.CellID)

		cell, err := devices.ResolveCell(a.DeviceID, a.CellID)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", where, err))
			continue
		}

		switch cell.Kind {
		case registry.CellKindState:
			if a.Value == nil {
				problems = append(problems, fmt.Sprintf("%s: state cell action needs a value", where))
			} else if p := checkStateValue(cell, *a.Value); p != "" {
				problems = append(problems, fmt.Sprintf("%s: %s", where, p))
			}
		case registry.CellKindToggle:
			if a.Value != nil && a.Value.Kind != shadow.KindBool {
				problems = append(problems, fmt.Sprintf("%s: toggle cells take a boolean", where))
			}
		case registry.CellKindMomentary:
			if a.Value != nil {
				problems = append(problems, fmt.Sprintf("%s: momentary cells take no value", where))
			}
		}

		if a.When != nil {
			condCell, err := devices.ResolveCell(a.When.DeviceID, a.When.CellID)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: condition: %v", where, err))
			} else if !condCell.HasShadow() {
				problems = append(problems,
					fmt.Sprintf("%s: condition references momentary cell %s/%s",
						where, a.When.DeviceID, a.When.CellID))
			}
		}
	}

	return problems
}

// checkStateValue verifies a value against a state cell's schema.
// Returns an empty string when the value fits.
func checkStateValue(cell *registry.Cell, value shadow.Value) string {
	switch cell.Value {
	case registry.ValueKindBool:
		if value.Kind != shadow.KindBool {
			return "expected a boolean"
		}
	case registry.ValueKindText:
		if value.Kind != shadow.KindText {
			return "expected text"
		}
	case registry.ValueKindNumber:
		if value.Kind != shadow.KindNumber {
			return "expected a number"
		}
		if cell.Min != nil && value.Number < *cell.Min {
			return fmt.Sprintf("value %g below minimum %g", value.Number, *cell.Min)
		}
		if cell.Max != nil && value.Number > *cell.Max {
			return fmt.Sprintf("value %g above maximum %g", value.Number, *cell.Max)
		}
	}
	return ""
}
