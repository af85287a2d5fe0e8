package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads device and room definitions from a YAML site file and
// returns a validated Registry. Other sections of the file (scenarios)
// are ignored here; the scenario package parses the same file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from config
	if err != nil {
		return nil, fmt.Errorf("reading site definitions: %w", err)
	}

	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("%w: parsing site definitions: %w", ErrInvalidDefinition, err)
	}

	return Load(defs)
}

// Load validates definitions and builds a Registry from them.
// Validation problems are collected and reported together so a broken
// site file can be fixed in one pass.
func Load(defs Definitions) (*Registry, error) {
	if problems := validate(defs); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(problems, "; "))
	}

	r := &Registry{
		devices: make(map[string]*Device, len(defs.Devices)),
		rooms:   make(map[string]*Room, len(defs.Rooms)),
	}
	for i := range defs.Devices {
		d := defs.Devices[i]
		r.devices[d.ID] = &d
		r.deviceOrder = append(r.deviceOrder, d.ID)
	}
	for i := range defs.Rooms {
		rm := defs.Rooms[i]
		r.rooms[rm.ID] = &rm
		r.roomOrder = append(r.roomOrder, rm.ID)
	}

	return r, nil
}

// validate checks structural invariants of the definitions:
// non-empty unique IDs, recognised cell kinds, sane numeric bounds, and
// rooms referencing only existing devices.
func validate(defs Definitions) []string {
	var problems []string

	deviceIDs := make(map[string]bool, len(defs.Devices))
	for i := range defs.Devices {
		d := &defs.Devices[i]
		if d.ID == "" {
			problems = append(problems, fmt.Sprintf("device %d: empty id", i))
			continue
		}
		if deviceIDs[d.ID] {
			problems = append(problems, fmt.Sprintf("device %q: duplicate id", d.ID))
			continue
		}
		deviceIDs[d.ID] = true

		if len(d.Cells) == 0 {
			problems = append(problems, fmt.Sprintf("device %q: no cells", d.ID))
		}
		problems = append(problems, validateCells(d)...)
	}

	roomIDs := make(map[string]bool, len(defs.Rooms))
	for i := range defs.Rooms {
		rm := &defs.Rooms[i]
		if rm.ID == "" {
			problems = append(problems, fmt.Sprintf("room %d: empty id", i))
			continue
		}
		if roomIDs[rm.ID] {
			problems = append(problems, fmt.Sprintf("room %q: duplicate id", rm.ID))
			continue
		}
		roomIDs[rm.ID] = true

		for _, deviceID := range rm.DeviceIDs {
			if !deviceIDs[deviceID] {
				problems = append(problems,
					fmt.Sprintf("room %q: references unknown device %q", rm.ID, deviceID))
			}
		}
	}

	return problems
}

func validateCells(d *Device) []string {
	var problems []string

	cellIDs := make(map[string]bool, len(d.Cells))
	for i := range d.Cells {
		c := &d.Cells[i]
		if c.ID == "" {
			problems = append(problems, fmt.Sprintf("device %q: cell %d has empty id", d.ID, i))
			continue
		}
		if cellIDs[c.ID] {
			problems = append(problems, fmt.Sprintf("device %q: duplicate cell id %q", d.ID, c.ID))
			continue
		}
		cellIDs[c.ID] = true

		switch c.Kind {
		case CellKindState:
			switch c.Value {
			case ValueKindBool, ValueKindText:
				if c.Min != nil || c.Max != nil {
					problems = append(problems,
						fmt.Sprintf("device %q cell %q: bounds only apply to number cells", d.ID, c.ID))
				}
			case ValueKindNumber:
				if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
					problems = append(problems,
						fmt.Sprintf("device %q cell %q: min %v greater than max %v", d.ID, c.ID, *c.Min, *c.Max))
				}
			default:
				problems = append(problems,
					fmt.Sprintf("device %q cell %q: state cell needs value kind bool, number or text", d.ID, c.ID))
			}
		case CellKindToggle, CellKindMomentary:
			if c.Value != "" {
				problems = append(problems,
					fmt.Sprintf("device %q cell %q: %s cells carry no value kind", d.ID, c.ID, c.Kind))
			}
		default:
			problems = append(problems,
				fmt.Sprintf("device %q cell %q: unrecognised kind %q", d.ID, c.ID, c.Kind))
		}

		if c.CooldownSeconds < 0 {
			problems = append(problems,
				fmt.Sprintf("device %q cell %q: negative cooldown", d.ID, c.ID))
		}
		if c.CooldownSeconds > 0 && !c.IsPulse() {
			problems = append(problems,
				fmt.Sprintf("device %q cell %q: cooldown only applies to pulse cells", d.ID, c.ID))
		}
	}

	return problems
}
