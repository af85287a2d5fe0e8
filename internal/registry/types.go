package registry

// CellKind classifies how a device cell can be driven.
//
// The set is closed: every cell is exactly one of these, validated at load
// time, so downstream code can switch exhaustively instead of probing
// fields at runtime.
type CellKind string

const (
	// CellKindState is a directly readable/writable value. The shadow state
	// equals the last commanded value and is assumed authoritative once
	// commanded.
	CellKindState CellKind = "state"

	// CellKindToggle is a stateless pulse actuator that flips an implicit
	// boolean each pulse. The engine tracks a shadow boolean for it; the
	// shadow is the only source of truth for "is this on".
	CellKindToggle CellKind = "toggle"

	// CellKindMomentary is a fire-and-forget pulse with no shadow state,
	// e.g. "next track". Only reachable via explicit action sequences.
	CellKindMomentary CellKind = "momentary"
)

// ValueKind is the value type carried by a state cell.
type ValueKind string

const (
	ValueKindBool   ValueKind = "bool"
	ValueKindNumber ValueKind = "number"
	ValueKindText   ValueKind = "text"
)

// Cell is a single controllable point on a device.
type Cell struct {
	ID   string   `yaml:"id" json:"id"`
	Name string   `yaml:"name" json:"name"`
	Kind CellKind `yaml:"kind" json:"kind"`

	// Value describes the carried type for state cells. Toggle cells are
	// implicitly bool; momentary cells carry no value.
	Value ValueKind `yaml:"value,omitempty" json:"value,omitempty"`

	// Min and Max bound number cells. Both nil means unbounded.
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`

	// CooldownSeconds overrides the engine default debounce window for
	// pulse cells (toggle/momentary). Zero means use the default.
	CooldownSeconds int `yaml:"cooldown_seconds,omitempty" json:"cooldown_seconds,omitempty"`
}

// IsPulse reports whether the cell is a stateless pulse actuator and
// therefore subject to the debounce lock.
func (c *Cell) IsPulse() bool {
	return c.Kind == CellKindToggle || c.Kind == CellKindMomentary
}

// HasShadow reports whether the engine tracks shadow state for this cell.
// Momentary cells have none.
func (c *Cell) HasShadow() bool {
	return c.Kind == CellKindState || c.Kind == CellKindToggle
}

// Device is a controllable entity with an ordered set of cells.
// Devices are immutable after load; a reload is a full replace.
type Device struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Cells []Cell `yaml:"cells" json:"cells"`
}

// Cell returns the cell with the given ID, or nil if absent.
func (d *Device) Cell(cellID string) *Cell {
	for i := range d.Cells {
		if d.Cells[i].ID == cellID {
			return &d.Cells[i]
		}
	}
	return nil
}

// DeepCopy creates an independent copy of the Device so cached entries
// cannot be mutated through returned values.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	if d.Cells != nil {
		cpy.Cells = make([]Cell, len(d.Cells))
		copy(cpy.Cells, d.Cells)
		for i := range cpy.Cells {
			cpy.Cells[i].Min = copyFloat(d.Cells[i].Min)
			cpy.Cells[i].Max = copyFloat(d.Cells[i].Max)
		}
	}
	return &cpy
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Room groups devices for validation and bulk operations.
type Room struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`

	// DeviceIDs is the ordered list of member devices.
	DeviceIDs []string `yaml:"devices" json:"devices"`
}

// DeepCopy creates an independent copy of the Room.
func (r *Room) DeepCopy() *Room {
	if r == nil {
		return nil
	}

	cpy := *r
	if r.DeviceIDs != nil {
		cpy.DeviceIDs = make([]string, len(r.DeviceIDs))
		copy(cpy.DeviceIDs, r.DeviceIDs)
	}
	return &cpy
}

// Definitions is the device/room section of the site definitions file.
type Definitions struct {
	Devices []Device `yaml:"devices"`
	Rooms   []Room   `yaml:"rooms"`
}
