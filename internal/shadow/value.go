package shadow

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValueKind discriminates the logical value variants.
type ValueKind string

const (
	// KindUnknown means the cell has never been actuated by this engine
	// and its real state is unknowable. Distinct from false/0/"": diffing
	// treats Unknown as always-differing from any target, forcing at
	// least one actuation the first time a cell is touched after startup.
	KindUnknown ValueKind = "unknown"

	KindBool   ValueKind = "bool"
	KindNumber ValueKind = "number"
	KindText   ValueKind = "text"
)

// Value is the engine's belief about a cell's current logical value.
// The zero value is Unknown.
type Value struct {
	Kind   ValueKind `json:"kind"`
	Bool   bool      `json:"bool,omitempty"`
	Number float64   `json:"number,omitempty"`
	Text   string    `json:"text,omitempty"`
}

// Unknown returns the distinct "never actuated" value.
func Unknown() Value {
	return Value{Kind: KindUnknown}
}

// BoolValue returns a boolean shadow value.
func BoolValue(v bool) Value {
	return Value{Kind: KindBool, Bool: v}
}

// NumberValue returns a numeric shadow value.
func NumberValue(v float64) Value {
	return Value{Kind: KindNumber, Number: v}
}

// TextValue returns a text shadow value.
func TextValue(v string) Value {
	return Value{Kind: KindText, Text: v}
}

// IsUnknown reports whether the value is the distinct Unknown.
// A zero Value counts as Unknown.
func (v Value) IsUnknown() bool {
	return v.Kind == KindUnknown || v.Kind == ""
}

// Equal reports whether two values are the same kind and payload.
// Comparison is exact (tolerance-free for numbers). Unknown never equals
// anything, including another Unknown: an unknown state can never be
// assumed to already match a target.
func (v Value) Equal(other Value) bool {
	if v.IsUnknown() || other.IsUnknown() {
		return false
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindNumber:
		return v.Number == other.Number
	case KindText:
		return v.Text == other.Text
	default:
		return false
	}
}

// String renders the value for logs and API responses.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindNumber:
		return fmt.Sprintf("%g", v.Number)
	case KindText:
		return v.Text
	default:
		return "unknown"
	}
}

// MarshalJSON keeps the Unknown variant explicit on the wire.
func (v Value) MarshalJSON() ([]byte, error) {
	type alias Value
	if v.IsUnknown() {
		return json.Marshal(alias{Kind: KindUnknown})
	}
	return json.Marshal(alias(v))
}

// Entry is a shadow value with its persistence bookkeeping: a monotonic
// per-entry version used for staleness checks, and the mutation time.
type Entry struct {
	Value     Value     `json:"value"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key identifies a shadow entry by device and cell.
type Key struct {
	DeviceID string `json:"device_id"`
	CellID   string `json:"cell_id"`
}

func (k Key) String() string {
	return k.DeviceID + "/" + k.CellID
}
