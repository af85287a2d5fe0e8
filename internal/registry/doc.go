// Package registry holds the device and room definitions for a site.
//
// Devices expose cells in a closed tagged variant: state cells carry a
// readable/writable value, toggle cells are stateless pulse actuators
// with an engine-tracked shadow boolean, and momentary cells are
// fire-and-forget pulses with no state at all. Rooms group devices for
// validation and bulk operations.
//
// Definitions come from the YAML site file and are validated in full at
// load time: dangling room references, duplicate IDs, malformed cell
// kinds and impossible numeric bounds all fail the load with
// ErrInvalidDefinition, so a misconfigured site never reaches runtime.
//
// The registry is a leaf component; the shadow store, diff engine and
// orchestrator all consult it for cell schemas.
package registry
