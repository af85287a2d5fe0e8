package registry

import "errors"

// Domain errors for the registry package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, registry.ErrUnknownDevice) {
//	    // handle missing device
//	}
var (
	// ErrInvalidDefinition is returned when the site definitions fail
	// validation. This is fatal at load time; the process refuses to start
	// rather than run with silently-no-op scenarios.
	ErrInvalidDefinition = errors.New("registry: invalid definition")

	// ErrUnknownDevice is returned when a device ID does not exist.
	ErrUnknownDevice = errors.New("registry: unknown device")

	// ErrUnknownCell is returned when a cell ID does not exist on a device.
	ErrUnknownCell = errors.New("registry: unknown cell")

	// ErrUnknownRoom is returned when a room ID does not exist.
	ErrUnknownRoom = errors.New("registry: unknown room")
)
