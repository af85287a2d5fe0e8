package shadow

import "errors"

// Domain errors for the shadow package.
var (
	// ErrPersistence is returned when a write-through or restore against
	// the repository fails. Callers must surface this distinctly: a shadow
	// value that could not be persisted may be wrong after the next
	// restart, which mis-drives real hardware.
	ErrPersistence = errors.New("shadow: persistence failed")
)
