package scenario

import "errors"

// Domain errors for the scenario package.
var (
	// ErrInvalidDefinition is returned when scenario definitions fail
	// validation against the device registry. Fatal at load time.
	ErrInvalidDefinition = errors.New("scenario: invalid definition")

	// ErrUnknownScenario is returned when a scenario ID does not exist.
	ErrUnknownScenario = errors.New("scenario: unknown scenario")
)
