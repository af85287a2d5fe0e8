package orchestrator

import "errors"

// Domain errors for the orchestrator package.
//
// ErrUnreachable and ErrRejected form the command sink taxonomy: sink
// implementations wrap their transport failures in one of the two so the
// executor can record step outcomes without knowing the transport.
var (
	// ErrUnreachable is returned by a sink when the device (or its
	// bridge) cannot be reached within the step timeout.
	ErrUnreachable = errors.New("sink: device unreachable")

	// ErrRejected is returned by a sink when the device or bridge
	// refused the command.
	ErrRejected = errors.New("sink: command rejected")

	// ErrNotRunning is returned when Activate or ShutdownRoom is called
	// before Start or after Stop.
	ErrNotRunning = errors.New("orchestrator: not running")

	// ErrQueueFull is returned when the activation request queue is at
	// capacity. Callers may retry; the engine never queues unboundedly.
	ErrQueueFull = errors.New("orchestrator: request queue full")
)
