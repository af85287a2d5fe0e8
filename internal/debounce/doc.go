// Package debounce guards stateless pulse actuators against duplicate
// triggering.
//
// Pulse devices have no feedback channel, so a doubled trigger from a
// bouncing contact or a re-activated scenario silently inverts the
// engine's shadow belief. The manager enforces a per-cell cooldown
// window (default 10 seconds) between pulses: acquisitions inside the
// window are rejected with the remaining time, never queued.
package debounce
