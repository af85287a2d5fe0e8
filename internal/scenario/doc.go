// Package scenario holds scenario definitions and the diff engine that
// turns "activate movie night" into a minimal, ordered actuation plan.
//
// A scenario maps cells to target values and carries two explicit action
// sequences, startup and shutdown. The diff engine compares targets
// against the shadow snapshot and emits only the steps needed: cells
// already at their target produce nothing, Unknown cells always produce
// a step. Plan order is deterministic - outgoing shutdown actions, value
// diffs in declaration order, incoming startup actions - because some
// steps have real-world ordering requirements (power the amplifier
// before selecting its input).
//
// Definitions load from the scenarios section of the YAML site file and
// are validated against the device registry: a dangling reference or a
// momentary cell used as a target fails the load outright.
package scenario
