// Package shadow maintains the engine's belief about device cell values.
//
// Most actuators in a SceneSync site are stateless pulse devices with no
// feedback channel, so the shadow state is the only record of what the
// plant is believed to be doing. The store keeps an in-memory map with
// write-through persistence: a value is committed to the repository
// before it becomes the engine's belief, so a crash loses at most the
// in-flight actuation.
//
// Unknown is a distinct value, not false or zero. A toggle device's true
// phase after a restart without a snapshot is unknowable, and the diff
// engine treats Unknown as always-differing so the first activation
// after startup pins every touched cell to a known state.
package shadow
