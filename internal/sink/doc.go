// Package sink provides command sink implementations for the
// orchestrator.
//
// The MQTT sink publishes commands to per-cell topics and correlates
// acknowledgements by command ID; the loopback sink acknowledges
// everything locally for development and bench setups without a broker.
// Both map their failures onto the orchestrator's sink error taxonomy.
package sink
