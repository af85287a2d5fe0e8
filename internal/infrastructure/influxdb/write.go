package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteActuation records a single command dispatch to an actuator cell.
//
// One point per step in a transition plan: which cell was commanded, how
// the step ended ("applied", "skipped_locked", "skipped_condition",
// "failed") and how long the dispatch took. Non-blocking.
func (c *Client) WriteActuation(deviceID, cellID, outcome string, latency time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"actuation",
		map[string]string{
			"device_id": deviceID,
			"cell_id":   cellID,
			"outcome":   outcome,
		},
		map[string]interface{}{
			"latency_ms": float64(latency.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteActivation records a completed transition.
//
// kind is "activate" or "shutdown"; scenarioID is empty for room
// shutdowns and roomID is empty for scenario activations. The step
// counters come from the activation result so partial failures are
// visible in dashboards.
func (c *Client) WriteActivation(kind, scenarioID, roomID string, applied, skipped, failed int, elapsed time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"activation",
		map[string]string{
			"kind":        kind,
			"scenario_id": scenarioID,
			"room_id":     roomID,
		},
		map[string]interface{}{
			"steps_applied": applied,
			"steps_skipped": skipped,
			"steps_failed":  failed,
			"elapsed_ms":    float64(elapsed.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteLockRejection records a cell write refused by the debounce guard.
// Useful for spotting scenarios that fight over the same equipment.
func (c *Client) WriteLockRejection(deviceID, cellID string, remaining time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"lock_rejection",
		map[string]string{
			"device_id": deviceID,
			"cell_id":   cellID,
		},
		map[string]interface{}{
			"remaining_ms": float64(remaining.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements the helpers don't cover.
// Tags should stay low cardinality.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
