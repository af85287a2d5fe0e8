// Package influxdb records actuation telemetry for SceneSync Core.
//
// Every dispatched command, completed activation and debounce rejection is
// written as a time-series point. Writes are batched and asynchronous;
// telemetry is strictly best-effort and never blocks or fails an
// activation. The whole integration is optional and disabled by default
// (influxdb.enabled in config.yaml).
package influxdb
