// Package logging provides structured logging for SceneSync Core.
//
// It wraps the standard library's log/slog with configuration-driven
// format and level selection, plus default service/version fields on
// every record. Domain packages do not import this package directly;
// they declare their own small Logger interface and accept anything
// that satisfies it, which *logging.Logger does.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("activation complete", "scenario", id, "steps", n)
package logging
