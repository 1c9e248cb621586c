// Package logging assembles structured slog loggers and formatting helpers
// used across vinflow.
//
// It owns the configurable pretty/JSON handlers, centralizes level and output
// plumbing, and standardizes attribute keys so every component tags log lines
// with the same unit, stage, and actor fields. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
