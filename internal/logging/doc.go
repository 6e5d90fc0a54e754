// Package logging assembles the structured slog loggers used across the sync
// daemon and CLI.
//
// It owns the console/JSON handler selection, level parsing, and output
// plumbing, and exposes Attr helpers plus standardized field keys so every
// component tags log lines the same way. A no-op logger is available for tests
// and wiring code that cannot fail.
package logging
