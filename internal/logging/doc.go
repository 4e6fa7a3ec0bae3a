// Package logging builds the slog loggers used across the daemon and CLI.
//
// Two output formats are supported: a compact console format that prefixes
// each line with a component name, and standard JSON. Attribute helpers and
// the Field* key constants keep structured keys consistent between packages;
// WithCorrelationID/WithContext thread a per-event id through the pipeline so
// every log line for one photo can be grouped.
package logging
