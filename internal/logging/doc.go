// Package logging assembles structured slog loggers and formatting helpers used
// across podgen.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so controller code can tag log
// lines with session and request identifiers. Console output is meant for a
// terminal; the JSON log file under the log directory keeps every record at
// debug level. A no-op logger is provided for tests and wiring code.
package logging
