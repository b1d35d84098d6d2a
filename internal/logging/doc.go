// Package logging provides slog-based structured logging with a compact
// console handler for interactive use and a JSON handler for machine
// consumption. Output tees to stderr and, when configured, a log file under
// the configured log directory.
package logging
