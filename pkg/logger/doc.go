// Package logger is a small factory over log/slog with environment presets
// and an options pattern for format, level, output, and static attributes.
package logger
