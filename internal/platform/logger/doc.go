// Package logger builds the process-wide slog JSON logger from configuration
// and carries request- or job-scoped loggers through a context.Context.
package logger
