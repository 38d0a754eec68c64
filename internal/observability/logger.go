package observability

import "log/slog"

// getLogger returns the logger for the observability package.
// Uses slog.Default so logging works before the logging package is initialized.
func getLogger() *slog.Logger {
	return slog.Default().With("service", "observability")
}
