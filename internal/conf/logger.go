// Package conf provides configuration management for vidrename.
package conf

import "log/slog"

// getLogger returns the config package logger scoped to the config service.
// The logger is fetched from the slog default each time so it picks up
// whatever output the application installs later during startup.
func getLogger() *slog.Logger {
	return slog.Default().With("service", "config")
}
