// Package telemetry provides privacy-compliant, opt-in crash reporting.
package telemetry

import (
	"fmt"
	"log"
	"log/slog"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
	"github.com/zhu-jl18/vidrename-go/internal/privacy"
)

// sentryDSN is the project ingest endpoint. Nothing is sent unless the user
// opts in through the sentry.enabled setting.
const sentryDSN = "https://7f3c1a9be204d85c9f1e6b20aa143d77@o4508912633577472.ingest.de.sentry.io/4508912668966992"

func getLogger() *slog.Logger {
	return slog.Default().With("service", "telemetry")
}

// PlatformInfo holds privacy-safe platform information for crash reports
type PlatformInfo struct {
	OS           string `json:"os"`
	Architecture string `json:"arch"`
	Container    bool   `json:"container"`
	NumCPU       int    `json:"num_cpu"`
	GoVersion    string `json:"go_version"`
}

// collectPlatformInfo gathers platform details that carry no user data
func collectPlatformInfo() PlatformInfo {
	return PlatformInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		Container:    conf.RunningInContainer(),
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
	}
}

// InitSentry initializes the Sentry SDK and routes the error package's
// reporting hooks through it. Reporting is strictly opt-in: when disabled
// this is a no-op and no SDK state is created.
func InitSentry(settings *conf.Settings) error {
	return initSentry(settings, nil)
}

// initSentry is the implementation behind InitSentry. A non-nil transport
// replaces the SDK default so tests can capture events in-process.
func initSentry(settings *conf.Settings, transport sentry.Transport) error {
	if settings == nil || !settings.Sentry.Enabled {
		log.Println("Crash reporting is disabled (opt-in required)")
		return nil
	}

	systemID := ensureSystemID()

	dsn := settings.Sentry.DSN
	if dsn == "" {
		dsn = sentryDSN
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        dsn,
		SampleRate: 1.0,
		Debug:      false,

		// Privacy-compliant settings
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "", // never leak the hostname

		Release: fmt.Sprintf("vidrename@%s", settings.Version),

		BeforeSend: applyPrivacyFilters,
		Transport:  transport,
	})
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "init-crash-reporting").
			Build()
	}

	configureScope(settings, systemID)

	// Enhanced errors now report through Sentry, scrubbed on the way out.
	errors.SetPrivacyScrubber(privacy.ScrubMessage)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	getLogger().Info("Crash reporting enabled", "system_id", systemID)
	return nil
}

// applyPrivacyFilters is the BeforeSend hook. The error package scrubs its
// own messages before reporting; this pass catches everything else that
// reaches the SDK, including events captured outside the error package.
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	// Clear user data and server name
	event.User = sentry.User{}
	event.ServerName = ""

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	// Remove contexts the SDK populates from the host environment
	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	// Remove extra fields except allowed ones
	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// configureScope attaches the anonymous system ID and platform details to
// every outgoing event.
func configureScope(settings *conf.Settings, systemID string) {
	info := collectPlatformInfo()

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("system_id", systemID)
		scope.SetTag("os", info.OS)
		scope.SetTag("arch", info.Architecture)
		scope.SetTag("container", fmt.Sprintf("%t", info.Container))

		scope.SetContext("application", map[string]any{
			"name":      "vidrename",
			"version":   settings.Version,
			"system_id": systemID,
		})

		scope.SetContext("platform", map[string]any{
			"os":           info.OS,
			"architecture": info.Architecture,
			"container":    info.Container,
			"num_cpu":      info.NumCPU,
			"go_version":   info.GoVersion,
		})
	})
}

// ensureSystemID loads the persistent anonymous ID, falling back to a
// placeholder when no config directory is usable.
func ensureSystemID() string {
	paths, err := conf.GetDefaultConfigPaths()
	if err != nil || len(paths) == 0 {
		getLogger().Warn("No config directory available for system ID", "error", err)
		return "unknown"
	}

	id, err := LoadOrCreateSystemID(paths[0])
	if err != nil {
		getLogger().Warn("Failed to load or create system ID", "error", err)
		return "unknown"
	}
	return id
}

// Flush waits for buffered events to be delivered. It returns false if the
// timeout elapsed before the queue drained.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
