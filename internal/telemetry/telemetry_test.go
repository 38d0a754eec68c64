package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
	"github.com/zhu-jl18/vidrename-go/internal/privacy"
)

// The SDK and the error package hold global state, so these tests must not
// run in parallel.

func TestInitSentryDisabledIsNoOp(t *testing.T) {
	settings := &conf.Settings{Version: "0.1.0"}
	settings.Sentry.Enabled = false

	require.NoError(t, InitSentry(settings))
}

func TestInitSentryNilSettings(t *testing.T) {
	require.NoError(t, InitSentry(nil))
}

func TestLoadOrCreateSystemIDCreatesAndPersists(t *testing.T) {
	dir := t.TempDir()

	id, err := LoadOrCreateSystemID(dir)
	require.NoError(t, err)
	assert.True(t, privacy.IsValidSystemID(id), "generated ID %q should be valid", id)

	data, err := os.ReadFile(filepath.Join(dir, systemIDFile))
	require.NoError(t, err)
	assert.Equal(t, id, strings.TrimSpace(string(data)))

	again, err := LoadOrCreateSystemID(dir)
	require.NoError(t, err)
	assert.Equal(t, id, again, "second load should return the stored ID")
}

func TestLoadOrCreateSystemIDReplacesMalformed(t *testing.T) {
	dir := t.TempDir()
	idFile := filepath.Join(dir, systemIDFile)
	require.NoError(t, os.WriteFile(idFile, []byte("not-a-system-id"), 0o644))

	id, err := LoadOrCreateSystemID(dir)
	require.NoError(t, err)
	assert.True(t, privacy.IsValidSystemID(id))
	assert.NotEqual(t, "not-a-system-id", id)

	data, err := os.ReadFile(idFile)
	require.NoError(t, err)
	assert.Equal(t, id, strings.TrimSpace(string(data)), "malformed file should be overwritten")
}

func TestLoadOrCreateSystemIDCreatesConfigDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	id, err := LoadOrCreateSystemID(dir)
	require.NoError(t, err)
	assert.True(t, privacy.IsValidSystemID(id))
}

func TestInitSentryRejectsMalformedDSN(t *testing.T) {
	settings := &conf.Settings{Version: "0.1.0"}
	settings.Sentry.Enabled = true
	settings.Sentry.DSN = "not-a-valid-dsn"
	t.Setenv("HOME", t.TempDir())

	err := InitSentry(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestEnabledReportingCapturesScrubbedEvent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Cleanup(func() {
		errors.SetTelemetryReporter(nil)
		errors.SetPrivacyScrubber(nil)
	})

	settings := &conf.Settings{Version: "0.1.0"}
	settings.Sentry.Enabled = true

	mock := newMockTransport()
	require.NoError(t, initSentry(settings, mock))

	reporter := errors.GetTelemetryReporter()
	require.NotNil(t, reporter)
	require.True(t, reporter.IsEnabled())

	ee := errors.Newf("classify request to https://api.example.com/v1/chat/completions failed").
		Component("classify").
		Category(errors.CategoryNetwork).
		Context("operation", "classify-frames").
		Build()

	require.True(t, Flush(time.Second))
	require.Equal(t, 1, mock.EventCount(), "building a categorized error should report one event")

	event := mock.LastEvent()
	require.NotNil(t, event)
	assert.NotContains(t, event.Message, "api.example.com", "endpoint host must be anonymized")
	assert.Contains(t, event.Message, "url-", "anonymized URL token should replace the endpoint")
	assert.Contains(t, event.Message, "[network]")
	assert.Equal(t, "classify", event.Tags["component"])
	assert.Equal(t, "network", event.Tags["category"])
	assert.True(t, privacy.IsValidSystemID(event.Tags["system_id"]),
		"every event carries the anonymous system ID")
	assert.Empty(t, event.ServerName)

	// A reported error must not be delivered twice.
	reporter.ReportError(ee)
	assert.Equal(t, 1, mock.EventCount())

	// A second distinct error produces a second event.
	errors.Newf("sample extraction failed for /home/user/videos/a1b2c3d4e5f6a7b8.mp4").
		Component("media").
		Category(errors.CategoryMedia).
		Build()
	require.Equal(t, 2, mock.EventCount())

	second := mock.LastEvent()
	assert.NotContains(t, second.Message, "a1b2c3d4e5f6a7b8",
		"file path stems must not leave the process")
}

func TestCollectPlatformInfo(t *testing.T) {
	info := collectPlatformInfo()
	assert.NotEmpty(t, info.OS)
	assert.NotEmpty(t, info.Architecture)
	assert.Positive(t, info.NumCPU)
	assert.NotEmpty(t, info.GoVersion)
}
