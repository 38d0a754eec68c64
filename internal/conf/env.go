// env.go - Environment variable configuration and validation for vidrename
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Core configuration
		{"debug", "VIDRENAME_DEBUG", validateEnvBool},

		// Classifier configuration
		{"classifier.apiurl", "VIDRENAME_API_URL", validateEnvURL},
		{"classifier.model", "VIDRENAME_MODEL", nil},
		{"classifier.prompt", "VIDRENAME_PROMPT", nil},
		{"classifier.timeout", "VIDRENAME_TIMEOUT", validateEnvDuration},
		{"classifier.cache.enabled", "VIDRENAME_CACHE_ENABLED", validateEnvBool},

		// Scheduler configuration
		{"scheduler.maxworkers", "VIDRENAME_MAX_WORKERS", validateEnvPositiveInt},
		{"scheduler.maxretries", "VIDRENAME_MAX_RETRIES", validateEnvPositiveInt},

		// Sampler configuration
		{"sampler.count", "VIDRENAME_SCREENSHOT_COUNT", validateEnvScreenshotCount},
		{"sampler.ffmpegpath", "VIDRENAME_FFMPEG_PATH", validateEnvNotEmpty},
		{"sampler.ffprobepath", "VIDRENAME_FFPROBE_PATH", validateEnvNotEmpty},

		// Scanner configuration
		{"scanner.minsize", "VIDRENAME_MIN_SIZE", validateEnvNonNegativeInt},

		// Journal configuration
		{"journal.path", "VIDRENAME_JOURNAL_PATH", nil},

		// Output configuration
		{"output.mqtt.broker", "VIDRENAME_MQTT_BROKER", nil},
		{"output.mqtt.password", "VIDRENAME_MQTT_PASSWORD", nil},

		// Error tracking configuration
		{"sentry.dsn", "VIDRENAME_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		// Bind the environment variable to the config key
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		// Validate the value if it's set and validation function is provided
		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	_, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

// validateEnvURL validates that the value parses as an http or https URL
func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host, got '%s'", value)
	}
	return nil
}

// validateEnvDuration validates duration values like "30s" or "2m"
func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

// validateEnvPositiveInt validates integers that must be at least 1
func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("value must be at least 1, got %d", n)
	}
	return nil
}

// validateEnvNonNegativeInt validates integers that must be zero or more
func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("value must be non-negative, got %d", n)
	}
	return nil
}

// validateEnvScreenshotCount validates the per-video frame count
func validateEnvScreenshotCount(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 1 || n > 5 {
		return fmt.Errorf("screenshot count must be between 1 and 5, got %d", n)
	}
	return nil
}

// validateEnvNotEmpty rejects values that are only whitespace
func validateEnvNotEmpty(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("value must not be empty")
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	// Set up key replacer for nested config keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific environment variables with validation
	// Return any errors to the caller for centralized handling
	return bindEnvVars()
}
