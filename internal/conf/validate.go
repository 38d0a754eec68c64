// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	// Validate Scanner settings
	if err := validateScannerSettings(&settings.Scanner); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Sampler settings
	if err := validateSamplerSettings(&settings.Sampler); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Classifier settings
	if err := validateClassifierSettings(&settings.Classifier); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Naming settings
	if err := validateNamingSettings(&settings.Naming); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Scheduler settings
	if err := validateSchedulerSettings(&settings.Scheduler); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Output settings
	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// If there are any errors, return the ValidationError
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateScannerSettings validates the directory scanning settings
func validateScannerSettings(settings *ScannerSettings) error {
	var errs []string

	// At least one extension is needed to find anything at all
	if len(settings.Extensions) == 0 {
		errs = append(errs, "scanner extensions must not be empty")
	}

	// Extensions are matched against filepath.Ext output, which keeps the dot
	for _, ext := range settings.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Sprintf("scanner extension '%s' must start with a dot", ext))
		}
	}

	if settings.MinSize < 0 {
		errs = append(errs, "scanner minsize must be non-negative")
	}

	// Below 8 characters ordinary words start matching as hex
	if settings.MinHexLength < 8 {
		errs = append(errs, "scanner minhexlength must be at least 8")
	}

	if len(errs) > 0 {
		return fmt.Errorf("scanner settings errors: %v", errs)
	}

	return nil
}

// validateSamplerSettings validates the frame extraction settings
func validateSamplerSettings(settings *SamplerSettings) error {
	var errs []string

	if settings.Count < 1 || settings.Count > 5 {
		errs = append(errs, "sampler count must be between 1 and 5")
	}

	if settings.FfmpegPath == "" {
		errs = append(errs, "sampler ffmpegpath must not be empty")
	}

	if settings.FfprobePath == "" {
		errs = append(errs, "sampler ffprobepath must not be empty")
	}

	// Missing binaries are a warning, not an error: scan and undo run
	// fine without ffmpeg installed.
	if settings.FfmpegPath == GetFfmpegBinaryName() && !IsFfmpegAvailable() {
		getLogger().Warn("ffmpeg not found in system PATH")
	}
	if settings.FfprobePath == GetFfprobeBinaryName() && !IsFfprobeAvailable() {
		getLogger().Warn("ffprobe not found in system PATH")
	}

	if settings.MaxWidth < 1 || settings.MaxHeight < 1 {
		errs = append(errs, "sampler maxwidth and maxheight must be positive")
	}

	// ffmpeg accepts qscale values from 2 to 31 for mjpeg
	if settings.Quality < 2 || settings.Quality > 31 {
		errs = append(errs, "sampler quality must be between 2 and 31")
	}

	if settings.EdgeMargin < 0 || settings.EdgeMargin >= 0.5 {
		errs = append(errs, "sampler edgemargin must be between 0 and 0.5")
	}

	if len(errs) > 0 {
		return fmt.Errorf("sampler settings errors: %v", errs)
	}

	return nil
}

// validateClassifierSettings validates the vision service client settings
func validateClassifierSettings(settings *ClassifierSettings) error {
	var errs []string

	if settings.APIURL == "" {
		errs = append(errs, "classifier apiurl must not be empty")
	} else {
		u, err := url.Parse(settings.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("classifier apiurl '%s' must be a valid http or https URL", settings.APIURL))
		}
	}

	if settings.Model == "" {
		errs = append(errs, "classifier model must not be empty")
	}

	if settings.Timeout <= 0 {
		errs = append(errs, "classifier timeout must be positive")
	}

	if settings.RateLimit < 0 {
		errs = append(errs, "classifier ratelimit must be non-negative")
	}

	if settings.Cache.Enabled && settings.Cache.TTL <= 0 {
		errs = append(errs, "classifier cache ttl must be positive when the cache is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("classifier settings errors: %v", errs)
	}

	return nil
}

// validateNamingSettings validates the filename synthesis settings
func validateNamingSettings(settings *NamingSettings) error {
	var errs []string

	if settings.MaxLength < 10 || settings.MaxLength > 100 {
		errs = append(errs, "naming maxlength must be between 10 and 100")
	}

	if strings.TrimSpace(settings.Fallback) == "" {
		errs = append(errs, "naming fallback must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("naming settings errors: %v", errs)
	}

	return nil
}

// validateSchedulerSettings validates the worker pool settings
func validateSchedulerSettings(settings *SchedulerSettings) error {
	var errs []string

	if settings.MaxWorkers < 1 || settings.MaxWorkers > 10 {
		errs = append(errs, "scheduler maxworkers must be between 1 and 10")
	}

	if settings.MaxRetries < 1 || settings.MaxRetries > 10 {
		errs = append(errs, "scheduler maxretries must be between 1 and 10")
	}

	if settings.BackoffBase <= 0 {
		errs = append(errs, "scheduler backoffbase must be positive")
	}

	if settings.BackoffMax < settings.BackoffBase {
		errs = append(errs, "scheduler backoffmax must not be smaller than backoffbase")
	}

	if len(errs) > 0 {
		return fmt.Errorf("scheduler settings errors: %v", errs)
	}

	return nil
}

// validateOutputSettings validates the optional output integrations
func validateOutputSettings(settings *OutputSettings) error {
	var errs []string

	if settings.MQTT.Enabled {
		if settings.MQTT.Broker == "" {
			errs = append(errs, "MQTT broker must not be empty when MQTT is enabled")
		}
		if settings.MQTT.Topic == "" {
			errs = append(errs, "MQTT topic must not be empty when MQTT is enabled")
		}
	}

	if settings.Notification.Enabled && len(settings.Notification.Urls) == 0 {
		errs = append(errs, "notification urls must not be empty when notifications are enabled")
	}

	if settings.Telemetry.Enabled {
		if _, _, err := net.SplitHostPort(settings.Telemetry.Listen); err != nil {
			errs = append(errs, fmt.Sprintf("telemetry listen address '%s' must be host:port", settings.Telemetry.Listen))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("output settings errors: %v", errs)
	}

	return nil
}
