// config.go: configuration loading and saving for vidrename
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/zhu-jl18/vidrename-go/internal/secrets"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// RotationType defines the type of log rotation
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled     bool         `yaml:"enabled"`     // true to enable this log
	Path        string       `yaml:"path"`        // path to log file
	Rotation    RotationType `yaml:"rotation"`    // rotation type
	MaxSize     int64        `yaml:"maxsize"`     // max size in bytes for size rotation
	RotationDay string       `yaml:"rotationday"` // day of the week for weekly rotation
}

// MainSettings contains the main application settings
type MainSettings struct {
	Name string    `yaml:"name"` // name of this instance, included in log and event output
	Log  LogConfig `yaml:"log"`  // main application log configuration
}

// InputConfig holds the runtime input parameters. These come from command
// line arguments rather than the config file and are never persisted.
type InputConfig struct {
	Path      string `yaml:"-"` // directory to process
	Recursive bool   `yaml:"-"` // true to descend into subdirectories
	DryRun    bool   `yaml:"-"` // true to simulate renames without touching files
}

// ScannerSettings contains settings for directory scanning and
// machine-generated filename detection
type ScannerSettings struct {
	Extensions   []string `yaml:"extensions"`   // video file extensions to consider
	MinSize      int64    `yaml:"minsize"`      // minimum file size in bytes, 0 disables the check
	MinHexLength int      `yaml:"minhexlength"` // stems longer than this consisting only of hex digits are treated as machine generated
}

// SamplerSettings contains settings for frame extraction
type SamplerSettings struct {
	Count       int     `yaml:"count"`       // number of frames to extract per video
	FfmpegPath  string  `yaml:"ffmpegpath"`  // path to ffmpeg binary, "ffmpeg" to use PATH
	FfprobePath string  `yaml:"ffprobepath"` // path to ffprobe binary, "ffprobe" to use PATH
	MaxWidth    int     `yaml:"maxwidth"`    // frames are scaled down to fit within maxwidth x maxheight
	MaxHeight   int     `yaml:"maxheight"`   // see maxwidth
	Quality     int     `yaml:"quality"`     // JPEG quality for extracted frames, ffmpeg qscale 2-31, lower is better
	EdgeMargin  float64 `yaml:"edgemargin"`  // fraction of the duration excluded from both ends when picking timestamps
}

// CacheSettings contains settings for the classification result cache
type CacheSettings struct {
	Enabled bool          `yaml:"enabled"` // true to reuse classification results between runs
	TTL     time.Duration `yaml:"ttl"`     // how long cached results stay valid
	Path    string        `yaml:"path"`    // cache file location, empty for the default user cache directory
}

// ClassifierSettings contains settings for the vision service client
type ClassifierSettings struct {
	APIURL    string        `yaml:"apiurl"`    // endpoint of the vision service
	Model     string        `yaml:"model"`     // model name sent with each request
	Prompt    string        `yaml:"prompt"`    // instruction sent with the frames
	Timeout   time.Duration `yaml:"timeout"`   // per request timeout
	RateLimit int           `yaml:"ratelimit"` // maximum requests per minute, 0 disables limiting
	Cache     CacheSettings `yaml:"cache"`     // classification result cache
}

// NamingSettings contains settings for filename synthesis
type NamingSettings struct {
	MaxLength int    `yaml:"maxlength"` // maximum stem length in characters
	Fallback  string `yaml:"fallback"`  // stem used when the classifier returns nothing usable
}

// SchedulerSettings contains settings for the rename worker pool
type SchedulerSettings struct {
	MaxWorkers  int           `yaml:"maxworkers"`  // number of videos processed concurrently
	MaxRetries  int           `yaml:"maxretries"`  // classification attempts per video before giving up
	BackoffBase time.Duration `yaml:"backoffbase"` // base delay between retry attempts
	BackoffMax  time.Duration `yaml:"backoffmax"`  // upper bound for the exponential backoff delay
}

// JournalSettings contains settings for the rename journal
type JournalSettings struct {
	Enabled bool   `yaml:"enabled"` // true to record every outcome to a journal file
	Path    string `yaml:"path"`    // journal file path, empty for rename_log_<timestamp>.jsonl in the working directory
}

// MQTTSettings contains settings for MQTT event publishing
type MQTTSettings struct {
	Enabled      bool   `yaml:"enabled"`      // true to enable MQTT
	Broker       string `yaml:"broker"`       // MQTT broker URL, e.g. tcp://localhost:1883
	Topic        string `yaml:"topic"`        // MQTT topic to publish rename outcomes to
	Username     string `yaml:"username"`     // MQTT username
	Password     string `yaml:"password"`     // MQTT password, supports ${VAR} references
	PasswordFile string `yaml:"passwordfile"` // read the password from this file instead, e.g. a mounted Docker secret
	Retain       bool   `yaml:"retain"`       // true to retain the last message on the broker
}

// NotificationSettings contains settings for batch summary push notifications
type NotificationSettings struct {
	Enabled bool     `yaml:"enabled"` // true to send a summary when a batch finishes
	Urls    []string `yaml:"urls"`    // shoutrrr service URLs
}

// TelemetrySettings contains settings for the Prometheus metrics endpoint
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled"` // true to expose metrics while a batch runs
	Listen  string `yaml:"listen"`  // listen address, e.g. localhost:8090
}

// OutputSettings groups the optional output integrations
type OutputSettings struct {
	MQTT         MQTTSettings         `yaml:"mqtt"`
	Notification NotificationSettings `yaml:"notification"`
	Telemetry    TelemetrySettings    `yaml:"telemetry"`
}

// SentrySettings contains settings for error tracking, which is opt-in
type SentrySettings struct {
	Enabled bool   `yaml:"enabled"` // false by default, requires explicit opt-in
	DSN     string `yaml:"dsn"`     // Sentry project DSN, empty to use the built-in one
}

// Settings contains all configuration options for vidrename
type Settings struct {
	Debug bool `yaml:"debug"` // true to enable debug level logging

	Version   string `yaml:"-"` // release version, set at build time
	BuildDate string `yaml:"-"` // build date, set at build time

	Main MainSettings `yaml:"main"`

	Input InputConfig `yaml:"-"` // command line input, never saved

	Scanner    ScannerSettings    `yaml:"scanner"`
	Sampler    SamplerSettings    `yaml:"sampler"`
	Classifier ClassifierSettings `yaml:"classifier"`
	Naming     NamingSettings     `yaml:"naming"`
	Scheduler  SchedulerSettings  `yaml:"scheduler"`
	Journal    JournalSettings    `yaml:"journal"`
	Output     OutputSettings     `yaml:"output"`
	Sentry     SentrySettings     `yaml:"sentry"`
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance and makes it the current one.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	// Initialize viper and read config
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	// Unmarshal the config into settings
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Resolve credential references before validation sees the values
	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	// Validate settings
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// secretRefs keeps the unexpanded credential values from the last Load
// so SaveSettings writes the references back instead of the resolved
// secrets.
var secretRefs struct {
	classifierAPIURL string
	mqttUsername     string
	mqttPassword     string
	notificationUrls []string
	sentryDSN        string
}

// resolveSecrets expands environment and secret-file references in the
// credential-bearing fields so config.yaml never has to hold plaintext
// secrets.
func resolveSecrets(settings *Settings) error {
	secretRefs.classifierAPIURL = settings.Classifier.APIURL
	secretRefs.mqttUsername = settings.Output.MQTT.Username
	secretRefs.mqttPassword = settings.Output.MQTT.Password
	secretRefs.notificationUrls = append([]string(nil), settings.Output.Notification.Urls...)
	secretRefs.sentryDSN = settings.Sentry.DSN

	apiURL, err := secrets.ExpandString(settings.Classifier.APIURL)
	if err != nil {
		return fmt.Errorf("classifier.apiurl: %w", err)
	}
	settings.Classifier.APIURL = apiURL

	username, err := secrets.ExpandString(settings.Output.MQTT.Username)
	if err != nil {
		return fmt.Errorf("output.mqtt.username: %w", err)
	}
	settings.Output.MQTT.Username = username

	password, err := secrets.Resolve(settings.Output.MQTT.PasswordFile, settings.Output.MQTT.Password)
	if err != nil {
		return fmt.Errorf("output.mqtt.password: %w", err)
	}
	settings.Output.MQTT.Password = password

	for i, url := range settings.Output.Notification.Urls {
		expanded, err := secrets.ExpandString(url)
		if err != nil {
			return fmt.Errorf("output.notification.urls[%d]: %w", i, err)
		}
		settings.Output.Notification.Urls[i] = expanded
	}

	dsn, err := secrets.ExpandString(settings.Sentry.DSN)
	if err != nil {
		return fmt.Errorf("sentry.dsn: %w", err)
	}
	settings.Sentry.DSN = dsn

	return nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Get OS specific config paths
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	// Assign config paths to Viper
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	// Bind environment variables so they override file values
	if err := configureEnvironmentVariables(); err != nil {
		getLogger().Warn("Environment variable configuration issues", "error", err)
	}

	// Read configuration file
	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	// Create directories for config file
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	// Write default config file
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings saves the current settings to the configuration file.
// It uses SaveYAMLConfig to handle the atomic write process.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	// Create a copy so the marshal works on a stable snapshot
	settingsCopy := *settingsInstance

	// Copy the slices that would otherwise be shared with the live instance
	settingsCopy.Scanner.Extensions = make([]string, len(settingsInstance.Scanner.Extensions))
	copy(settingsCopy.Scanner.Extensions, settingsInstance.Scanner.Extensions)
	settingsCopy.Output.Notification.Urls = make([]string, len(settingsInstance.Output.Notification.Urls))
	copy(settingsCopy.Output.Notification.Urls, settingsInstance.Output.Notification.Urls)

	// Write the credential references back, not the resolved secrets
	settingsCopy.Classifier.APIURL = secretRefs.classifierAPIURL
	settingsCopy.Output.MQTT.Username = secretRefs.mqttUsername
	settingsCopy.Output.MQTT.Password = secretRefs.mqttPassword
	settingsCopy.Output.Notification.Urls = append([]string(nil), secretRefs.notificationUrls...)
	settingsCopy.Sentry.DSN = secretRefs.sentryDSN

	// Find the path of the current config file
	configPath, err := FindConfigFile()
	if err != nil {
		return fmt.Errorf("error finding config file: %w", err)
	}

	// Save the settings to the config file
	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	getLogger().Info("Settings saved", "path", configPath)
	return nil
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	// Marshal the settings struct to YAML
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write the YAML data to a temporary file
	// This is done to ensure atomic write operation
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	// Ensure the temporary file is removed in case of any failure
	defer os.Remove(tempFileName)

	// Write the YAML data to the temporary file
	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	// Close the temporary file after writing
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	// Try to rename the temporary file to replace the original config file
	// This is typically an atomic operation on most filesystems
	if err := os.Rename(tempFileName, configPath); err != nil {
		// If rename fails (e.g., cross-device link), fall back to copy & delete
		// This might happen when the temp directory is on a different filesystem
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}
