// Package errors provides centralized error handling with optional telemetry integration
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

// CategorizedError is an interface for errors that can specify their own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	// Pipeline stage categories
	CategoryMedia          ErrorCategory = "media"           // Frame extraction and duration probing
	CategoryClassification ErrorCategory = "classification"  // Content analysis service
	CategoryResolution     ErrorCategory = "name-resolution" // Name collision arbitration
	CategoryFileIO         ErrorCategory = "file-io"         // Filesystem operations including rename

	// General categories useful across packages
	CategoryValidation       ErrorCategory = "validation"
	CategoryNetwork          ErrorCategory = "network"
	CategoryTimeout          ErrorCategory = "timeout"
	CategoryConfiguration    ErrorCategory = "configuration"
	CategoryCommandExecution ErrorCategory = "command-execution" // External command execution
	CategoryConflict         ErrorCategory = "conflict"
	CategoryNotFound         ErrorCategory = "not-found"
	CategoryCancellation     ErrorCategory = "cancellation"
	CategoryWorker           ErrorCategory = "worker-pool"
	CategoryJournal          ErrorCategory = "journal"
	CategoryCache            ErrorCategory = "cache"
	CategoryEventPublish     ErrorCategory = "event-publish" // MQTT outcome events
	CategoryNotification     ErrorCategory = "notification"  // Push notifications
	CategoryState            ErrorCategory = "state"
	CategorySystem           ErrorCategory = "system-resource"
	CategoryGeneric          ErrorCategory = "generic"
)

// Priority constants for error prioritization
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	component string         // Component where error occurred (lazily detected)
	Category  ErrorCategory  // Error category for better grouping
	Priority  string         // Explicit priority override (optional)
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
	reported  bool           // Whether telemetry has been sent
	mu        sync.RWMutex   // Mutex to protect concurrent access
	detected  bool           // Whether component has been auto-detected
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error type checking. Two enhanced errors match when their
// categories match; otherwise matching falls through to the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component name, detecting it lazily if needed
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	if ee.detected || ee.component != "" {
		defer ee.mu.RUnlock()
		if ee.component == "" {
			return ComponentUnknown
		}
		return ee.component
	}
	ee.mu.RUnlock()

	ee.mu.Lock()
	defer ee.mu.Unlock()
	if !ee.detected && ee.component == "" {
		ee.component = detectComponent()
		ee.detected = true
	}
	if ee.component == "" {
		return ComponentUnknown
	}
	return ee.component
}

// GetCategory returns the error category as a string
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetPriority returns the explicit priority override, empty if unset
func (ee *EnhancedError) GetPriority() string {
	return ee.Priority
}

// GetContext returns a copy of the context data
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	if ee.Context == nil {
		return nil
	}
	cp := make(map[string]any, len(ee.Context))
	maps.Copy(cp, ee.Context)
	return cp
}

// GetTimestamp returns when the error occurred
func (ee *EnhancedError) GetTimestamp() time.Time {
	return ee.Timestamp
}

// MarkReported marks the error as having been sent to telemetry
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported returns whether the error has been sent to telemetry
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New creates a new error with enhanced context
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err: err,
		// context is lazily initialized when needed
	}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name (auto-detected if not set)
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets the explicit priority override for the error
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		// Invalid value falls back to medium rather than failing the build
		if priority != "" {
			eb.priority = PriorityMedium
		}
	}
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// FileContext adds file-specific context. The path itself is not recorded,
// only its coarse shape, so journal and telemetry output stay shareable.
func (eb *ErrorBuilder) FileContext(filePath string, fileSize int64) *ErrorBuilder {
	if filePath != "" {
		if eb.context == nil {
			eb.context = make(map[string]any)
		}
		eb.context["file_type"] = categorizeFilePath(filePath)
		eb.context["file_extension"] = getFileExtension(filePath)
	}
	if fileSize > 0 {
		if eb.context == nil {
			eb.context = make(map[string]any)
		}
		eb.context["file_size_category"] = categorizeFileSize(fileSize)
	}
	return eb
}

// NetworkContext adds network-specific context (URLs are anonymized)
func (eb *ErrorBuilder) NetworkContext(url string, timeout time.Duration) *ErrorBuilder {
	if url != "" {
		if eb.context == nil {
			eb.context = make(map[string]any)
		}
		eb.context["url_category"] = categorizeURL(url)
	}
	if timeout > 0 {
		if eb.context == nil {
			eb.context = make(map[string]any)
		}
		eb.context["timeout_seconds"] = timeout.Seconds()
	}
	return eb
}

// Timing adds performance timing context
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context["operation"] = operation
	eb.context["duration_ms"] = duration.Milliseconds()
	return eb
}

// Build creates the EnhancedError and triggers optional telemetry reporting
func (eb *ErrorBuilder) Build() *EnhancedError {
	// Fast path - skip detection work when no reporting is active
	if !hasActiveReporting.Load() {
		ee := &EnhancedError{
			Err:       eb.err,
			component: eb.component,
			Category:  eb.category,
			Priority:  eb.priority,
			Context:   eb.context,
			Timestamp: time.Now(),
			detected:  eb.component != "",
		}
		if ee.component == "" {
			ee.component = ComponentUnknown
			ee.detected = true
		}
		if ee.Category == "" {
			ee.Category = CategoryGeneric
		}
		return ee
	}

	if eb.component == "" {
		eb.component = detectComponent()
	}
	if eb.category == "" {
		eb.category = detectCategory(eb.err)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		component: eb.component,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		detected:  true,
	}

	reportToTelemetry(ee)

	return ee
}

// Component registry for dynamic component detection
var (
	componentRegistry = make(map[string]string)
	registryMutex     sync.RWMutex
)

// RegisterComponent registers a package path pattern with a component name
func RegisterComponent(packagePattern, componentName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	componentRegistry[packagePattern] = componentName
}

func init() {
	RegisterComponent("detect", "detect")
	RegisterComponent("media", "media")
	RegisterComponent("classify", "classify")
	RegisterComponent("naming", "naming")
	RegisterComponent("journal", "journal")
	RegisterComponent("pipeline", "pipeline")
	RegisterComponent("conf", "config")
	RegisterComponent("httpclient", "httpclient")
	RegisterComponent("mqtt", "mqtt")
	RegisterComponent("notify", "notify")
	RegisterComponent("observability", "observability")
	RegisterComponent("telemetry", "telemetry")
	RegisterComponent("cmd", "cli")
}

// detectComponent walks up the call stack looking for a registered package
func detectComponent() string {
	const maxDepth = 8
	for depth := 2; depth < maxDepth; depth++ {
		pc, _, _, ok := runtime.Caller(depth)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		name := fn.Name()
		// Skip frames inside this package
		if strings.Contains(name, "/internal/errors.") {
			continue
		}
		if component := lookupComponent(name); component != "" {
			return component
		}
	}
	return ComponentUnknown
}

// lookupComponent matches a fully qualified function name against the registry
func lookupComponent(funcName string) string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	for pattern, component := range componentRegistry {
		if strings.Contains(funcName, "/"+pattern+".") || strings.Contains(funcName, "/"+pattern+"/") {
			return component
		}
	}
	return ""
}

// detectCategory infers a category from the error text when none was set
func detectCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}
	var ce CategorizedError
	if As(err, &ce) {
		return ce.ErrorCategory()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return CategoryTimeout
	case strings.Contains(msg, "connection") || strings.Contains(msg, "no such host"):
		return CategoryNetwork
	case strings.Contains(msg, "ffprobe") || strings.Contains(msg, "ffmpeg") || strings.Contains(msg, "decode"):
		return CategoryMedia
	case strings.Contains(msg, "rename") || strings.Contains(msg, "permission denied") || strings.Contains(msg, "no space"):
		return CategoryFileIO
	case strings.Contains(msg, "reserve") || strings.Contains(msg, "disambiguat"):
		return CategoryResolution
	case strings.Contains(msg, "classif") || strings.Contains(msg, "description"):
		return CategoryClassification
	case strings.Contains(msg, "config"):
		return CategoryConfiguration
	case strings.Contains(msg, "not found") || strings.Contains(msg, "no such file"):
		return CategoryNotFound
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "malformed"):
		return CategoryValidation
	default:
		return CategoryGeneric
	}
}

// categorizeFilePath buckets a path by media kind without exposing the path
func categorizeFilePath(path string) string {
	switch strings.ToLower(getFileExtension(path)) {
	case ".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv", ".ts", ".m4a", ".webm":
		return "video"
	case ".jpg", ".jpeg", ".png":
		return "image"
	case ".jsonl", ".json":
		return "journal"
	case ".yaml", ".yml":
		return "config"
	default:
		return "other"
	}
}

func getFileExtension(path string) string {
	return filepath.Ext(path)
}

func categorizeFileSize(size int64) string {
	switch {
	case size < 1<<20:
		return "tiny (<1MB)"
	case size < 100<<20:
		return "small (1-100MB)"
	case size < 1<<30:
		return "medium (100MB-1GB)"
	default:
		return "large (>1GB)"
	}
}

// categorizeURL records only the scheme and host class, never the full URL
func categorizeURL(url string) string {
	switch {
	case strings.Contains(url, "localhost") || strings.Contains(url, "127.0.0.1"):
		return "local-service"
	case strings.HasPrefix(url, "https://"):
		return "remote-https"
	case strings.HasPrefix(url, "http://"):
		return "remote-http"
	default:
		return "other"
	}
}

// Wrap is an alias for New for more natural call sites when wrapping
func Wrap(err error) *ErrorBuilder {
	return New(err)
}

// ValidationError creates a validation error with the message as the error text
func ValidationError(message string) *EnhancedError {
	return New(stderrors.New(message)).
		Category(CategoryValidation).
		Build()
}

// Std error passthroughs so callers never need both this package and stdlib errors.

// NewStd creates a standard error without enhancement (for sentinel errors)
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory checks whether err carries the given category anywhere in its chain
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	if As(err, &ee) {
		return ee.Category == category
	}
	return false
}

// IsNotFound reports whether err represents a missing-resource condition
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}
