// Package classify turns sampled video frames into short textual
// descriptions by calling an external vision service, with per-file result
// caching and request rate limiting in front of the service.
package classify

import (
	"context"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
	"github.com/zhu-jl18/vidrename-go/internal/logging"
	"github.com/zhu-jl18/vidrename-go/internal/media"
	"github.com/zhu-jl18/vidrename-go/internal/observability/metrics"
	"golang.org/x/time/rate"
)

// Package-level logger specific to the classify service
var (
	logger      *slog.Logger
	closeLogger func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "classify.log")

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "classify", slog.LevelDebug)
	if err != nil {
		log.Printf("Failed to initialize classify file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
		logger = slog.New(fbHandler).With("service", "classify")
		closeLogger = func() error { return nil }
	}
}

// Provider produces a description for a set of frames. Implementations must
// tag errors with a category so the scheduler can tell transient failures
// from permanent ones.
type Provider interface {
	Classify(ctx context.Context, frames []media.Frame) (string, error)
	Probe(ctx context.Context) error
}

// Classifier fronts a Provider with result caching, rate limiting, and
// metrics. Safe for concurrent use by the worker pool.
type Classifier struct {
	settings *conf.ClassifierSettings
	provider Provider
	cache    *DescriptionCache
	limiter  *rate.Limiter
	metrics  *metrics.ClassifierMetrics
}

// New creates a classifier backed by the vision service configured in
// settings.
func New(settings *conf.ClassifierSettings, m *metrics.ClassifierMetrics) (*Classifier, error) {
	if settings == nil {
		return nil, errors.Newf("classifier settings are required").
			Category(errors.CategoryValidation).
			Component("classify").
			Build()
	}
	if settings.APIURL == "" {
		return nil, errors.Newf("vision service URL is required").
			Category(errors.CategoryConfiguration).
			Component("classify").
			Build()
	}
	return NewWithProvider(settings, NewVisionProvider(settings), m)
}

// NewWithProvider creates a classifier around an explicit provider. Tests
// use this to inject fakes.
func NewWithProvider(settings *conf.ClassifierSettings, provider Provider, m *metrics.ClassifierMetrics) (*Classifier, error) {
	if settings == nil {
		return nil, errors.Newf("classifier settings are required").
			Category(errors.CategoryValidation).
			Component("classify").
			Build()
	}
	if provider == nil {
		return nil, errors.Newf("classifier provider is required").
			Category(errors.CategoryValidation).
			Component("classify").
			Build()
	}

	c := &Classifier{
		settings: settings,
		provider: provider,
		metrics:  m,
	}

	if settings.Cache.Enabled {
		descCache, err := NewDescriptionCache(&settings.Cache)
		if err != nil {
			return nil, err
		}
		c.cache = descCache
	}

	if settings.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(settings.RateLimit)/60.0), 1)
	}

	logger.Info("Classifier initialized",
		"api_url", settings.APIURL,
		"model", settings.Model,
		"timeout", settings.Timeout,
		"rate_limit_per_minute", settings.RateLimit,
		"cache_enabled", settings.Cache.Enabled)

	return c, nil
}

// CachedDescription returns a previously computed description for the file
// identified by fp, recording the lookup outcome. Always a miss when
// caching is disabled.
func (c *Classifier) CachedDescription(fp Fingerprint) (string, bool) {
	if c.cache == nil {
		return "", false
	}

	description, found := c.cache.Get(fp)
	if found {
		if c.metrics != nil {
			c.metrics.RecordCacheLookup(metrics.CacheHit)
		}
		logger.Debug("Description cache hit",
			"path", fp.Path,
			"description", description)
		return description, true
	}

	if c.metrics != nil {
		c.metrics.RecordCacheLookup(metrics.CacheMiss)
	}
	return "", false
}

// Describe classifies the frame set and caches the result under fp.
// One provider call per invocation; the retry schedule belongs to the
// caller.
func (c *Classifier) Describe(ctx context.Context, fp Fingerprint, frames []media.Frame) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", errors.Newf("rate limiter wait interrupted: %w", err).
				Category(errors.CategoryNetwork).
				Context("operation", "rate-limiter-wait").
				Build()
		}
	}

	start := time.Now()
	description, err := c.provider.Classify(ctx, frames)
	duration := time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordRequestDuration(duration.Seconds())
	}

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordRequest(metrics.StatusError)
		}
		return "", err
	}

	if c.metrics != nil {
		c.metrics.RecordRequest(metrics.StatusSuccess)
	}

	if c.cache != nil {
		c.cache.Set(fp, description)
	}

	logger.Debug("Frames classified",
		"path", fp.Path,
		"frames", len(frames),
		"description", description,
		"duration_ms", duration.Milliseconds())

	return description, nil
}

// Probe verifies the service answers before a batch starts.
func (c *Classifier) Probe(ctx context.Context) error {
	err := c.provider.Probe(ctx)
	if c.metrics != nil {
		if err != nil {
			c.metrics.RecordProbe(metrics.StatusError)
		} else {
			c.metrics.RecordProbe(metrics.StatusSuccess)
		}
	}
	if err != nil {
		logger.Error("Vision service probe failed", "error", err)
		return err
	}
	logger.Info("Vision service probe succeeded")
	return nil
}

// Close persists the cache and shuts down the service log.
func (c *Classifier) Close() {
	if c.cache != nil {
		if err := c.cache.Save(); err != nil {
			logger.Error("Failed to persist description cache", "error", err)
		} else {
			logger.Debug("Description cache persisted",
				"path", c.cache.Path(),
				"entries", c.cache.Len())
		}
	}

	if closer, ok := c.provider.(interface{ Close() }); ok {
		closer.Close()
	}

	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing classify logger: %v", err)
		}
	}
}
