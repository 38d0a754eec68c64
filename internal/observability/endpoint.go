// Package observability provides Prometheus metrics functionality for monitoring the rename pipeline.
// Sentry-related error telemetry is handled in the telemetry package.
package observability

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	metricspkg "github.com/zhu-jl18/vidrename-go/internal/observability/metrics"
)

// Endpoint serves the Prometheus scrape target and the pprof debug routes
// on the configured listen address.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
}

// NewEndpoint wires an Endpoint around an existing Metrics instance. It
// errors when the telemetry endpoint is disabled in settings so callers
// can treat a constructed Endpoint as one that should be started.
func NewEndpoint(settings *conf.Settings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Output.Telemetry.Enabled {
		return nil, errors.New("telemetry not enabled in settings")
	}

	return &Endpoint{
		listenAddress: settings.Output.Telemetry.Listen,
		metrics:       metrics,
	}, nil
}

// Start runs the HTTP server on its own goroutine tracked by wg. Closing
// quitChan shuts the server down gracefully.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)
	RegisterDebugHandlers(mux)

	e.server = &http.Server{
		Addr:    e.listenAddress,
		Handler: mux,
	}

	wg.Go(func() {
		getLogger().Info("Telemetry endpoint starting", "address", e.listenAddress)
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			getLogger().Error("Telemetry HTTP server error", "error", err)
		}
	})

	go e.gracefulShutdown(quitChan)
}

// gracefulShutdown waits for the quit signal and drains the server.
func (e *Endpoint) gracefulShutdown(quitChan <-chan struct{}) {
	<-quitChan
	getLogger().Info("Stopping telemetry server")
	ctx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		getLogger().Error("Telemetry server shutdown error", "error", err)
	}
}
