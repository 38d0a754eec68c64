package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhu-jl18/vidrename-go/cmd"
	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/logging"
	"github.com/zhu-jl18/vidrename-go/internal/telemetry"
)

// Populated by the linker at build time.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1
	}
	settings.Version = version
	settings.BuildDate = buildDate

	if err := telemetry.InitSentry(settings); err != nil {
		logging.Warn("Telemetry initialization failed", "error", err)
	}
	defer telemetry.Flush(2 * time.Second)

	// SIGINT and SIGTERM cancel the batch context. In-flight renames
	// finish, everything not yet dispatched is dropped.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.RootCommand(settings).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}
