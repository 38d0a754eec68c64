// Package rename implements the batch rename command, the main entry
// point of the pipeline.
package rename

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zhu-jl18/vidrename-go/internal/classify"
	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/mqtt"
	"github.com/zhu-jl18/vidrename-go/internal/notify"
	"github.com/zhu-jl18/vidrename-go/internal/observability"
	"github.com/zhu-jl18/vidrename-go/internal/pipeline"
)

// Command creates the rename command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename [directory]",
		Short: "Rename opaque video files after their content",
		Long: "Scan a directory for video files with machine-generated names, describe " +
			"each one through the configured vision service and rename it in place.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			return runBatch(cmd, settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// runBatch wires the pipeline together and runs one batch. Per-file
// failures are reported through the summary and the journal; only
// startup problems surface as a command error.
func runBatch(cmd *cobra.Command, settings *conf.Settings) error {
	obs, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	classifier, err := classify.New(&settings.Classifier, obs.Classifier)
	if err != nil {
		return fmt.Errorf("failed to initialize classifier: %w", err)
	}
	defer classifier.Close()

	var publisher mqtt.Client
	if settings.Output.MQTT.Enabled {
		publisher, err = mqtt.NewClient(settings, obs)
		if err != nil {
			return fmt.Errorf("failed to initialize MQTT client: %w", err)
		}
	}

	notifier, err := notify.NewNotifier(&settings.Output.Notification)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}

	if settings.Output.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(settings, obs)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry endpoint: %w", err)
		}
		var wg sync.WaitGroup
		quitChan := make(chan struct{})
		endpoint.Start(&wg, quitChan)
		defer func() {
			close(quitChan)
			wg.Wait()
		}()
	}

	runner, err := pipeline.New(settings, classifier, publisher, notifier, obs)
	if err != nil {
		return err
	}

	stats, err := runner.Run(cmd.Context(), settings.Input.Path)
	if err != nil {
		return err
	}

	printSummary(cmd, settings, stats)
	return nil
}

func printSummary(cmd *cobra.Command, settings *conf.Settings, stats *pipeline.RunStats) {
	out := cmd.OutOrStdout()

	verb, count := "renamed", stats.Renamed
	if settings.Input.DryRun {
		verb, count = "planned", stats.Planned
	}
	fmt.Fprintf(out, "Processed %d candidates in %s: %d %s, %d failed, %d already readable\n",
		stats.Candidates, stats.Elapsed.Round(time.Millisecond), count, verb, stats.Failed, stats.Skipped)
	if stats.TooSmall > 0 {
		fmt.Fprintf(out, "%d files below the size floor were ignored\n", stats.TooSmall)
	}
	if stats.Interrupted > 0 {
		fmt.Fprintf(out, "%d tasks interrupted before completion\n", stats.Interrupted)
	}
	if stats.JournalPath != "" {
		fmt.Fprintf(out, "Journal written to %s\n", stats.JournalPath)
	}
}

// setupFlags configures flags specific to the rename command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVarP(&settings.Input.DryRun, "dry-run", "n", false, "Plan renames without touching any files")
	cmd.Flags().BoolVarP(&settings.Input.Recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().IntVar(&settings.Scheduler.MaxWorkers, "workers", viper.GetInt("scheduler.maxworkers"), "Number of files processed concurrently")
	cmd.Flags().IntVar(&settings.Scheduler.MaxRetries, "retries", viper.GetInt("scheduler.maxretries"), "Classification attempts per file")
	cmd.Flags().IntVar(&settings.Sampler.Count, "screenshots", viper.GetInt("sampler.count"), "Frames sampled from each video")
	cmd.Flags().StringVar(&settings.Classifier.APIURL, "api-url", viper.GetString("classifier.apiurl"), "Vision service endpoint URL")
	cmd.Flags().Int64Var(&settings.Scanner.MinSize, "min-size", viper.GetInt64("scanner.minsize"), "Minimum file size in bytes to consider")
	cmd.Flags().StringVar(&settings.Journal.Path, "journal", viper.GetString("journal.path"), "Journal file path (empty for rename_log_<timestamp>.jsonl)")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
