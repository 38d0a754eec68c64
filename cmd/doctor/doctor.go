// Package doctor implements environment preflight checks.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"
	"github.com/zhu-jl18/vidrename-go/internal/classify"
	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/observability"
)

const probeTimeout = 10 * time.Second

// Command creates the doctor command. It runs the same preflight
// checks a batch depends on and reports each one, so a failing setup
// can be diagnosed without touching any files.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the environment is ready for renaming",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0

			if hostInfo, err := host.Info(); err == nil {
				fmt.Fprintf(out, "System: %s %s (%s)\n",
					hostInfo.Platform, hostInfo.PlatformVersion, hostInfo.KernelArch)
			}

			if configPath, err := conf.FindConfigFile(); err == nil {
				fmt.Fprintf(out, "✅ Config file: %s\n", configPath)
			} else {
				fmt.Fprintf(out, "⚠️ No config file found, using defaults\n")
			}

			if version, _, _ := conf.GetFfmpegVersion(); version != "" {
				fmt.Fprintf(out, "✅ ffmpeg %s\n", version)
			} else {
				fmt.Fprintf(out, "❌ ffmpeg not found in PATH\n")
				failed++
			}

			if conf.IsFfprobeAvailable() {
				fmt.Fprintf(out, "✅ ffprobe found\n")
			} else {
				fmt.Fprintf(out, "❌ ffprobe not found in PATH\n")
				failed++
			}

			if err := probeVisionService(cmd.Context(), settings); err != nil {
				fmt.Fprintf(out, "❌ Vision service unreachable: %v\n", err)
				failed++
			} else {
				fmt.Fprintf(out, "✅ Vision service reachable at %s\n", settings.Classifier.APIURL)
			}

			reportDiskSpace(out)

			if failed > 0 {
				return fmt.Errorf("%d of the checks failed", failed)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}

func probeVisionService(ctx context.Context, settings *conf.Settings) error {
	obs, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	classifier, err := classify.New(&settings.Classifier, obs.Classifier)
	if err != nil {
		return err
	}
	defer classifier.Close()

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return classifier.Probe(ctx)
}

func reportDiskSpace(out io.Writer) {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	usage, err := disk.Usage(wd)
	if err != nil {
		return
	}
	fmt.Fprintf(out, "✅ Disk: %.1f GiB free on %s\n",
		float64(usage.Free)/(1024*1024*1024), wd)
}
