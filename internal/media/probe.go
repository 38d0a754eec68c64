package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

// probeTimeout bounds ffprobe when the caller's context carries no deadline.
const probeTimeout = 10 * time.Second

// FFprobeProber reads video durations with ffprobe.
type FFprobeProber struct {
	// BinaryPath is the ffprobe binary, a bare name is looked up in PATH.
	BinaryPath string
}

// ProbeDuration uses ffprobe to get the duration of a video file in seconds.
// This supports every container format ffprobe can handle. The context allows
// for cancellation and timeout to prevent hanging on damaged files.
func (p *FFprobeProber) ProbeDuration(ctx context.Context, videoPath string) (float64, error) {
	if videoPath == "" {
		return 0, errors.Newf("video path cannot be empty").
			Category(errors.CategoryValidation).
			Context("operation", "probe-duration").
			Build()
	}

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
	} else if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, probeTimeout)
		defer cancel()
	}

	binary := p.BinaryPath
	if binary == "" {
		binary = "ffprobe"
	}

	// -v error: suppress all output except errors
	// -show_entries format=duration: only show duration from format section
	// -of default=noprint_wrappers=1:nokey=1: output just the value, no formatting
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Context cancellation is reported as-is so callers can tell an
		// aborted run from a broken file.
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe interrupted for %s: %w", videoPath, ctx.Err())
		}
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		return 0, errors.Newf("ffprobe failed: %s", errMsg).
			Category(errors.CategoryMedia).
			Context("operation", "probe-duration").
			FileContext(videoPath, 0).
			Build()
	}

	durationStr := strings.TrimSpace(out.String())
	if durationStr == "" || durationStr == "N/A" {
		return 0, errors.Newf("ffprobe could not determine duration").
			Category(errors.CategoryMedia).
			Context("operation", "probe-duration").
			FileContext(videoPath, 0).
			Build()
	}

	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, errors.New(fmt.Errorf("failed to parse duration '%s': %w", durationStr, err)).
			Category(errors.CategoryMedia).
			Context("operation", "probe-duration").
			Build()
	}

	if duration <= 0 {
		return 0, errors.Newf("invalid duration %f", duration).
			Category(errors.CategoryMedia).
			Context("operation", "probe-duration").
			FileContext(videoPath, 0).
			Build()
	}

	return duration, nil
}
