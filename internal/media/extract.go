package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

const (
	osWindows = "windows"

	// extractRetryShift is how far the seek position moves for the second
	// attempt when the first lands on nothing decodable, typically a seek
	// past the last keyframe.
	extractRetryShift = 0.5

	defaultMaxWidth  = 640
	defaultMaxHeight = 480
	defaultQuality   = 4
)

// FFmpegExtractor extracts single frames from video files as JPEG data on
// stdout, leaving no temporary files behind.
type FFmpegExtractor struct {
	// BinaryPath is the ffmpeg binary, a bare name is looked up in PATH.
	BinaryPath string
	// MaxWidth and MaxHeight bound the extracted frame, preserving aspect ratio.
	MaxWidth  int
	MaxHeight int
	// Quality is the ffmpeg qscale for the JPEG encoder, 2-31, lower is better.
	Quality int
}

// NewFFmpegExtractor builds an extractor from sampler settings, applying
// defaults for zero values.
func NewFFmpegExtractor(settings *conf.SamplerSettings) *FFmpegExtractor {
	e := &FFmpegExtractor{
		BinaryPath: settings.FfmpegPath,
		MaxWidth:   settings.MaxWidth,
		MaxHeight:  settings.MaxHeight,
		Quality:    settings.Quality,
	}
	if e.BinaryPath == "" {
		e.BinaryPath = "ffmpeg"
	}
	if e.MaxWidth <= 0 {
		e.MaxWidth = defaultMaxWidth
	}
	if e.MaxHeight <= 0 {
		e.MaxHeight = defaultMaxHeight
	}
	if e.Quality <= 0 {
		e.Quality = defaultQuality
	}
	return e
}

// ExtractFrame decodes one frame at the given timestamp. A seek that yields
// no decodable frame is retried once at a slightly shifted position before
// the file is reported as broken.
func (e *FFmpegExtractor) ExtractFrame(ctx context.Context, videoPath string, timestamp float64) ([]byte, error) {
	data, firstErr := e.extractOnce(ctx, videoPath, timestamp)
	if firstErr == nil {
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("frame extraction interrupted for %s: %w", videoPath, ctx.Err())
	}

	adjusted := retryTimestamp(timestamp)
	data, retryErr := e.extractOnce(ctx, videoPath, adjusted)
	if retryErr == nil {
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("frame extraction interrupted for %s: %w", videoPath, ctx.Err())
	}

	return nil, errors.New(retryErr).
		Category(errors.CategoryMedia).
		Context("operation", "extract-frame").
		Context("timestamp", timestamp).
		Context("adjusted_timestamp", adjusted).
		Context("first_error", firstErr.Error()).
		FileContext(videoPath, 0).
		Build()
}

// retryTimestamp shifts a failed seek position backwards, which recovers
// seeks that landed past the last keyframe. Positions too close to the start
// shift forwards instead so the seek stays inside the file.
func retryTimestamp(ts float64) float64 {
	adjusted := ts - extractRetryShift
	if adjusted < 0 {
		adjusted = ts + extractRetryShift
	}
	return adjusted
}

// extractOnce runs a single ffmpeg invocation writing JPEG bytes to stdout.
func (e *FFmpegExtractor) extractOnce(ctx context.Context, videoPath string, timestamp float64) ([]byte, error) {
	args := e.buildExtractArgs(videoPath, timestamp)
	cmd := createCommandWithNice(ctx, e.BinaryPath, args)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		return nil, fmt.Errorf("ffmpeg failed at %.3fs: %s", timestamp, errMsg)
	}

	if out.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame data at %.3fs", timestamp)
	}

	return out.Bytes(), nil
}

// buildExtractArgs assembles the ffmpeg arguments for one frame. The seek
// comes before the input for keyframe-fast seeking.
func (e *FFmpegExtractor) buildExtractArgs(videoPath string, timestamp float64) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(timestamp, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease", e.MaxWidth, e.MaxHeight),
		"-q:v", strconv.Itoa(e.Quality),
		"-f", "mjpeg",
		"pipe:1",
	}
}

// createCommandWithNice creates an exec.Cmd with a nice wrapper on non-Windows
// systems so batch extraction does not starve interactive work.
func createCommandWithNice(ctx context.Context, binary string, args []string) *exec.Cmd {
	if runtime.GOOS == osWindows {
		return exec.CommandContext(ctx, binary, args...) // #nosec G204 - binaries validated by exec.LookPath
	}
	return exec.CommandContext(ctx, "nice", append([]string{"-n", "19", binary}, args...)...) // #nosec G204 - binaries validated by exec.LookPath
}
