// Package media probes video files and extracts representative frames
// with ffmpeg. Frames are pulled one at a time so callers stop paying for
// extraction as soon as something goes wrong.
package media

import (
	"context"
	"io"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

// Frame holds one extracted video frame as JPEG bytes plus the timestamp it
// was taken from, in seconds from the start of the video.
type Frame struct {
	Timestamp float64
	JPEG      []byte
}

// FrameSource yields frames one at a time. Next returns io.EOF after the
// last frame has been delivered.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// DurationProber reports the playable duration of a video file in seconds.
type DurationProber interface {
	ProbeDuration(ctx context.Context, videoPath string) (float64, error)
}

// FrameExtractor extracts a single frame at the given timestamp.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, videoPath string, timestamp float64) ([]byte, error)
}

// Sampler produces frame sources for video files. The zero value is not
// usable; construct with NewSampler or fill every field.
type Sampler struct {
	Prober     DurationProber
	Extractor  FrameExtractor
	Count      int
	EdgeMargin float64
}

// NewSampler builds a Sampler backed by the configured ffprobe and ffmpeg
// binaries, resolved against the filesystem and PATH up front so every
// extraction runs the same binary.
func NewSampler(settings *conf.SamplerSettings) *Sampler {
	extractor := NewFFmpegExtractor(settings)
	extractor.BinaryPath = resolveTool(extractor.BinaryPath, conf.GetFfmpegBinaryName())

	return &Sampler{
		Prober:     &FFprobeProber{BinaryPath: resolveTool(settings.FfprobePath, conf.GetFfprobeBinaryName())},
		Extractor:  extractor,
		Count:      settings.Count,
		EdgeMargin: settings.EdgeMargin,
	}
}

// resolveTool resolves a configured binary path, falling back to a PATH
// lookup of name. Resolution failure keeps the configured value so the
// eventual exec error names the binary that was asked for.
func resolveTool(configured, name string) string {
	if configured == "" {
		configured = name
	}
	path, err := conf.ValidateToolPath(configured, name)
	if err != nil {
		return configured
	}
	return path
}

// Frames probes the video duration and returns a source that lazily extracts
// the configured number of frames at evenly spaced timestamps.
func (s *Sampler) Frames(ctx context.Context, videoPath string) (FrameSource, error) {
	duration, err := s.Prober.ProbeDuration(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	return &frameIter{
		extractor: s.Extractor,
		videoPath: videoPath,
		stamps:    Timestamps(duration, s.Count, s.EdgeMargin),
	}, nil
}

// Timestamps returns count seek positions for a video of the given duration,
// evenly spaced and keeping edgeMargin of the duration clear at both ends.
// Intro cards and credits cluster at the edges, which is why they are
// excluded. A single frame lands in the middle.
func Timestamps(duration float64, count int, edgeMargin float64) []float64 {
	if count <= 0 || duration <= 0 {
		return nil
	}

	lo := duration * edgeMargin
	hi := duration * (1 - edgeMargin)

	if count == 1 {
		return []float64{(lo + hi) / 2}
	}

	stamps := make([]float64, count)
	step := (hi - lo) / float64(count-1)
	for i := range stamps {
		stamps[i] = lo + step*float64(i)
	}
	return stamps
}

type frameIter struct {
	extractor FrameExtractor
	videoPath string
	stamps    []float64
	idx       int
}

func (it *frameIter) Next(ctx context.Context) (Frame, error) {
	if it.idx >= len(it.stamps) {
		return Frame{}, io.EOF
	}

	ts := it.stamps[it.idx]
	data, err := it.extractor.ExtractFrame(ctx, it.videoPath, ts)
	if err != nil {
		return Frame{}, err
	}

	it.idx++
	return Frame{Timestamp: ts, JPEG: data}, nil
}

// CollectFrames drains a FrameSource into a slice. The first extraction
// error aborts the whole collection.
func CollectFrames(ctx context.Context, src FrameSource) ([]Frame, error) {
	var frames []Frame
	for {
		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
}
