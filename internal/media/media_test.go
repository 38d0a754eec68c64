package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
)

type fakeProber struct {
	duration float64
	err      error
	calls    int
}

func (p *fakeProber) ProbeDuration(_ context.Context, _ string) (float64, error) {
	p.calls++
	return p.duration, p.err
}

// fakeExtractor returns synthetic frame data and can be told to fail on a
// specific call number.
type fakeExtractor struct {
	calls  int
	failAt int
	err    error
}

func (e *fakeExtractor) ExtractFrame(_ context.Context, _ string, ts float64) ([]byte, error) {
	e.calls++
	if e.failAt != 0 && e.calls == e.failAt {
		return nil, e.err
	}
	return fmt.Appendf(nil, "frame@%.3f", ts), nil
}

func TestTimestamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		duration   float64
		count      int
		edgeMargin float64
		want       []float64
	}{
		{
			name:       "three frames with edge margin",
			duration:   100,
			count:      3,
			edgeMargin: 0.02,
			want:       []float64{2, 50, 98},
		},
		{
			name:       "single frame lands in the middle",
			duration:   100,
			count:      1,
			edgeMargin: 0.02,
			want:       []float64{50},
		},
		{
			name:       "two frames sit at the margins",
			duration:   100,
			count:      2,
			edgeMargin: 0.02,
			want:       []float64{2, 98},
		},
		{
			name:       "zero margin spans the whole file",
			duration:   10,
			count:      3,
			edgeMargin: 0,
			want:       []float64{0, 5, 10},
		},
		{
			name:       "five frames evenly spaced",
			duration:   60,
			count:      5,
			edgeMargin: 0.1,
			want:       []float64{6, 18, 30, 42, 54},
		},
		{
			name:     "zero count yields nothing",
			duration: 100,
			count:    0,
			want:     nil,
		},
		{
			name:     "zero duration yields nothing",
			duration: 0,
			count:    3,
			want:     nil,
		},
		{
			name:     "negative duration yields nothing",
			duration: -5,
			count:    3,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Timestamps(tt.duration, tt.count, tt.edgeMargin)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.Len(t, got, len(tt.want))
			assert.InDeltaSlice(t, tt.want, got, 1e-9)
		})
	}
}

func TestTimestampsStayOrderedWithinMargins(t *testing.T) {
	t.Parallel()

	const duration = 3600.0
	const edgeMargin = 0.05
	lo := duration * edgeMargin
	hi := duration * (1 - edgeMargin)

	for count := 1; count <= 5; count++ {
		stamps := Timestamps(duration, count, edgeMargin)
		require.Len(t, stamps, count)
		for i, ts := range stamps {
			assert.GreaterOrEqual(t, ts, lo, "count=%d index=%d", count, i)
			assert.LessOrEqual(t, ts, hi, "count=%d index=%d", count, i)
			if i > 0 {
				assert.Greater(t, ts, stamps[i-1], "count=%d index=%d", count, i)
			}
		}
	}
}

func TestSamplerFramesAreLazy(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{duration: 100}
	extractor := &fakeExtractor{}
	sampler := &Sampler{Prober: prober, Extractor: extractor, Count: 3, EdgeMargin: 0.02}

	src, err := sampler.Frames(context.Background(), "video.mp4")
	require.NoError(t, err)
	assert.Equal(t, 1, prober.calls)
	assert.Equal(t, 0, extractor.calls, "no frame should be extracted before Next")

	frame, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, extractor.calls)
	assert.InDelta(t, 2.0, frame.Timestamp, 1e-9)
	assert.Equal(t, []byte("frame@2.000"), frame.JPEG)

	_, err = src.Next(context.Background())
	require.NoError(t, err)
	frame, err = src.Next(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 98.0, frame.Timestamp, 1e-9)
	assert.Equal(t, 3, extractor.calls)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 3, extractor.calls, "exhausted source must not extract again")
}

func TestSamplerFramesProbeFailure(t *testing.T) {
	t.Parallel()

	probeErr := errors.New("no duration")
	sampler := &Sampler{
		Prober:    &fakeProber{err: probeErr},
		Extractor: &fakeExtractor{},
		Count:     3,
	}

	src, err := sampler.Frames(context.Background(), "video.mp4")
	assert.Nil(t, src)
	assert.ErrorIs(t, err, probeErr)
}

func TestFrameIterRetriesFailedPosition(t *testing.T) {
	t.Parallel()

	extractErr := errors.New("decode failed")
	extractor := &fakeExtractor{failAt: 2, err: extractErr}
	sampler := &Sampler{
		Prober:     &fakeProber{duration: 100},
		Extractor:  extractor,
		Count:      3,
		EdgeMargin: 0.02,
	}

	src, err := sampler.Frames(context.Background(), "video.mp4")
	require.NoError(t, err)

	_, err = src.Next(context.Background())
	require.NoError(t, err)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, extractErr)

	// The failed position stays current, a later call picks it up again.
	frame, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 50.0, frame.Timestamp, 1e-9)
}

func TestCollectFrames(t *testing.T) {
	t.Parallel()

	t.Run("drains all frames", func(t *testing.T) {
		t.Parallel()
		sampler := &Sampler{
			Prober:     &fakeProber{duration: 100},
			Extractor:  &fakeExtractor{},
			Count:      3,
			EdgeMargin: 0.02,
		}
		src, err := sampler.Frames(context.Background(), "video.mp4")
		require.NoError(t, err)

		frames, err := CollectFrames(context.Background(), src)
		require.NoError(t, err)
		require.Len(t, frames, 3)
		assert.InDelta(t, 2.0, frames[0].Timestamp, 1e-9)
		assert.InDelta(t, 50.0, frames[1].Timestamp, 1e-9)
		assert.InDelta(t, 98.0, frames[2].Timestamp, 1e-9)
	})

	t.Run("aborts on extraction error", func(t *testing.T) {
		t.Parallel()
		extractErr := errors.New("decode failed")
		sampler := &Sampler{
			Prober:     &fakeProber{duration: 100},
			Extractor:  &fakeExtractor{failAt: 2, err: extractErr},
			Count:      3,
			EdgeMargin: 0.02,
		}
		src, err := sampler.Frames(context.Background(), "video.mp4")
		require.NoError(t, err)

		frames, err := CollectFrames(context.Background(), src)
		assert.Nil(t, frames)
		assert.ErrorIs(t, err, extractErr)
	})

	t.Run("zero count gives empty result", func(t *testing.T) {
		t.Parallel()
		sampler := &Sampler{
			Prober:    &fakeProber{duration: 100},
			Extractor: &fakeExtractor{},
			Count:     0,
		}
		src, err := sampler.Frames(context.Background(), "video.mp4")
		require.NoError(t, err)

		frames, err := CollectFrames(context.Background(), src)
		require.NoError(t, err)
		assert.Empty(t, frames)
	})
}

func TestNewFFmpegExtractorDefaults(t *testing.T) {
	t.Parallel()

	t.Run("zero settings fall back to defaults", func(t *testing.T) {
		t.Parallel()
		e := NewFFmpegExtractor(&conf.SamplerSettings{})
		assert.Equal(t, "ffmpeg", e.BinaryPath)
		assert.Equal(t, defaultMaxWidth, e.MaxWidth)
		assert.Equal(t, defaultMaxHeight, e.MaxHeight)
		assert.Equal(t, defaultQuality, e.Quality)
	})

	t.Run("configured values are kept", func(t *testing.T) {
		t.Parallel()
		e := NewFFmpegExtractor(&conf.SamplerSettings{
			FfmpegPath: "/opt/ffmpeg/bin/ffmpeg",
			MaxWidth:   1280,
			MaxHeight:  720,
			Quality:    2,
		})
		assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", e.BinaryPath)
		assert.Equal(t, 1280, e.MaxWidth)
		assert.Equal(t, 720, e.MaxHeight)
		assert.Equal(t, 2, e.Quality)
	})
}

func TestBuildExtractArgs(t *testing.T) {
	t.Parallel()

	e := &FFmpegExtractor{MaxWidth: 640, MaxHeight: 480, Quality: 4}
	args := e.buildExtractArgs("/videos/clip.mp4", 12.5)

	want := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", "12.500",
		"-i", "/videos/clip.mp4",
		"-frames:v", "1",
		"-vf", "scale=w=640:h=480:force_original_aspect_ratio=decrease",
		"-q:v", "4",
		"-f", "mjpeg",
		"pipe:1",
	}
	assert.Equal(t, want, args)

	// Seek placed before the input keeps ffmpeg on the fast keyframe path.
	assert.Less(t, indexOf(args, "-ss"), indexOf(args, "-i"))
}

func TestRetryTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ts   float64
		want float64
	}{
		{name: "shifts backwards", ts: 12.0, want: 11.5},
		{name: "shifts forwards near the start", ts: 0.2, want: 0.7},
		{name: "exactly at the shift lands on zero", ts: 0.5, want: 0},
		{name: "start of file shifts forwards", ts: 0, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, retryTimestamp(tt.ts), 1e-9)
		})
	}
}

func indexOf(args []string, want string) int {
	for i, a := range args {
		if a == want {
			return i
		}
	}
	return -1
}
