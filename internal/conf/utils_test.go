package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfigPaths(t *testing.T) {
	t.Parallel()

	paths, err := GetDefaultConfigPaths()
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		assert.NotEmpty(t, path)
		assert.Contains(t, path, "vidrename")
	}
}

func TestParseFfmpegVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		output      string
		wantVersion string
		wantMajor   int
		wantMinor   int
	}{
		{
			name:        "debian release build",
			output:      "ffmpeg version 7.1.2-0+deb13u1 Copyright (c) 2000-2025 the FFmpeg developers",
			wantVersion: "7.1.2-0+deb13u1",
			wantMajor:   7,
			wantMinor:   1,
		},
		{
			name:        "raspberry pi build",
			output:      "ffmpeg version 5.1.7-0+deb12u1+rpt1 Copyright (c) 2000-2025 the FFmpeg developers",
			wantVersion: "5.1.7-0+deb12u1+rpt1",
			wantMajor:   5,
			wantMinor:   1,
		},
		{
			name: "git build falls back to libavutil",
			output: "ffmpeg version N-121000-g7321e4b950 Copyright (c) 2000-2025 the FFmpeg developers\n" +
				"libavutil      59.  8.100 / 59.  8.100\n",
			wantVersion: "N-121000-g7321e4b950",
			wantMajor:   7,
			wantMinor:   8,
		},
		{
			name:        "empty output",
			output:      "",
			wantVersion: "",
			wantMajor:   0,
			wantMinor:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			version, major, minor := ParseFfmpegVersion(tt.output)
			assert.Equal(t, tt.wantVersion, version)
			assert.Equal(t, tt.wantMajor, major)
			assert.Equal(t, tt.wantMinor, minor)
		})
	}
}

func TestValidateToolPath(t *testing.T) {
	t.Parallel()

	t.Run("missing tool reports error", func(t *testing.T) {
		t.Parallel()
		_, err := ValidateToolPath("", "definitely-not-a-real-tool-xyz")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "definitely-not-a-real-tool-xyz")
	})

	t.Run("configured path to existing file is accepted", func(t *testing.T) {
		t.Parallel()
		toolPath := filepath.Join(t.TempDir(), "fake-ffmpeg")
		require.NoError(t, os.WriteFile(toolPath, []byte("#!/bin/sh\n"), 0o755))

		resolved, err := ValidateToolPath(toolPath, "fake-ffmpeg")
		require.NoError(t, err)
		assert.Equal(t, toolPath, resolved)
	})
}

func TestGetCacheDir(t *testing.T) {
	t.Parallel()

	dir, err := GetCacheDir()
	require.NoError(t, err)
	assert.Contains(t, dir, "vidrename")

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
