// conf/utils.go helpers for config discovery and external tool lookup
package conf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

// OS name constants for runtime.GOOS comparisons.
const (
	osLinux   = "linux"
	osWindows = "windows"
)

// GetDefaultConfigPaths returns the per-OS directories searched for
// config.yaml. When one of them already holds a config.yaml, only that
// directory is returned so later writes land next to the file being read.
func GetDefaultConfigPaths() ([]string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-executable-path").
			Build()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	var configPaths []string
	switch runtime.GOOS {
	case osWindows:
		configPaths = []string{
			filepath.Dir(exePath),
			filepath.Join(homeDir, "AppData", "Roaming", "vidrename"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "vidrename"),
			"/etc/vidrename",
		}
	}

	for _, path := range configPaths {
		configFile := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFile); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// FindConfigFile locates the configuration file.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "find-config-paths").
			Build()
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Category(errors.CategoryFileIO).
		Context("operation", "find-config-file").
		Build()
}

// GetCacheDir returns the directory where vidrename stores its cache files,
// creating it if necessary.
func GetCacheDir() (string, error) {
	baseDir, err := os.UserCacheDir()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-user-cache-dir").
			Build()
	}

	cacheDir := filepath.Join(baseDir, "vidrename")
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return "", errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create-cache-dir").
			Context("path", cacheDir).
			Build()
	}

	return cacheDir, nil
}

// RunningInContainer reports whether the process runs inside a container,
// checking the Docker and Podman marker files, the "container" environment
// variable, and finally the cgroup hierarchy.
func RunningInContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if _, err := os.Stat("/run/.containerenv"); err == nil {
		return true
	}
	if containerEnv, exists := os.LookupEnv("container"); exists && containerEnv != "" {
		return true
	}

	file, err := os.Open("/proc/self/cgroup")
	if err != nil {
		return false
	}
	defer func() {
		if err := file.Close(); err != nil {
			getLogger().Warn("Failed to close /proc/self/cgroup", "error", err)
		}
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "docker") || strings.Contains(line, "podman") {
			return true
		}
	}

	return false
}

// GetFfmpegBinaryName returns the binary name for ffmpeg based on the current OS.
func GetFfmpegBinaryName() string {
	if runtime.GOOS == osWindows {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// GetFfprobeBinaryName returns the binary name for ffprobe based on the current OS.
func GetFfprobeBinaryName() string {
	if runtime.GOOS == osWindows {
		return "ffprobe.exe"
	}
	return "ffprobe"
}

// IsFfmpegAvailable checks if ffmpeg is available in the system PATH.
func IsFfmpegAvailable() bool {
	_, err := exec.LookPath(GetFfmpegBinaryName())
	return err == nil
}

// IsFfprobeAvailable checks if ffprobe is available in the system PATH.
func IsFfprobeAvailable() bool {
	_, err := exec.LookPath(GetFfprobeBinaryName())
	return err == nil
}

// GetFfmpegVersion runs `ffmpeg -version` for the PATH binary and reports
// the version string plus the parsed major.minor pair. All zero values
// when ffmpeg is missing or the output is unparseable.
func GetFfmpegVersion() (version string, major, minor int) {
	ffmpegPath, err := exec.LookPath(GetFfmpegBinaryName())
	if err != nil {
		return "", 0, 0
	}

	cmd := exec.Command(ffmpegPath, "-version") //nolint:gosec // G204: ffmpegPath resolved via exec.LookPath()
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", 0, 0
	}

	return ParseFfmpegVersion(string(output))
}

// ParseFfmpegVersion extracts the version string and major.minor pair from
// `ffmpeg -version` output. Release builds carry the numbers on the banner
// line ("ffmpeg version 7.1.2-0+deb13u1 Copyright ..."); git builds
// ("N-121000-g...") do not, so those map the libavutil release back to the
// ffmpeg version it shipped with.
func ParseFfmpegVersion(output string) (version string, major, minor int) {
	banner, _, _ := strings.Cut(output, "\n")
	_, rest, found := strings.Cut(banner, "version ")
	if !found {
		return "", 0, 0
	}
	version, _, _ = strings.Cut(rest, " ")

	majorStr, minorStr, _ := strings.Cut(version, ".")
	major = leadingInt(majorStr)
	minor = leadingInt(minorStr)

	if major == 0 && minor == 0 {
		major, minor = parseLibavutilVersion(output)
	}

	return version, major, minor
}

// parseLibavutilVersion finds the libavutil line ("libavutil  59.  8.100 / ...")
// and maps its major to the owning ffmpeg release: 59+ shipped with ffmpeg 7,
// 58 with 6, 57 with 5, 56 with 4.
func parseLibavutilVersion(output string) (major, minor int) {
	for line := range strings.Lines(output) {
		if !strings.Contains(line, "libavutil") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		libMajor := leadingInt(fields[1])
		if libMajor == 0 {
			continue
		}

		switch {
		case libMajor >= 59:
			major = 7
		case libMajor >= 58:
			major = 6
		case libMajor >= 57:
			major = 5
		case libMajor >= 56:
			major = 4
		default:
			major = 3
		}
		return major, leadingInt(fields[2])
	}
	return 0, 0
}

// leadingInt parses the digits at the start of s, 0 when there are none.
func leadingInt(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, _ := strconv.Atoi(s[:i])
	return n
}

// ValidateToolPath resolves an external tool to a runnable path. An
// explicitly configured path wins when it points at an existing file;
// otherwise the tool name is looked up in PATH.
func ValidateToolPath(configuredPath, toolName string) (string, error) {
	if configuredPath != "" && configuredPath != toolName {
		if info, err := os.Stat(configuredPath); err == nil && !info.IsDir() {
			return configuredPath, nil
		}
		getLogger().Warn("Configured tool path invalid or not found, checking system PATH",
			"configured_path", configuredPath,
			"tool", toolName)
	}

	pathFromLookPath, err := exec.LookPath(toolName)
	if err == nil {
		return pathFromLookPath, nil
	}

	if configuredPath != "" && configuredPath != toolName {
		return "", fmt.Errorf("tool '%s' not found at configured path '%s' or in system PATH", toolName, configuredPath)
	}
	return "", fmt.Errorf("tool '%s' not found in system PATH and no path configured", toolName)
}

// moveFile renames src to dst, falling back to copy-and-delete when the
// two live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("error resolving source path: %w", err)
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("error resolving destination path: %w", err)
	}

	srcFile, err := os.Open(srcAbs) //nolint:gosec // G304: srcAbs is filepath.Abs resolved path
	if err != nil {
		return fmt.Errorf("error opening source file: %w", err)
	}
	defer func() {
		if err := srcFile.Close(); err != nil {
			getLogger().Warn("Failed to close source file", "error", err)
		}
	}()

	dstFile, err := os.Create(dstAbs) //nolint:gosec // G304: dstAbs is filepath.Abs resolved path
	if err != nil {
		return fmt.Errorf("error creating destination file: %w", err)
	}
	defer func() {
		if err := dstFile.Close(); err != nil {
			getLogger().Warn("Failed to close destination file", "error", err)
		}
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("error copying file contents: %w", err)
	}

	// The copy succeeded; a failed remove leaves both files behind.
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("error removing source file after copy: %w", err)
	}

	return nil
}
