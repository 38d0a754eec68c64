// Package secrets resolves credentials from environment variables and
// mounted secret files so they never have to live in config.yaml.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// maxSecretFileSize caps secret file reads. Secrets are tokens and
// passwords, not documents.
const maxSecretFileSize = 64 * 1024

func getLogger() *slog.Logger {
	return slog.Default().With("service", "secrets")
}

// ExpandString resolves ${VAR} and ${VAR:-default} references in s
// against the environment. A reference without a fallback fails when
// the variable is unset, so a missing credential surfaces at startup
// instead of as an authentication error mid-batch.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string

	expanded := os.Expand(s, func(key string) string {
		name := key
		fallback := ""
		hasFallback := false

		if idx := strings.Index(key, ":-"); idx != -1 {
			name = key[:idx]
			fallback = key[idx+2:]
			hasFallback = true
		}

		value := os.Getenv(name)
		if value == "" {
			if hasFallback {
				return fallback
			}
			missing = append(missing, name)
			return ""
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	return expanded, nil
}

// ReadFile reads a secret from path, typically a Docker or Kubernetes
// secret mounted under /run/secrets. Trailing newlines are trimmed.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("secret file path is empty")
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("secret file not found: %s", cleanPath)
		}
		return "", fmt.Errorf("failed to stat secret file %s: %w", cleanPath, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", cleanPath)
	}
	if info.Size() > maxSecretFileSize {
		return "", fmt.Errorf("secret file too large (max %d bytes): %s", maxSecretFileSize, cleanPath)
	}

	// Mounted secrets are expected to be owner-only.
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		getLogger().Warn("Secret file is readable by group or others",
			"path", cleanPath,
			"permissions", fmt.Sprintf("%04o", perm))
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", cleanPath, err)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret file is empty: %s", cleanPath)
	}

	return secret, nil
}

// Resolve returns the secret read from filePath when one is configured,
// otherwise value with environment references expanded. An empty result
// is not an error; optional credentials stay optional.
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}

	if value != "" {
		return ExpandString(value)
	}

	return "", nil
}
