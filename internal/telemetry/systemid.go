package telemetry

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/zhu-jl18/vidrename-go/internal/errors"
	"github.com/zhu-jl18/vidrename-go/internal/privacy"
)

// systemIDFile stores the anonymous install identifier next to the config.
const systemIDFile = ".system_id"

// LoadOrCreateSystemID loads the persistent system ID from configDir,
// generating and saving a new one when the file is missing or malformed.
// The ID identifies an installation, never a user or a host.
func LoadOrCreateSystemID(configDir string) (string, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "create-config-directory").
			Build()
	}

	idFile := filepath.Join(configDir, systemIDFile)

	if data, err := os.ReadFile(idFile); err == nil {
		id := strings.TrimSpace(string(data))
		if privacy.IsValidSystemID(id) {
			return id, nil
		}
		getLogger().Warn("Stored system ID is malformed, generating a new one", "path", idFile)
	}

	id, err := privacy.GenerateSystemID()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "generate-system-id").
			Build()
	}

	if err := os.WriteFile(idFile, []byte(id), 0o644); err != nil {
		return "", errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "save-system-id").
			Build()
	}

	return id, nil
}
