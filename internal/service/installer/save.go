package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sandevgo/tuskthread/internal/config"
	"github.com/sandevgo/tuskthread/pkg/env"
)

// SaveEnv writes cfg to the .env of its runtime directory and returns the
// file path. An existing file is only replaced when force is set.
func SaveEnv(cfg *config.AppConfig, force bool) (string, error) {
	envPath := filepath.Join(cfg.RuntimePath, ".env")
	if _, err := os.Stat(envPath); err == nil && !force {
		return "", fmt.Errorf("%s already exists, use --force to overwrite", envPath)
	}

	content, err := env.MarshalEnv(cfg)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create runtime directory: %w", err)
	}
	if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", envPath, err)
	}
	return envPath, nil
}
