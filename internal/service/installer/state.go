package installer

import "github.com/sandevgo/tuskthread/internal/config"

// InstallState is what the wizard fills in. Steps write straight into Config.
type InstallState struct {
	Config  *config.AppConfig
	// Force replaces an existing .env.
	Force   bool
	// EnvPath is set once the .env is written.
	EnvPath string
}

func NewInstallState(cfg *config.AppConfig, force bool) *InstallState {
	return &InstallState{Config: cfg, Force: force}
}
