package installer

import (
	tea "github.com/charmbracelet/bubbletea"
)

// SaveEnvStep writes the collected configuration to disk.
type SaveEnvStep struct{}

func NewSaveEnvStep() Step {
	return &SaveEnvStep{}
}

func (s *SaveEnvStep) Init(state *InstallState) tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *SaveEnvStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if _, ok := msg.(nextMsg); !ok {
		return s, nil
	}

	path, err := SaveEnv(state.Config, state.Force)
	if err != nil {
		return s, func() tea.Msg { return errMsg(err) }
	}
	state.EnvPath = path
	return nil, nil
}

func (s *SaveEnvStep) View(state *InstallState) string {
	return "Saving configuration...\n"
}
