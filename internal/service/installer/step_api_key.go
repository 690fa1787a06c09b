package installer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandevgo/tuskthread/internal/service/ui"
)

// APIKeyStep collects the provider key. Local and custom endpoints may run
// without one.
type APIKeyStep struct {
	input    textinput.Model
	optional bool
	err      string
}

func NewAPIKeyStep() Step {
	return &APIKeyStep{}
}

func (s *APIKeyStep) Init(state *InstallState) tea.Cmd {
	s.optional = state.Config.Provider == "ollama" || state.Config.Provider == "custom"

	s.input = textinput.New()
	s.input.CharLimit = 255
	s.input.Width = 40
	s.input.EchoMode = textinput.EchoPassword
	s.input.EchoCharacter = '•'

	switch state.Config.Provider {
	case "anthropic":
		s.input.Placeholder = "sk-ant-..."
	case "openai":
		s.input.Placeholder = "sk-..."
	case "openrouter":
		s.input.Placeholder = "sk-or-v1-..."
	default:
		s.input.Placeholder = "Optional - press Enter to skip"
		s.input.EchoMode = textinput.EchoNormal
	}
	s.input.Focus()
	return textinput.Blink
}

func (s *APIKeyStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEnter {
		key := strings.TrimSpace(s.input.Value())
		if key == "" && !s.optional {
			s.err = "an API key is required for " + state.Config.Provider
			return s, nil
		}
		state.Config.APIKey = key
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *APIKeyStep) View(state *InstallState) string {
	hint := ""
	if s.optional {
		hint = " (optional - press Enter to skip)"
	}
	view := fmt.Sprintf("Enter your %s API key%s:\n\n%s\n", state.Config.Provider, hint, s.input.View())
	if s.err != "" {
		view += "\n" + ui.ErrorStyle.Render(s.err) + "\n"
	}
	return view
}
