package installer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandevgo/tuskthread/internal/service/ui"
)

// BaseURLStep asks for the endpoint of a self-hosted or custom provider.
// Ollama falls back to its local default when left empty.
type BaseURLStep struct {
	input textinput.Model
	err   string
}

func NewBaseURLStep() Step {
	return &BaseURLStep{}
}

func (s *BaseURLStep) Skip(state *InstallState) bool {
	return state.Config.Provider != "ollama" && state.Config.Provider != "custom"
}

func (s *BaseURLStep) required(state *InstallState) bool {
	return state.Config.Provider == "custom"
}

func (s *BaseURLStep) Init(state *InstallState) tea.Cmd {
	s.input = textinput.New()
	s.input.CharLimit = 255
	s.input.Width = 50
	s.input.Placeholder = "https://llm.example.com/v1"
	if !s.required(state) {
		s.input.Placeholder = "http://localhost:11434"
	}
	s.input.Focus()
	return textinput.Blink
}

func (s *BaseURLStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEnter {
		url := strings.TrimSpace(s.input.Value())
		if url == "" && s.required(state) {
			s.err = "a base URL is required for a custom provider"
			return s, nil
		}
		if url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			s.err = "the URL must start with http:// or https://"
			return s, nil
		}
		state.Config.BaseURL = url
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *BaseURLStep) View(state *InstallState) string {
	hint := ""
	if !s.required(state) {
		hint = " (press Enter for the default)"
	}
	view := fmt.Sprintf("Enter the %s base URL%s:\n\n%s\n", state.Config.Provider, hint, s.input.View())
	if s.err != "" {
		view += "\n" + ui.ErrorStyle.Render(s.err) + "\n"
	}
	return view
}
