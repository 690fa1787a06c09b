package installer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandevgo/tuskthread/internal/service/ui"
)

// ModelStep asks for the model name. An empty answer keeps the provider default.
type ModelStep struct {
	input textinput.Model
	err   string
}

func NewModelStep() Step {
	return &ModelStep{}
}

func (s *ModelStep) Init(state *InstallState) tea.Cmd {
	s.input = textinput.New()
	s.input.CharLimit = 128
	s.input.Width = 40
	s.input.Placeholder = state.Config.Model
	s.input.Focus()
	return textinput.Blink
}

func (s *ModelStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEnter {
		model := strings.TrimSpace(s.input.Value())
		if model == "" {
			model = state.Config.Model
		}
		if model == "" {
			s.err = "a model name is required"
			return s, nil
		}
		state.Config.Model = model
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ModelStep) View(state *InstallState) string {
	view := fmt.Sprintf("Which model should answer?\n\n%s\n", s.input.View())
	if s.err != "" {
		view += "\n" + ui.ErrorStyle.Render(s.err) + "\n"
	}
	return view
}
