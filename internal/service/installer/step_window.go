package installer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandevgo/tuskthread/internal/service/ui"
)

// WindowStep sets how many recent turns are sent verbatim.
type WindowStep struct {
	input textinput.Model
	err   string
}

func NewWindowStep() Step {
	return &WindowStep{}
}

func (s *WindowStep) Init(state *InstallState) tea.Cmd {
	s.input = textinput.New()
	s.input.CharLimit = 4
	s.input.Width = 10
	s.input.Placeholder = strconv.Itoa(state.Config.HotWindowSize)
	s.input.Focus()
	return textinput.Blink
}

func (s *WindowStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEnter {
		raw := strings.TrimSpace(s.input.Value())
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.err = "enter a positive number of turns"
			return s, nil
		}
		state.Config.HotWindowSize = n
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *WindowStep) View(state *InstallState) string {
	view := fmt.Sprintf("How many recent turns stay verbatim in the context? (press Enter for %d)\n\n%s\n",
		state.Config.HotWindowSize, s.input.View())
	if s.err != "" {
		view += "\n" + ui.ErrorStyle.Render(s.err) + "\n"
	}
	return view
}
