package installer

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sandevgo/tuskthread/internal/service/ui"
)

var (
	itemStyle = lipgloss.NewStyle().PaddingLeft(2)
	selStyle  = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
)

// Step is one screen of the setup wizard. Update returns nil once the step
// is done.
type Step interface {
	Init(state *InstallState) tea.Cmd
	Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd)
	View(state *InstallState) string
}

// skipper is implemented by steps that only apply to some providers.
type skipper interface {
	Skip(state *InstallState) bool
}

func getSteps() []Step {
	return []Step{
		NewProviderStep(),
		NewBaseURLStep(),
		NewAPIKeyStep(),
		NewModelStep(),
		NewWindowStep(),
		NewSaveEnvStep(),
	}
}

type errMsg error
type nextMsg struct{}

type model struct {
	steps       []Step
	currentStep int
	state       *InstallState
	quitting    bool
	err         error
}

func newModel(state *InstallState) model {
	return model{
		steps: getSteps(),
		state: state,
	}
}

func (m model) Init() tea.Cmd {
	return m.enter()
}

// enter initializes the current step, passing over steps that do not apply.
func (m *model) enter() tea.Cmd {
	for m.currentStep < len(m.steps) {
		if s, ok := m.steps[m.currentStep].(skipper); ok && s.Skip(m.state) {
			m.currentStep++
			continue
		}
		return m.steps[m.currentStep].Init(m.state)
	}
	return tea.Quit
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case errMsg:
		m.err = msg
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.currentStep >= len(m.steps) {
		return m, tea.Quit
	}

	next, cmd := m.steps[m.currentStep].Update(msg, m.state)
	if next == nil {
		m.currentStep++
		return m, m.enter()
	}
	m.steps[m.currentStep] = next
	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return "Setup cancelled.\n"
	}
	if m.err != nil {
		return ui.ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	}
	if m.currentStep >= len(m.steps) {
		return "Configuration complete!\n"
	}
	return ui.TitleStyle.Render("Setting up TuskThread") + "\n" + m.steps[m.currentStep].View(m.state)
}

// RunWizard walks the user through the provider settings and writes the
// .env. The returned state carries the written path.
func RunWizard(state *InstallState) (*InstallState, error) {
	p := tea.NewProgram(newModel(state), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := m.(model)
	if final.err != nil {
		return nil, final.err
	}
	if final.quitting {
		return nil, fmt.Errorf("setup interrupted")
	}
	return final.state, nil
}
