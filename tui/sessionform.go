package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"awsom/awsconfig"
	"awsom/styles"
)

var formFields = []string{
	"Session name:",
	"Start URL:",
	"SSO region:",
}

// Initialize form inputs
func initialInputs(defaults awsconfig.SSOSession) []textinput.Model {
	inputs := make([]textinput.Model, 3)
	placeholders := []string{"my-company", "https://company.awsapps.com/start", "us-east-1"}
	values := []string{defaults.Name, defaults.StartURL, defaults.Region}
	limits := []int{50, 100, 20}

	for i := range inputs {
		t := textinput.New()
		t.Placeholder = placeholders[i]
		t.SetValue(values[i])
		t.CharLimit = limits[i]
		t.Width = 40
		t.Prompt = "› "
		t.PromptStyle = lipgloss.NewStyle().Foreground(styles.Primary)
		inputs[i] = t
	}
	inputs[0].Focus()
	return inputs
}

// ValidateSession checks a session entered by the user.
func ValidateSession(s awsconfig.SSOSession, existing []string) error {
	switch {
	case s.Name == "":
		return fmt.Errorf("session name cannot be empty")
	case strings.ContainsAny(s.Name, "[] \t"):
		return fmt.Errorf("session name cannot contain spaces or brackets")
	case slices.Contains(existing, s.Name):
		return fmt.Errorf("a session named %q already exists", s.Name)
	case s.StartURL == "":
		return fmt.Errorf("start URL cannot be empty")
	case !strings.HasPrefix(s.StartURL, "https://"):
		return fmt.Errorf("start URL should look like https://company.awsapps.com/start")
	case s.Region == "":
		return fmt.Errorf("region cannot be empty")
	}
	return nil
}

type sessionFormModel struct {
	inputs     []textinput.Model
	focusIndex int
	existing   []string
	formError  string
	result     *awsconfig.SSOSession
	quitting   bool
}

func newSessionFormModel(defaults awsconfig.SSOSession, existing []string) sessionFormModel {
	return sessionFormModel{inputs: initialInputs(defaults), existing: existing}
}

func (m sessionFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m sessionFormModel) values() awsconfig.SSOSession {
	return awsconfig.SSOSession{
		Name:     strings.TrimSpace(m.inputs[0].Value()),
		StartURL: strings.TrimSpace(m.inputs[1].Value()),
		Region:   strings.TrimSpace(m.inputs[2].Value()),
	}
}

func (m sessionFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "tab", "shift+tab", "enter", "up", "down":
			if msg.String() == "enter" && m.focusIndex == len(m.inputs) {
				s := m.values()
				if err := ValidateSession(s, m.existing); err != nil {
					m.formError = err.Error()
					return m, nil
				}
				m.result = &s
				m.quitting = true
				return m, tea.Quit
			}

			if msg.String() == "up" || msg.String() == "shift+tab" {
				m.focusIndex--
			} else {
				m.focusIndex++
			}
			if m.focusIndex > len(m.inputs) {
				m.focusIndex = 0
			} else if m.focusIndex < 0 {
				m.focusIndex = len(m.inputs)
			}

			var cmds []tea.Cmd
			for i := range m.inputs {
				if i == m.focusIndex {
					cmds = append(cmds, m.inputs[i].Focus())
				} else {
					m.inputs[i].Blur()
				}
			}
			return m, tea.Batch(cmds...)
		}
	}

	if m.focusIndex < len(m.inputs) {
		var cmd tea.Cmd
		m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m sessionFormModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n")
	for i, field := range formFields {
		label := styles.MutedStyle.Render(field)
		if i == m.focusIndex {
			label = styles.HighlightStyle.Render(field)
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", label, m.inputs[i].View())
	}

	button := "[ Save ]"
	if m.focusIndex == len(m.inputs) {
		button = styles.HighlightStyle.Render(button)
	}
	b.WriteString("\n" + button + "\n\n")

	if m.formError != "" {
		b.WriteString("\n" + styles.ErrorStyle.Render(m.formError) + "\n")
	}
	b.WriteString("\n" + styles.MutedStyle.Render("Press ESC to cancel") + "\n")

	return lipgloss.JoinVertical(lipgloss.Left, styles.TitleStyle.Render("Add SSO session"), b.String())
}

// RunSessionForm asks for a new session. ok is false when cancelled.
func RunSessionForm(defaults awsconfig.SSOSession, existing []string) (awsconfig.SSOSession, bool, error) {
	final, err := tea.NewProgram(newSessionFormModel(defaults, existing)).Run()
	if err != nil {
		return awsconfig.SSOSession{}, false, fmt.Errorf("session form: %w", err)
	}
	m := final.(sessionFormModel)
	if m.result == nil {
		return awsconfig.SSOSession{}, false, nil
	}
	return *m.result, true, nil
}
