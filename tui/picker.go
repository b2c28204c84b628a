package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"awsom/aws"
	"awsom/styles"
)

// Items to display in list
type item struct {
	title       string
	description string
	role        aws.AccountRole
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.description }
func (i item) FilterValue() string { return i.title + " " + i.role.AccountID }

func roleItems(roles []aws.AccountRole) []list.Item {
	items := make([]list.Item, len(roles))
	for i, r := range roles {
		items[i] = item{
			title:       r.DisplayName(),
			description: fmt.Sprintf("Account ID: %s", r.AccountID),
			role:        r,
		}
	}
	return items
}

type pickerModel struct {
	list     list.Model
	selected *aws.AccountRole
	quitting bool
}

func newPickerModel(title string, roles []aws.AccountRole) pickerModel {
	delegate := list.NewDefaultDelegate()
	l := list.New(roleItems(roles), delegate, 0, 0)
	l.Title = title
	l.Styles.Title = styles.TitleStyle
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "activate"),
			),
		}
	}
	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := styles.ListStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)

	case tea.KeyMsg:
		// Keys belong to the filter input while it is focused.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if i, ok := m.list.SelectedItem().(item); ok {
				role := i.role
				m.selected = &role
			}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	if m.quitting {
		return ""
	}
	return styles.ListStyle.Render(m.list.View())
}

// PickAccountRole lets the user choose one role. ok is false when the user
// quit without choosing.
func PickAccountRole(title string, roles []aws.AccountRole) (aws.AccountRole, bool, error) {
	final, err := tea.NewProgram(newPickerModel(title, roles), tea.WithAltScreen()).Run()
	if err != nil {
		return aws.AccountRole{}, false, fmt.Errorf("account picker: %w", err)
	}
	m := final.(pickerModel)
	if m.selected == nil {
		return aws.AccountRole{}, false, nil
	}
	return *m.selected, true, nil
}
