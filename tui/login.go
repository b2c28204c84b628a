package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"awsom/aws"
	"awsom/styles"
)

// LoginFunc runs the device flow, handing the authorization prompt over
// on prompts.
type LoginFunc func(ctx context.Context, prompts chan<- *aws.Prompt) (*aws.Token, error)

// BrowserFunc opens a URL. Nil disables opening the browser.
type BrowserFunc func(url string) error

type promptMsg struct{ prompt *aws.Prompt }

type loginDoneMsg struct {
	token *aws.Token
	err   error
}

type loginModel struct {
	instance    aws.Instance
	spinner     spinner.Model
	prompt      *aws.Prompt
	openBrowser BrowserFunc
	cancel      context.CancelFunc
	prompts     chan *aws.Prompt
	login       LoginFunc
	ctx         context.Context

	token    *aws.Token
	err      error
	quitting bool
}

func newLoginModel(ctx context.Context, inst aws.Instance, login LoginFunc, openBrowser BrowserFunc) loginModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SpinnerStyle

	ctx, cancel := context.WithCancel(ctx)
	return loginModel{
		instance:    inst,
		spinner:     s,
		openBrowser: openBrowser,
		cancel:      cancel,
		prompts:     make(chan *aws.Prompt),
		login:       login,
		ctx:         ctx,
	}
}

// waitForPrompt delivers the next prompt, or nothing once the flow closed
// the channel.
func waitForPrompt(prompts <-chan *aws.Prompt) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-prompts
		if !ok {
			return nil
		}
		return promptMsg{prompt: p}
	}
}

func runLogin(ctx context.Context, login LoginFunc, prompts chan *aws.Prompt) tea.Cmd {
	return func() tea.Msg {
		tok, err := login(ctx, prompts)
		close(prompts)
		return loginDoneMsg{token: tok, err: err}
	}
}

func (m loginModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForPrompt(m.prompts), runLogin(m.ctx, m.login, m.prompts))
}

func (m loginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			m.err = context.Canceled
			m.quitting = true
			return m, tea.Quit
		}

	case promptMsg:
		m.prompt = msg.prompt
		if m.openBrowser != nil {
			if err := m.openBrowser(m.prompt.Authorization.BrowserURL()); err != nil {
				log.Warn("Could not open browser", "error", err)
			}
		}
		m.prompt.Proceed()
		return m, nil

	case loginDoneMsg:
		m.token = msg.token
		m.err = msg.err
		m.quitting = true
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m loginModel) View() string {
	if m.quitting {
		return ""
	}

	title := styles.TitleStyle.Render("Signing in to " + m.instance.String())
	if m.prompt == nil {
		return lipgloss.JoinVertical(lipgloss.Left, title, "", m.spinner.View()+" Registering device...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		RenderPrompt(m.prompt.Authorization),
		m.spinner.View()+" Waiting for approval in the browser...",
		styles.HelpStyle.Render("Press q to cancel"),
	)
}

// RenderPrompt shows the verification URL and user code.
func RenderPrompt(auth aws.DeviceAuthorization) string {
	var b strings.Builder
	b.WriteString("Open this URL to approve the sign-in:\n\n")
	b.WriteString(styles.HighlightStyle.Render(auth.BrowserURL()))
	b.WriteString("\n\nand confirm the code\n\n")
	b.WriteString(styles.CodeBox.Render(auth.UserCode))
	return styles.VerificationBox.Render(b.String())
}

// RunLogin shows the login screen while login runs.
func RunLogin(ctx context.Context, inst aws.Instance, login LoginFunc, openBrowser BrowserFunc) (*aws.Token, error) {
	m := newLoginModel(ctx, inst, login, openBrowser)
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		m.cancel()
		return nil, fmt.Errorf("login screen: %w", err)
	}

	result := final.(loginModel)
	return result.token, result.err
}

// PlainLogin runs login without a full-screen UI, printing the prompt to w.
func PlainLogin(ctx context.Context, w io.Writer, login LoginFunc, openBrowser BrowserFunc) (*aws.Token, error) {
	prompts := make(chan *aws.Prompt)
	type result struct {
		token *aws.Token
		err   error
	}
	done := make(chan result, 1)

	go func() {
		tok, err := login(ctx, prompts)
		done <- result{token: tok, err: err}
	}()

	for {
		select {
		case p := <-prompts:
			auth := p.Authorization
			fmt.Fprintf(w, "Open %s and confirm the code %s\n", auth.BrowserURL(), auth.UserCode)
			if openBrowser != nil {
				if err := openBrowser(auth.BrowserURL()); err != nil {
					log.Warn("Could not open browser", "error", err)
				}
			}
			fmt.Fprintln(w, "Waiting for approval...")
			p.Proceed()
		case r := <-done:
			return r.token, r.err
		}
	}
}
