package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/session"
)

// ErrLoginCancelled is returned by RunLogin when the user leaves the form
var ErrLoginCancelled = errors.New("login cancelled")

// InvalidCredentialsText is shown under the form after a rejected login
const InvalidCredentialsText = "Invalid username or password"

const (
	loginFieldEmail = iota
	loginFieldPassword
	loginFieldCount
)

type (
	resetDoneMsg struct {
		err error
	}
	loginResultMsg struct {
		state session.State
		err   error
	}
)

// LoginModel is the login form. Entering it marks the session logged out.
type LoginModel struct {
	manager *session.Manager

	inputs     []textinput.Model
	focus      int
	submitting bool
	errText    string

	state     session.State
	done      bool
	cancelled bool

	width  int
	height int
}

// NewLoginModel creates the login form
func NewLoginModel(manager *session.Manager, email string) LoginModel {
	inputs := make([]textinput.Model, loginFieldCount)

	inputs[loginFieldEmail] = textinput.New()
	inputs[loginFieldEmail].Placeholder = "you@example.com"
	inputs[loginFieldEmail].CharLimit = 254
	inputs[loginFieldEmail].Width = 40
	inputs[loginFieldEmail].SetValue(email)

	inputs[loginFieldPassword] = textinput.New()
	inputs[loginFieldPassword].Placeholder = "password"
	inputs[loginFieldPassword].CharLimit = 128
	inputs[loginFieldPassword].Width = 40
	inputs[loginFieldPassword].EchoMode = textinput.EchoPassword
	inputs[loginFieldPassword].EchoCharacter = '•'

	m := LoginModel{
		manager: manager,
		inputs:  inputs,
	}
	if email != "" {
		m.focus = loginFieldPassword
	}
	m.inputs[m.focus].Focus()
	return m
}

// Init resets the persisted flag and starts the cursor blink
func (m LoginModel) Init() tea.Cmd {
	manager := m.manager
	return tea.Batch(
		textinput.Blink,
		func() tea.Msg {
			return resetDoneMsg{err: manager.Reset()}
		},
	)
}

// State returns the session state after a successful login
func (m LoginModel) State() session.State {
	return m.state
}

// Done reports whether the login succeeded
func (m LoginModel) Done() bool {
	return m.done
}

// Cancelled reports whether the user left the form
func (m LoginModel) Cancelled() bool {
	return m.cancelled
}

// ErrorText returns the inline error, if any
func (m LoginModel) ErrorText() string {
	return m.errText
}

// Update handles messages and updates the model
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case resetDoneMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		return m, nil

	case loginResultMsg:
		m.submitting = false
		if msg.err != nil {
			if apierrors.IsAuthError(msg.err) {
				m.errText = InvalidCredentialsText
			} else {
				m.errText = msg.err.Error()
			}
			m.inputs[loginFieldPassword].SetValue("")
			return m.focusField(loginFieldPassword), nil
		}
		m.state = msg.state
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "tab", "down":
			return m.focusField((m.focus + 1) % loginFieldCount), nil

		case "shift+tab", "up":
			return m.focusField((m.focus + loginFieldCount - 1) % loginFieldCount), nil

		case "enter":
			if m.submitting {
				return m, nil
			}
			if m.focus == loginFieldEmail {
				return m.focusField(loginFieldPassword), nil
			}
			m.submitting = true
			m.errText = ""
			return m, m.loginCmd()
		}
	}

	if m.submitting {
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m LoginModel) focusField(field int) LoginModel {
	m.inputs[m.focus].Blur()
	m.focus = field
	m.inputs[m.focus].Focus()
	return m
}

// loginCmd verifies the entered credentials off the update loop
func (m LoginModel) loginCmd() tea.Cmd {
	manager := m.manager
	email := m.inputs[loginFieldEmail].Value()
	password := m.inputs[loginFieldPassword].Value()
	return func() tea.Msg {
		state, err := manager.Login(context.Background(), email, password)
		return loginResultMsg{state: state, err: err}
	}
}

// View renders the login form
func (m LoginModel) View() string {
	labels := []string{"Email", "Password"}

	var rows []string
	rows = append(rows, loginTitleStyle.Render("✦ Insight Chat"))
	rows = append(rows, subtitleStyle.Render("Sign in to continue"), "")

	for i, input := range m.inputs {
		label := loginLabelStyle.Render(labels[i])
		if i == m.focus {
			label = loginFocusedStyle.Render("› " + labels[i])
		}
		rows = append(rows, label, input.View(), "")
	}

	switch {
	case m.submitting:
		rows = append(rows, loadingStyle.Render("Signing in..."))
	case m.errText != "":
		rows = append(rows, errorStyle.Render(m.errText))
	default:
		rows = append(rows, hintStyle.Render("Enter to sign in • Tab to switch field • Esc to cancel"))
	}

	panel := loginPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if m.width == 0 || m.height == 0 {
		return panel
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

// RunLogin shows the login form and returns the authenticated state
func RunLogin(manager *session.Manager, email string) (session.State, error) {
	p := tea.NewProgram(
		NewLoginModel(manager, strings.TrimSpace(email)),
		tea.WithAltScreen(),
	)

	final, err := p.Run()
	if err != nil {
		return session.State{}, err
	}
	lm, ok := final.(LoginModel)
	if !ok || !lm.Done() {
		return session.State{}, ErrLoginCancelled
	}
	return lm.State(), nil
}
