package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/insightchat/internal/session"
)

func newTestLogin(initial string) (LoginModel, *session.MemoryStore) {
	store := session.NewMemoryStore(initial)
	manager := session.NewManager(store, session.NewStaticAuthenticator(testCreds))
	return NewLoginModel(manager, ""), store
}

func updateLogin(t *testing.T, m LoginModel, msg tea.Msg) (LoginModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	lm, ok := next.(LoginModel)
	require.True(t, ok)
	return lm, cmd
}

func findLoginResult(t *testing.T, cmd tea.Cmd) loginResultMsg {
	t.Helper()
	for _, msg := range collect(cmd) {
		if r, ok := msg.(loginResultMsg); ok {
			return r
		}
	}
	t.Fatal("no login result produced")
	return loginResultMsg{}
}

func submitLogin(t *testing.T, m LoginModel, email, password string) LoginModel {
	t.Helper()
	m.inputs[loginFieldEmail].SetValue(email)
	m.inputs[loginFieldPassword].SetValue(password)

	m, _ = updateLogin(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, loginFieldPassword, m.focus)

	m, cmd := updateLogin(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.submitting)

	m, _ = updateLogin(t, m, findLoginResult(t, cmd))
	return m
}

func TestLogin_InitResetsFlag(t *testing.T) {
	m, store := newTestLogin(session.FlagTrue)

	var reset bool
	for _, msg := range collect(m.Init()) {
		if rm, ok := msg.(resetDoneMsg); ok {
			reset = true
			assert.NoError(t, rm.err)
		}
	}
	assert.True(t, reset)
	assert.Equal(t, session.FlagFalse, store.Value())
}

func TestLogin_Success(t *testing.T) {
	m, store := newTestLogin("")

	m = submitLogin(t, m, testCreds.Email, testCreds.Password)

	assert.True(t, m.Done())
	assert.False(t, m.Cancelled())
	assert.True(t, m.State().Authenticated())
	assert.Equal(t, testCreds.Email, m.State().Email)
	assert.Equal(t, session.FlagTrue, store.Value())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", testCreds.Email, "nope"},
		{"wrong email", "someone@example.com", testCreds.Password},
		{"empty password", testCreds.Email, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newTestLogin("")

			m = submitLogin(t, m, tt.email, tt.password)

			assert.False(t, m.Done())
			assert.Equal(t, InvalidCredentialsText, m.ErrorText())
			assert.Equal(t, "", m.inputs[loginFieldPassword].Value())
			assert.Equal(t, tt.email, m.inputs[loginFieldEmail].Value())
			assert.Equal(t, loginFieldPassword, m.focus)
			assert.NotEqual(t, session.FlagTrue, store.Value())
			assert.Contains(t, m.View(), InvalidCredentialsText)
		})
	}
}

func TestLogin_FocusNavigation(t *testing.T) {
	m, _ := newTestLogin("")
	assert.Equal(t, loginFieldEmail, m.focus)

	m, _ = updateLogin(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, loginFieldPassword, m.focus)

	m, _ = updateLogin(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, loginFieldEmail, m.focus)

	m, _ = updateLogin(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, loginFieldPassword, m.focus)

	prefilled := NewLoginModel(session.NewManager(session.NewMemoryStore(""), nil), "a@b.c")
	assert.Equal(t, loginFieldPassword, prefilled.focus)
}

func TestLogin_Typing(t *testing.T) {
	m, _ := newTestLogin("")

	m, _ = updateLogin(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("me@x.io")})
	assert.Equal(t, "me@x.io", m.inputs[loginFieldEmail].Value())
	assert.Equal(t, "", m.inputs[loginFieldPassword].Value())
}

func TestLogin_Cancel(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		m, _ := newTestLogin("")
		m, cmd := updateLogin(t, m, tea.KeyMsg{Type: key})
		assert.True(t, m.Cancelled())
		assert.False(t, m.Done())
		assert.True(t, isQuit(cmd))
	}
}

func TestLogin_View(t *testing.T) {
	m, _ := newTestLogin("")
	view := m.View()
	assert.Contains(t, view, "Email")
	assert.Contains(t, view, "Password")
	assert.Contains(t, view, "Sign in")

	m, _ = updateLogin(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Contains(t, m.View(), "Insight Chat")
}
