package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/logging"
)

// Status is the coarse login state
type Status int

const (
	Unauthenticated Status = iota
	Authenticated
)

func (s Status) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// State is the explicit session value handed to the chat view at startup.
// The zero value is unauthenticated.
type State struct {
	ID     string
	Email  string
	Status Status
	Since  time.Time
}

// Authenticated reports whether the state allows entering the chat view
func (s State) Authenticated() bool {
	return s.Status == Authenticated
}

// Manager owns the login flag lifecycle: reset on the login view, set on
// successful login, cleared on logout, and checked by the gate.
type Manager struct {
	store  Store
	auth   Authenticator
	now    func() time.Time
	logger zerolog.Logger
}

// NewManager creates a session manager
func NewManager(store Store, auth Authenticator) *Manager {
	return &Manager{
		store:  store,
		auth:   auth,
		now:    time.Now,
		logger: logging.For("session"),
	}
}

// Check is the gate run on entry to the chat view. Anything other than the
// exact "true" flag, including a store that cannot be read, is reported as
// ErrNotLoggedIn.
func (m *Manager) Check() (State, error) {
	value, err := m.store.Load()
	if err != nil {
		m.logger.Warn().Err(err).Msg("session store unreadable, treating as logged out")
		return State{}, apierrors.ErrNotLoggedIn
	}
	if value != FlagTrue {
		return State{}, apierrors.ErrNotLoggedIn
	}

	return State{
		ID:     uuid.NewString(),
		Status: Authenticated,
		Since:  m.now(),
	}, nil
}

// Reset marks the session logged out. The login view calls it on entry.
func (m *Manager) Reset() error {
	if err := m.store.Save(FlagFalse); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return nil
}

// Login verifies credentials and persists the flag on success
func (m *Manager) Login(ctx context.Context, email, password string) (State, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return State{}, apierrors.NewAuthError("email and password are required")
	}

	if err := m.auth.Authenticate(ctx, email, password); err != nil {
		m.logger.Info().Str("email", email).Msg("login rejected")
		return State{}, err
	}

	if err := m.store.Save(FlagTrue); err != nil {
		return State{}, fmt.Errorf("failed to persist session: %w", err)
	}

	state := State{
		ID:     uuid.NewString(),
		Email:  email,
		Status: Authenticated,
		Since:  m.now(),
	}
	m.logger.Info().Str("session", state.ID).Str("email", email).Msg("logged in")
	return state, nil
}

// Logout clears the persisted flag and resets state to unauthenticated
func (m *Manager) Logout(state *State) error {
	if err := m.store.Save(FlagFalse); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if state != nil {
		m.logger.Info().Str("session", state.ID).Msg("logged out")
		*state = State{}
	}
	return nil
}
