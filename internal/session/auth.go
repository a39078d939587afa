package session

import (
	"context"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/diogo/insightchat/internal/config"
	apierrors "github.com/diogo/insightchat/internal/errors"
)

// Authenticator verifies login credentials. Real identity providers plug in
// here; StaticAuthenticator is a local placeholder.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) error
}

// StaticAuthenticator compares against one configured email/password pair
type StaticAuthenticator struct {
	creds config.Credentials
}

// NewStaticAuthenticator creates an authenticator for the given credentials
func NewStaticAuthenticator(creds config.Credentials) *StaticAuthenticator {
	return &StaticAuthenticator{creds: creds}
}

// Authenticate returns an *errors.AuthError unless email and password match
func (a *StaticAuthenticator) Authenticate(_ context.Context, email, password string) error {
	if !a.creds.Configured() {
		return apierrors.NewAuthError(fmt.Sprintf(
			"no credentials configured, set %s_USER_EMAIL and %s_USER_PASSWORD",
			config.EnvPrefix, config.EnvPrefix))
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.creds.Email)) == 1

	var passwordOK bool
	if a.creds.PasswordHash != "" {
		passwordOK = bcrypt.CompareHashAndPassword([]byte(a.creds.PasswordHash), []byte(password)) == nil
	} else {
		passwordOK = subtle.ConstantTimeCompare([]byte(password), []byte(a.creds.Password)) == 1
	}

	if !emailOK || !passwordOK {
		return apierrors.NewAuthError("")
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for INSIGHTCHAT_USER_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
