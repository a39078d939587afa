package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/session"
)

func newLoginCmd(deps *Dependencies) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to enable the chat",
		Long: `Log in with the configured credentials.

Without --email the interactive login form is shown. With --email the
password is prompted on the terminal. Credentials are compared against
INSIGHTCHAT_USER_EMAIL and INSIGHTCHAT_USER_PASSWORD (or
INSIGHTCHAT_USER_PASSWORD_HASH).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := deps.effectiveConfig()
			if err != nil {
				return err
			}
			closer := initLogging(eff.Config, email == "")
			defer closer.Close()

			manager, err := deps.sessionManager(eff)
			if err != nil {
				return err
			}

			var state session.State
			if email == "" {
				state, err = deps.TUI.RunLogin(manager, "")
				if err != nil {
					return err
				}
			} else {
				if err := manager.Reset(); err != nil {
					return err
				}
				fmt.Fprint(deps.ErrOut, "Password: ")
				password, err := deps.ReadPassword()
				if err != nil {
					return err
				}
				state, err = manager.Login(cmd.Context(), email, password)
				if err != nil {
					if apierrors.IsAuthError(err) {
						return apierrors.NewAuthError("")
					}
					return err
				}
			}

			msg := fmt.Sprintf("✓ Logged in as %s", state.Email)
			fmt.Fprintln(deps.Out, lipgloss.NewStyle().Foreground(colorSuccess).Render(msg))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Log in without the form, prompting for the password")
	return cmd
}

func newLogoutCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := deps.effectiveConfig()
			if err != nil {
				return err
			}
			manager, err := deps.sessionManager(eff)
			if err != nil {
				return err
			}
			if err := manager.Logout(nil); err != nil {
				return err
			}
			fmt.Fprintln(deps.Out, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Logged out"))
			return nil
		},
	}
}

func newStatusCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the login state and backend settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := deps.effectiveConfig()
			if err != nil {
				return err
			}
			manager, err := deps.sessionManager(eff)
			if err != nil {
				return err
			}

			keyStyle := lipgloss.NewStyle().Foreground(colorTextDim)
			row := func(k, v string) {
				fmt.Fprintf(deps.Out, "%s %s\n", keyStyle.Render(fmt.Sprintf("%-12s", k+":")), v)
			}

			state, err := manager.Check()
			switch {
			case err == nil:
				row("Session", lipgloss.NewStyle().Foreground(colorSuccess).Render(state.Status.String()))
			case apierrors.IsNotLoggedIn(err):
				row("Session", lipgloss.NewStyle().Foreground(colorError).Render(session.Unauthenticated.String()))
			default:
				return err
			}

			if fs, ok := deps.Store.(*session.FileStore); ok {
				row("Session file", fs.Path())
			} else if deps.Store == nil {
				if fs, err := session.DefaultFileStore(); err == nil {
					row("Session file", fs.Path())
				}
			}

			row("Endpoint", eff.Config.Endpoint)
			row("Protocol", string(eff.Config.ProtocolName()))
			credentials := "not configured"
			if eff.Credentials.Configured() {
				credentials = "configured for " + eff.Credentials.Email
			}
			row("Credentials", credentials)
			return nil
		},
	}
}

func newHashPasswordCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for INSIGHTCHAT_USER_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(deps.ErrOut, "Password: ")
			password, err := deps.ReadPassword()
			if err != nil {
				return err
			}
			hash, err := session.HashPassword(strings.TrimRight(password, "\r\n"))
			if err != nil {
				return err
			}
			fmt.Fprintln(deps.Out, hash)
			return nil
		},
	}
}
