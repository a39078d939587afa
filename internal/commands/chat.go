package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/diogo/insightchat/internal/chart"
	"github.com/diogo/insightchat/internal/chat"
	"github.com/diogo/insightchat/internal/config"
	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/logging"
	"github.com/diogo/insightchat/internal/render"
	"github.com/diogo/insightchat/internal/tui"
)

func newChatCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

The chat is only available after logging in; without a session the login
form is shown first. The conversation lives in memory until you quit.

Inside the chat:
  /copy          Copy the last answer to the clipboard
  /save [path]   Export the conversation (markdown, or JSON for .json paths)
  /clear         Start over
  /logout        Log out and quit
  exit, quit     Quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), deps)
		},
	}
}

func runChat(_ context.Context, deps *Dependencies) error {
	eff, err := deps.effectiveConfig()
	if err != nil {
		return err
	}
	cfg := eff.Config

	closer := initLogging(cfg, true)
	defer closer.Close()
	logger := logging.For("commands")

	manager, err := deps.sessionManager(eff)
	if err != nil {
		return err
	}

	state, err := manager.Check()
	if apierrors.IsNotLoggedIn(err) {
		state, err = deps.TUI.RunLogin(manager, "")
	}
	if err != nil {
		return err
	}

	if cfg.TUITheme != "" && !render.SetTUITheme(cfg.TUITheme) {
		logger.Warn().Str("theme", cfg.TUITheme).Msg("unknown TUI theme, using default")
	}
	tui.UpdateTheme()

	client, err := deps.client(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctrl := chat.NewController(client,
		chat.WithReveal(cfg.Reveal.Enabled, cfg.RevealDelay()),
		chat.WithSession(state),
		chat.WithTransitionHook(func(from, to chat.Phase) {
			logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("phase")
		}),
	)
	defer ctrl.Close()

	transcriptDir := "."
	if dir, err := config.GetConfigDir(); err == nil {
		transcriptDir = filepath.Join(dir, "transcripts")
	}

	model, err := deps.TUI.RunChat(tui.Options{
		State:      state,
		Manager:    manager,
		Controller: ctrl,
		Endpoint:   cfg.Endpoint,
		Protocol:   client.Protocol(),
		Render:     render.OptionsFromConfig(cfg.Markdown),
		Chart: chart.Renderer{
			Defaults: chart.DefaultOptions(cfg.Chart.Title, cfg.Chart.LegendPosition),
		},
		TranscriptDir: transcriptDir,
		Clipboard:     deps.Clipboard,
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if model.LoggedOut() {
		fmt.Fprintln(deps.ErrOut, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Logged out"))
	}
	return nil
}
