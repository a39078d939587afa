package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/diogo/insightchat/internal/chart"
	"github.com/diogo/insightchat/internal/chat"
	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/logging"
	"github.com/diogo/insightchat/internal/render"
)

// Gradient colors for animation, the grays the charts use
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#2d2d2d"),
	lipgloss.Color("#4b4b4b"),
	lipgloss.Color("#696969"),
	lipgloss.Color("#878787"),
	lipgloss.Color("#a5a5a5"),
	lipgloss.Color("#878787"),
	lipgloss.Color("#696969"),
	lipgloss.Color("#4b4b4b"),
}

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorPrimary  = lipgloss.Color("#7aa2f7")
	colorError    = lipgloss.Color("#f7768e")
)

// Styles matching the chat TUI
var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

	chartBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorTextDim).
			Padding(0, 1)
)

// spinner handles the animated loading indicator
type spinner struct {
	out     io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool // Flag to prevent double-close
}

// newSpinner creates a new animated spinner writing to out
func newSpinner(out io.Writer, message string) *spinner {
	return &spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(s.out, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(s.out, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[s.frame%len(chars)])

	barWidth := 16
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + s.frame) % len(gradientColors)
		charIdx := (i + s.frame/2) % len(barChars)
		bar.WriteString(lipgloss.NewStyle().Foreground(gradientColors[colorIdx]).Render(barChars[charIdx]))
	}

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)
	fmt.Fprintf(s.out, "\r\033[K%s %s %s %s", spinnerChar, bar.String(), msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and shows success message
func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	checkmark := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	msg := lipgloss.NewStyle().Foreground(colorSuccess).Render(message)
	fmt.Fprintf(s.out, "%s %s\n", checkmark, msg)
}

// stopWithError stops the spinner and shows error
func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// runQuery sends a single question and prints the answer. The session gate
// applies here exactly as it does for the chat view.
func runQuery(ctx context.Context, deps *Dependencies, question string, qf queryFlags) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return apierrors.ErrEmptyQuery
	}

	eff, err := deps.effectiveConfig()
	if err != nil {
		return err
	}
	cfg := eff.Config

	closer := initLogging(cfg, false)
	defer closer.Close()
	logger := logging.For("query")

	manager, err := deps.sessionManager(eff)
	if err != nil {
		return err
	}
	state, err := manager.Check()
	if err != nil {
		return err
	}

	client, err := deps.client(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctrl := chat.NewController(client, chat.WithReveal(false, 0), chat.WithSession(state))
	defer ctrl.Close()

	pending, ok := ctrl.Begin(question)
	if !ok {
		return apierrors.ErrEmptyQuery
	}

	var spin *spinner
	if !qf.raw {
		spin = newSpinner(deps.ErrOut, "Waiting for the server")
		spin.start()
	}

	outcome := ctrl.Fetch(ctx, pending)
	ctrl.Resolve(outcome)

	if outcome.Err != nil {
		if spin != nil {
			spin.stopWithError()
			fmt.Fprintln(deps.ErrOut, formatErrorMessage(outcome.Err, "Request failed"))
		}
		return fmt.Errorf("request failed: %w", outcome.Err)
	}
	if spin != nil {
		spin.stopWithSuccess("Done")
	}

	logger.Debug().Dur("latency", outcome.Elapsed).Str("protocol", string(client.Protocol())).Msg("answer received")

	text, _ := ctrl.LastAssistant()
	payload := ctrl.Chart()

	if qf.copy || cfg.CopyToClipboard {
		if err := deps.Clipboard(text); err != nil {
			warnMsg := lipgloss.NewStyle().Foreground(colorError).Render(
				fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
			)
			fmt.Fprintln(deps.ErrOut, warnMsg)
		} else if !qf.raw {
			fmt.Fprintln(deps.ErrOut, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard"))
		}
	}

	if qf.output != "" {
		if err := os.WriteFile(qf.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !qf.raw {
			successMsg := lipgloss.NewStyle().Foreground(colorSuccess).Render(
				fmt.Sprintf("✓ Answer saved to %s", qf.output),
			)
			fmt.Fprintln(deps.ErrOut, successMsg)
		}
		return nil
	}

	if qf.raw {
		fmt.Fprint(deps.Out, text)
		return nil
	}

	termWidth := getTerminalWidth()
	bubbleWidth := termWidth - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	fmt.Fprintln(deps.Out, assistantLabelStyle.Render("✦ Assistant"))

	if text != "" {
		renderOpts := render.OptionsFromConfigWithWidth(cfg.Markdown, contentWidth)
		rendered := render.Answer(text, renderOpts)
		fmt.Fprintln(deps.Out, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
	}

	if payload != nil {
		r := chart.Renderer{
			Width:    contentWidth,
			Defaults: chart.DefaultOptions(cfg.Chart.Title, cfg.Chart.LegendPosition),
		}
		fmt.Fprintln(deps.Out, chartBoxStyle.Width(bubbleWidth).Render(r.Render(payload, nil)))
	}

	return nil
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // default width
	}
	return width
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", context, err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}
	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	switch {
	case apierrors.IsNotLoggedIn(err):
		sb.WriteString(dimStyle.Render("\n  Hint: run 'insightchat login' first"))
	case apierrors.IsAuthError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: check INSIGHTCHAT_USER_EMAIL and INSIGHTCHAT_USER_PASSWORD"))
	case apierrors.IsTimeoutError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: request timed out, raise timeout_seconds or try again"))
	case apierrors.IsNetworkError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: check that the backend is running and the endpoint is correct"))
	case apierrors.IsParseError(err), apierrors.IsUnexpectedResponse(err):
		sb.WriteString(dimStyle.Render("\n  Hint: the backend answered in an unexpected shape, check the protocol setting"))
	}

	return sb.String()
}
