package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/diogo/insightchat/internal/chart"
	"github.com/diogo/insightchat/internal/chat"
	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/logging"
	"github.com/diogo/insightchat/internal/models"
	"github.com/diogo/insightchat/internal/render"
	"github.com/diogo/insightchat/internal/session"
	"github.com/diogo/insightchat/internal/transcript"
)

// Animation tick message
type animationTickMsg time.Time

// Message types for the chat view
type (
	outcomeMsg struct {
		outcome chat.Outcome
	}
	revealTickMsg struct {
		generation uint64
	}
)

// Options configures the chat view
type Options struct {
	// State must be authenticated; the view refuses to open otherwise.
	State      session.State
	Manager    *session.Manager
	Controller *chat.Controller

	Endpoint string
	Protocol models.Protocol

	Render render.Options
	Chart  chart.Renderer

	// TranscriptDir is where /save writes when no path is given
	TranscriptDir string

	Clipboard func(string) error
	Now       func() time.Time
}

type renderedMessage struct {
	content string
	width   int
	out     string
}

// Model is the chat view. Conversation state lives in the controller; the
// model only keeps what is needed to draw it.
type Model struct {
	opts  Options
	ctrl  *chat.Controller
	state session.State

	ctx    context.Context
	cancel context.CancelFunc

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	reveal         *chat.Reveal
	rendered       map[int]renderedMessage
	notice         string
	err            error
	ready          bool
	loggedOut      bool
	animationFrame int

	width  int
	height int

	logger zerolog.Logger
}

// NewChatModel creates the chat view for an authenticated session
func NewChatModel(opts Options) (Model, error) {
	if !opts.State.Authenticated() {
		return Model{}, apierrors.ErrNotLoggedIn
	}
	if opts.Controller == nil {
		return Model{}, fmt.Errorf("chat controller is required")
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Render.Width == 0 {
		opts.Render = render.DefaultOptions()
	}

	ta := textarea.New()
	ta.Placeholder = "Ask a question about your data..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		opts:     opts,
		ctrl:     opts.Controller,
		state:    opts.State,
		ctx:      ctx,
		cancel:   cancel,
		textarea: ta,
		spinner:  s,
		rendered: make(map[int]renderedMessage),
		logger:   logging.For("tui").With().Str("session", opts.State.ID).Logger(),
	}, nil
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
	)
}

// LoggedOut reports whether the view ended through /logout
func (m Model) LoggedOut() bool {
	return m.loggedOut
}

// State returns the session state, cleared after /logout
func (m Model) State() session.State {
	return m.state
}

// animationTick returns a command that sends animation tick messages
func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// revealTick schedules the next reveal step
func revealTick(generation uint64, delay time.Duration) tea.Cmd {
	if delay <= 0 {
		return func() tea.Msg { return revealTickMsg{generation: generation} }
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return revealTickMsg{generation: generation}
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4 // Header panel with border
		inputHeight := 6  // Input panel with border
		statusHeight := 1 // Status bar
		padding := 2      // Extra spacing

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m.quit()

		case "esc":
			if m.ctrl.SkipReveal() {
				m.reveal = nil
				m.updateViewport()
				m.viewport.GotoBottom()
				return m, nil
			}
			if !m.ctrl.Loading() {
				return m.quit()
			}
			return m, nil

		case "enter":
			if m.ctrl.Loading() {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if handled, next, cmd := m.runCommand(input); handled {
				return next, cmd
			}
			return m.submit(input)
		}

	case outcomeMsg:
		r := m.ctrl.Resolve(msg.outcome)
		m.updateViewport()
		m.viewport.GotoBottom()
		if r != nil {
			m.reveal = r
			return m, revealTick(r.Generation(), m.ctrl.RevealDelay())
		}
		return m, nil

	case revealTickMsg:
		r := m.reveal
		if r == nil || r.Generation() != msg.generation {
			return m, nil
		}
		if r.Step() && !r.Done() {
			cmds = append(cmds, revealTick(msg.generation, m.ctrl.RevealDelay()))
		} else {
			m.reveal = nil
		}
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.ctrl.Loading() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.ctrl.Loading() {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// Only pass KeyMsg to textarea to prevent escape sequence leaks
	if !m.ctrl.Loading() {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
			m.ctrl.SetInput(m.textarea.Value())
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit appends the user message and starts the request
func (m Model) submit(input string) (tea.Model, tea.Cmd) {
	pending, ok := m.ctrl.Begin(input)
	if !ok {
		return m, nil
	}

	m.textarea.Reset()
	m.notice = ""
	m.err = nil
	m.animationFrame = 0
	m.reveal = nil
	m.updateViewport()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.fetch(pending),
		m.spinner.Tick,
		animationTick(),
	)
}

// fetch creates a command that performs the request off the update loop
func (m Model) fetch(p chat.Pending) tea.Cmd {
	ctrl := m.ctrl
	ctx := m.ctx
	return func() tea.Msg {
		return outcomeMsg{outcome: ctrl.Fetch(ctx, p)}
	}
}

// runCommand handles exit words and slash commands
func (m Model) runCommand(input string) (bool, tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	name := strings.ToLower(fields[0])

	switch name {
	case "exit", "quit", "/exit", "/quit":
		next, cmd := m.quit()
		return true, next, cmd

	case "/copy":
		m.textarea.Reset()
		text, ok := m.ctrl.LastAssistant()
		if !ok {
			m.notice = "Nothing to copy yet"
			return true, m, nil
		}
		if err := m.opts.Clipboard(text); err != nil {
			m.err = fmt.Errorf("failed to copy to clipboard: %w", err)
			return true, m, nil
		}
		m.err = nil
		m.notice = "Copied the last answer to the clipboard"
		return true, m, nil

	case "/save":
		m.textarea.Reset()
		path := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))
		saved, err := m.saveTranscript(path)
		if err != nil {
			m.err = err
			return true, m, nil
		}
		m.err = nil
		m.notice = "Saved transcript to " + saved
		return true, m, nil

	case "/clear":
		m.textarea.Reset()
		m.ctrl.Clear()
		m.reveal = nil
		m.rendered = make(map[int]renderedMessage)
		m.err = nil
		m.notice = "Conversation cleared"
		m.updateViewport()
		return true, m, nil

	case "/logout":
		if m.opts.Manager == nil {
			m.err = fmt.Errorf("logout is not available")
			return true, m, nil
		}
		if err := m.opts.Manager.Logout(&m.state); err != nil {
			m.err = err
			return true, m, nil
		}
		m.loggedOut = true
		next, cmd := m.quit()
		return true, next, cmd
	}

	return false, m, nil
}

// saveTranscript writes the conversation to path, or to a timestamped file
// in the transcript directory
func (m Model) saveTranscript(path string) (string, error) {
	snap := m.ctrl.Snapshot()
	if len(snap.Messages) == 0 {
		return "", fmt.Errorf("nothing to save yet")
	}

	now := m.opts.Now()
	if path == "" {
		path = transcript.DefaultPath(m.opts.TranscriptDir, now, transcript.FormatMarkdown)
	}

	t := transcript.Transcript{
		Session:    m.state.ID,
		Email:      m.state.Email,
		Endpoint:   m.opts.Endpoint,
		Protocol:   string(m.opts.Protocol),
		ExportedAt: now,
		Messages:   snap.Messages,
		Chart:      snap.Chart,
	}
	if err := transcript.Write(path, t); err != nil {
		return "", err
	}
	m.logger.Info().Str("path", path).Int("messages", len(snap.Messages)).Msg("transcript saved")
	return path, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.ctrl.Close()
	m.cancel()
	m.reveal = nil
	return m, tea.Quit
}

// View renders the chat view
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	// Header
	headerParts := []string{
		titleStyle.Render("✦ Insight Chat"),
	}
	if m.state.Email != "" {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render(m.state.Email),
		)
	}
	if m.opts.Protocol != "" {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render(string(m.opts.Protocol)),
		)
	}
	headerContent := lipgloss.JoinHorizontal(lipgloss.Center, headerParts...)
	sections = append(sections, headerStyle.Width(contentWidth).Render(headerContent))

	// Messages
	var messagesContent string
	if len(m.ctrl.Messages()) == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	// Input
	var inputContent string
	if m.ctrl.Loading() {
		inputContent = m.renderLoadingAnimation()
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	} else if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWelcome renders the welcome screen when no messages exist
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	icon := welcomeIconStyle.Width(width).Render("✦")
	title := welcomeTitleStyle.Width(width).Render("Welcome to Insight Chat")
	subtitle := welcomeStyle.Width(width).Render("Ask a question about your data. Tables and charts appear inline.")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		icon,
		"",
		title,
		"",
		subtitle,
		"",
	)

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

// renderLoadingAnimation renders the animated waiting indicator
func (m Model) renderLoadingAnimation() string {
	if m.reveal != nil {
		return loadingStyle.Render("✦ Writing answer") + hintStyle.Render("  (Esc to show it all)")
	}

	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	frame := m.animationFrame

	spinColor := gradientColors[frame%len(gradientColors)]
	spin := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[frame%len(chars)])

	barWidth := 20
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + frame) % len(gradientColors)
		charIdx := (i + frame/2) % len(barChars)
		bar.WriteString(lipgloss.NewStyle().Foreground(gradientColors[colorIdx]).Render(barChars[charIdx]))
	}

	var dots strings.Builder
	numDots := (frame / 3) % 4
	for i := 0; i < numDots; i++ {
		dotColor := gradientColors[(frame+i)%len(gradientColors)]
		dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
	}
	for i := numDots; i < 3; i++ {
		dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
	}

	text := lipgloss.NewStyle().Foreground(colorText).Render(" Waiting for the server ")
	return fmt.Sprintf("%s %s %s %s", spin, bar.String(), text, dots.String())
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	escDesc := "Quit"
	if m.reveal != nil {
		escDesc = "Skip"
	}
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Esc", escDesc},
		{"/save", "Export"},
		{"/copy", "Copy"},
		{"↑↓", "Scroll"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		))
	}

	bar := strings.Join(items, "  │  ")
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport refreshes the viewport content with styled messages and the
// chart panel
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}

	snap := m.ctrl.Snapshot()
	revealing := m.reveal != nil

	for i, msg := range snap.Messages {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.IsUser() {
			label := userLabelStyle.Render("⬤ You")
			bubble := userBubbleStyle.Width(bubbleWidth).Render(msg.Content)
			content.WriteString(label + "\n" + bubble)
		} else {
			label := assistantLabelStyle.Render("✦ Assistant")
			var body string
			if revealing && i == len(snap.Messages)-1 {
				// Markdown is rendered once the answer is complete
				body = msg.Content
			} else {
				body = m.renderAnswer(i, msg.Content, bubbleWidth-4)
			}
			content.WriteString(label + "\n" + assistantBubbleStyle.Width(bubbleWidth).Render(body))
		}
		content.WriteString("\n")
	}

	if snap.Chart != nil && !snap.Loading {
		r := m.opts.Chart
		r.Width = bubbleWidth - 4
		panel := lipgloss.JoinVertical(
			lipgloss.Left,
			chartHeadingStyle.Render("▤ Chart"),
			r.Render(snap.Chart, nil),
		)
		content.WriteString("\n" + chartPanelStyle.Width(bubbleWidth).Render(panel) + "\n")
	}

	m.viewport.SetContent(content.String())
}

// renderAnswer renders markdown for a finished answer, reusing earlier
// output while the content and width are unchanged
func (m *Model) renderAnswer(index int, content string, width int) string {
	if cached, ok := m.rendered[index]; ok && cached.content == content && cached.width == width {
		return cached.out
	}
	out := render.Answer(content, m.opts.Render.WithWidth(width))
	m.rendered[index] = renderedMessage{content: content, width: width, out: out}
	return out
}

// RunChat starts the chat view and returns the final model state
func RunChat(opts Options) (Model, error) {
	m, err := NewChatModel(opts)
	if err != nil {
		return Model{}, err
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	final, err := p.Run()
	if err != nil {
		return m, err
	}
	if fm, ok := final.(Model); ok {
		return fm, nil
	}
	return m, nil
}
