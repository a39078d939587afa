// Package chat owns the state of one conversation: the ordered messages, the
// pending input, the loading flag and the live chart.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/diogo/insightchat/internal/api"
	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/logging"
	"github.com/diogo/insightchat/internal/models"
	"github.com/diogo/insightchat/internal/session"
)

// DefaultRevealDelay is the per-character reveal interval
const DefaultRevealDelay = 10 * time.Millisecond

// Phase is the per-submission state
type Phase int

const (
	Idle Phase = iota
	AwaitingResponse
	Rendering
	Applied
	Errored
)

func (p Phase) String() string {
	switch p {
	case AwaitingResponse:
		return "awaiting_response"
	case Rendering:
		return "rendering"
	case Applied:
		return "applied"
	case Errored:
		return "errored"
	default:
		return "idle"
	}
}

// Pending is a submission whose request has not been answered yet
type Pending struct {
	Generation uint64
	Query      string
	History    []models.Message
	Started    time.Time
}

// Outcome is the answer to a Pending submission
type Outcome struct {
	Generation uint64
	Reply      *models.Reply
	Err        error
	Elapsed    time.Duration
}

// Snapshot is a copy of the controller state for rendering
type Snapshot struct {
	Messages   []models.Message
	Input      string
	Loading    bool
	Chart      *models.ChartPayload
	Phase      Phase
	Generation uint64
}

// Controller is safe for concurrent use. Fetch may run on any goroutine; all
// state changes happen in Begin, Resolve and the reveal.
type Controller struct {
	client api.Asker

	mu         sync.Mutex
	messages   []models.Message
	input      string
	loading    bool
	chart      *models.ChartPayload
	phase      Phase
	generation uint64
	active     *Reveal

	revealEnabled bool
	revealDelay   time.Duration
	onTransition  func(from, to Phase)
	sessionID     string

	life   context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithReveal enables or disables the incremental reveal and sets its delay
func WithReveal(enabled bool, delay time.Duration) Option {
	return func(c *Controller) {
		c.revealEnabled = enabled
		if delay >= 0 {
			c.revealDelay = delay
		}
	}
}

// WithSession tags log entries with the session id
func WithSession(state session.State) Option {
	return func(c *Controller) {
		c.sessionID = state.ID
	}
}

// WithTransitionHook observes phase changes. It runs with the controller
// locked and must not call back into it.
func WithTransitionHook(fn func(from, to Phase)) Option {
	return func(c *Controller) {
		c.onTransition = fn
	}
}

// NewController creates a controller sending queries through client
func NewController(client api.Asker, opts ...Option) *Controller {
	life, cancel := context.WithCancel(context.Background())
	c := &Controller{
		client:        client,
		revealEnabled: true,
		revealDelay:   DefaultRevealDelay,
		life:          life,
		cancel:        cancel,
		logger:        logging.For("chat"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("session", c.sessionID).Logger()
	return c
}

// RevealDelay returns the configured per-character delay
func (c *Controller) RevealDelay() time.Duration {
	return c.revealDelay
}

// SetInput records the pending input text
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

// Input returns the pending input text
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Begin starts a submission. An empty or whitespace query changes nothing and
// returns false. Otherwise the user message is appended, the input cleared,
// loading set and the chart dropped, in that order.
func (c *Controller) Begin(query string) (Pending, bool) {
	if strings.TrimSpace(query) == "" {
		return Pending{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	history := make([]models.Message, len(c.messages))
	copy(history, c.messages)

	c.messages = append(c.messages, models.UserMessage(query))
	c.input = ""
	c.loading = true
	c.chart = nil

	c.cancelRevealLocked()
	c.generation++
	c.transitionLocked(AwaitingResponse)

	c.logger.Debug().Uint64("generation", c.generation).Int("chars", len(query)).Msg("submission started")

	return Pending{
		Generation: c.generation,
		Query:      query,
		History:    history,
		Started:    time.Now(),
	}, true
}

// Fetch performs the request for p. It does not touch controller state.
func (c *Controller) Fetch(ctx context.Context, p Pending) Outcome {
	reply, err := c.client.Ask(ctx, api.AskRequest{Query: p.Query, History: p.History})
	return Outcome{
		Generation: p.Generation,
		Reply:      reply,
		Err:        err,
		Elapsed:    time.Since(p.Started),
	}
}

// Resolve applies an outcome. Outcomes from superseded submissions are
// dropped. When the reply must be revealed, the returned Reveal drives it and
// loading stays set until the reveal completes.
func (c *Controller) Resolve(o Outcome) *Reveal {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := c.logger.With().Uint64("generation", o.Generation).Dur("latency", o.Elapsed).Logger()

	if o.Generation != c.generation {
		log.Debug().Uint64("current", c.generation).Msg("stale response discarded")
		return nil
	}

	if o.Err != nil {
		c.messages = append(c.messages, models.AssistantMessage(apierrors.ChatText(o.Err)))
		c.transitionLocked(Errored)
		c.loading = false
		c.transitionLocked(Idle)
		log.Warn().Err(o.Err).Int("status", apierrors.GetHTTPStatus(o.Err)).Msg("submission failed")
		return nil
	}

	reply := o.Reply
	if reply == nil {
		reply = &models.Reply{}
	}

	if reply.Reveal && c.revealEnabled && reply.Message != nil {
		c.messages = append(c.messages, models.Message{Role: reply.Message.Role})
		ctx, cancel := context.WithCancel(c.life)
		r := &Reveal{
			ctrl:       c,
			generation: o.Generation,
			index:      len(c.messages) - 1,
			runes:      []rune(reply.Message.Content),
			ctx:        ctx,
			cancel:     cancel,
		}
		c.active = r
		c.transitionLocked(Rendering)
		log.Info().Str("outcome", "reveal").Int("chars", len(r.runes)).Msg("submission answered")
		return r
	}

	if reply.Message != nil {
		c.messages = append(c.messages, *reply.Message)
	}
	if reply.Chart != nil {
		c.chart = reply.Chart.Clone()
	}
	c.transitionLocked(Applied)
	c.loading = false
	c.transitionLocked(Idle)
	log.Info().Str("outcome", "applied").Bool("chart", reply.Chart != nil).Msg("submission answered")
	return nil
}

// Submit runs a whole submission synchronously, including the reveal. It
// reports whether the query was accepted.
func (c *Controller) Submit(ctx context.Context, query string) bool {
	pending, ok := c.Begin(query)
	if !ok {
		return false
	}
	if r := c.Resolve(c.Fetch(ctx, pending)); r != nil {
		if err := r.Run(ctx, c.revealDelay, nil); err != nil {
			c.settleReveal(r, err)
		}
	}
	return true
}

// settleReveal ends a reveal whose run was cut short. The answer is shown in
// full and loading cleared, unless a newer submission owns the state.
func (c *Controller) settleReveal(r *Reveal, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.generation != c.generation {
		return
	}
	c.logger.Debug().Err(cause).Uint64("generation", r.generation).Msg("reveal interrupted")

	if c.active == r && !r.done {
		c.finishRevealLocked(r)
		return
	}
	if c.loading {
		c.loading = false
		c.transitionLocked(Idle)
	}
}

// SkipReveal completes the active reveal at once. It returns false when no
// reveal is running.
func (c *Controller) SkipReveal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.active
	if r == nil || r.done || r.generation != c.generation {
		return false
	}
	c.finishRevealLocked(r)
	return true
}

// Clear drops the conversation and the chart. Replies still in flight are
// discarded when they arrive.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelRevealLocked()
	c.generation++
	c.messages = nil
	c.chart = nil
	c.input = ""
	c.loading = false
	c.transitionLocked(Idle)
	c.logger.Debug().Uint64("generation", c.generation).Msg("conversation cleared")
}

// Close cancels any running reveal and leaves the controller idle. The
// controller must not be used after.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelRevealLocked()
	c.cancel()
	c.loading = false
	c.transitionLocked(Idle)
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]models.Message, len(c.messages))
	copy(messages, c.messages)

	return Snapshot{
		Messages:   messages,
		Input:      c.input,
		Loading:    c.loading,
		Chart:      c.chart.Clone(),
		Phase:      c.phase,
		Generation: c.generation,
	}
}

// Messages returns a copy of the conversation
func (c *Controller) Messages() []models.Message {
	return c.Snapshot().Messages
}

// Loading reports whether a submission is in progress
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Chart returns a copy of the live chart, or nil
func (c *Controller) Chart() *models.ChartPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chart.Clone()
}

// Phase returns the current submission phase
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Generation returns the id of the latest submission
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// LastAssistant returns the content of the newest assistant message
func (c *Controller) LastAssistant() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == models.RoleAssistant {
			return c.messages[i].Content, true
		}
	}
	return "", false
}

func (c *Controller) transitionLocked(to Phase) {
	from := c.phase
	c.phase = to
	if c.onTransition != nil && from != to {
		c.onTransition(from, to)
	}
}

func (c *Controller) cancelRevealLocked() {
	if c.active != nil {
		c.active.done = true
		c.active.cancel()
		c.active = nil
	}
}

// finishRevealLocked writes the full text and completes r
func (c *Controller) finishRevealLocked(r *Reveal) {
	r.pos = len(r.runes)
	if r.index < len(c.messages) {
		c.messages[r.index].Content = string(r.runes)
	}
	c.completeRevealLocked(r)
}

func (c *Controller) completeRevealLocked(r *Reveal) {
	r.done = true
	r.cancel()
	if c.active == r {
		c.active = nil
	}
	c.loading = false
	c.transitionLocked(Idle)
	c.logger.Debug().Uint64("generation", r.generation).Msg("reveal complete")
}
