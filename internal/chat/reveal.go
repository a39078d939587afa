package chat

import (
	"context"
	"time"
)

// Reveal discloses an assistant answer one character at a time. Each step
// grows the newest assistant message to a longer prefix of the full text.
// A reveal stops when it completes, when the controller is closed, or when a
// newer submission supersedes it.
type Reveal struct {
	ctrl       *Controller
	generation uint64
	index      int
	runes      []rune
	pos        int
	done       bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Generation returns the submission this reveal belongs to
func (r *Reveal) Generation() uint64 {
	return r.generation
}

// Full returns the complete answer text
func (r *Reveal) Full() string {
	return string(r.runes)
}

// Text returns the prefix revealed so far
func (r *Reveal) Text() string {
	r.ctrl.mu.Lock()
	defer r.ctrl.mu.Unlock()
	return string(r.runes[:r.pos])
}

// Done reports whether the reveal has finished or been abandoned
func (r *Reveal) Done() bool {
	r.ctrl.mu.Lock()
	defer r.ctrl.mu.Unlock()
	return r.done
}

// Context is cancelled when the reveal finishes or is abandoned
func (r *Reveal) Context() context.Context {
	return r.ctx
}

// Step reveals one more character. It returns false without changing
// anything when the reveal is done, cancelled or superseded.
func (r *Reveal) Step() bool {
	c := r.ctrl
	c.mu.Lock()
	defer c.mu.Unlock()

	if r.done {
		return false
	}
	if r.ctx.Err() != nil || r.generation != c.generation || r.index >= len(c.messages) {
		r.done = true
		r.cancel()
		if c.active == r {
			c.active = nil
		}
		return false
	}

	if r.pos < len(r.runes) {
		r.pos++
	}
	c.messages[r.index].Content = string(r.runes[:r.pos])

	if r.pos >= len(r.runes) {
		c.completeRevealLocked(r)
	}
	return true
}

// Run steps the reveal to the end, waiting delay after each step. onStep, if
// set, receives every revealed prefix. Run returns early with the context's
// error when ctx or the reveal's own token is cancelled.
func (r *Reveal) Run(ctx context.Context, delay time.Duration, onStep func(text string)) error {
	var timer *time.Timer
	if delay > 0 {
		timer = time.NewTimer(delay)
		defer timer.Stop()
	}

	for r.Step() {
		if onStep != nil {
			onStep(r.Text())
		}
		if r.Done() || timer == nil {
			continue
		}

		timer.Reset(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		case <-r.ctx.Done():
			if r.Done() && r.Text() == r.Full() {
				return nil
			}
			return r.ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
