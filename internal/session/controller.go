// Package session holds the page-level state machine that sits above the
// capture loop: which screen the user is on, the progress to render, and
// the lockout countdown when the backend reports a locked account.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/mkolarik/gesture-gate/internal/capture"
)

// State is the user-visible stage of the flow.
type State int

const (
	// StateSelecting: no active session; the user picks what to do.
	StateSelecting State = iota
	// StateProcessing: a capture loop is running.
	StateProcessing
	// StateResultSuccess: terminal, the subject was accepted.
	StateResultSuccess
	// StateResultFailure: terminal, rejection or timeout; the outcome
	// carries the details for the retry prompt.
	StateResultFailure
	// StateLocked: terminal, account locked; a countdown is active.
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateSelecting:
		return "selecting"
	case StateProcessing:
		return "processing"
	case StateResultSuccess:
		return "result:success"
	case StateResultFailure:
		return "result:failure"
	case StateLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// ErrSessionActive is returned when Begin is called while a session runs.
// The old session must be stopped before a new one may start.
var ErrSessionActive = errors.New("session: a session is already active")

// Controller owns the state transitions. It is wired to a capture loop
// through HandleProgress/HandleTerminal and back through the stop handle.
type Controller struct {
	mu        sync.Mutex
	state     State
	progress  capture.Progress
	outcome   *capture.Outcome
	countdown *Countdown
	lastErr   error
	stop      func()
}

func NewController() *Controller {
	return &Controller{state: StateSelecting}
}

// Begin moves Selecting to Processing. start must launch the capture loop
// and return its stop handle; if it fails the controller returns to
// Selecting.
func (c *Controller) Begin(start func() (stop func(), err error)) error {
	c.mu.Lock()
	if c.state != StateSelecting {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.state = StateProcessing
	c.progress = capture.Progress{}
	c.outcome = nil
	c.countdown = nil
	c.lastErr = nil
	c.mu.Unlock()

	stopFn, err := start()
	if err != nil {
		c.mu.Lock()
		c.state = StateSelecting
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.stop = stopFn
	c.mu.Unlock()
	return nil
}

// HandleProgress records a progress snapshot. Ignored outside Processing
// so a late callback cannot corrupt a terminal screen.
func (c *Controller) HandleProgress(p capture.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateProcessing {
		return
	}
	c.progress = p
}

// HandleTerminal applies the loop's terminal outcome to the state machine.
func (c *Controller) HandleTerminal(o capture.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateProcessing {
		return
	}
	c.outcome = &o
	c.stop = nil

	switch o.Kind {
	case capture.OutcomeAuthenticated:
		c.state = StateResultSuccess
	case capture.OutcomeLocked:
		c.state = StateLocked
		c.countdown = countdownFromOutcome(&o)
	case capture.OutcomeRejected, capture.OutcomeTimeout:
		c.state = StateResultFailure
	case capture.OutcomeFailed:
		// Generic fatal error: banner plus a return to the start screen.
		c.state = StateSelecting
		c.lastErr = o.Err
	default:
		// Canceled or silently closed by the server.
		c.state = StateSelecting
	}
}

// Reset stops any active loop and returns to Selecting. Valid from every
// state; stopping first guarantees no orphaned loop survives.
func (c *Controller) Reset() {
	c.mu.Lock()
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		// The loop's terminal callback runs here and moves the state
		// itself; the explicit transition below covers terminal states.
		stop()
	}

	c.mu.Lock()
	c.state = StateSelecting
	c.progress = capture.Progress{}
	c.outcome = nil
	c.countdown = nil
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Progress() capture.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Outcome returns the terminal outcome, or nil before termination.
func (c *Controller) Outcome() *capture.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Countdown returns the lockout countdown, or nil unless locked.
func (c *Controller) Countdown() *Countdown {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countdown
}

// Err returns the last fatal error, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func countdownFromOutcome(o *capture.Outcome) *Countdown {
	if o.Result == nil || o.Result.LockoutInfo == nil {
		return nil
	}
	until, err := time.Parse(time.RFC3339, o.Result.LockoutInfo.LockedUntil)
	if err != nil {
		return nil
	}
	return NewCountdown(until)
}
