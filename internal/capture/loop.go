// Package capture drives one biometric capture session: a timed,
// self-throttling, mutually exclusive polling loop that feeds sampled
// frames to the backend, interprets every response, and guarantees the
// camera is released exactly once on every exit path.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mkolarik/gesture-gate/internal/authapi"
	"github.com/mkolarik/gesture-gate/internal/frame"
)

// FrameSource produces the current frame, or nil when the stream is not
// ready. A nil frame means "skip this tick", never an error.
type FrameSource interface {
	Sample() *frame.Frame
}

// FrameSourceFunc adapts a plain function to FrameSource.
type FrameSourceFunc func() *frame.Frame

func (f FrameSourceFunc) Sample() *frame.Frame { return f() }

// SessionClient is the subset of the backend client the loop uses.
type SessionClient interface {
	SubmitFrame(ctx context.Context, sessionID string, jpegData []byte) (*authapi.ServerUpdate, error)
	GetStatus(ctx context.Context, sessionID string) (*authapi.StatusResponse, error)
	Cancel(ctx context.Context, sessionID string)
}

// Config parametrizes one loop instance.
type Config struct {
	SessionID string
	Client    SessionClient
	Frames    FrameSource

	// Release frees the camera stream. Called exactly once, whichever
	// termination path runs first. Optional.
	Release func()

	TickInterval         time.Duration // default 200ms
	ThrottleWindow       time.Duration // default 250ms
	MaxConsecutiveErrors int           // default 10

	OnProgress func(Progress) // optional
	OnTerminal func(Outcome)  // optional, invoked at most once
}

// Loop owns one session's submission schedule. All cross-tick state lives
// in one place behind the mutex so the anti-race invariant is auditable:
// inFlight is the sole barrier against overlapping network calls, and
// completed is the terminal latch no path may bypass.
type Loop struct {
	cfg Config
	ctx context.Context

	mu                sync.Mutex
	inFlight          bool
	completed         bool
	lastSubmission    time.Time
	consecutiveErrors int

	done         chan struct{}
	stopTimer    sync.Once
	releaseOnce  sync.Once
	terminalOnce sync.Once
}

// Start validates the config and launches the loop goroutine. The ctx
// bounds the whole session: when it is canceled the loop stops as if
// Stop had been called.
func Start(ctx context.Context, cfg Config) (*Loop, error) {
	if cfg.SessionID == "" {
		return nil, errors.New("capture: session id is required")
	}
	if cfg.Client == nil {
		return nil, errors.New("capture: client is required")
	}
	if cfg.Frames == nil {
		return nil, errors.New("capture: frame source is required")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 200 * time.Millisecond
	}
	if cfg.ThrottleWindow <= 0 {
		cfg.ThrottleWindow = 250 * time.Millisecond
	}
	if cfg.MaxConsecutiveErrors <= 0 {
		cfg.MaxConsecutiveErrors = 10
	}

	l := &Loop{
		cfg:  cfg,
		ctx:  ctx,
		done: make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Done is closed once the loop has terminated.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Completed reports whether the terminal latch is set.
func (l *Loop) Completed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completed
}

func (l *Loop) run() {
	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			l.Stop()
			return
		case <-l.done:
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

// tick performs at most one frame submission. Every skip condition is a
// plain return: the next tick will try again.
func (l *Loop) tick() {
	l.mu.Lock()
	if l.completed || l.inFlight {
		l.mu.Unlock()
		return
	}
	if time.Since(l.lastSubmission) < l.cfg.ThrottleWindow {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	// Sampling happens outside the lock; encoding a frame is not cheap.
	f := l.cfg.Frames.Sample()
	if f == nil {
		return
	}

	l.mu.Lock()
	if l.completed || l.inFlight {
		// Stop raced with sampling, or a submission slipped in.
		l.mu.Unlock()
		return
	}
	l.inFlight = true
	l.lastSubmission = time.Now()
	l.mu.Unlock()

	go l.submit(f)
}

func (l *Loop) submit(f *frame.Frame) {
	upd, err := l.cfg.Client.SubmitFrame(l.ctx, l.cfg.SessionID, f.Data)
	l.handleResponse(upd, err)
}

func (l *Loop) handleResponse(upd *authapi.ServerUpdate, err error) {
	l.mu.Lock()
	if l.completed {
		// Completion flipped while the request was outstanding (e.g.,
		// explicit cancel). Discard the response, mutate nothing.
		l.mu.Unlock()
		return
	}
	l.inFlight = false

	if err != nil {
		l.handleFailureLocked(err)
		return
	}

	l.consecutiveErrors = 0
	progress := Progress{
		ValidCaptures:    upd.ValidCaptures,
		RequiredSequence: upd.RequiredSequence,
		CapturedSequence: upd.CapturedSequence,
		SequenceComplete: upd.SequenceComplete,
		Phase:            upd.Phase,
		Message:          upd.Message,
	}

	switch {
	case upd.AuthenticationResult != nil:
		l.completed = true
		l.mu.Unlock()
		l.emitProgress(progress)
		l.finish(outcomeFromResult(upd.AuthenticationResult))
	case upd.SessionCompleted:
		// Completion signaled out-of-band: one best-effort status call
		// recovers the final outcome.
		l.completed = true
		l.mu.Unlock()
		l.emitProgress(progress)
		l.finish(l.fetchFinalOutcome())
	default:
		l.mu.Unlock()
		l.emitProgress(progress)
	}
}

// handleFailureLocked classifies a failed submission. Called with the
// mutex held; releases it on every path.
func (l *Loop) handleFailureLocked(err error) {
	if info, ok := authapi.TimeoutInfoFrom(err); ok {
		l.completed = true
		l.mu.Unlock()
		l.finish(Outcome{Kind: OutcomeTimeout, Timeout: &info})
		return
	}
	if authapi.IsSessionGone(err) {
		l.completed = true
		l.mu.Unlock()
		l.finish(Outcome{Kind: OutcomeSessionClosed})
		return
	}

	l.consecutiveErrors++
	if l.consecutiveErrors >= l.cfg.MaxConsecutiveErrors {
		l.completed = true
		l.mu.Unlock()
		l.finish(Outcome{Kind: OutcomeFailed, Err: err})
		return
	}
	l.mu.Unlock()
}

// fetchFinalOutcome recovers the terminal result for servers that flag
// completion without embedding it in the frame response.
func (l *Loop) fetchFinalOutcome() Outcome {
	status, err := l.cfg.Client.GetStatus(l.ctx, l.cfg.SessionID)
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Err: err}
	}

	result := &authapi.AuthenticationResult{
		Success:       status.Status == "authenticated",
		MatchedUserID: status.UserID,
		Confidence:    status.Confidence,
		Duration:      status.Duration,
	}
	return outcomeFromResult(result)
}

// Stop cancels the session: latches completion, halts the timer, releases
// the camera, and fires a best-effort cancel to the backend. Safe to call
// multiple times and from any goroutine; any in-flight response is
// discarded rather than aborted.
func (l *Loop) Stop() {
	l.mu.Lock()
	alreadyDone := l.completed
	l.completed = true
	l.mu.Unlock()

	if alreadyDone {
		// A terminal path already ran (or is running): just make sure the
		// timer and camera are down, then return.
		l.halt()
		return
	}

	// The backend still thinks the session is live; tell it, but never
	// let that call block or fail the caller.
	go l.cfg.Client.Cancel(context.Background(), l.cfg.SessionID)

	l.finish(Outcome{Kind: OutcomeCanceled})
}

// finish runs the one-and-only terminal transition: stop the timer,
// release the camera, deliver the outcome.
func (l *Loop) finish(o Outcome) {
	l.terminalOnce.Do(func() {
		l.halt()
		if l.cfg.OnTerminal != nil {
			l.cfg.OnTerminal(o)
		}
	})
}

func (l *Loop) halt() {
	l.stopTimer.Do(func() { close(l.done) })
	l.releaseOnce.Do(func() {
		if l.cfg.Release != nil {
			l.cfg.Release()
		}
	})
}

func (l *Loop) emitProgress(p Progress) {
	if l.cfg.OnProgress != nil {
		l.cfg.OnProgress(p)
	}
}
