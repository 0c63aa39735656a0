package session

import (
	"errors"
	"testing"
	"time"

	"github.com/mkolarik/gesture-gate/internal/authapi"
	"github.com/mkolarik/gesture-gate/internal/capture"
)

func beginOK(t *testing.T, c *Controller) *int {
	t.Helper()
	stops := 0
	err := c.Begin(func() (func(), error) {
		return func() { stops++ }, nil
	})
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	return &stops
}

func TestBeginMovesToProcessing(t *testing.T) {
	c := NewController()
	if c.State() != StateSelecting {
		t.Fatalf("new controller should be selecting, got %v", c.State())
	}

	beginOK(t, c)
	if c.State() != StateProcessing {
		t.Fatalf("expected processing, got %v", c.State())
	}
}

func TestBeginRejectsConcurrentSession(t *testing.T) {
	c := NewController()
	beginOK(t, c)

	err := c.Begin(func() (func(), error) { return func() {}, nil })
	if !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

func TestBeginFailureReturnsToSelecting(t *testing.T) {
	c := NewController()
	startErr := errors.New("camera busy")

	err := c.Begin(func() (func(), error) { return nil, startErr })
	if !errors.Is(err, startErr) {
		t.Fatalf("expected start error, got %v", err)
	}
	if c.State() != StateSelecting {
		t.Errorf("expected selecting after failed start, got %v", c.State())
	}
}

func TestTerminalSuccess(t *testing.T) {
	c := NewController()
	beginOK(t, c)

	c.HandleTerminal(capture.Outcome{
		Kind:   capture.OutcomeAuthenticated,
		Result: &authapi.AuthenticationResult{Success: true, Confidence: 0.93},
	})

	if c.State() != StateResultSuccess {
		t.Fatalf("expected result:success, got %v", c.State())
	}
	if c.Outcome() == nil || c.Outcome().Result.Confidence != 0.93 {
		t.Error("outcome not preserved")
	}
}

func TestTerminalLockedStartsCountdown(t *testing.T) {
	c := NewController()
	beginOK(t, c)

	until := time.Now().Add(3 * time.Minute)
	c.HandleTerminal(capture.Outcome{
		Kind: capture.OutcomeLocked,
		Result: &authapi.AuthenticationResult{
			IsLocked: true,
			LockoutInfo: &authapi.LockoutInfo{
				LockedUntil: until.Format(time.RFC3339),
				MaxAttempts: 5,
			},
		},
	})

	if c.State() != StateLocked {
		t.Fatalf("expected locked, got %v", c.State())
	}
	cd := c.Countdown()
	if cd == nil {
		t.Fatal("expected a countdown")
	}
	r := cd.Remaining()
	if r.Expired {
		t.Error("countdown should not be expired")
	}
	if r.Minutes < 2 || r.Minutes > 3 {
		t.Errorf("expected roughly 3 minutes remaining, got %d:%02d", r.Minutes, r.Seconds)
	}
}

func TestTerminalFatalReturnsToSelecting(t *testing.T) {
	c := NewController()
	beginOK(t, c)

	fatal := errors.New("backend unreachable")
	c.HandleTerminal(capture.Outcome{Kind: capture.OutcomeFailed, Err: fatal})

	if c.State() != StateSelecting {
		t.Fatalf("fatal error should return to selecting, got %v", c.State())
	}
	if !errors.Is(c.Err(), fatal) {
		t.Error("fatal error not surfaced")
	}
}

func TestTerminalTimeoutIsFailureScreen(t *testing.T) {
	c := NewController()
	beginOK(t, c)

	c.HandleTerminal(capture.Outcome{
		Kind:    capture.OutcomeTimeout,
		Timeout: &authapi.TimeoutInfo{GesturesCaptured: 1, GesturesRequired: 3, TimeLimitSeconds: 45},
	})

	if c.State() != StateResultFailure {
		t.Fatalf("expected result:failure, got %v", c.State())
	}
	if c.Outcome().Timeout == nil {
		t.Error("timeout info not preserved for the retry prompt")
	}
}

func TestTerminalSessionClosedSilent(t *testing.T) {
	c := NewController()
	beginOK(t, c)

	c.HandleTerminal(capture.Outcome{Kind: capture.OutcomeSessionClosed})

	if c.State() != StateSelecting {
		t.Fatalf("session-closed should quietly return to selecting, got %v", c.State())
	}
	if c.Err() != nil {
		t.Error("session-closed must not surface an error")
	}
}

func TestProgressIgnoredAfterTerminal(t *testing.T) {
	c := NewController()
	beginOK(t, c)

	c.HandleTerminal(capture.Outcome{Kind: capture.OutcomeAuthenticated,
		Result: &authapi.AuthenticationResult{Success: true}})
	c.HandleProgress(capture.Progress{ValidCaptures: 2})

	if c.Progress().ValidCaptures != 0 {
		t.Error("late progress mutated a terminal state")
	}
}

func TestResetStopsActiveLoop(t *testing.T) {
	c := NewController()
	stops := beginOK(t, c)

	c.Reset()
	if *stops != 1 {
		t.Errorf("expected the loop's stop handle to be called once, got %d", *stops)
	}
	if c.State() != StateSelecting {
		t.Fatalf("expected selecting after reset, got %v", c.State())
	}
}

func TestResetFromTerminalState(t *testing.T) {
	c := NewController()
	beginOK(t, c)
	c.HandleTerminal(capture.Outcome{Kind: capture.OutcomeAuthenticated,
		Result: &authapi.AuthenticationResult{Success: true}})

	c.Reset()
	if c.State() != StateSelecting {
		t.Fatalf("expected selecting, got %v", c.State())
	}
	if c.Outcome() != nil || c.Countdown() != nil {
		t.Error("reset did not clear terminal data")
	}

	// A fresh session can start again.
	beginOK(t, c)
	if c.State() != StateProcessing {
		t.Fatalf("expected processing after re-begin, got %v", c.State())
	}
}
