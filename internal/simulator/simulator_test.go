package simulator

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkolarik/gesture-gate/internal/authapi"
	"github.com/mkolarik/gesture-gate/internal/capture"
	"github.com/mkolarik/gesture-gate/internal/frame"
)

var jpegFrame = []byte{0xff, 0xd8, 0x01, 0x02, 0xff, 0xd9}

func setup(t *testing.T, script Script) (*httptest.Server, *authapi.Client) {
	t.Helper()
	server := httptest.NewServer(New(script).Router())
	t.Cleanup(server.Close)

	client, err := authapi.New(server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return server, client
}

func frames() capture.FrameSource {
	return capture.FrameSourceFunc(func() *frame.Frame {
		return &frame.Frame{Data: jpegFrame, CapturedAt: time.Now()}
	})
}

// runSession drives a full capture loop against the simulator and
// returns the terminal outcome.
func runSession(t *testing.T, client *authapi.Client, sessionID string) capture.Outcome {
	t.Helper()

	terminal := make(chan capture.Outcome, 1)
	_, err := capture.Start(context.Background(), capture.Config{
		SessionID:      sessionID,
		Client:         client,
		Frames:         frames(),
		TickInterval:   5 * time.Millisecond,
		ThrottleWindow: 5 * time.Millisecond,
		OnTerminal:     func(o capture.Outcome) { terminal <- o },
	})
	if err != nil {
		t.Fatalf("failed to start loop: %v", err)
	}

	select {
	case o := <-terminal:
		return o
	case <-time.After(10 * time.Second):
		t.Fatal("session did not terminate")
		return capture.Outcome{}
	}
}

func TestVerificationAccepted(t *testing.T) {
	_, client := setup(t, Script{Decision: DecideAccept, FramesPerGesture: 2})

	start, err := client.StartVerification(context.Background(), "alice", "medium")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if start.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if len(start.RequiredSequence) != 3 {
		t.Fatalf("expected 3 required gestures, got %v", start.RequiredSequence)
	}

	o := runSession(t, client, start.SessionID)
	if o.Kind != capture.OutcomeAuthenticated {
		t.Fatalf("expected authenticated, got %v (err: %v)", o.Kind, o.Err)
	}
	if o.Result.MatchedUserID != "alice" {
		t.Errorf("expected alice, got %q", o.Result.MatchedUserID)
	}
	if o.Result.Confidence != 0.93 {
		t.Errorf("expected confidence 0.93, got %v", o.Result.Confidence)
	}
}

func TestIdentificationMatchesFirstUser(t *testing.T) {
	_, client := setup(t, Script{Decision: DecideAccept, FramesPerGesture: 1})

	start, err := client.StartIdentification(context.Background(), "high")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	o := runSession(t, client, start.SessionID)
	if o.Kind != capture.OutcomeAuthenticated {
		t.Fatalf("expected authenticated, got %v", o.Kind)
	}
	if o.Result.MatchedUserID != "alice" {
		t.Errorf("expected identification to match alice, got %q", o.Result.MatchedUserID)
	}
}

func TestRejection(t *testing.T) {
	_, client := setup(t, Script{Decision: DecideReject, FramesPerGesture: 1})

	start, _ := client.StartVerification(context.Background(), "bob", "medium")
	o := runSession(t, client, start.SessionID)

	if o.Kind != capture.OutcomeRejected {
		t.Fatalf("expected rejected, got %v", o.Kind)
	}
}

func TestLockout(t *testing.T) {
	_, client := setup(t, Script{
		Decision:         DecideLock,
		FramesPerGesture: 1,
		LockoutDuration:  5 * time.Minute,
		MaxAttempts:      5,
	})

	start, _ := client.StartVerification(context.Background(), "alice", "medium")
	o := runSession(t, client, start.SessionID)

	if o.Kind != capture.OutcomeLocked {
		t.Fatalf("expected locked, got %v", o.Kind)
	}
	info := o.Result.LockoutInfo
	if info == nil {
		t.Fatal("expected lockout info")
	}
	if info.MaxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", info.MaxAttempts)
	}
	until, err := time.Parse(time.RFC3339, info.LockedUntil)
	if err != nil {
		t.Fatalf("locked_until is not RFC 3339: %v", err)
	}
	if remaining := time.Until(until); remaining < 4*time.Minute || remaining > 6*time.Minute {
		t.Errorf("expected roughly 5 minutes of lockout, got %v", remaining)
	}
}

func TestSessionTimeout(t *testing.T) {
	_, client := setup(t, Script{
		FramesPerGesture: 1000, // never completes
		TimeLimit:        50 * time.Millisecond,
	})

	start, _ := client.StartVerification(context.Background(), "alice", "medium")
	o := runSession(t, client, start.SessionID)

	if o.Kind != capture.OutcomeTimeout {
		t.Fatalf("expected timeout, got %v", o.Kind)
	}
	if o.Timeout == nil || o.Timeout.GesturesRequired != 3 {
		t.Errorf("unexpected timeout info: %+v", o.Timeout)
	}
}

func TestCanceledSessionIsGone(t *testing.T) {
	_, client := setup(t, Script{})

	start, _ := client.StartVerification(context.Background(), "alice", "medium")
	client.Cancel(context.Background(), start.SessionID)

	_, err := client.SubmitFrame(context.Background(), start.SessionID, jpegFrame)
	if !authapi.IsSessionGone(err) {
		t.Fatalf("expected session-gone after cancel, got %v", err)
	}
}

func TestDuplicateCompletionIsCleaned(t *testing.T) {
	_, client := setup(t, Script{Decision: DecideAccept, FramesPerGesture: 1})

	start, _ := client.StartVerification(context.Background(), "alice", "medium")

	// Drive the session to completion by hand.
	var done bool
	for i := 0; i < 10 && !done; i++ {
		upd, err := client.SubmitFrame(context.Background(), start.SessionID, jpegFrame)
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		done = upd.AuthenticationResult != nil
	}
	if !done {
		t.Fatal("session never completed")
	}

	// One more frame after completion: silently gone.
	_, err := client.SubmitFrame(context.Background(), start.SessionID, jpegFrame)
	if !authapi.IsSessionGone(err) {
		t.Fatalf("expected session-gone after completion, got %v", err)
	}
}

func TestInvalidFrameRejected(t *testing.T) {
	_, client := setup(t, Script{})

	start, _ := client.StartVerification(context.Background(), "alice", "medium")

	_, err := client.SubmitFrame(context.Background(), start.SessionID, []byte("not a jpeg"))
	apiErr, ok := err.(*authapi.APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != 400 {
		t.Errorf("expected 400 for a non-JPEG frame, got %d", apiErr.StatusCode)
	}
}

func TestStartRequiresUserForVerify(t *testing.T) {
	_, client := setup(t, Script{})

	_, err := client.StartVerification(context.Background(), "", "medium")
	if err == nil {
		t.Fatal("expected an error for missing user_id")
	}
}

func TestListUsers(t *testing.T) {
	_, client := setup(t, Script{})

	users, err := client.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 default users, got %d", len(users))
	}
}

func TestStatusProgression(t *testing.T) {
	_, client := setup(t, Script{Decision: DecideAccept, FramesPerGesture: 1})

	start, _ := client.StartVerification(context.Background(), "alice", "medium")

	status, err := client.GetStatus(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Status != "in_progress" {
		t.Errorf("expected in_progress before frames, got %q", status.Status)
	}

	for i := 0; i < 3; i++ {
		if _, err := client.SubmitFrame(context.Background(), start.SessionID, jpegFrame); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	status, err = client.GetStatus(context.Background(), start.SessionID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Status != "authenticated" {
		t.Errorf("expected authenticated after completion, got %q", status.Status)
	}
	if status.UserID != "alice" {
		t.Errorf("expected alice, got %q", status.UserID)
	}
}
