package capture

import "github.com/mkolarik/gesture-gate/internal/authapi"

// OutcomeKind is the terminal classification of one capture session.
type OutcomeKind int

const (
	// OutcomeAuthenticated: the backend accepted the subject.
	OutcomeAuthenticated OutcomeKind = iota
	// OutcomeRejected: the backend reached a decision and said no.
	OutcomeRejected
	// OutcomeLocked: the account is locked; LockoutInfo is attached.
	OutcomeLocked
	// OutcomeTimeout: the session ran out of time; TimeoutInfo is attached.
	OutcomeTimeout
	// OutcomeSessionClosed: the server already discarded the session.
	// Handled silently, no user-facing error.
	OutcomeSessionClosed
	// OutcomeCanceled: the user or the caller stopped the session.
	OutcomeCanceled
	// OutcomeFailed: too many consecutive transient errors.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeRejected:
		return "rejected"
	case OutcomeLocked:
		return "locked"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeSessionClosed:
		return "session closed"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is delivered exactly once when the loop terminates.
type Outcome struct {
	Kind    OutcomeKind
	Result  *authapi.AuthenticationResult // set for authenticated/rejected/locked
	Timeout *authapi.TimeoutInfo          // set for timeout
	Err     error                         // set for failed
}

// Progress is a snapshot of the session state after one accepted frame
// response, surfaced for rendering.
type Progress struct {
	ValidCaptures    int
	RequiredSequence []string
	CapturedSequence []string
	SequenceComplete bool
	Phase            string
	Message          string
}

func outcomeFromResult(r *authapi.AuthenticationResult) Outcome {
	switch {
	case r.IsLocked:
		return Outcome{Kind: OutcomeLocked, Result: r}
	case r.Success:
		return Outcome{Kind: OutcomeAuthenticated, Result: r}
	default:
		return Outcome{Kind: OutcomeRejected, Result: r}
	}
}
