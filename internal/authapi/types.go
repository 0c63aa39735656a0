package authapi

import "encoding/json"

// StartResponse is the response to a session start call.
type StartResponse struct {
	SessionID        string   `json:"session_id"`
	RequiredSequence []string `json:"required_sequence,omitempty"`
	Message          string   `json:"message,omitempty"`
}

// ServerUpdate is the decoded response to a frame submission.
type ServerUpdate struct {
	Message          string   `json:"message"`
	ValidCaptures    int      `json:"valid_captures"`
	RequiredSequence []string `json:"required_sequence"`
	CapturedSequence []string `json:"captured_sequence"`
	SequenceComplete bool     `json:"sequence_complete"`
	Phase            string   `json:"phase"`

	// Present once the server reaches a decision.
	AuthenticationResult *AuthenticationResult `json:"authentication_result,omitempty"`

	// Some server versions signal completion without an embedded result;
	// the final outcome is then fetched via GetStatus.
	SessionCompleted bool `json:"session_completed,omitempty"`
}

// AuthenticationResult is the terminal decision embedded in a frame
// response. Field aliases (matched_user_id|user_id, fused_score|confidence)
// vary between server versions, so decoding is done by hand.
type AuthenticationResult struct {
	Success       bool
	MatchedUserID string
	Confidence    float64 // fused score in [0,1]
	Duration      float64 // seconds from session start to decision
	IsLocked      bool
	LockoutInfo   *LockoutInfo
}

func (r *AuthenticationResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success       bool         `json:"success"`
		MatchedUserID string       `json:"matched_user_id"`
		UserID        string       `json:"user_id"`
		FusedScore    *float64     `json:"fused_score"`
		Confidence    *float64     `json:"confidence"`
		Duration      float64      `json:"duration"`
		IsLocked      bool         `json:"is_locked"`
		LockoutInfo   *LockoutInfo `json:"lockout_info"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Success = raw.Success
	r.MatchedUserID = raw.MatchedUserID
	if r.MatchedUserID == "" {
		r.MatchedUserID = raw.UserID
	}
	switch {
	case raw.FusedScore != nil:
		r.Confidence = *raw.FusedScore
	case raw.Confidence != nil:
		r.Confidence = *raw.Confidence
	}
	r.Duration = raw.Duration
	r.IsLocked = raw.IsLocked
	r.LockoutInfo = raw.LockoutInfo
	return nil
}

func (r AuthenticationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Success       bool         `json:"success"`
		MatchedUserID string       `json:"matched_user_id,omitempty"`
		Confidence    float64      `json:"confidence"`
		Duration      float64      `json:"duration"`
		IsLocked      bool         `json:"is_locked"`
		LockoutInfo   *LockoutInfo `json:"lockout_info,omitempty"`
	}{r.Success, r.MatchedUserID, r.Confidence, r.Duration, r.IsLocked, r.LockoutInfo})
}

// LockoutInfo describes a server-enforced account lockout.
type LockoutInfo struct {
	LockedUntil string `json:"locked_until"` // RFC 3339 timestamp
	MaxAttempts int    `json:"max_attempts"`
}

// StatusResponse is the response to a session status query.
type StatusResponse struct {
	Status     string  `json:"status"` // "authenticated", "rejected", "in_progress", ...
	UserID     string  `json:"user_id"`
	Confidence float64 `json:"confidence"`
	Duration   float64 `json:"duration"`
}

// User is one enrolled subject.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Enrolled bool   `json:"enrolled"`
}

type usersResponse struct {
	Users []User `json:"users"`
}
