package simulator

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkolarik/gesture-gate/internal/authapi"
)

// simSession is one live simulated session.
type simSession struct {
	id         string
	mode       authapi.Mode
	userID     string
	startedAt  time.Time
	lastActive time.Time
	framesSeen int
	captured   []string
	completed  bool
	result     *authapi.AuthenticationResult
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondDetail sends the backend's error envelope: {"detail": {...}}.
func respondDetail(w http.ResponseWriter, status int, detail authapi.ErrorDetail) {
	respondJSON(w, status, map[string]any{"detail": detail})
}

func (s *Simulator) handleStart(mode authapi.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID        string `json:"user_id"`
			SecurityLevel string `json:"security_level"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondDetail(w, http.StatusBadRequest, authapi.ErrorDetail{Error: "invalid_request", Message: "invalid request body"})
			return
		}
		if mode != authapi.ModeIdentify && req.UserID == "" {
			respondDetail(w, http.StatusBadRequest, authapi.ErrorDetail{Error: "invalid_request", Message: "user_id is required"})
			return
		}

		now := time.Now()
		sess := &simSession{
			id:         uuid.NewString(),
			mode:       mode,
			userID:     req.UserID,
			startedAt:  now,
			lastActive: now,
		}

		s.mu.Lock()
		s.pruneLocked(now)
		s.sessions[sess.id] = sess
		s.mu.Unlock()

		respondJSON(w, http.StatusOK, authapi.StartResponse{
			SessionID:        sess.id,
			RequiredSequence: s.script.RequiredSequence,
			Message:          "session started",
		})
	}
}

func (s *Simulator) handleProcessFrame(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Frame string `json:"frame"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(w, http.StatusBadRequest, authapi.ErrorDetail{Error: "invalid_request", Message: "invalid request body"})
		return
	}
	if !validFramePayload(req.Frame) {
		respondDetail(w, http.StatusBadRequest, authapi.ErrorDetail{Error: "invalid_frame", Message: "frame must be a base64 JPEG data URL"})
		return
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)

	sess, ok := s.sessions[sessionID]
	if !ok {
		respondDetail(w, http.StatusGone, authapi.ErrorDetail{Error: "session_cleaned"})
		return
	}
	if sess.completed {
		// Duplicate completion: the session has already been decided and
		// discarded server-side.
		delete(s.sessions, sessionID)
		respondDetail(w, http.StatusGone, authapi.ErrorDetail{Error: "session_cleaned"})
		return
	}
	if elapsed := now.Sub(sess.startedAt); elapsed > s.script.TimeLimit {
		delete(s.sessions, sessionID)
		respondDetail(w, http.StatusRequestTimeout, authapi.ErrorDetail{
			Error:     "session_timeout",
			ErrorType: "session_timeout",
			Details: authapi.TimeoutDetails{
				Duration:         elapsed.Seconds(),
				GesturesCaptured: len(sess.captured),
				GesturesRequired: len(s.script.RequiredSequence),
				TimeLimit:        s.script.TimeLimit.Seconds(),
			},
		})
		return
	}

	sess.lastActive = now
	sess.framesSeen++
	if sess.framesSeen%s.script.FramesPerGesture == 0 && len(sess.captured) < len(s.script.RequiredSequence) {
		next := s.script.RequiredSequence[len(sess.captured)]
		sess.captured = append(sess.captured, next)
	}

	update := authapi.ServerUpdate{
		Message:          "processing",
		ValidCaptures:    len(sess.captured),
		RequiredSequence: s.script.RequiredSequence,
		CapturedSequence: append([]string(nil), sess.captured...),
		SequenceComplete: len(sess.captured) == len(s.script.RequiredSequence),
		Phase:            "capturing",
	}
	if len(sess.captured) > 0 {
		update.Message = "captured " + sess.captured[len(sess.captured)-1]
	}

	if update.SequenceComplete {
		sess.completed = true
		sess.result = s.decideLocked(sess, now)
		update.Phase = "complete"
		update.AuthenticationResult = sess.result
	}

	respondJSON(w, http.StatusOK, update)
}

func (s *Simulator) decideLocked(sess *simSession, now time.Time) *authapi.AuthenticationResult {
	result := &authapi.AuthenticationResult{
		Confidence: s.script.Confidence,
		Duration:   now.Sub(sess.startedAt).Seconds(),
	}

	switch s.script.Decision {
	case DecideAccept:
		result.Success = true
		result.MatchedUserID = sess.userID
		if sess.mode == authapi.ModeIdentify {
			result.MatchedUserID = s.script.Users[0].ID
		}
	case DecideLock:
		result.IsLocked = true
		result.LockoutInfo = &authapi.LockoutInfo{
			LockedUntil: now.Add(s.script.LockoutDuration).Format(time.RFC3339),
			MaxAttempts: s.script.MaxAttempts,
		}
	default:
		// rejected: success stays false
	}

	return result
}

func (s *Simulator) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()

	if !ok {
		respondDetail(w, http.StatusGone, authapi.ErrorDetail{Error: "session_cleaned"})
		return
	}

	status := authapi.StatusResponse{Status: "in_progress"}
	if sess.result != nil {
		status.UserID = sess.result.MatchedUserID
		status.Confidence = sess.result.Confidence
		status.Duration = sess.result.Duration
		if sess.result.Success {
			status.Status = "authenticated"
		} else {
			status.Status = "rejected"
		}
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Simulator) handleCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

func (s *Simulator) handleUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"users": s.script.Users})
}

// pruneLocked drops idle sessions past the TTL. Caller holds the mutex.
func (s *Simulator) pruneLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.lastActive) > s.script.SessionTTL {
			delete(s.sessions, id)
		}
	}
}

// validFramePayload checks the data URL envelope and the JPEG SOI marker.
func validFramePayload(payload string) bool {
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(payload, prefix) {
		return false
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, prefix))
	if err != nil || len(data) < 2 {
		return false
	}
	return data[0] == 0xff && data[1] == 0xd8
}
