package authapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error reason codes sent by the backend in the detail payload.
const (
	reasonSessionTimeout = "session_timeout"
	reasonSessionExpired = "session_expired"
	reasonSessionCleaned = "session_cleaned"
)

// APIError is a non-2xx backend response with its decoded detail payload.
type APIError struct {
	StatusCode int
	Detail     ErrorDetail
	Body       string
}

// ErrorDetail mirrors the backend's error envelope: {"detail": {...}}.
type ErrorDetail struct {
	Error     string         `json:"error"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	Details   TimeoutDetails `json:"details"`
}

// TimeoutDetails carries the structured context of a session timeout.
type TimeoutDetails struct {
	Duration              float64 `json:"duration"`
	GesturesCaptured      int     `json:"gestures_captured"`
	GesturesRequired      int     `json:"gestures_required"`
	TimeLimit             float64 `json:"time_limit"`
	InactivityLimit       float64 `json:"inactivity_limit,omitempty"`
	IncorrectGestureLimit float64 `json:"incorrect_gesture_limit,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail.Error != "" {
		return fmt.Sprintf("backend returned status %d (%s)", e.StatusCode, e.Detail.Error)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Body: string(body)}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		// detail may be a structured object or a bare string
		if err := json.Unmarshal(envelope.Detail, &apiErr.Detail); err != nil {
			var msg string
			if json.Unmarshal(envelope.Detail, &msg) == nil {
				apiErr.Detail.Message = msg
			}
		}
	}

	return apiErr
}

// IsTimeout reports whether the error is an expected session timeout:
// HTTP 408, or HTTP 410 carrying the session_timeout reason.
func IsTimeout(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusRequestTimeout:
		return apiErr.Detail.Error == reasonSessionTimeout || apiErr.Detail.Error == ""
	case http.StatusGone:
		return apiErr.Detail.Error == reasonSessionTimeout
	default:
		return false
	}
}

// IsSessionGone reports whether the server has already discarded the
// session (expired or cleaned). This is handled silently by callers.
func IsSessionGone(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode != http.StatusGone {
		return false
	}
	return apiErr.Detail.Error == reasonSessionExpired || apiErr.Detail.Error == reasonSessionCleaned
}

// TimeoutKind distinguishes the timeout variants the backend reports.
type TimeoutKind string

const (
	TimeoutOverall          TimeoutKind = "time_limit"
	TimeoutInactivity       TimeoutKind = "inactivity"
	TimeoutIncorrectGesture TimeoutKind = "incorrect_gesture"
)

// TimeoutInfo is the structured timeout context surfaced to the user.
type TimeoutInfo struct {
	Kind                         TimeoutKind
	ElapsedSeconds               float64
	GesturesCaptured             int
	GesturesRequired             int
	TimeLimitSeconds             float64
	InactivityLimitSeconds       float64
	IncorrectGestureLimitSeconds float64
}

// TimeoutInfoFrom extracts TimeoutInfo from a classified timeout error.
// The second return is false when err is not a timeout.
func TimeoutInfoFrom(err error) (TimeoutInfo, bool) {
	if !IsTimeout(err) {
		return TimeoutInfo{}, false
	}
	var apiErr *APIError
	errors.As(err, &apiErr)

	d := apiErr.Detail.Details
	info := TimeoutInfo{
		Kind:                         TimeoutOverall,
		ElapsedSeconds:               d.Duration,
		GesturesCaptured:             d.GesturesCaptured,
		GesturesRequired:             d.GesturesRequired,
		TimeLimitSeconds:             d.TimeLimit,
		InactivityLimitSeconds:       d.InactivityLimit,
		IncorrectGestureLimitSeconds: d.IncorrectGestureLimit,
	}

	switch apiErr.Detail.ErrorType {
	case "inactivity_timeout":
		info.Kind = TimeoutInactivity
	case "incorrect_gesture_timeout":
		info.Kind = TimeoutIncorrectGesture
	default:
		if d.InactivityLimit > 0 {
			info.Kind = TimeoutInactivity
		} else if d.IncorrectGestureLimit > 0 {
			info.Kind = TimeoutIncorrectGesture
		}
	}

	return info, true
}
