package authapi

import (
	"context"
	"encoding/base64"
)

// Mode selects which kind of session to start.
type Mode string

const (
	ModeVerify   Mode = "verify"
	ModeIdentify Mode = "identify"
	ModeEnroll   Mode = "enroll"
)

// StartVerification opens a 1:1 verification session for a known user.
func (c *Client) StartVerification(ctx context.Context, userID, securityLevel string) (*StartResponse, error) {
	body := map[string]string{
		"user_id":        userID,
		"security_level": securityLevel,
	}
	return doPostJSON[StartResponse](ctx, c, body, "authentication", "verify", "start")
}

// StartIdentification opens a 1:N identification session.
func (c *Client) StartIdentification(ctx context.Context, securityLevel string) (*StartResponse, error) {
	body := map[string]string{
		"security_level": securityLevel,
	}
	return doPostJSON[StartResponse](ctx, c, body, "authentication", "identify", "start")
}

// StartEnrollment opens an enrollment session for a new or existing user.
func (c *Client) StartEnrollment(ctx context.Context, userID, securityLevel string) (*StartResponse, error) {
	body := map[string]string{
		"user_id":        userID,
		"security_level": securityLevel,
	}
	return doPostJSON[StartResponse](ctx, c, body, "authentication", "enroll", "start")
}

// Start opens a session of the given mode. userID is ignored for
// identification.
func (c *Client) Start(ctx context.Context, mode Mode, userID, securityLevel string) (*StartResponse, error) {
	switch mode {
	case ModeIdentify:
		return c.StartIdentification(ctx, securityLevel)
	case ModeEnroll:
		return c.StartEnrollment(ctx, userID, securityLevel)
	default:
		return c.StartVerification(ctx, userID, securityLevel)
	}
}

// SubmitFrame sends one encoded JPEG frame to the session pipeline.
func (c *Client) SubmitFrame(ctx context.Context, sessionID string, jpegData []byte) (*ServerUpdate, error) {
	body := map[string]string{
		"frame": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData),
	}
	return doPostJSON[ServerUpdate](ctx, c, body, "authentication", sessionID, "process-frame")
}

// GetStatus fetches the session's current outcome.
func (c *Client) GetStatus(ctx context.Context, sessionID string) (*StatusResponse, error) {
	return doGetJSON[StatusResponse](ctx, c, "authentication", sessionID, "status")
}

// Cancel asks the server to discard the session. Best-effort: the
// response is ignored and failures are swallowed, so cancellation can
// never throw into caller code.
func (c *Client) Cancel(ctx context.Context, sessionID string) {
	_, _ = doPostJSON[struct{}](ctx, c, nil, "authentication", sessionID, "cancel")
}

// ListUsers returns the enrolled users known to the backend.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	resp, err := doGetJSON[usersResponse](ctx, c, "authentication", "users")
	if err != nil {
		return nil, err
	}
	return resp.Users, nil
}
