// Package authapi is the HTTP client for the gesture recognition backend.
// It wraps the five session operations plus user lookup and classifies
// error responses; interpreting outcomes is the capture loop's job.
package authapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client represents a client for the recognition backend API.
type Client struct {
	URL        string
	parsedURL  *url.URL
	httpClient *http.Client
	captureDir string
}

// New creates a new backend client for the given base URL
// (e.g., http://localhost:8900).
func New(rawURL string) (*Client, error) {
	return NewWithCapture(rawURL, "")
}

// NewWithCapture creates a new backend client with optional response
// capturing. Pass an empty captureDir to disable capturing.
func NewWithCapture(rawURL, captureDir string) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	c := &Client{
		URL:        rawURL,
		parsedURL:  parsed,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	if captureDir != "" {
		if err := c.SetCaptureDir(captureDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// resolveURL builds a full URL from the base URL and the given path segments.
func (c *Client) resolveURL(pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return c.parsedURL.String()
	}
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// SetCaptureDir enables API response capturing to the specified directory.
// Pass an empty string to disable capturing.
func (c *Client) SetCaptureDir(dir string) error {
	if dir == "" {
		c.captureDir = ""
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create capture directory: %w", err)
	}
	c.captureDir = dir
	return nil
}

// captureResponse saves the API response body to a file if capturing is
// enabled. The filename is generated from the endpoint name.
func (c *Client) captureResponse(endpoint string, body []byte) {
	if c.captureDir == "" {
		return
	}

	filename := strings.ReplaceAll(endpoint, "/", "_")
	filename = strings.TrimPrefix(filename, "_")
	timestamp := time.Now().Format("20060102_150405")
	filename = fmt.Sprintf("%s_%s.json", filename, timestamp)

	path := filepath.Join(c.captureDir, filename)

	// Pretty-print JSON if possible
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err == nil {
		body = prettyJSON.Bytes()
	}

	// WriteFile error is non-critical for capturing - warn and continue
	if err := os.WriteFile(path, body, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to capture response to %s: %v\n", path, err)
	}
}
