package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doGetJSON performs a GET request and unmarshals the JSON response into
// the result type. The endpoint segments are joined to the base URL.
func doGetJSON[T any](ctx context.Context, c *Client, segments ...string) (*T, error) {
	return doJSON[T](ctx, c, http.MethodGet, nil, segments...)
}

// doPostJSON performs a POST request with an optional JSON body and
// unmarshals the JSON response.
func doPostJSON[T any](ctx context.Context, c *Client, requestBody any, segments ...string) (*T, error) {
	return doJSON[T](ctx, c, http.MethodPost, requestBody, segments...)
}

// doJSON is the internal helper that performs HTTP requests with JSON body
// and response. Non-2xx responses are returned as *APIError with the
// decoded error detail so callers can classify them.
func doJSON[T any](ctx context.Context, c *Client, method string, requestBody any, segments ...string) (*T, error) {
	url := c.resolveURL(segments...)

	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("could not marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, body)
	}

	c.captureResponse(joinEndpoint(segments), body)

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("could not unmarshal response: %w", err)
	}

	return &result, nil
}

func joinEndpoint(segments []string) string {
	out := ""
	for i, s := range segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}
