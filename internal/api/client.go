// Package api implements the HTTP client for the documentation portal
// backend. It covers the public endpoints, the privileged endpoints that
// require a bearer token, and the auth endpoints. The backend is treated
// as a black box returning JSON envelopes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TokenSource supplies the current access token, when one exists.
// The session store implements it.
type TokenSource interface {
	// Token returns the current access token, or false when the
	// caller is anonymous.
	Token() (string, bool)
}

// anonymous is a TokenSource that never has a token.
type anonymous struct{}

func (anonymous) Token() (string, bool) { return "", false }

// Client performs requests against the portal backend.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenSource
}

// New constructs a Client for the given base URL. tokens may be nil for
// a purely anonymous client.
func New(httpClient *http.Client, baseURL string, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tokens == nil {
		tokens = anonymous{}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
	}
}

// envelope is the common JSON response wrapper of the backend.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do issues a request and decodes the response body into out. The
// bearer header is attached whenever a token is available; the backend
// decides whether one was required. A non-2xx status is returned as an
// error carrying the backend's message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := c.tokens.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			return fmt.Errorf("server error: %s", env.Message)
		}
		return fmt.Errorf("server error: %s", http.StatusText(resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
