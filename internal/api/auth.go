package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// LoginRequest is the credentials payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginPayload mirrors the nested token structure of the login response.
type loginPayload struct {
	Tokens struct {
		AccessToken string `json:"accessToken"`
	} `json:"tokens"`
	// AccessToken is the flat fallback location some backend
	// versions use instead of the nested structure.
	AccessToken string `json:"accessToken"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &env); err != nil {
		return "", err
	}
	if !env.Success {
		return "", fmt.Errorf("login failed: %s", orUnknown(env.Message))
	}

	var payload loginPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return "", fmt.Errorf("invalid response: %w", err)
	}
	token := payload.Tokens.AccessToken
	if token == "" {
		token = payload.AccessToken
	}
	if token == "" {
		return "", errors.New("login response carried no access token")
	}
	return token, nil
}

// Logout invalidates the server-side session. Best effort: the caller
// proceeds with local cleanup regardless of the returned error.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, map[string]any{}, nil)
}
