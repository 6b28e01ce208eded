// Package http provides the HTTP handlers of the development stub
// backend: authentication, sidebar trees, and article operations. Every
// response uses the portal's JSON envelope {success, message, data}.
package http

import (
	"encoding/json"
	"net/http"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Login checks credentials and returns a signed access token.
	Login(email, password string) (string, error)
}

// AuthHandler handles HTTP requests for login and logout.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	// Email is the account email.
	Email string `json:"email"`
	// Password is the account password.
	Password string `json:"password"`
}

// Login handles POST /auth/login requests.
// It expects a JSON body with "email" and "password" and responds with
// the access token nested under data.tokens.accessToken, matching the
// production backend's shape.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid request"})
		return
	}

	token, err := h.AuthService.Login(req.Email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Message: "invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]any{
			"tokens": map[string]string{"accessToken": token},
		},
	})
}

// Logout handles POST /auth/logout requests. The stub backend keeps no
// server-side session state, so logout always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// envelope is the common response wrapper.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON writes an envelope with the given status code.
func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
