// Package service implements the business logic of the development
// stub backend: issuing and validating access tokens for fixture users
// and serving fixture documentation content.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/atinyakov/DocsPortal/internal/models"
)

// tokenTTL is the lifetime of issued access tokens.
const tokenTTL = 24 * time.Hour

// fixtureUser is one hard-coded account of the stub backend.
type fixtureUser struct {
	password string
	name     string
	// md is the access-marker list baked into the token. nil means
	// the token carries no MD claim at all.
	md []string
}

// fixtureUsers are the accounts the stub backend accepts.
var fixtureUsers = map[string]fixtureUser{
	"admin@example.com":  {password: "admin", name: "Admin", md: []string{"R", "C", "U", "D"}},
	"editor@example.com": {password: "editor", name: "Editor", md: []string{"R", "U"}},
	"viewer@example.com": {password: "viewer", name: "Viewer", md: nil},
}

// AuthService issues and validates HS256 access tokens.
type AuthService struct {
	secret []byte
	now    func() time.Time
}

// NewAuthService constructs an AuthService signing with the given secret.
func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret), now: time.Now}
}

// Login checks the credentials against the fixture users and returns
// a signed access token.
func (s *AuthService) Login(email, password string) (string, error) {
	user, ok := fixtureUsers[email]
	if !ok || user.password != password {
		return "", errors.New("invalid credentials")
	}

	issued := s.now()
	claims := models.Claims{
		Subject: uuid.NewString(),
		Name:    user.name,
		Email:   email,
		MD:      user.md,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(tokenTTL)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and verifies an access token, returning its claims.
func (s *AuthService) Validate(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
