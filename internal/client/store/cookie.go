// Package store provides the client-side token persistence backends:
// a short-lived cookie-style file store and a durable sqlite-backed
// key-value store. The session layer writes the access token to both
// and clears both together on logout.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TokenStore is the persistence interface the session layer depends on.
type TokenStore interface {
	// Token returns the stored access token, or false when absent.
	Token() (string, bool)
	// SetToken persists the access token.
	SetToken(token string) error
	// Clear removes the access token.
	Clear() error
}

// cookieMaxAge matches the portal's cookie lifetime.
const cookieMaxAge = 7 * 24 * time.Hour

// tokenCookieNames are the cookie names the portal historically used
// for the access token. All are written on set; any is accepted on read.
var tokenCookieNames = []string{"accessToken", "contextToken", "token"}

// cookieEntry is one named value with its expiry.
type cookieEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CookieStore keeps named, expiring values in a single JSON file,
// mimicking browser cookie semantics: an expired entry reads as absent.
type CookieStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewCookieStore returns a CookieStore backed by the given file path.
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path, now: time.Now}
}

// load reads the cookie file. A missing file yields an empty map.
func (c *CookieStore) load() (map[string]cookieEntry, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]cookieEntry{}, nil
		}
		return nil, err
	}
	entries := map[string]cookieEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt cookie file is treated as empty rather than fatal.
		return map[string]cookieEntry{}, nil
	}
	return entries, nil
}

// save writes the cookie file, creating the parent directory if needed.
func (c *CookieStore) save(entries map[string]cookieEntry) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o600)
}

// Token returns the first non-expired token cookie, trying each known
// name in order.
func (c *CookieStore) Token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load()
	if err != nil {
		return "", false
	}
	for _, name := range tokenCookieNames {
		entry, ok := entries[name]
		if !ok || entry.Value == "" {
			continue
		}
		if c.now().After(entry.ExpiresAt) {
			continue
		}
		return entry.Value, true
	}
	return "", false
}

// SetToken writes the token under every known cookie name.
func (c *CookieStore) SetToken(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load()
	if err != nil {
		return err
	}
	expires := c.now().Add(cookieMaxAge)
	for _, name := range tokenCookieNames {
		entries[name] = cookieEntry{Value: token, ExpiresAt: expires}
	}
	return c.save(entries)
}

// Clear removes every token cookie.
func (c *CookieStore) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load()
	if err != nil {
		return err
	}
	for _, name := range tokenCookieNames {
		delete(entries, name)
	}
	return c.save(entries)
}
