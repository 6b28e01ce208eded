// Package session owns the client's authentication state: the access
// token, its decoded claims, the derived permission set, and the
// authentication status. It is the single source of truth read by the
// sidebar loader and the search aggregator; all transitions are atomic
// replacements of the whole Session value.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/DocsPortal/internal/client/store"
	"github.com/atinyakov/DocsPortal/internal/models"
)

// Status is the authentication status of the client.
type Status string

const (
	// StatusUnauthenticated means no valid token is held.
	StatusUnauthenticated Status = "unauthenticated"
	// StatusAuthenticated means a valid, unexpired token is held.
	StatusAuthenticated Status = "authenticated"
)

// Session is an immutable snapshot of the authentication state.
// Permissions are always derived from Claims and never mutated
// independently.
type Session struct {
	// Token is the raw bearer token, empty when unauthenticated.
	Token string
	// Claims is the decoded token payload, nil when unauthenticated.
	Claims *models.Claims
	// Permissions is the capability set derived from Claims.
	Permissions map[models.Permission]struct{}
	// Status reports whether the session is authenticated.
	Status Status
}

// AuthClass returns the cache partition the session belongs to:
// "auth" for authenticated sessions, "public" otherwise. Raw tokens
// never appear in cache keys.
func (s Session) AuthClass() string {
	if s.Status == StatusAuthenticated {
		return "auth"
	}
	return "public"
}

// CachePurger empties a result cache. The search cache implements it so
// logout can prevent authenticated results leaking into an anonymous
// session.
type CachePurger interface {
	Purge()
}

// Store manages the Session value. The only mutation entry points are
// Restore, SetToken, and Clear.
type Store struct {
	mu      sync.Mutex
	current Session

	primary  store.TokenStore
	fallback store.TokenStore
	purger   CachePurger
	log      *zap.Logger

	observers []func(Session)

	// onNotice receives user-visible notices such as the one-time
	// expired-session message. May be nil.
	onNotice func(string)
	// expiredNotified guards the expired notice to exactly one firing.
	expiredNotified bool

	now func() time.Time
}

// NewStore constructs a session store reading tokens from primary
// first, then fallback. purger may be nil when no cache is attached;
// onNotice may be nil when notices are not rendered.
func NewStore(primary, fallback store.TokenStore, purger CachePurger, onNotice func(string), log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		current:  Session{Status: StatusUnauthenticated, Permissions: map[models.Permission]struct{}{}},
		primary:  primary,
		fallback: fallback,
		purger:   purger,
		log:      log,
		onNotice: onNotice,
		now:      time.Now,
	}
}

// AttachPurger sets the cache purger after construction. The search
// cache is built after the session store, so the wiring closes here.
func (s *Store) AttachPurger(p CachePurger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purger = p
}

// Subscribe registers an observer invoked with a snapshot after every
// session transition.
func (s *Store) Subscribe(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.checkExpiry()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Token implements api.TokenSource.
func (s *Store) Token() (string, bool) {
	s.checkExpiry()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Status != StatusAuthenticated {
		return "", false
	}
	return s.current.Token, true
}

// HasPermission reports whether the current session carries the
// given capability.
func (s *Store) HasPermission(p models.Permission) bool {
	s.checkExpiry()
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.current.Permissions[p]
	return ok
}

// expired reports whether the current token's expiry has passed.
// Caller holds s.mu.
func (s *Store) expired() bool {
	return s.current.Status == StatusAuthenticated &&
		s.current.Claims != nil &&
		s.current.Claims.ExpiresAt != nil &&
		!s.current.Claims.ExpiresAt.Time.After(s.now())
}

// checkExpiry downgrades the session when the token expired since it
// was installed: both stores discard it, the expired notice fires once,
// and the anonymous session replaces the dead one. Every read path
// calls it first, so expiry is discovered on the next access rather
// than lingering until restart.
func (s *Store) checkExpiry() {
	s.mu.Lock()
	if !s.expired() {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.log.Info("session expired")
	s.discardStored()
	s.noticeExpiredOnce()

	next := anonymousSession()
	s.mu.Lock()
	if !s.expired() {
		// A fresh login raced the cleanup; its session stands.
		s.mu.Unlock()
		return
	}
	s.current = next
	observers := make([]func(Session), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}

// Restore attempts to rebuild the session from a persisted token,
// reading the primary store first and the fallback second. A malformed
// or expired token is discarded from both stores and downgrades the
// session to unauthenticated, firing the expired-session notice exactly
// once over the store's lifetime.
func (s *Store) Restore() {
	token, ok := s.primary.Token()
	if !ok {
		token, ok = s.fallback.Token()
	}
	if !ok {
		s.replace(anonymousSession())
		return
	}

	claims, err := s.decode(token)
	if err != nil {
		s.log.Info("discarding persisted token", zap.Error(err))
		s.discardStored()
		s.noticeExpiredOnce()
		s.replace(anonymousSession())
		return
	}

	s.replace(Session{
		Token:       token,
		Claims:      claims,
		Permissions: derivePermissions(claims.MD),
		Status:      StatusAuthenticated,
	})
}

// SetToken persists the token to both stores and swaps in the
// authenticated session. This is the only mutation path for login.
func (s *Store) SetToken(token string) error {
	claims, err := s.decode(token)
	if err != nil {
		return err
	}
	if err := s.primary.SetToken(token); err != nil {
		return err
	}
	if err := s.fallback.SetToken(token); err != nil {
		return err
	}
	s.replace(Session{
		Token:       token,
		Claims:      claims,
		Permissions: derivePermissions(claims.MD),
		Status:      StatusAuthenticated,
	})
	return nil
}

// Clear removes the token from both stores, resets the session, and
// purges the search cache.
func (s *Store) Clear() {
	s.discardStored()
	s.mu.Lock()
	purger := s.purger
	s.mu.Unlock()
	if purger != nil {
		purger.Purge()
	}
	s.replace(anonymousSession())
}

// decode parses the token without signature verification (the client
// holds no signing key; the backend verifies on every request) and
// rejects tokens expired at or before now.
func (s *Store) decode(token string) (*models.Claims, error) {
	claims := &models.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(s.now()) {
		return nil, jwt.ErrTokenExpired
	}
	return claims, nil
}

func (s *Store) discardStored() {
	if err := s.primary.Clear(); err != nil {
		s.log.Warn("failed to clear primary token store", zap.Error(err))
	}
	if err := s.fallback.Clear(); err != nil {
		s.log.Warn("failed to clear fallback token store", zap.Error(err))
	}
}

func (s *Store) noticeExpiredOnce() {
	s.mu.Lock()
	notified := s.expiredNotified
	s.expiredNotified = true
	onNotice := s.onNotice
	s.mu.Unlock()
	if !notified && onNotice != nil {
		onNotice("Your session has expired. Please log in again.")
	}
}

// replace swaps in the new session atomically and notifies observers
// outside the lock.
func (s *Store) replace(next Session) {
	s.mu.Lock()
	s.current = next
	observers := make([]func(Session), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}

func anonymousSession() Session {
	return Session{Status: StatusUnauthenticated, Permissions: map[models.Permission]struct{}{}}
}

// markerPermissions maps token access markers to capabilities.
var markerPermissions = map[string]models.Permission{
	"R": models.PermissionView,
	"C": models.PermissionCreate,
	"U": models.PermissionEdit,
	"D": models.PermissionDelete,
}

// derivePermissions converts the MD marker list into the capability
// set. A nil list grants read-only access; unknown markers are skipped.
func derivePermissions(md []string) map[models.Permission]struct{} {
	perms := map[models.Permission]struct{}{}
	if md == nil {
		perms[models.PermissionView] = struct{}{}
		return perms
	}
	for _, marker := range md {
		if p, ok := markerPermissions[marker]; ok {
			perms[p] = struct{}{}
		}
	}
	return perms
}
