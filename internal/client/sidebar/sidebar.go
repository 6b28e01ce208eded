// Package sidebar loads the per-scope navigation trees. Each scope owns
// a small state machine (idle, loading, ready, error) with a
// single-flight guard per scope and a staleness check that drops
// responses landing after the session changed beneath them.
package sidebar

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/DocsPortal/internal/client/session"
	"github.com/atinyakov/DocsPortal/internal/models"
)

// Scope identifies one navigation tree.
type Scope string

const (
	// ScopePlatform is the privileged platform documentation tree.
	ScopePlatform Scope = "platform"
	// ScopeAdmin is the privileged admin documentation tree.
	ScopeAdmin Scope = "admin"
	// ScopeOrganization is the public organization tree.
	ScopeOrganization Scope = "organization"
	// ScopeBranch is the public branch tree.
	ScopeBranch Scope = "branch"
)

// LoadState is the lifecycle state of one scope's tree.
type LoadState string

const (
	// StateIdle means no data has been loaded (or it was invalidated).
	StateIdle LoadState = "idle"
	// StateLoading means a fetch is in flight.
	StateLoading LoadState = "loading"
	// StateReady means categories hold current data.
	StateReady LoadState = "ready"
	// StateError means the last load failed; Reason carries the cause.
	StateError LoadState = "error"
)

// Load failure reasons surfaced in Tree.Reason.
const (
	// ReasonAuthRequired means the scope needs an authenticated session.
	ReasonAuthRequired = "auth_required"
	// ReasonForbidden means the session lacks the required permission.
	ReasonForbidden = "forbidden"
)

var (
	// ErrAuthRequired is returned when a gated scope is loaded without
	// an authenticated session. No network call is made.
	ErrAuthRequired = errors.New("authentication required")
	// ErrForbidden is returned when the session lacks the scope's
	// required permission. No network call is made.
	ErrForbidden = errors.New("insufficient permissions")
)

// scopeSpec fixes the access rules per scope.
type scopeSpec struct {
	requiresAuth       bool
	requiredPermission models.Permission
}

var scopeSpecs = map[Scope]scopeSpec{
	ScopePlatform:     {requiresAuth: true, requiredPermission: models.PermissionView},
	ScopeAdmin:        {requiresAuth: true, requiredPermission: models.PermissionView},
	ScopeOrganization: {},
	ScopeBranch:       {},
}

// Scopes lists every known scope in declared order.
func Scopes() []Scope {
	return []Scope{ScopePlatform, ScopeAdmin, ScopeOrganization, ScopeBranch}
}

// Tree is a snapshot of one scope's navigation tree.
type Tree struct {
	// Scope names the tree.
	Scope Scope
	// RequiresAuth reports whether the scope is permission gated.
	RequiresAuth bool
	// State is the current lifecycle state.
	State LoadState
	// Categories holds the loaded tree when State is ready.
	Categories []models.Category
	// Reason carries the failure cause when State is error.
	Reason string
}

// Fetcher is the slice of the API client the loader depends on.
type Fetcher interface {
	// PublicSidebar fetches a public scope's tree.
	PublicSidebar(ctx context.Context, scope string) ([]models.Category, error)
	// PlatformSidebar fetches the privileged platform tree.
	PlatformSidebar(ctx context.Context) ([]models.Category, error)
	// AdminSidebar fetches the privileged admin tree.
	AdminSidebar(ctx context.Context) ([]models.Category, error)
}

// treeState is the mutable per-scope record.
type treeState struct {
	state      LoadState
	categories []models.Category
	reason     string
	inFlight   bool
	// gen counts invalidations; a response is applied only when the
	// generation it was issued under is still current.
	gen uint64
}

// Loader coordinates tree loads across scopes against the session.
type Loader struct {
	api      Fetcher
	sessions *session.Store
	log      *zap.Logger

	mu    sync.Mutex
	trees map[Scope]*treeState
}

// New constructs a Loader and subscribes it to session transitions so
// gated trees are invalidated when eligibility changes.
func New(api Fetcher, sessions *session.Store, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loader{
		api:      api,
		sessions: sessions,
		log:      log,
		trees:    map[Scope]*treeState{},
	}
	sessions.Subscribe(func(session.Session) { l.invalidateGated() })
	return l
}

// Tree returns a snapshot for the given scope.
func (l *Loader) Tree(scope Scope) Tree {
	spec := scopeSpecs[scope]

	l.mu.Lock()
	defer l.mu.Unlock()
	ts := l.tree(scope)
	return Tree{
		Scope:        scope,
		RequiresAuth: spec.requiresAuth,
		State:        ts.state,
		Categories:   ts.categories,
		Reason:       ts.reason,
	}
}

// tree returns the per-scope record, creating it on first use.
// Caller holds l.mu.
func (l *Loader) tree(scope Scope) *treeState {
	ts, ok := l.trees[scope]
	if !ok {
		ts = &treeState{state: StateIdle}
		l.trees[scope] = ts
	}
	return ts
}

// Load fetches the tree for scope. Rules, in order:
//
//  1. A load already in flight for this scope wins; the call returns
//     immediately without a second request.
//  2. Gated scopes are checked against the current session before any
//     network call; failures land in the error state with
//     auth_required or forbidden.
//  3. A response is applied only when the scope's generation is still
//     the one the request was issued under; stale responses are
//     dropped silently.
//
// There is no automatic retry; calling Load again retries.
func (l *Loader) Load(ctx context.Context, scope Scope) error {
	spec, ok := scopeSpecs[scope]
	if !ok {
		return errors.New("unknown scope: " + string(scope))
	}

	snap := l.sessions.Snapshot()

	l.mu.Lock()
	ts := l.tree(scope)
	if ts.inFlight {
		l.mu.Unlock()
		l.log.Debug("sidebar load already in flight", zap.String("scope", string(scope)))
		return nil
	}

	if spec.requiresAuth {
		if snap.Status != session.StatusAuthenticated {
			ts.state = StateError
			ts.reason = ReasonAuthRequired
			ts.categories = nil
			l.mu.Unlock()
			return ErrAuthRequired
		}
		if _, ok := snap.Permissions[spec.requiredPermission]; !ok {
			ts.state = StateError
			ts.reason = ReasonForbidden
			ts.categories = nil
			l.mu.Unlock()
			return ErrForbidden
		}
	}

	ts.inFlight = true
	ts.state = StateLoading
	ts.reason = ""
	gen := ts.gen
	l.mu.Unlock()

	var (
		categories []models.Category
		err        error
	)
	switch {
	case scope == ScopeAdmin:
		categories, err = l.api.AdminSidebar(ctx)
	case spec.requiresAuth:
		categories, err = l.api.PlatformSidebar(ctx)
	default:
		categories, err = l.api.PublicSidebar(ctx, string(scope))
	}

	// Reading the session before taking l.mu keeps the lock order
	// consistent with the subscription callback.
	after := l.sessions.Snapshot()

	l.mu.Lock()
	defer l.mu.Unlock()
	ts.inFlight = false

	// The session changed mid-flight, or the tree was invalidated:
	// whatever came back no longer belongs to the current state.
	if ts.gen != gen || after.AuthClass() != snap.AuthClass() {
		l.log.Debug("dropping stale sidebar response", zap.String("scope", string(scope)))
		if ts.state == StateLoading {
			ts.state = StateIdle
			ts.categories = nil
			ts.reason = ""
		}
		return nil
	}

	if err != nil {
		ts.state = StateError
		ts.reason = err.Error()
		ts.categories = nil
		l.log.Warn("sidebar load failed", zap.String("scope", string(scope)), zap.Error(err))
		return err
	}

	ts.state = StateReady
	ts.categories = categories
	return nil
}

// invalidateGated forces every gated tree out of ready or error back
// to idle after a session transition, discarding held categories and
// bumping the generation so in-flight responses are dropped.
func (l *Loader) invalidateGated() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for scope, ts := range l.trees {
		if !scopeSpecs[scope].requiresAuth {
			continue
		}
		ts.gen++
		if ts.state == StateReady || ts.state == StateError {
			ts.state = StateIdle
			ts.categories = nil
			ts.reason = ""
		}
	}
}
