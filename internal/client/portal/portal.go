// Package portal wires the session store, sidebar loader, and search
// aggregator over one API client, and is the single surface the
// presentation layer consumes. All state is exposed as data snapshots;
// nothing here panics or throws past the package boundary.
package portal

import (
	"context"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/atinyakov/DocsPortal/internal/api"
	"github.com/atinyakov/DocsPortal/internal/client/search"
	"github.com/atinyakov/DocsPortal/internal/client/session"
	"github.com/atinyakov/DocsPortal/internal/client/sidebar"
	"github.com/atinyakov/DocsPortal/internal/client/store"
)

// Portal bundles the synchronization components.
type Portal struct {
	// API is the backend client; session-aware, attaches the bearer
	// token automatically.
	API *api.Client
	// Sessions is the authentication state store.
	Sessions *session.Store
	// Sidebar is the scoped navigation tree loader.
	Sidebar *sidebar.Loader
	// Search is the multi-scope search aggregator.
	Search *search.Aggregator

	kv  *store.KVStore
	log *zap.Logger
}

// New builds the portal over the backend at baseURL, persisting client
// state under stateDir. httpClient may be nil; onNotice receives
// user-visible notices and may be nil. The persisted session is
// restored before New returns.
func New(baseURL, stateDir string, httpClient *http.Client, onNotice func(string), log *zap.Logger) (*Portal, error) {
	if log == nil {
		log = zap.NewNop()
	}

	cookies := store.NewCookieStore(filepath.Join(stateDir, "cookie.json"))
	kv, err := store.OpenKV(filepath.Join(stateDir, "state.db"))
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(cookies, kv, nil, onNotice, log)
	client := api.New(httpClient, baseURL, sessions)
	aggregator := search.New(client, sessions, log)
	sessions.AttachPurger(aggregator)
	loader := sidebar.New(client, sessions, log)

	sessions.Restore()

	return &Portal{
		API:      client,
		Sessions: sessions,
		Sidebar:  loader,
		Search:   aggregator,
		kv:       kv,
		log:      log,
	}, nil
}

// Login exchanges credentials for a token and installs it as the
// current session.
func (p *Portal) Login(ctx context.Context, email, password string) error {
	token, err := p.API.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	return p.Sessions.SetToken(token)
}

// Logout invalidates the server-side session best-effort and always
// performs the local cleanup: token stores cleared, session reset,
// search cache purged.
func (p *Portal) Logout(ctx context.Context) {
	if err := p.API.Logout(ctx); err != nil {
		p.log.Warn("server-side logout failed", zap.Error(err))
	}
	p.Sessions.Clear()
}

// Close releases the durable store handle.
func (p *Portal) Close() error {
	return p.kv.Close()
}
