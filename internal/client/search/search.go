// Package search turns free-text queries into ranked, scope-merged
// result lists. It debounces bursts of keystrokes, serves repeats from
// a TTL cache partitioned by auth class, fans requests out across every
// applicable scope concurrently, and guarantees that a superseded
// query's results are never published over a newer one's.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/atinyakov/DocsPortal/internal/client/session"
	"github.com/atinyakov/DocsPortal/internal/models"
)

const (
	// minQueryLength is the shortest query worth a network call.
	minQueryLength = 2
	// debounceDelay is how long a burst must be quiet before searching.
	debounceDelay = 300 * time.Millisecond
	// cacheTTL bounds how long a cached result list may be served.
	cacheTTL = 5 * time.Minute
)

// publicScopes are searched for every caller, in merge-priority order.
var publicScopes = []string{"organization", "branch"}

// State is the observable search state published to the UI layer.
type State struct {
	// Query is the normalized query the state belongs to.
	Query string
	// Results is the merged, scope-ordered result list.
	Results []models.SearchResult
	// Loading reports an in-progress fan-out.
	Loading bool
	// Err carries the failure message when every scope failed.
	Err string
	// HasSearched distinguishes "no results" from "not searched yet".
	HasSearched bool
}

// Searcher is the slice of the API client the aggregator depends on.
type Searcher interface {
	// SearchPublic searches one public scope.
	SearchPublic(ctx context.Context, query, scope string) ([]models.SearchResult, error)
	// SearchPlatform searches the privileged platform scope.
	SearchPlatform(ctx context.Context, query string) ([]models.SearchResult, error)
}

// Aggregator coordinates debounced, cached, multi-scope searches.
type Aggregator struct {
	api      Searcher
	sessions *session.Store
	cache    *gocache.Cache
	log      *zap.Logger

	mu sync.Mutex
	// latest is the normalized form of the most recently requested
	// query; results arriving for any other query are dropped.
	latest    string
	state     State
	timer     *time.Timer
	delay     time.Duration
	observers []func(State)
}

// New constructs an Aggregator over the given API client and session
// store.
func New(api Searcher, sessions *session.Store, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		api:      api,
		sessions: sessions,
		cache:    gocache.New(cacheTTL, 2*cacheTTL),
		log:      log,
		delay:    debounceDelay,
	}
}

// Subscribe registers an observer invoked with a snapshot after every
// published state change.
func (a *Aggregator) Subscribe(fn func(State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

// State returns the current search state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Purge empties the result cache. The session store calls it on
// logout so authenticated results never leak into an anonymous
// session. Implements session.CachePurger.
func (a *Aggregator) Purge() {
	a.cache.Flush()
}

// CacheLen reports the number of live cache entries.
func (a *Aggregator) CacheLen() int {
	return a.cache.ItemCount()
}

// Search schedules a debounced search for query. Every call restarts
// the timer; only the last call of a burst reaches the network. A
// query shorter than two characters clears the results instead.
func (a *Aggregator) Search(query string) {
	trimmed := strings.TrimSpace(query)

	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if len(trimmed) < minQueryLength {
		a.latest = ""
		a.mu.Unlock()
		a.publish(State{})
		return
	}
	a.latest = normalize(trimmed)
	a.timer = time.AfterFunc(a.delay, func() {
		a.Execute(context.Background(), trimmed)
	})
	a.mu.Unlock()
}

// Clear cancels any pending debounce and resets the published state.
// The cache is left intact.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.latest = ""
	a.mu.Unlock()
	a.publish(State{})
}

// Execute runs the search pipeline for query immediately, bypassing
// the debounce: cache lookup, concurrent fan-out, merge, cache store,
// publish. The terminal client calls it directly; Search reaches it
// through the debounce timer.
func (a *Aggregator) Execute(ctx context.Context, query string) State {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < minQueryLength {
		a.mu.Lock()
		a.latest = ""
		a.mu.Unlock()
		return a.publish(State{})
	}
	key := normalize(trimmed)

	a.mu.Lock()
	a.latest = key
	a.mu.Unlock()

	snap := a.sessions.Snapshot()
	cacheKey := key + "_" + snap.AuthClass()

	if cached, ok := a.cache.Get(cacheKey); ok {
		results := cached.([]models.SearchResult)
		committed, _ := a.commit(key, State{Query: key, Results: results, HasSearched: true})
		return committed
	}

	a.commit(key, State{Query: key, Loading: true, HasSearched: a.State().HasSearched})

	merged, failures, attempts := a.fanOut(ctx, trimmed, snap)

	if failures == attempts {
		a.log.Warn("search failed on every scope", zap.String("query", key))
		committed, _ := a.commit(key, State{Query: key, Err: "search failed", HasSearched: true})
		return committed
	}

	committed, won := a.commit(key, State{Query: key, Results: merged, HasSearched: true})
	if won {
		// Only the winning query's results are worth caching.
		a.cache.Set(cacheKey, merged, gocache.DefaultExpiration)
	}
	return committed
}

// fanOut issues every applicable sub-search concurrently and merges
// the successes in fixed scope-priority order: platform first for
// authenticated callers, then the public scopes in declared order.
// Individual failures are logged and tolerated.
func (a *Aggregator) fanOut(ctx context.Context, query string, snap session.Session) (merged []models.SearchResult, failures, attempts int) {
	authenticated := snap.Status == session.StatusAuthenticated

	slots := len(publicScopes)
	if authenticated {
		slots++
	}
	results := make([][]models.SearchResult, slots)
	errs := make([]error, slots)

	var wg sync.WaitGroup
	slot := 0
	if authenticated {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = a.api.SearchPlatform(ctx, query)
		}(slot)
		slot++
	}
	for _, scope := range publicScopes {
		wg.Add(1)
		go func(i int, scope string) {
			defer wg.Done()
			results[i], errs[i] = a.api.SearchPublic(ctx, query, scope)
		}(slot, scope)
		slot++
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			failures++
			a.log.Warn("scope search failed", zap.Error(errs[i]))
			continue
		}
		merged = append(merged, results[i]...)
	}
	return merged, failures, slots
}

// commit publishes state only when key is still the latest requested
// query; a superseded fan-out's outcome is dropped silently and the
// current state returned unchanged. The latest-check and the state
// write share one critical section so a stale commit can never
// interleave past a newer one's write.
func (a *Aggregator) commit(key string, state State) (State, bool) {
	a.mu.Lock()
	if a.latest != key {
		current := a.state
		a.mu.Unlock()
		a.log.Debug("dropping stale search results", zap.String("query", key))
		return current, false
	}
	a.state = state
	observers := make([]func(State), len(a.observers))
	copy(observers, a.observers)
	a.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
	return state, true
}

// publish swaps in the new state and notifies observers outside the
// lock.
func (a *Aggregator) publish(state State) State {
	a.mu.Lock()
	a.state = state
	observers := make([]func(State), len(a.observers))
	copy(observers, a.observers)
	a.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
	return state
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
