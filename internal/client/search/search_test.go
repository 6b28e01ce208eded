package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atinyakov/DocsPortal/internal/client/session"
	"github.com/atinyakov/DocsPortal/internal/models"
)

// memStore is an in-memory token store for building sessions in tests.
type memStore struct {
	token string
}

func (m *memStore) Token() (string, bool)   { return m.token, m.token != "" }
func (m *memStore) SetToken(t string) error { m.token = t; return nil }
func (m *memStore) Clear() error            { m.token = ""; return nil }

func signToken(t *testing.T, md []string) string {
	t.Helper()
	claims := models.Claims{
		Subject: "user-1",
		MD:      md,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func anonSession() *session.Store {
	return session.NewStore(&memStore{}, &memStore{}, nil, nil, nil)
}

func authedSession(t *testing.T) *session.Store {
	t.Helper()
	s := anonSession()
	if err := s.SetToken(signToken(t, []string{"R"})); err != nil {
		t.Fatal(err)
	}
	return s
}

// fakeSearcher serves canned per-scope results, counts calls, and can
// block requests for one specific query until released.
type fakeSearcher struct {
	mu            sync.Mutex
	platformCalls int
	publicCalls   int
	platformErr   error
	publicErr     error
	byScope       map[string][]models.SearchResult
	blockQuery    string
	block         chan struct{}
}

func (f *fakeSearcher) maybeBlock(query string) {
	f.mu.Lock()
	block := f.block
	blocked := f.blockQuery != "" && query == f.blockQuery
	f.mu.Unlock()
	if blocked && block != nil {
		<-block
	}
}

func (f *fakeSearcher) SearchPublic(ctx context.Context, query, scope string) ([]models.SearchResult, error) {
	f.mu.Lock()
	f.publicCalls++
	err := f.publicErr
	results := f.byScope[scope]
	f.mu.Unlock()
	f.maybeBlock(query)
	return results, err
}

func (f *fakeSearcher) SearchPlatform(ctx context.Context, query string) ([]models.SearchResult, error) {
	f.mu.Lock()
	f.platformCalls++
	err := f.platformErr
	results := f.byScope["platform"]
	f.mu.Unlock()
	f.maybeBlock(query)
	return results, err
}

func (f *fakeSearcher) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.platformCalls, f.publicCalls
}

func result(id, scope string) models.SearchResult {
	return models.SearchResult{ID: id, Title: id, Scope: scope}
}

func fixtures() map[string][]models.SearchResult {
	return map[string][]models.SearchResult{
		"platform":     {result("p1", "platform")},
		"organization": {result("o1", "organization"), result("o2", "organization")},
		"branch":       {result("b1", "branch")},
	}
}

func TestExecute_AnonymousFanOut(t *testing.T) {
	fake := &fakeSearcher{byScope: fixtures()}
	agg := New(fake, anonSession(), nil)

	state := agg.Execute(context.Background(), "Setup")

	if plat, pub := fake.calls(); plat != 0 || pub != 2 {
		t.Errorf("expected public-only fan-out, got %d platform, %d public", plat, pub)
	}
	want := []string{"o1", "o2", "b1"}
	if len(state.Results) != len(want) {
		t.Fatalf("expected %d results, got %+v", len(want), state.Results)
	}
	for i, id := range want {
		if state.Results[i].ID != id {
			t.Errorf("result %d: expected %s, got %s", i, id, state.Results[i].ID)
		}
	}
	if !state.HasSearched || state.Err != "" {
		t.Errorf("unexpected state: %+v", state)
	}
	if agg.CacheLen() != 1 {
		t.Errorf("expected one cache entry, got %d", agg.CacheLen())
	}
}

func TestExecute_AuthenticatedFanOutPlatformFirst(t *testing.T) {
	fake := &fakeSearcher{byScope: fixtures()}
	agg := New(fake, authedSession(t), nil)

	state := agg.Execute(context.Background(), "setup")

	if plat, pub := fake.calls(); plat != 1 || pub != 2 {
		t.Errorf("expected platform + public fan-out, got %d platform, %d public", plat, pub)
	}
	if len(state.Results) != 4 || state.Results[0].ID != "p1" {
		t.Errorf("expected the platform result first, got %+v", state.Results)
	}
}

func TestExecute_DistinctCacheEntriesPerAuthClass(t *testing.T) {
	fake := &fakeSearcher{byScope: fixtures()}
	sessions := authedSession(t)
	// No purger is attached: logout must not wipe entries here, so the
	// auth-class partitioning itself is what keeps results separate.
	agg := New(fake, sessions, nil)

	agg.Execute(context.Background(), "setup")
	sessions.Clear()
	state := agg.Execute(context.Background(), "setup")

	if agg.CacheLen() != 2 {
		t.Errorf("expected separate entries per auth class, got %d", agg.CacheLen())
	}
	for _, r := range state.Results {
		if r.Scope == "platform" {
			t.Error("anonymous search must not serve platform results")
		}
	}
}

func TestExecute_CacheIdempotence(t *testing.T) {
	fake := &fakeSearcher{byScope: fixtures()}
	agg := New(fake, anonSession(), nil)

	first := agg.Execute(context.Background(), "setup")
	second := agg.Execute(context.Background(), "  SETUP  ")

	if _, pub := fake.calls(); pub != 2 {
		t.Errorf("expected exactly one fan-out, got %d public calls", pub)
	}
	if len(first.Results) != len(second.Results) {
		t.Errorf("cached results differ: %+v vs %+v", first.Results, second.Results)
	}
}

func TestExecute_ShortQueryClearsWithoutNetwork(t *testing.T) {
	fake := &fakeSearcher{byScope: fixtures()}
	agg := New(fake, anonSession(), nil)

	agg.Execute(context.Background(), "setup")
	state := agg.Execute(context.Background(), "s")

	if plat, pub := fake.calls(); plat != 0 || pub != 2 {
		t.Errorf("short query must not reach the network, got %d/%d", plat, pub)
	}
	if len(state.Results) != 0 || state.HasSearched {
		t.Errorf("expected cleared state, got %+v", state)
	}
}

func TestSearch_DebounceCollapsesBursts(t *testing.T) {
	fake := &fakeSearcher{byScope: fixtures()}
	agg := New(fake, anonSession(), nil)
	agg.delay = 20 * time.Millisecond

	agg.Search("que")
	agg.Search("quer")
	agg.Search("query")

	time.Sleep(200 * time.Millisecond)

	if _, pub := fake.calls(); pub != 2 {
		t.Errorf("expected one fan-out for the burst, got %d public calls", pub)
	}
	if state := agg.State(); state.Query != "query" {
		t.Errorf("expected the final query to win, got %q", state.Query)
	}
}

func TestSearch_LastQueryWins(t *testing.T) {
	fake := &fakeSearcher{
		byScope:    fixtures(),
		blockQuery: "first",
		block:      make(chan struct{}),
	}
	agg := New(fake, anonSession(), nil)

	done := make(chan State, 1)
	go func() { done <- agg.Execute(context.Background(), "first") }()

	// Wait until the first fan-out is in flight.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, pub := fake.calls(); pub >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	second := agg.Execute(context.Background(), "second")
	close(fake.block)
	first := <-done

	if second.Query != "second" {
		t.Fatalf("expected the newer query's state, got %q", second.Query)
	}
	// The superseded fan-out returns the current (newer) state and
	// never overwrites it.
	if first.Query != "second" {
		t.Errorf("stale results overwrote a newer query: %+v", first)
	}
	if state := agg.State(); state.Query != "second" {
		t.Errorf("published state must reflect the latest query, got %q", state.Query)
	}
	if agg.CacheLen() != 1 {
		t.Errorf("superseded results must not be cached, got %d entries", agg.CacheLen())
	}
}

func TestCommit_StaleKeyLosesAtomically(t *testing.T) {
	agg := New(&fakeSearcher{byScope: fixtures()}, anonSession(), nil)

	agg.mu.Lock()
	agg.latest = "newer"
	agg.state = State{Query: "newer", HasSearched: true}
	agg.mu.Unlock()

	got, won := agg.commit("older", State{Query: "older", HasSearched: true})
	if won {
		t.Error("a superseded commit must not win")
	}
	if got.Query != "newer" {
		t.Errorf("expected the current state back, got %q", got.Query)
	}
	if state := agg.State(); state.Query != "newer" {
		t.Errorf("stale commit overwrote the newer state: %q", state.Query)
	}
}

func TestCommit_ConcurrentStaleAndCurrent(t *testing.T) {
	agg := New(&fakeSearcher{byScope: fixtures()}, anonSession(), nil)
	agg.mu.Lock()
	agg.latest = "q2"
	agg.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			agg.commit("q1", State{Query: "q1", HasSearched: true})
		}()
		go func() {
			defer wg.Done()
			agg.commit("q2", State{Query: "q2", HasSearched: true})
		}()
	}
	wg.Wait()

	if state := agg.State(); state.Query != "q2" {
		t.Errorf("published state must always reflect the latest query, got %q", state.Query)
	}
}

func TestExecute_PartialFailureTolerated(t *testing.T) {
	fake := &fakeSearcher{byScope: fixtures(), platformErr: errors.New("upstream down")}
	agg := New(fake, authedSession(t), nil)

	state := agg.Execute(context.Background(), "setup")

	if state.Err != "" {
		t.Errorf("partial failure is not an error, got %q", state.Err)
	}
	if len(state.Results) != 3 {
		t.Errorf("expected the public results, got %+v", state.Results)
	}
}

func TestExecute_TotalFailure(t *testing.T) {
	fake := &fakeSearcher{
		byScope:     fixtures(),
		platformErr: errors.New("down"),
		publicErr:   errors.New("down"),
	}
	agg := New(fake, authedSession(t), nil)

	state := agg.Execute(context.Background(), "setup")

	if state.Err != "search failed" {
		t.Errorf("expected a generic failure message, got %q", state.Err)
	}
	if len(state.Results) != 0 {
		t.Errorf("expected no results, got %+v", state.Results)
	}
	if agg.CacheLen() != 0 {
		t.Error("failures must not be cached")
	}
}

func TestLogout_PurgesCache(t *testing.T) {
	fake := &fakeSearcher{byScope: fixtures()}
	sessions := authedSession(t)
	agg := New(fake, sessions, nil)
	sessions.AttachPurger(agg)

	agg.Execute(context.Background(), "setup")
	if agg.CacheLen() != 1 {
		t.Fatalf("expected one cache entry, got %d", agg.CacheLen())
	}

	sessions.Clear()
	if agg.CacheLen() != 0 {
		t.Errorf("expected an empty cache after logout, got %d entries", agg.CacheLen())
	}
}

func TestClear_CancelsPendingDebounce(t *testing.T) {
	fake := &fakeSearcher{byScope: fixtures()}
	agg := New(fake, anonSession(), nil)
	agg.delay = 50 * time.Millisecond

	agg.Search("query")
	agg.Clear()

	time.Sleep(150 * time.Millisecond)

	if plat, pub := fake.calls(); plat != 0 || pub != 0 {
		t.Errorf("expected no fan-out after clear, got %d/%d", plat, pub)
	}
	if state := agg.State(); state.HasSearched || len(state.Results) != 0 {
		t.Errorf("expected a reset state, got %+v", state)
	}
}
