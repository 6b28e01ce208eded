package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// roundTripperFunc adapts a function to http.RoundTripper so the
// http.Client can be mocked without a server.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripperFunc) *http.Client {
	return &http.Client{Transport: fn, Timeout: time.Second}
}

// staticToken is a TokenSource with a fixed token.
type staticToken string

func (s staticToken) Token() (string, bool) { return string(s), s != "" }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestPublicSidebar_RequestShape(t *testing.T) {
	client := New(newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", req.Method)
		}
		if req.URL.Path != "/public/sidebar" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		if got := req.URL.Query().Get("scope"); got != "organization" {
			t.Errorf("unexpected scope: %s", got)
		}
		if req.Header.Get("Authorization") != "" {
			t.Error("anonymous request must not carry an Authorization header")
		}
		return jsonResponse(200, `{"success":true,"data":[{"id":"c1","name":"Basics","articles":[{"id":"a1","title":"Setup","slug":"setup"}]}]}`), nil
	}), "http://example.com", nil)

	categories, err := client.PublicSidebar(context.Background(), "organization")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(categories) != 1 || categories[0].Name != "Basics" || len(categories[0].Articles) != 1 {
		t.Errorf("unexpected categories: %+v", categories)
	}
}

func TestPlatformSidebar_AttachesBearerToken(t *testing.T) {
	client := New(newTestClient(func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		if req.URL.Path != "/sidebar" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(200, `{"success":true,"data":[]}`), nil
	}), "http://example.com", staticToken("tok-123"))

	if _, err := client.PlatformSidebar(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearchPublic_DecodesArticles(t *testing.T) {
	client := New(newTestClient(func(req *http.Request) (*http.Response, error) {
		if got := req.URL.Query().Get("search"); got != "setup guide" {
			t.Errorf("unexpected search query: %q", got)
		}
		return jsonResponse(200, `{"success":true,"data":{"articles":[{"id":"a1","title":"Setup","scope":"organization"}]}}`), nil
	}), "http://example.com", nil)

	results, err := client.SearchPublic(context.Background(), "setup guide", "organization")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Scope != "organization" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestDo_ServerErrorMessage(t *testing.T) {
	client := New(newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(403, `{"success":false,"message":"insufficient permissions"}`), nil
	}), "http://example.com", staticToken("tok-123"))

	_, err := client.SearchPlatform(context.Background(), "setup")
	if err == nil || !strings.Contains(err.Error(), "insufficient permissions") {
		t.Errorf("expected the backend message, got %v", err)
	}
}

func TestDo_NetworkError(t *testing.T) {
	client := New(newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("network down")
	}), "http://example.com", nil)

	_, err := client.PublicSidebar(context.Background(), "branch")
	if err == nil || !strings.Contains(err.Error(), "request failed") {
		t.Errorf("expected a wrapped transport error, got %v", err)
	}
}

func TestDo_InvalidJSON(t *testing.T) {
	client := New(newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, "not-json"), nil
	}), "http://example.com", nil)

	_, err := client.PublicSidebar(context.Background(), "branch")
	if err == nil || !strings.Contains(err.Error(), "invalid response") {
		t.Errorf("expected a decode error, got %v", err)
	}
}

func TestLogin_ExtractsNestedToken(t *testing.T) {
	client := New(newTestClient(func(req *http.Request) (*http.Response, error) {
		var payload LoginRequest
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request failed: %v", err)
		}
		if payload.Email != "user@example.com" {
			t.Errorf("unexpected email: %s", payload.Email)
		}
		return jsonResponse(200, `{"success":true,"data":{"tokens":{"accessToken":"tok-nested"}}}`), nil
	}), "http://example.com", nil)

	token, err := client.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-nested" {
		t.Errorf("expected tok-nested, got %q", token)
	}
}

func TestLogin_FlatTokenFallback(t *testing.T) {
	client := New(newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"success":true,"data":{"accessToken":"tok-flat"}}`), nil
	}), "http://example.com", nil)

	token, err := client.Login(context.Background(), LoginRequest{Email: "u", Password: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "tok-flat" {
		t.Errorf("expected tok-flat, got %q", token)
	}
}

func TestLogin_MissingToken(t *testing.T) {
	client := New(newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"success":true,"data":{}}`), nil
	}), "http://example.com", nil)

	if _, err := client.Login(context.Background(), LoginRequest{Email: "u", Password: "p"}); err == nil {
		t.Error("expected an error when no token is present")
	}
}

func TestPlatformArticleBySlug(t *testing.T) {
	client := New(newTestClient(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if q.Get("slug") != "authentication-guide" || q.Get("scope") != "platform" {
			t.Errorf("unexpected query: %v", q)
		}
		return jsonResponse(200, `{"success":true,"data":{"article":{"id":"a1","title":"Authentication Guide","slug":"authentication-guide"}}}`), nil
	}), "http://example.com", staticToken("tok-123"))

	article, err := client.PlatformArticleBySlug(context.Background(), "authentication-guide")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if article.Title != "Authentication Guide" {
		t.Errorf("unexpected article: %+v", article)
	}
}
