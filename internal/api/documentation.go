package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/atinyakov/DocsPortal/internal/models"
)

// searchPayload is the data section of a search response.
type searchPayload struct {
	Articles []models.SearchResult `json:"articles"`
}

// articlePayload is the data section of an article fetch response.
type articlePayload struct {
	Article models.Article `json:"article"`
}

// PublicSidebar fetches the sidebar tree for a public scope
// ("organization" or "branch"). No token is attached by the backend
// contract; any present token is simply ignored server-side.
func (c *Client) PublicSidebar(ctx context.Context, scope string) ([]models.Category, error) {
	query := url.Values{"scope": {scope}}
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/public/sidebar", query, nil, &env); err != nil {
		return nil, err
	}
	return decodeCategories(env)
}

// PlatformSidebar fetches the privileged sidebar tree. Requires a
// token with view permission.
func (c *Client) PlatformSidebar(ctx context.Context) ([]models.Category, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/sidebar", nil, nil, &env); err != nil {
		return nil, err
	}
	return decodeCategories(env)
}

// AdminSidebar fetches the admin sidebar tree. Requires a token with
// view permission.
func (c *Client) AdminSidebar(ctx context.Context) ([]models.Category, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/admin/sidebar", nil, nil, &env); err != nil {
		return nil, err
	}
	return decodeCategories(env)
}

func decodeCategories(env envelope) ([]models.Category, error) {
	if !env.Success {
		return nil, fmt.Errorf("server error: %s", orUnknown(env.Message))
	}
	var categories []models.Category
	if err := json.Unmarshal(env.Data, &categories); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return categories, nil
}

// SearchPublic runs a full-text search against one public scope.
func (c *Client) SearchPublic(ctx context.Context, query, scope string) ([]models.SearchResult, error) {
	q := url.Values{"search": {query}, "scope": {scope}}
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/public/articles", q, nil, &env); err != nil {
		return nil, err
	}
	return decodeSearch(env)
}

// SearchPlatform runs a full-text search against the privileged
// platform scope. Requires a token with view permission.
func (c *Client) SearchPlatform(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := url.Values{"search": {query}}
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/articles", q, nil, &env); err != nil {
		return nil, err
	}
	return decodeSearch(env)
}

func decodeSearch(env envelope) ([]models.SearchResult, error) {
	if !env.Success {
		return nil, fmt.Errorf("server error: %s", orUnknown(env.Message))
	}
	var payload searchPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return payload.Articles, nil
}

// PublicArticleBySlug fetches one public article by slug and scope.
func (c *Client) PublicArticleBySlug(ctx context.Context, slug, scope string) (*models.Article, error) {
	q := url.Values{"slug": {slug}, "scope": {scope}}
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/public/articles", q, nil, &env); err != nil {
		return nil, err
	}
	return decodeArticle(env)
}

// PlatformArticleBySlug fetches one platform article by slug.
// Requires a token with view permission.
func (c *Client) PlatformArticleBySlug(ctx context.Context, slug string) (*models.Article, error) {
	q := url.Values{"slug": {slug}, "scope": {"platform"}}
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/articles", q, nil, &env); err != nil {
		return nil, err
	}
	return decodeArticle(env)
}

func decodeArticle(env envelope) (*models.Article, error) {
	if !env.Success {
		return nil, fmt.Errorf("server error: %s", orUnknown(env.Message))
	}
	var payload articlePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	if payload.Article.ID == "" {
		return nil, errors.New("article not found")
	}
	return &payload.Article, nil
}

// RelatedArticles fetches articles related to the given article.
// The token is optional; results degrade to public scopes without one.
func (c *Client) RelatedArticles(ctx context.Context, articleID string) ([]models.SearchResult, error) {
	var env envelope
	if err := c.do(ctx, http.MethodGet, "/articles/"+articleID+"/related", nil, nil, &env); err != nil {
		return nil, err
	}
	return decodeSearch(env)
}

// TrackView records a view of the given article. Tracking is
// fire-and-forget for callers; failures are returned but safe to ignore.
func (c *Client) TrackView(ctx context.Context, articleID string) error {
	return c.do(ctx, http.MethodPost, "/articles/"+articleID+"/view", nil, map[string]any{}, nil)
}

// FeedbackRequest is the payload for article feedback submission.
type FeedbackRequest struct {
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

// SubmitFeedback submits feedback on an article. Anonymous callers
// must supply UserEmail.
func (c *Client) SubmitFeedback(ctx context.Context, articleID string, req FeedbackRequest) error {
	return c.do(ctx, http.MethodPost, "/articles/"+articleID+"/feedback", nil, req, nil)
}

// ArticleInput is the payload for creating or patching an article.
type ArticleInput struct {
	Title      string `json:"title,omitempty"`
	Slug       string `json:"slug,omitempty"`
	Excerpt    string `json:"excerpt,omitempty"`
	Content    string `json:"content,omitempty"`
	Scope      string `json:"scope,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
}

// CreateArticle creates an article. Requires create permission.
func (c *Client) CreateArticle(ctx context.Context, input ArticleInput) (*models.Article, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPost, "/articles", nil, input, &env); err != nil {
		return nil, err
	}
	return decodeArticle(env)
}

// PatchArticle applies a partial update to an article. Requires edit
// permission.
func (c *Client) PatchArticle(ctx context.Context, articleID string, input ArticleInput) (*models.Article, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPatch, "/articles/"+articleID, nil, input, &env); err != nil {
		return nil, err
	}
	return decodeArticle(env)
}

// DeleteArticle deletes an article. Requires delete permission.
func (c *Client) DeleteArticle(ctx context.Context, articleID string) error {
	return c.do(ctx, http.MethodDelete, "/articles/"+articleID, nil, nil, nil)
}

func orUnknown(message string) string {
	if message == "" {
		return "unknown error"
	}
	return message
}
