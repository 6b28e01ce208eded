package service

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/DocsPortal/internal/models"
)

// scopePriority fixes the merge order of search results across scopes.
var scopePriority = map[string]int{"platform": 1, "organization": 2, "branch": 3}

// DocsService serves fixture documentation content: sidebar trees,
// search, and article CRUD, all in memory.
type DocsService struct {
	mu         sync.Mutex
	categories map[string][]models.Category
	articles   map[string]models.Article
	views      map[string]int
}

// NewDocsService seeds the fixture content for every scope.
func NewDocsService() *DocsService {
	s := &DocsService{
		categories: map[string][]models.Category{},
		articles:   map[string]models.Article{},
		views:      map[string]int{},
	}
	s.seed()
	return s
}

// seed populates each scope with a couple of categories and articles.
func (s *DocsService) seed() {
	fixtures := []struct {
		scope    string
		category string
		articles []models.Article
	}{
		{"platform", "Platform Guides", []models.Article{
			{Title: "Platform Overview", Slug: "platform-overview", Excerpt: "What the platform does", Content: "The platform hosts organization and branch documentation.", ReadingTime: 4},
			{Title: "Authentication Guide", Slug: "authentication-guide", Excerpt: "How tokens and permissions work", Content: "Access tokens carry MD markers mapped to permissions.", ReadingTime: 6},
		}},
		{"organization", "Getting Started", []models.Article{
			{Title: "Organization Setup", Slug: "organization-setup", Excerpt: "Initial setup steps", Content: "Create your organization profile before inviting members.", ReadingTime: 5},
			{Title: "Inviting Members", Slug: "inviting-members", Excerpt: "Grow your organization", Content: "Members join through invitation links.", ReadingTime: 3},
		}},
		{"branch", "Operations", []models.Article{
			{Title: "Daily Operations", Slug: "daily-operations", Excerpt: "Branch routines", Content: "Branches follow the daily operations checklist.", ReadingTime: 7},
		}},
		{"admin", "Administration", []models.Article{
			{Title: "User Management", Slug: "user-management", Excerpt: "Accounts and access markers", Content: "Administrators assign access markers to user accounts.", ReadingTime: 5},
		}},
	}

	published := time.Now().UTC().Format(time.RFC3339)
	for _, f := range fixtures {
		category := models.Category{ID: uuid.NewString(), Name: f.category}
		for _, a := range f.articles {
			a.ID = uuid.NewString()
			a.Scope = f.scope
			a.CategoryID = category.ID
			a.PublishedAt = published
			s.articles[a.ID] = a
			category.Articles = append(category.Articles, models.ArticleRef{ID: a.ID, Title: a.Title, Slug: a.Slug})
		}
		s.categories[f.scope] = append(s.categories[f.scope], category)
	}
}

// Sidebar returns the category tree for one scope.
func (s *DocsService) Sidebar(scope string) []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Category(nil), s.categories[scope]...)
}

// PlatformSidebar returns the privileged platform tree.
func (s *DocsService) PlatformSidebar() []models.Category {
	return s.Sidebar("platform")
}

// AdminSidebar returns the privileged admin tree.
func (s *DocsService) AdminSidebar() []models.Category {
	return s.Sidebar("admin")
}

// Search returns articles in scope whose title, excerpt, or content
// contains the query, case-insensitively, ordered by title.
func (s *DocsService) Search(query, scope string) []models.SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	var results []models.SearchResult
	for _, a := range s.articles {
		if scope != "" && a.Scope != scope {
			continue
		}
		haystack := strings.ToLower(a.Title + " " + a.Excerpt + " " + a.Content)
		if q != "" && !strings.Contains(haystack, q) {
			continue
		}
		results = append(results, s.toResult(a))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Title < results[j].Title })
	return results
}

// ArticleBySlug finds one article by slug within a scope.
func (s *DocsService) ArticleBySlug(slug, scope string) (models.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.articles {
		if a.Slug == slug && (scope == "" || a.Scope == scope) {
			return a, true
		}
	}
	return models.Article{}, false
}

// Related returns other articles from the same scope as articleID,
// ordered by scope priority then title.
func (s *DocsService) Related(articleID string) ([]models.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	origin, ok := s.articles[articleID]
	if !ok {
		return nil, errors.New("article not found")
	}
	var results []models.SearchResult
	for _, a := range s.articles {
		if a.ID == articleID || a.Scope != origin.Scope {
			continue
		}
		results = append(results, s.toResult(a))
	}
	sort.Slice(results, func(i, j int) bool {
		if scopePriority[results[i].Scope] != scopePriority[results[j].Scope] {
			return scopePriority[results[i].Scope] < scopePriority[results[j].Scope]
		}
		return results[i].Title < results[j].Title
	})
	return results, nil
}

// TrackView increments the view counter for an article.
func (s *DocsService) TrackView(articleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[articleID]++
}

// Create adds a new article to its scope's first category.
func (s *DocsService) Create(a models.Article) (models.Article, error) {
	if a.Title == "" || a.Slug == "" || a.Scope == "" {
		return models.Article{}, errors.New("title, slug, and scope are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.NewString()
	a.PublishedAt = time.Now().UTC().Format(time.RFC3339)
	categories := s.categories[a.Scope]
	if len(categories) == 0 {
		return models.Article{}, errors.New("unknown scope: " + a.Scope)
	}
	if a.CategoryID == "" {
		a.CategoryID = categories[0].ID
	}
	s.articles[a.ID] = a

	for i := range categories {
		if categories[i].ID == a.CategoryID {
			categories[i].Articles = append(categories[i].Articles, models.ArticleRef{ID: a.ID, Title: a.Title, Slug: a.Slug})
			break
		}
	}
	return a, nil
}

// Patch applies non-empty fields of the update to an existing article.
func (s *DocsService) Patch(articleID string, update models.Article) (models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.articles[articleID]
	if !ok {
		return models.Article{}, errors.New("article not found")
	}
	if update.Title != "" {
		a.Title = update.Title
	}
	if update.Excerpt != "" {
		a.Excerpt = update.Excerpt
	}
	if update.Content != "" {
		a.Content = update.Content
	}
	s.articles[articleID] = a
	return a, nil
}

// Delete removes an article and its sidebar references.
func (s *DocsService) Delete(articleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.articles[articleID]
	if !ok {
		return errors.New("article not found")
	}
	delete(s.articles, articleID)

	categories := s.categories[a.Scope]
	for i := range categories {
		refs := categories[i].Articles
		for j := range refs {
			if refs[j].ID == articleID {
				categories[i].Articles = append(refs[:j], refs[j+1:]...)
				break
			}
		}
	}
	return nil
}

// categoryName resolves a category ID to its display name.
// Caller holds s.mu.
func (s *DocsService) categoryName(scope, categoryID string) string {
	for _, c := range s.categories[scope] {
		if c.ID == categoryID {
			return c.Name
		}
	}
	return "Uncategorized"
}

// toResult converts an article to its search-result projection.
// Caller holds s.mu.
func (s *DocsService) toResult(a models.Article) models.SearchResult {
	return models.SearchResult{
		ID:          a.ID,
		Title:       a.Title,
		Slug:        a.Slug,
		Excerpt:     a.Excerpt,
		Scope:       a.Scope,
		Category:    s.categoryName(a.Scope, a.CategoryID),
		ReadingTime: a.ReadingTime,
		PublishedAt: a.PublishedAt,
	}
}
