// Package models defines the core data structures shared between the
// portal client, the synchronization layer, and the stub backend.
package models

import "github.com/golang-jwt/jwt/v5"

// Claims is the decoded payload of a portal access token.
type Claims struct {
	// Subject is the unique identifier of the user.
	Subject string `json:"sub"`
	// Name is the display name of the user.
	Name string `json:"name"`
	// Email is the user's email address.
	Email string `json:"email"`
	// MD is the list of access-level markers ("R", "C", "U", "D").
	// A missing or empty list grants read-only access.
	MD []string `json:"MD"`
	jwt.RegisteredClaims
}

// ArticleRef is a lightweight reference to an article as it appears
// inside a sidebar category.
type ArticleRef struct {
	// ID is the unique identifier of the article.
	ID string `json:"id"`
	// Title is the display title of the article.
	Title string `json:"title"`
	// Slug is the URL-friendly identifier used to fetch the article.
	Slug string `json:"slug"`
}

// Category groups articles inside a sidebar tree. Order is significant
// and preserved as returned by the backend.
type Category struct {
	// ID is the unique identifier of the category.
	ID string `json:"id"`
	// Name is the display name of the category.
	Name string `json:"name"`
	// Articles are the article references belonging to the category.
	Articles []ArticleRef `json:"articles"`
}

// Article is a full article payload returned by the article endpoints.
type Article struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Excerpt     string `json:"excerpt"`
	Content     string `json:"content"`
	Scope       string `json:"scope"`
	CategoryID  string `json:"categoryId"`
	ReadingTime int    `json:"readingTime"`
	PublishedAt string `json:"publishedAt"`
}

// SearchResult is one ranked entry in an aggregated search response.
type SearchResult struct {
	// ID is the unique identifier of the matched article.
	ID string `json:"id"`
	// Title is the article title.
	Title string `json:"title"`
	// Slug is the URL-friendly identifier of the article.
	Slug string `json:"slug"`
	// Excerpt is a short preview of the matched article.
	Excerpt string `json:"excerpt"`
	// Scope names the documentation scope the article belongs to.
	Scope string `json:"scope"`
	// Category is the display name of the article's category.
	Category string `json:"category"`
	// ReadingTime is the estimated reading time in minutes.
	ReadingTime int `json:"readingTime"`
	// PublishedAt is the publication timestamp in RFC 3339 form.
	PublishedAt string `json:"publishedAt"`
}

// Permission identifies a capability granted by the access token.
type Permission string

const (
	// PermissionView allows reading platform documentation.
	PermissionView Permission = "platform.documentation.view"
	// PermissionCreate allows creating articles and categories.
	PermissionCreate Permission = "platform.documentation.create"
	// PermissionEdit allows editing existing articles.
	PermissionEdit Permission = "platform.documentation.edit"
	// PermissionDelete allows deleting articles.
	PermissionDelete Permission = "platform.documentation.delete"
)
