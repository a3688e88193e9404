// Package search queries a web search aggregator for snippets and profile links.
package search

import (
	"context"
	"errors"
)

// ErrEmptyQuery is returned when the query is blank.
var ErrEmptyQuery = errors.New("search query is empty")

// Result is one search hit.
type Result struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"display_link"`
}

// Aggregator runs free-text queries.
type Aggregator interface {
	Query(ctx context.Context, q string) ([]Result, error)
}

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("search aggregator not configured")

// Disabled stands in when no aggregator credentials are configured. Every
// query fails, so callers degrade the same way they do on an outage.
type Disabled struct{}

// Query always returns ErrNotConfigured.
func (Disabled) Query(context.Context, string) ([]Result, error) {
	return nil, ErrNotConfigured
}
