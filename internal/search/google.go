package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/octobees/leads-discovery/internal/logging"
)

const (
	googlePageSize = 10

	// DefaultQueryTimeout bounds a single result page request.
	DefaultQueryTimeout = 10 * time.Second
)

// Google queries a Programmable Search Engine.
type Google struct {
	svc     *customsearch.Service
	cx      string
	pages   int
	timeout time.Duration
	logger  *zap.Logger
}

// NewGoogle builds a Programmable Search client. Each page request is cut off
// after timeout. Extra client options are appended after the API key.
func NewGoogle(ctx context.Context, apiKey, cx string, pages int, timeout time.Duration, logger *zap.Logger, opts ...option.ClientOption) (*Google, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("google search requires an api key and engine id")
	}
	if pages <= 0 {
		pages = 1
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create customsearch service: %w", err)
	}
	return &Google{svc: svc, cx: cx, pages: pages, timeout: timeout, logger: logging.OrNop(logger).Named("search")}, nil
}

// Query fetches up to the configured number of result pages. A failure after
// the first page returns what was already collected.
func (g *Google) Query(ctx context.Context, q string) ([]Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}

	var out []Result
	for page := 0; page < g.pages; page++ {
		start := int64(page*googlePageSize + 1)
		resp, err := g.page(ctx, q, start)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("search %q: %w", q, err)
			}
			g.logger.Warn("search page failed", zap.String("query", q), zap.Int("page", page+1), zap.Error(err))
			break
		}
		for _, item := range resp.Items {
			out = append(out, Result{
				Title:       item.Title,
				Link:        item.Link,
				Snippet:     item.Snippet,
				DisplayLink: item.DisplayLink,
			})
		}
		if len(resp.Items) < googlePageSize {
			break
		}
	}
	g.logger.Debug("search done", zap.String("query", q), zap.Int("results", len(out)))
	return out, nil
}

func (g *Google) page(ctx context.Context, q string, start int64) (*customsearch.Search, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.svc.Cse.List().Cx(g.cx).Q(q).Num(googlePageSize).Start(start).Context(ctx).Do()
}

var _ Aggregator = (*Google)(nil)
