/*
Package search queries Google Programmable Search for tracking queries and
normalizes the results into plain-text title, snippet and link triples.
*/
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/shanehull/preminder/internal/types"
)

// MaxResults caps how many results a single query may return.
const MaxResults = 3

const defaultTimeout = 30 * time.Second

type Provider struct {
	svc      *customsearch.Service
	engineID string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewProvider(ctx context.Context, apiKey string, engineID string, timeout time.Duration, logger *zap.Logger, opts ...option.ClientOption) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("search API key is required")
	}
	if engineID == "" {
		return nil, fmt.Errorf("search engine ID is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search client: %w", err)
	}

	return &Provider{
		svc:      svc,
		engineID: engineID,
		timeout:  timeout,
		logger:   logger.Named("search"),
	}, nil
}

// Search returns at most limit results. Provider failures are logged and
// reported as an empty result set.
func (p *Provider) Search(ctx context.Context, query string, limit int) []types.SearchResult {
	limit = clampLimit(limit)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.svc.Cse.List().
		Q(query).
		Cx(p.engineID).
		Num(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		searchErrorsTotal.Inc()
		p.logger.Warn("Search provider failed, continuing with no results",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}

	results := convertItems(res.Items, limit)
	p.logger.Debug("Search complete", zap.String("query", query), zap.Int("results", len(results)))
	return results
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxResults {
		return MaxResults
	}
	return limit
}

func convertItems(items []*customsearch.Result, limit int) []types.SearchResult {
	results := make([]types.SearchResult, 0, min(len(items), limit))
	for _, item := range items {
		if item == nil || len(results) == limit {
			continue
		}

		title := PlainText(item.Title)
		if title == "" {
			title = PlainText(item.HtmlTitle)
		}
		snippet := PlainText(item.Snippet)
		if snippet == "" {
			snippet = PlainText(item.HtmlSnippet)
		}
		link := strings.TrimSpace(item.Link)

		if title == "" || link == "" {
			continue
		}

		results = append(results, types.SearchResult{
			Title:   title,
			Snippet: snippet,
			Link:    link,
		})
	}
	return results
}
