package fetcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/nutrition-scraper/internal/model"
)

// PageCache stores fetched documents by URL.
type PageCache interface {
	GetCachedPage(ctx context.Context, url string) (*model.CachedPage, error)
	SetCachedPage(ctx context.Context, url string, body []byte, ttl time.Duration) error
}

// CachingFetcher serves unexpired pages from a PageCache and stores fresh
// successful fetches in it. Cache errors are logged and never fail a fetch.
type CachingFetcher struct {
	next  Fetcher
	cache PageCache
	ttl   time.Duration
}

// NewCachingFetcher wraps next with cache. A non-positive ttl returns next
// unchanged.
func NewCachingFetcher(next Fetcher, cache PageCache, ttl time.Duration) Fetcher {
	if cache == nil || ttl <= 0 {
		return next
	}
	return &CachingFetcher{next: next, cache: cache, ttl: ttl}
}

// Fetch implements Fetcher.
func (c *CachingFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	cached, err := c.cache.GetCachedPage(ctx, url)
	if err != nil {
		zap.L().Warn("fetcher: page cache lookup failed", zap.String("url", url), zap.Error(err))
	}
	if cached != nil {
		return &Page{URL: url, FinalURL: url, StatusCode: 200, Body: cached.Body, FromCache: true}, nil
	}

	page, err := c.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetCachedPage(ctx, url, page.Body, c.ttl); err != nil {
		zap.L().Warn("fetcher: page cache store failed", zap.String("url", url), zap.Error(err))
	}
	return page, nil
}
