package fetcher

import (
	"context"
	"time"

	"github.com/sells-group/nutrition-scraper/internal/metrics"
)

type instrumented struct {
	next Fetcher
	m    *metrics.Metrics
}

// Instrument records the outcome and duration of every fetch made through
// next. A nil m returns next unchanged.
func Instrument(next Fetcher, m *metrics.Metrics) Fetcher {
	if m == nil {
		return next
	}
	return &instrumented{next: next, m: m}
}

func (i *instrumented) Fetch(ctx context.Context, url string) (*Page, error) {
	start := time.Now()
	page, err := i.next.Fetch(ctx, url)
	switch {
	case err != nil:
		i.m.ObserveFetch(metrics.OutcomeError, time.Since(start))
	case page.FromCache:
		i.m.ObserveFetch(metrics.OutcomeCached, time.Since(start))
	default:
		i.m.ObserveFetch(metrics.OutcomeOK, time.Since(start))
	}
	return page, err
}
