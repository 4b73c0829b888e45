package main

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nutrition-scraper/internal/config"
	"github.com/sells-group/nutrition-scraper/internal/discovery"
	"github.com/sells-group/nutrition-scraper/internal/fetcher"
	"github.com/sells-group/nutrition-scraper/internal/metrics"
	"github.com/sells-group/nutrition-scraper/internal/output"
	"github.com/sells-group/nutrition-scraper/internal/pipeline"
	"github.com/sells-group/nutrition-scraper/internal/store"
)

// pipelineEnv holds the pipeline and the resources it owns.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Store    store.Store
	Metrics  *metrics.Metrics
}

// Close releases the store.
func (e *pipelineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}

// initPipeline wires the pipeline from cfg. The store is optional: when it
// cannot be opened the pipeline still runs, without history or page cache.
func initPipeline(ctx context.Context, c *config.Config) (*pipelineEnv, error) {
	env := &pipelineEnv{Metrics: metrics.New()}

	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		zap.L().Warn("store unavailable, run history disabled", zap.Error(err))
	} else {
		env.Store = st
	}

	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   c.Source.UserAgent,
		Timeout:     time.Duration(c.Crawl.TimeoutSecs) * time.Second,
		MinInterval: c.Crawl.MinInterval,
		MaxAttempts: c.Crawl.MaxAttempts,
	})

	listingFetcher := fetcher.Instrument(httpFetcher, env.Metrics)
	productFetcher := fetcher.Instrument(httpFetcher, env.Metrics)
	if env.Store != nil {
		productFetcher = fetcher.Instrument(
			fetcher.NewCachingFetcher(httpFetcher, env.Store, c.Store.CacheTTL()),
			env.Metrics,
		)
	}

	crawler, err := discovery.NewCrawler(listingFetcher, discovery.Options{
		SearchURL: c.Source.SearchURL,
		BaseURL:   c.Source.BaseURL,
		Namespace: c.Source.Namespace,
		PageParam: c.Source.PageParam,
		MaxPages:  c.Crawl.MaxPages,
	}, env.Metrics)
	if err != nil {
		env.Close()
		return nil, err
	}

	records, err := output.NewRecordWriter(c.Output.Dir, c.Output.RecordsFile, c.Output.Formats)
	if err != nil {
		env.Close()
		return nil, err
	}

	deps := pipeline.Deps{
		Crawler: crawler,
		Scraper: pipeline.NewScraper(productFetcher, pipeline.ScraperOptions{
			Category:     c.Scrape.Category,
			NotFoundName: c.Scrape.NotFoundName,
			Concurrency:  c.Scrape.Concurrency,
		}),
		Locators: output.LocatorFile{Path: c.Output.LocatorsPath()},
		Records:  records,
		Metrics:  env.Metrics,
	}
	if env.Store != nil {
		deps.Runs = env.Store
	}
	env.Pipeline = pipeline.New(deps)
	return env, nil
}

// explain adds the user-facing hint for outcomes a user can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pipeline.ErrInputMissing):
		return eris.Wrap(err, "no locator list found; run `nutrition-scraper collect` first")
	case errors.Is(err, pipeline.ErrNoLocators):
		return eris.Wrap(err, "no product locators to process")
	case errors.Is(err, pipeline.ErrNoRecords):
		return eris.Wrap(err, "no nutrition data could be extracted")
	case errors.Is(err, context.Canceled):
		return eris.Wrap(err, "interrupted")
	case fetcher.IsFetchError(err):
		return eris.Wrap(err, "the catalog could not be reached")
	default:
		return err
	}
}
