package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/nutrition-scraper/internal/extract"
	"github.com/sells-group/nutrition-scraper/internal/fetcher"
	"github.com/sells-group/nutrition-scraper/internal/model"
)

// ScraperOptions configures record assembly.
type ScraperOptions struct {
	// Category is written to every record.
	Category string
	// NotFoundName replaces an empty product name.
	NotFoundName string
	// Concurrency bounds the product pages in flight. Values below 1 mean 1.
	Concurrency int
}

// Scraper turns product locators into nutrition records.
type Scraper struct {
	fetcher fetcher.Fetcher
	opts    ScraperOptions
}

// NewScraper creates a Scraper.
func NewScraper(f fetcher.Fetcher, opts ScraperOptions) *Scraper {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Scraper{fetcher: f, opts: opts}
}

// ScrapeResult holds the records produced by a batch, in locator order, and
// the locators that were skipped.
type ScrapeResult struct {
	Records []model.NutritionRecord
	Failed  []model.FailedItem
}

// ScrapeOne fetches one product page and assembles its record. Only a fetch
// or parse failure is an error; missing fields fall back to their defaults.
func (s *Scraper) ScrapeOne(ctx context.Context, loc model.Locator) (*model.NutritionRecord, error) {
	page, err := s.fetcher.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}

	doc, err := extract.ParseBytes(page.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse %s", loc)
	}

	id := extract.ExtractIdentity(doc)
	if id.ProductName == "" {
		id.ProductName = s.opts.NotFoundName
	}
	nutrients := extract.ExtractNutrients(extract.NutrientStream(doc))

	rec := model.NewRecord(loc, s.opts.Category, id, nutrients)
	return &rec, nil
}

// ScrapeAll scrapes every locator. A failed item is reported and never stops
// the batch or its siblings. Records keep the order of locs regardless of
// completion order. If ctx is cancelled, the items finished so far are
// returned together with ctx's error.
func (s *Scraper) ScrapeAll(ctx context.Context, locs []model.Locator) (*ScrapeResult, error) {
	log := zap.L().With(zap.String("component", "scraper"))

	records := make([]*model.NutritionRecord, len(locs))
	failed := make([]*model.FailedItem, len(locs))
	total := len(locs)

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	for i, loc := range locs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			rec, err := s.ScrapeOne(ctx, loc)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed[i] = &model.FailedItem{Locator: loc, Error: err.Error()}
				log.Warn("pipeline: product skipped",
					zap.Int("item", i+1),
					zap.Int("total", total),
					zap.String("url", loc),
					zap.Error(err),
				)
				return nil
			}
			records[i] = rec
			log.Info("pipeline: product scraped",
				zap.Int("item", i+1),
				zap.Int("total", total),
				zap.String("name", rec.ProductName),
				zap.Int("calories", rec.Calories),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	}
	waitErr := g.Wait()

	res := &ScrapeResult{
		Records: make([]model.NutritionRecord, 0, len(locs)),
	}
	for i := range locs {
		if records[i] != nil {
			res.Records = append(res.Records, *records[i])
		}
		if failed[i] != nil {
			res.Failed = append(res.Failed, *failed[i])
		}
	}

	if waitErr == nil {
		waitErr = ctx.Err()
	}
	if waitErr != nil {
		return res, eris.Wrap(waitErr, "pipeline: scrape interrupted")
	}
	return res, nil
}
