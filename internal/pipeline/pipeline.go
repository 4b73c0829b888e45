// Package pipeline sequences discovery, per-product extraction and
// persistence.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nutrition-scraper/internal/discovery"
	"github.com/sells-group/nutrition-scraper/internal/metrics"
	"github.com/sells-group/nutrition-scraper/internal/model"
	"github.com/sells-group/nutrition-scraper/internal/output"
	"github.com/sells-group/nutrition-scraper/internal/resilience"
)

// Outcomes a caller must be able to tell apart.
var (
	// ErrInputMissing means the locator list has not been collected yet.
	ErrInputMissing = output.ErrInputMissing
	// ErrNoLocators means discovery found nothing, or the saved list is empty.
	ErrNoLocators = errors.New("pipeline: no product locators")
	// ErrNoRecords means every product fetch failed; nothing was written.
	ErrNoRecords = errors.New("pipeline: no records extracted")
)

// Crawler discovers product locators.
type Crawler interface {
	Crawl(ctx context.Context) *discovery.Result
}

// LocatorStore holds the locator list between stages.
type LocatorStore interface {
	Load() ([]model.Locator, error)
	Save(locs []model.Locator) error
}

// RunStore records run history.
type RunStore interface {
	CreateRun(ctx context.Context, kind model.RunKind) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error
}

// Deps are the collaborators of a Pipeline. Runs and Metrics are optional.
type Deps struct {
	Crawler  Crawler
	Scraper  *Scraper
	Locators LocatorStore
	Records  output.RecordWriter
	Runs     RunStore
	Metrics  *metrics.Metrics
}

// Pipeline runs the collect and scrape stages.
type Pipeline struct {
	crawler  Crawler
	scraper  *Scraper
	locators LocatorStore
	records  output.RecordWriter
	runs     RunStore
	metrics  *metrics.Metrics
}

// New creates a Pipeline.
func New(d Deps) *Pipeline {
	return &Pipeline{
		crawler:  d.Crawler,
		scraper:  d.Scraper,
		locators: d.Locators,
		records:  d.Records,
		runs:     d.Runs,
		metrics:  d.Metrics,
	}
}

// Summary reports what a run did.
type Summary struct {
	RunID      string                  `json:"run_id,omitempty"`
	Kind       model.RunKind           `json:"kind"`
	Status     model.RunStatus         `json:"status"`
	CrawlState discovery.State         `json:"crawl_state,omitempty"`
	Pages      int                     `json:"pages"`
	Locators   int                     `json:"locators"`
	Records    []model.NutritionRecord `json:"records,omitempty"`
	Failed     []model.FailedItem      `json:"failed,omitempty"`
	Outputs    []string                `json:"outputs,omitempty"`
	Duration   time.Duration           `json:"duration"`
}

// Collect runs discovery and replaces the saved locator list. An empty
// discovery leaves the previous list untouched and returns ErrNoLocators.
func (p *Pipeline) Collect(ctx context.Context) (*Summary, error) {
	return p.track(ctx, model.RunKindCollect, p.collect)
}

// Scrape loads the saved locator list, extracts a record per product and
// writes the records. It fails with ErrInputMissing before any fetch when
// the list is absent.
func (p *Pipeline) Scrape(ctx context.Context) (*Summary, error) {
	return p.track(ctx, model.RunKindScrape, p.scrape)
}

// RunAll runs Collect then Scrape as one run.
func (p *Pipeline) RunAll(ctx context.Context) (*Summary, error) {
	return p.track(ctx, model.RunKindFull, func(ctx context.Context, sum *Summary) error {
		if err := p.collect(ctx, sum); err != nil {
			return err
		}
		return p.scrape(ctx, sum)
	})
}

func (p *Pipeline) collect(ctx context.Context, sum *Summary) error {
	res := p.crawler.Crawl(ctx)
	sum.CrawlState = res.State
	sum.Pages = res.Pages
	sum.Locators = len(res.Locators)

	if res.State == discovery.StateCancelled {
		return eris.Wrap(context.Cause(ctx), "pipeline: collect interrupted")
	}
	if len(res.Locators) == 0 {
		if res.State == discovery.StateFetchFailed {
			if res.Err == nil {
				return eris.New("pipeline: discovery failed")
			}
			return eris.Wrap(res.Err, "pipeline: discovery failed")
		}
		return ErrNoLocators
	}
	if err := p.locators.Save(res.Locators); err != nil {
		return eris.Wrap(err, "pipeline: save locators")
	}
	return nil
}

func (p *Pipeline) scrape(ctx context.Context, sum *Summary) error {
	locs, err := p.locators.Load()
	if err != nil {
		return err
	}
	sum.Locators = len(locs)
	if len(locs) == 0 {
		return ErrNoLocators
	}

	res, scrapeErr := p.scraper.ScrapeAll(ctx, locs)
	sum.Records = res.Records
	sum.Failed = res.Failed
	p.metrics.ObserveScrape(len(res.Records), len(res.Failed))
	if scrapeErr != nil {
		return scrapeErr
	}

	if len(res.Records) == 0 {
		return ErrNoRecords
	}
	written, err := p.records.WriteRecords(res.Records)
	sum.Outputs = written
	if err != nil {
		return eris.Wrap(err, "pipeline: write records")
	}
	return nil
}

// track wraps a stage with run history, metrics and logging.
func (p *Pipeline) track(ctx context.Context, kind model.RunKind, stage func(context.Context, *Summary) error) (*Summary, error) {
	log := zap.L().With(zap.String("run_kind", string(kind)))
	start := time.Now()
	sum := &Summary{Kind: kind, Status: model.RunStatusRunning}

	if p.runs != nil {
		run, err := p.runs.CreateRun(ctx, kind)
		if err != nil {
			log.Warn("pipeline: failed to record run start", zap.Error(err))
		} else {
			sum.RunID = run.ID
			log = log.With(zap.String("run_id", run.ID))
		}
	}
	log.Info("pipeline: starting")

	err := stage(ctx, sum)
	sum.Duration = time.Since(start)
	sum.Status = statusFor(err)

	fields := []zap.Field{
		zap.String("status", string(sum.Status)),
		zap.Int("locators", sum.Locators),
		zap.Int("records", len(sum.Records)),
		zap.Int("failed", len(sum.Failed)),
		zap.Duration("elapsed", sum.Duration),
	}
	switch sum.Status {
	case model.RunStatusFailed:
		log.Error("pipeline: failed", append(fields, zap.Error(err))...)
	case model.RunStatusEmpty:
		log.Warn("pipeline: nothing produced", append(fields, zap.Error(err))...)
	default:
		log.Info("pipeline: complete", fields...)
	}

	p.metrics.ObserveRun(string(kind), string(sum.Status))
	p.finishRun(sum, err)
	return sum, err
}

// finishRunRetry bounds the attempts to record a run outcome.
var finishRunRetry = resilience.RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     time.Second,
	Multiplier:     2.0,
	ShouldRetry:    func(error) bool { return true },
}

// finishRun records the outcome. It uses a fresh context so that an
// interrupted run is still recorded.
func (p *Pipeline) finishRun(sum *Summary, runErr error) {
	if p.runs == nil || sum.RunID == "" {
		return
	}
	result := &model.RunResult{
		Locators: sum.Locators,
		Pages:    sum.Pages,
		Records:  len(sum.Records),
		Failed:   sum.Failed,
		Outputs:  sum.Outputs,
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg := finishRunRetry
	cfg.OnRetry = resilience.RetryLogger("finish run", sum.RunID)
	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return p.runs.FinishRun(ctx, sum.RunID, sum.Status, result)
	})
	if err != nil {
		zap.L().Warn("pipeline: failed to record run result", zap.String("run_id", sum.RunID), zap.Error(err))
	}
}

func statusFor(err error) model.RunStatus {
	switch {
	case err == nil:
		return model.RunStatusComplete
	case errors.Is(err, ErrNoLocators), errors.Is(err, ErrNoRecords):
		return model.RunStatusEmpty
	default:
		return model.RunStatusFailed
	}
}
