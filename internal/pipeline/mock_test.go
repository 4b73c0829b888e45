package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/nutrition-scraper/internal/discovery"
	"github.com/sells-group/nutrition-scraper/internal/fetcher"
	"github.com/sells-group/nutrition-scraper/internal/model"
	"github.com/sells-group/nutrition-scraper/internal/output"
)

// --- Fetcher Mock ---

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*fetcher.Page, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fetcher.Page), args.Error(1)
}

// --- Crawler Stub ---

type stubCrawler struct {
	result *discovery.Result
	calls  int
}

func (c *stubCrawler) Crawl(context.Context) *discovery.Result {
	c.calls++
	return c.result
}

// --- Locator Store ---

type memLocators struct {
	locs    []model.Locator
	missing bool
	saves   int
}

func (m *memLocators) Load() ([]model.Locator, error) {
	if m.missing {
		return nil, output.ErrInputMissing
	}
	return m.locs, nil
}

func (m *memLocators) Save(locs []model.Locator) error {
	m.saves++
	m.missing = false
	m.locs = locs
	return nil
}

// --- Record Writer ---

type memWriter struct {
	written [][]model.NutritionRecord
}

func (w *memWriter) WriteRecords(records []model.NutritionRecord) ([]string, error) {
	w.written = append(w.written, records)
	return []string{"dados/vitao_nutricional.csv"}, nil
}

// --- Run Store ---

type memRuns struct {
	mu       sync.Mutex
	created  []model.RunKind
	statuses map[string]model.RunStatus
	results  map[string]*model.RunResult

	finishFailures int
	finishCalls    int
}

func newMemRuns() *memRuns {
	return &memRuns{
		statuses: map[string]model.RunStatus{},
		results:  map[string]*model.RunResult{},
	}
}

func (m *memRuns) CreateRun(_ context.Context, kind model.RunKind) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, kind)
	id := "run-" + string(kind)
	m.statuses[id] = model.RunStatusRunning
	return &model.Run{ID: id, Kind: kind, Status: model.RunStatusRunning}, nil
}

func (m *memRuns) FinishRun(_ context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finishCalls++
	if m.finishFailures > 0 {
		m.finishFailures--
		return errors.New("database is locked")
	}
	m.statuses[runID] = status
	m.results[runID] = result
	return nil
}
