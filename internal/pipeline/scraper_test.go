package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nutrition-scraper/internal/fetcher"
	"github.com/sells-group/nutrition-scraper/internal/model"
)

func testScraperOptions(concurrency int) ScraperOptions {
	return ScraperOptions{
		Category:     "Produto Vitao",
		NotFoundName: "Nome não encontrado",
		Concurrency:  concurrency,
	}
}

func TestScrapeOne(t *testing.T) {
	f := new(mockFetcher)
	f.On("Fetch", mock.Anything, "https://x/granola").
		Return(productPage("https://x/granola", productHTML("Granola Tradicional", 130, "22,5")), nil)

	rec, err := NewScraper(f, testScraperOptions(1)).ScrapeOne(context.Background(), "https://x/granola")
	require.NoError(t, err)

	assert.Equal(t, model.NutritionRecord{
		ProductName:   "Vitao Granola Tradicional",
		Locator:       "https://x/granola",
		Category:      "Produto Vitao",
		ServingSize:   40,
		Calories:      130,
		Carbohydrates: 22.5,
		Protein:       3.2,
		Sodium:        85,
	}, *rec)
}

func TestScrapeOne_NameNotFound(t *testing.T) {
	f := new(mockFetcher)
	f.On("Fetch", mock.Anything, "https://x/blank").
		Return(productPage("https://x/blank", `<html><body><p>layout changed</p></body></html>`), nil)

	rec, err := NewScraper(f, testScraperOptions(1)).ScrapeOne(context.Background(), "https://x/blank")
	require.NoError(t, err)

	assert.Equal(t, "Nome não encontrado", rec.ProductName)
	assert.Equal(t, "Produto Vitao", rec.Category)
	assert.Zero(t, rec.Calories)
	assert.Zero(t, rec.ServingSize)
}

func TestScrapeOne_FetchError(t *testing.T) {
	f := new(mockFetcher)
	f.On("Fetch", mock.Anything, "https://x/gone").
		Return(nil, &fetcher.FetchError{URL: "https://x/gone", StatusCode: 404, Err: errors.New("not found")})

	_, err := NewScraper(f, testScraperOptions(1)).ScrapeOne(context.Background(), "https://x/gone")
	assert.True(t, fetcher.IsFetchError(err))
}

func TestScrapeAll_SkipsFailedItems(t *testing.T) {
	f := new(mockFetcher)
	f.On("Fetch", mock.Anything, "https://x/1").Return(productPage("https://x/1", productHTML("Um", 100, "10")), nil).Once()
	f.On("Fetch", mock.Anything, "https://x/2").Return(nil, &fetcher.FetchError{URL: "https://x/2", StatusCode: 500, Err: errors.New("boom")}).Once()
	f.On("Fetch", mock.Anything, "https://x/3").Return(productPage("https://x/3", productHTML("Tres", 300, "30")), nil).Once()

	res, err := NewScraper(f, testScraperOptions(1)).ScrapeAll(context.Background(), []string{"https://x/1", "https://x/2", "https://x/3"})
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "Vitao Um", res.Records[0].ProductName)
	assert.Equal(t, "Vitao Tres", res.Records[1].ProductName)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "https://x/2", res.Failed[0].Locator)
	assert.Contains(t, res.Failed[0].Error, "status 500")
	f.AssertExpectations(t)
}

func TestScrapeAll_ConcurrentKeepsLocatorOrder(t *testing.T) {
	locs := []string{"https://x/a", "https://x/b", "https://x/c", "https://x/d"}
	delays := map[string]time.Duration{
		"https://x/a": 40 * time.Millisecond,
		"https://x/b": 0,
		"https://x/c": 20 * time.Millisecond,
		"https://x/d": 5 * time.Millisecond,
	}
	f := fetcher.FetcherFunc(func(_ context.Context, url string) (*fetcher.Page, error) {
		time.Sleep(delays[url])
		return productPage(url, productHTML(url[len(url)-1:], 100, "1")), nil
	})

	res, err := NewScraper(f, testScraperOptions(4)).ScrapeAll(context.Background(), locs)
	require.NoError(t, err)

	require.Len(t, res.Records, len(locs))
	for i, loc := range locs {
		assert.Equal(t, loc, res.Records[i].Locator)
	}
	assert.Empty(t, res.Failed)
}

func TestScrapeAll_FailureDoesNotCancelSiblings(t *testing.T) {
	f := fetcher.FetcherFunc(func(_ context.Context, url string) (*fetcher.Page, error) {
		if url == "https://x/bad" {
			return nil, &fetcher.FetchError{URL: url, Err: errors.New("reset")}
		}
		time.Sleep(10 * time.Millisecond)
		return productPage(url, productHTML("ok", 1, "1")), nil
	})

	res, err := NewScraper(f, testScraperOptions(3)).ScrapeAll(context.Background(),
		[]string{"https://x/bad", "https://x/1", "https://x/2", "https://x/3"})
	require.NoError(t, err)

	assert.Len(t, res.Records, 3)
	assert.Len(t, res.Failed, 1)
}

func TestScrapeAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	f := fetcher.FetcherFunc(func(_ context.Context, url string) (*fetcher.Page, error) {
		calls++
		cancel()
		return productPage(url, productHTML("primeiro", 1, "1")), nil
	})

	res, err := NewScraper(f, testScraperOptions(1)).ScrapeAll(ctx, []string{"https://x/1", "https://x/2", "https://x/3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, calls)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "https://x/1", res.Records[0].Locator)
	assert.Empty(t, res.Failed)
}

func TestScrapeAll_CancelledDuringFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started sync.WaitGroup
	started.Add(2)
	f := fetcher.FetcherFunc(func(ctx context.Context, url string) (*fetcher.Page, error) {
		started.Done()
		<-ctx.Done()
		return nil, &fetcher.FetchError{URL: url, Err: ctx.Err()}
	})

	go func() {
		started.Wait()
		cancel()
	}()

	res, err := NewScraper(f, testScraperOptions(2)).ScrapeAll(ctx, []string{"https://x/1", "https://x/2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Failed, "interrupted items are not reported as failures")
}

func TestScrapeAll_Empty(t *testing.T) {
	res, err := NewScraper(new(mockFetcher), testScraperOptions(1)).ScrapeAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Failed)
}
