package discovery

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/nutrition-scraper/internal/fetcher"
)

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

func htmlPage(url, body string) *fetcher.Page {
	return &fetcher.Page{URL: url, FinalURL: url, StatusCode: 200, Body: []byte(body)}
}
