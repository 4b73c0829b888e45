// Package discovery walks the paginated catalog search and collects product
// page locators.
package discovery

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/sells-group/nutrition-scraper/internal/extract"
	"github.com/sells-group/nutrition-scraper/internal/fetcher"
	"github.com/sells-group/nutrition-scraper/internal/metrics"
	"github.com/sells-group/nutrition-scraper/internal/model"
)

// State is the crawl state. Every state except StateFetching is terminal.
type State string

// Crawl states.
const (
	StateFetching        State = "fetching"
	StateHasResults      State = "has_results"
	StateNoResults       State = "no_results"
	StateFetchFailed     State = "fetch_failed"
	StateMaxPagesReached State = "max_pages_reached"
	StateCancelled       State = "cancelled"
)

// Selectors of the search results page.
const (
	productAnchorSelector = "a.prominent"
	noResultsSelector     = "div.searchNoResult"
)

// DefaultPageParam is the query parameter carrying the page offset.
const DefaultPageParam = "pg"

// Options configures a Crawler.
type Options struct {
	// SearchURL is the first results page. Later pages append PageParam.
	SearchURL string
	// BaseURL resolves relative product hrefs.
	BaseURL string
	// Namespace is the href substring that marks a catalog product.
	Namespace string
	PageParam string
	// MaxPages caps the pages visited. 0 means no cap.
	MaxPages int
}

// Result is the outcome of one crawl.
type Result struct {
	Locators []model.Locator
	// Pages counts result pages fetched successfully.
	Pages int
	// Raw counts locators found before deduplication.
	Raw   int
	State State
	// Err is the fetch failure that ended a StateFetchFailed crawl.
	Err error
}

// Crawler discovers product locators from the search listing.
type Crawler struct {
	fetcher fetcher.Fetcher
	opts    Options
	base    *url.URL
	metrics *metrics.Metrics
}

// NewCrawler validates opts and returns a Crawler. m may be nil.
func NewCrawler(f fetcher.Fetcher, opts Options, m *metrics.Metrics) (*Crawler, error) {
	if f == nil {
		return nil, eris.New("discovery: fetcher is required")
	}
	if opts.SearchURL == "" {
		return nil, eris.New("discovery: search url is required")
	}
	if opts.PageParam == "" {
		opts.PageParam = DefaultPageParam
	}
	if opts.BaseURL == "" {
		opts.BaseURL = opts.SearchURL
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: parse base url %q", opts.BaseURL)
	}
	return &Crawler{fetcher: f, opts: opts, base: base, metrics: m}, nil
}

// Crawl visits result pages from page 0 until a terminal state and returns
// the deduplicated locators gathered so far. A fetch failure ends the crawl
// but is not returned as an error: the partial set is still usable.
func (c *Crawler) Crawl(ctx context.Context) *Result {
	log := zap.L().With(zap.String("component", "discovery"))

	var raw []model.Locator
	res := &Result{State: StateFetching}

	for page := 0; res.State == StateFetching; page++ {
		if c.opts.MaxPages > 0 && page >= c.opts.MaxPages {
			res.State = StateMaxPagesReached
			break
		}
		if ctx.Err() != nil {
			res.State = StateCancelled
			break
		}

		pageURL := PageURL(c.opts.SearchURL, c.opts.PageParam, page)
		log.Info("discovery: fetching results page", zap.Int("page", page), zap.String("url", pageURL))

		found, state, err := c.visit(ctx, pageURL)
		switch state {
		case StateHasResults:
			res.Pages++
			raw = append(raw, found...)
			log.Info("discovery: products found", zap.Int("page", page), zap.Int("count", len(found)))
		case StateNoResults:
			res.Pages++
			res.State = StateNoResults
			log.Info("discovery: no more results", zap.Int("page", page))
		default:
			res.State = state
			res.Err = err
			log.Warn("discovery: fetch failed, keeping partial results",
				zap.Int("page", page),
				zap.String("url", pageURL),
				zap.Error(err),
			)
		}
	}

	res.Raw = len(raw)
	res.Locators = lo.Uniq(raw)
	if res.Locators == nil {
		res.Locators = []model.Locator{}
	}
	c.metrics.ObserveDiscovery(res.Pages, len(res.Locators))

	log.Info("discovery: complete",
		zap.String("state", string(res.State)),
		zap.Int("pages", res.Pages),
		zap.Int("raw", res.Raw),
		zap.Int("unique", len(res.Locators)),
	)
	return res
}

// visit fetches one results page and classifies it.
func (c *Crawler) visit(ctx context.Context, pageURL string) ([]model.Locator, State, error) {
	page, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, StateCancelled, err
		}
		return nil, StateFetchFailed, err
	}

	doc, err := extract.ParseBytes(page.Body)
	if err != nil {
		return nil, StateFetchFailed, err
	}
	if HasNoResults(doc) {
		return nil, StateNoResults, nil
	}

	found := ExtractLocators(doc, c.base, c.opts.Namespace)
	if len(found) == 0 {
		return nil, StateNoResults, nil
	}
	return found, StateHasResults, nil
}

// PageURL returns the address of results page n. Page 0 is searchURL
// itself.
func PageURL(searchURL, param string, n int) string {
	if n <= 0 {
		return searchURL
	}
	sep := "?"
	if strings.Contains(searchURL, "?") {
		sep = "&"
	}
	return searchURL + sep + param + "=" + strconv.Itoa(n)
}

// HasNoResults reports whether doc carries the explicit empty-search marker.
func HasNoResults(doc *extract.Document) bool {
	return doc.Find(noResultsSelector).Length() > 0
}

// ExtractLocators returns the product anchors of doc whose href contains
// namespace, resolved against base, in document order.
func ExtractLocators(doc *extract.Document, base *url.URL, namespace string) []model.Locator {
	var out []model.Locator
	doc.Find(productAnchorSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(href, namespace) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			zap.L().Debug("discovery: skipping malformed href", zap.String("href", href), zap.Error(err))
			return
		}
		out = append(out, base.ResolveReference(ref).String())
	})
	return out
}
