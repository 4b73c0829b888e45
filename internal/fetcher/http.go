package fetcher

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/nutrition-scraper/internal/resilience"
)

// DefaultUserAgent identifies the scraper as a desktop browser, which the
// target site expects.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MinInterval  time.Duration // spacing between requests to the same host
	MaxAttempts  int           // 1 = no retries
	RetryBackoff time.Duration
	MaxRedirects int
}

// HTTPFetcher implements Fetcher over resty with per-host pacing and
// retries of transient failures. At most one request per host is in flight
// at a time, whatever the caller's concurrency.
type HTTPFetcher struct {
	client *resty.Client
	opts   HTTPOptions

	mu    sync.Mutex
	hosts map[string]*hostGate
}

// hostGate paces and serializes requests to one host.
type hostGate struct {
	limiter *AdaptiveLimiter
	slot    *semaphore.Weighted
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 10
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects))

	return &HTTPFetcher{
		client: client,
		opts:   opts,
		hosts:  make(map[string]*hostGate),
	}
}

// hostFor returns the gate for the host of rawURL, creating it on first use.
func (f *HTTPFetcher) hostFor(rawURL string) *hostGate {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	gate, ok := f.hosts[host]
	if !ok {
		gate = &hostGate{
			limiter: NewAdaptiveLimiter(f.opts.MinInterval),
			slot:    semaphore.NewWeighted(1),
		}
		f.hosts[host] = gate
	}
	return gate
}

// Fetch retrieves rawURL, following redirects. Any failure is a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	cfg := resilience.WithAttempts(f.opts.MaxAttempts)
	if f.opts.RetryBackoff > 0 {
		cfg.InitialBackoff = f.opts.RetryBackoff
	}
	cfg.OnRetry = resilience.RetryLogger("fetch", rawURL)

	page, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Page, error) {
		return f.fetchOnce(ctx, rawURL)
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return page, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	gate := f.hostFor(rawURL)
	if err := gate.slot.Acquire(ctx, 1); err != nil {
		return nil, &FetchError{URL: rawURL, Err: eris.Wrap(err, "fetcher: host slot wait")}
	}
	defer gate.slot.Release(1)

	lim := gate.limiter
	if err := lim.Wait(ctx); err != nil {
		return nil, &FetchError{URL: rawURL, Err: eris.Wrap(err, "fetcher: rate limiter wait")}
	}

	start := time.Now()
	resp, err := f.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		wrapped := eris.Wrap(err, "fetcher: request")
		if resilience.IsTransient(err) {
			return nil, &FetchError{URL: rawURL, Err: resilience.NewTransientError(wrapped, 0)}
		}
		return nil, &FetchError{URL: rawURL, Err: wrapped}
	}

	status := resp.StatusCode()
	zap.L().Debug("fetcher: response",
		zap.String("url", rawURL),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)),
	)

	if status == 429 {
		lim.OnRateLimit()
	}

	body := resp.Body()
	if blocked, kind := DetectBlock(status, resp.Header(), body); blocked {
		return nil, &FetchError{URL: rawURL, StatusCode: status, Err: eris.Errorf("fetcher: blocked (%s)", kind)}
	}

	if !resp.IsSuccess() {
		statusErr := eris.Errorf("fetcher: unexpected status %d", status)
		if resilience.IsTransientHTTPStatus(status) {
			return nil, &FetchError{URL: rawURL, StatusCode: status, Err: resilience.NewTransientError(statusErr, status)}
		}
		return nil, &FetchError{URL: rawURL, StatusCode: status, Err: statusErr}
	}
	lim.OnSuccess()

	contentType := resp.Header().Get("Content-Type")
	decoded, err := decodeBody(contentType, body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: status, Err: err}
	}

	finalURL := rawURL
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	return &Page{
		URL:         rawURL,
		FinalURL:    finalURL,
		StatusCode:  status,
		ContentType: contentType,
		Body:        decoded,
	}, nil
}
