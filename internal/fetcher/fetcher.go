// Package fetcher retrieves remote pages for discovery and extraction.
package fetcher

import (
	"context"
	"errors"
	"fmt"
)

// Page is a fetched document with its body decoded to UTF-8.
type Page struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	FromCache   bool
}

// Fetcher retrieves the document at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// FetchError is returned for any transport failure or non-success status.
// Callers treat every FetchError the same way: the page is unavailable.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is, or wraps, a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (*Page, error)

// Fetch calls fn.
func (fn FetcherFunc) Fetch(ctx context.Context, url string) (*Page, error) {
	return fn(ctx, url)
}
