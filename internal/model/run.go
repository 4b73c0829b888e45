package model

import "time"

// RunKind names the stage a run executed.
type RunKind string

const (
	RunKindCollect RunKind = "collect"
	RunKindScrape  RunKind = "scrape"
	RunKindFull    RunKind = "full"
)

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusEmpty    RunStatus = "empty"
	RunStatusFailed   RunStatus = "failed"
)

// IsTerminal reports whether the status is final.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusComplete || s == RunStatusEmpty || s == RunStatusFailed
}

// Run represents a single pipeline execution.
type Run struct {
	ID        string     `json:"id"`
	Kind      RunKind    `json:"kind"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Locators int          `json:"locators"`
	Pages    int          `json:"pages,omitempty"`
	Records  int          `json:"records"`
	Failed   []FailedItem `json:"failed,omitempty"`
	Outputs  []string     `json:"outputs,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// CachedPage is a fetched document kept in the page cache.
type CachedPage struct {
	URL       string    `json:"url"`
	Body      []byte    `json:"-"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
