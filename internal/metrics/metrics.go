// Package metrics exposes Prometheus counters for scraping runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes used as the "outcome" label.
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeCached = "cached"
)

// Metrics holds the collectors for one process. Collectors live on a private
// registry so tests can create as many instances as they need.
type Metrics struct {
	registry *prometheus.Registry

	FetchesTotal     *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	DiscoveryPages   prometheus.Counter
	LocatorsFound    prometheus.Counter
	RecordsExtracted prometheus.Counter
	ItemsFailed      prometheus.Counter
	RunsTotal        *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrition_fetches_total",
			Help: "Page fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nutrition_fetch_duration_seconds",
			Help:    "Duration of page fetches, pacing included.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		DiscoveryPages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutrition_discovery_pages_total",
			Help: "Search result pages visited by discovery.",
		}),
		LocatorsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutrition_locators_found_total",
			Help: "Unique product locators returned by discovery.",
		}),
		RecordsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutrition_records_extracted_total",
			Help: "Nutrition records produced.",
		}),
		ItemsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nutrition_items_failed_total",
			Help: "Product pages skipped because their fetch failed.",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrition_runs_total",
			Help: "Pipeline runs by kind and final status.",
		}, []string{"kind", "status"}),
	}
	reg.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.DiscoveryPages,
		m.LocatorsFound,
		m.RecordsExtracted,
		m.ItemsFailed,
		m.RunsTotal,
	)
	return m
}

// ObserveFetch records one fetch. Safe on a nil receiver.
func (m *Metrics) ObserveFetch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(elapsed.Seconds())
}

// ObserveDiscovery records the pages and locators of one discovery crawl.
func (m *Metrics) ObserveDiscovery(pages, locators int) {
	if m == nil {
		return
	}
	m.DiscoveryPages.Add(float64(pages))
	m.LocatorsFound.Add(float64(locators))
}

// ObserveScrape records the outcome of one scrape batch.
func (m *Metrics) ObserveScrape(records, failed int) {
	if m == nil {
		return
	}
	m.RecordsExtracted.Add(float64(records))
	m.ItemsFailed.Add(float64(failed))
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(kind, status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(kind, status).Inc()
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
