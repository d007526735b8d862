package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for RequestsTotal.
const (
	OutcomeSuccess    = "success"
	OutcomeBadRequest = "bad_request"
	OutcomeEntryError = "entry_navigation_error"
	OutcomeInternal   = "internal_error"
)

// Stage labels for NavigationFailures.
const (
	StageEntry = "entry"
	StageLink  = "link"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_requests_total",
		Help: "Scrape requests by outcome",
	}, []string{"outcome"})
	PagesVisited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scrape_pages_visited_total",
		Help: "Linked pages whose text was collected",
	})
	NavigationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_navigation_failures_total",
		Help: "Failed page loads by stage",
	}, []string{"stage"})
	ScrapeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scrape_duration_seconds",
		Help:    "Wall time of a full scrape request",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})
	BrowsersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scrape_browsers_active",
		Help: "Browser processes currently running",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal, PagesVisited, NavigationFailures, ScrapeDuration, BrowsersActive)
}
