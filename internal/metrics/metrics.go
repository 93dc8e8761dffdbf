// Package metrics exposes Prometheus instrumentation for upstream venue calls,
// the sector label cache and report computation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing,
// which keeps tests and one-shot report mode free of registry plumbing.
type Metrics struct {
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	labelCache       *prometheus.CounterVec
	tagLookups       *prometheus.CounterVec
	reportDuration   *prometheus.HistogramVec
	reportErrors     *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		upstreamRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyportfolio_upstream_requests_total",
				Help: "Requests sent to the Polymarket data and Gamma APIs",
			},
			[]string{"api", "endpoint", "status_code"},
		),
		upstreamDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polyportfolio_upstream_request_duration_seconds",
				Help:    "Latency of upstream venue requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api", "endpoint"},
		),
		labelCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyportfolio_label_cache_lookups_total",
				Help: "Sector label cache lookups by result",
			},
			[]string{"result"},
		),
		tagLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyportfolio_tag_lookups_total",
				Help: "Sector classifications resolved through the tagging API",
			},
			[]string{"outcome"},
		),
		reportDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polyportfolio_report_duration_seconds",
				Help:    "Time to compute an analytics report",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"report"},
		),
		reportErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polyportfolio_report_errors_total",
				Help: "Analytics reports that failed",
			},
			[]string{"report"},
		),
	}
}

// ObserveUpstream records one venue request. statusCode 0 means the request
// never produced an HTTP response.
func (m *Metrics) ObserveUpstream(api, endpoint string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(api, endpoint, strconv.Itoa(statusCode)).Inc()
	m.upstreamDuration.WithLabelValues(api, endpoint).Observe(d.Seconds())
}

// LabelCacheHit counts a classification served from the label cache.
func (m *Metrics) LabelCacheHit() {
	if m == nil {
		return
	}
	m.labelCache.WithLabelValues("hit").Inc()
}

// LabelCacheMiss counts a classification that needed the tagging API.
func (m *Metrics) LabelCacheMiss() {
	if m == nil {
		return
	}
	m.labelCache.WithLabelValues("miss").Inc()
}

// TagLookup counts a completed tagging lookup by outcome
// ("matched", "unmatched" or "error").
func (m *Metrics) TagLookup(outcome string) {
	if m == nil {
		return
	}
	m.tagLookups.WithLabelValues(outcome).Inc()
}

// ObserveReport records the duration of a report and whether it failed.
func (m *Metrics) ObserveReport(report string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.reportDuration.WithLabelValues(report).Observe(d.Seconds())
	if err != nil {
		m.reportErrors.WithLabelValues(report).Inc()
	}
}
