package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// rateLimitedTotal counts 429 responses seen by the backoff transport, per host.
	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weblookup",
			Subsystem: "fetch",
			Name:      "rate_limited_total",
			Help:      "Total number of rate-limited (429) responses by destination host",
		},
		[]string{"host"},
	)

	// retryAfterSeconds tracks server-directed Retry-After delays.
	retryAfterSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "weblookup",
			Subsystem: "fetch",
			Name:      "retry_after_seconds",
			Help:      "Retry-After delays announced by rate-limited destinations",
			Buckets:   []float64{0, 0.5, 1, 2, 5, 10, 30, 60, 300},
		},
		[]string{"host"},
	)

	providerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weblookup",
			Subsystem: "search",
			Name:      "provider_failures_total",
			Help:      "Total number of swallowed search provider failures",
		},
		[]string{"provider"},
	)

	providerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "weblookup",
			Subsystem: "search",
			Name:      "provider_latency_seconds",
			Help:      "Latency of individual search provider calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	sitemapEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "weblookup",
			Subsystem: "sitemap",
			Name:      "entries_total",
			Help:      "Total number of sitemap entries yielded",
		},
	)

	sitemapFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weblookup",
			Subsystem: "sitemap",
			Name:      "branch_failures_total",
			Help:      "Sitemap documents that could not be fetched or parsed, by depth",
		},
		[]string{"depth"},
	)
)

// RecordRateLimited has the shape of a backoff rate-limit observer so it can
// be passed directly to the transport.
func RecordRateLimited(host string, retryAfter *time.Duration) {
	rateLimitedTotal.WithLabelValues(host).Inc()
	if retryAfter != nil {
		retryAfterSeconds.WithLabelValues(host).Observe(retryAfter.Seconds())
	}
}

// RecordProviderCall records latency and, when err is non-nil, a failure.
func RecordProviderCall(provider string, elapsed time.Duration, err error) {
	providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err != nil {
		providerFailuresTotal.WithLabelValues(provider).Inc()
	}
}

// RecordSitemapEntry counts one yielded sitemap entry.
func RecordSitemapEntry() {
	sitemapEntriesTotal.Inc()
}

// RecordSitemapFailure counts a failed sitemap branch at the given depth.
func RecordSitemapFailure(depth string) {
	sitemapFailuresTotal.WithLabelValues(depth).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
