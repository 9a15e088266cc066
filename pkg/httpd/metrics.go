package httpd

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal counts search responses by status code.
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autocompleted",
		Name:      "http_requests_total",
		Help:      "Search responses by HTTP status code",
	}, []string{"status"})

	// searchDurationSeconds measures request latency, cache hits included.
	searchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "autocompleted",
		Name:      "search_duration_seconds",
		Help:      "End-to-end search request latency",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	// cacheEventsTotal counts response cache activity.
	// Labels: event (hit, miss, evict)
	cacheEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "autocompleted",
		Name:      "cache_events_total",
		Help:      "Response cache hits, misses and evictions",
	}, []string{"event"})

	// storeErrorsTotal counts store reads that failed and surfaced as 500s.
	storeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "autocompleted",
		Name:      "store_errors_total",
		Help:      "Failed tag store reads",
	})
)

func recordRequest(status int) {
	httpRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func observeSearch(seconds float64) {
	searchDurationSeconds.Observe(seconds)
}

func recordCacheEvent(event string) {
	cacheEventsTotal.WithLabelValues(event).Inc()
}

func recordStoreError() {
	storeErrorsTotal.Inc()
}
