// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memedex_mutations_total",
		Help: "Catalog mutations by operation and outcome.",
	}, []string{"op", "result"})

	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memedex_searches_total",
		Help: "Search requests served.",
	})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "memedex_search_duration_seconds",
		Help:    "Time spent filtering and sorting a search.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "memedex_search_results",
		Help:    "Number of items returned per search.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	MediaErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memedex_media_errors_total",
		Help: "Media store failures by operation.",
	}, []string{"op"})

	ItemsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "memedex_items_total",
		Help: "Items currently in the catalog.",
	})

	TagsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "memedex_tags_total",
		Help: "Tags currently in the catalog.",
	})
)

// ObserveMutation records the outcome of a catalog mutation. result is a
// catalog error kind name, "ok" on success.
func ObserveMutation(op, result string) {
	MutationsTotal.WithLabelValues(op, result).Inc()
}

// SetSize updates the catalog size gauges.
func SetSize(items, tags int) {
	ItemsTotal.Set(float64(items))
	TagsTotal.Set(float64(tags))
}
