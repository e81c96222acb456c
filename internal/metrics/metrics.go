// Package metrics exports query trace events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
)

const namespace = "factgraph"

// Collector is a query.Tracer backed by Prometheus collectors.
type Collector struct {
	gatherer prometheus.Gatherer

	rejected        *prometheus.CounterVec
	flipped         prometheus.Counter
	lookups         *prometheus.CounterVec
	lookupDuration  prometheus.Histogram
	lookupRecords   prometheus.Histogram
	patternDocs     prometheus.Histogram
	queries         *prometheus.CounterVec
	queryDuration   prometheus.Histogram
	queryRows       prometheus.Histogram
	entityTypeQuery *prometheus.CounterVec
}

var _ query.Tracer = (*Collector)(nil)

// NewCollector registers the query metrics on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := newCollector(reg)
	c.gatherer = reg
	return c
}

func newCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patterns_rejected_total",
			Help:      "Patterns dropped by the optimizer, by reason",
		}, []string{"reason"}),
		flipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patterns_flipped_total",
			Help:      "Patterns rewritten into their flipped orientation",
		}),
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_lookups_total",
			Help:      "Fact store lookups by result",
		}, []string{"result"}),
		lookupDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_lookup_duration_seconds",
			Help:      "Fact store lookup latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		lookupRecords: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_lookup_records",
			Help:      "Inverted index records returned per lookup",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		patternDocs: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pattern_documents",
			Help:      "Documents matched per pattern before joining",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Executed queries by result",
		}, []string{"result"}),
		queryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query execution latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		queryRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_rows",
			Help:      "Result rows per query",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
		entityTypeQuery: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_type_filters_total",
			Help:      "Entity types used as lookup filters",
		}, []string{"type"}),
	}
}

func result(err string) string {
	if err != "" {
		return "error"
	}
	return "ok"
}

func (c *Collector) Record(ev query.TraceEvent) {
	switch ev.Kind {
	case query.TraceEventPatternRejected:
		c.rejected.WithLabelValues(ev.Reason).Inc()
	case query.TraceEventPatternFlipped:
		c.flipped.Inc()
	case query.TraceEventStoreLookup:
		c.lookups.WithLabelValues(result(ev.Error)).Inc()
		c.lookupDuration.Observe(float64(ev.DurationMs) / 1000)
		if ev.Error == "" {
			c.lookupRecords.Observe(float64(ev.Records))
		}
	case query.TraceEventPatternMatched:
		c.patternDocs.Observe(float64(ev.Documents))
	case query.TraceEventQueriedEntityTypes:
		for _, t := range ev.EntityTypes {
			if t == "" {
				continue
			}
			c.entityTypeQuery.WithLabelValues(t).Inc()
		}
	case query.TraceEventQueryExecuted:
		c.queries.WithLabelValues(result(ev.Error)).Inc()
		c.queryDuration.Observe(float64(ev.DurationMs) / 1000)
		if ev.Error == "" {
			c.queryRows.Observe(float64(ev.Rows))
		}
	}
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
