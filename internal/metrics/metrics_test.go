package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/factgraph/pkg/query"
)

func TestCollectorRecord(t *testing.T) {
	c := NewCollector()

	c.Record(query.TraceEvent{Kind: query.TraceEventPatternRejected, Reason: "no_subjects"})
	c.Record(query.TraceEvent{Kind: query.TraceEventPatternRejected, Reason: "no_subjects"})
	c.Record(query.TraceEvent{Kind: query.TraceEventPatternFlipped})
	c.Record(query.TraceEvent{Kind: query.TraceEventStoreLookup, Records: 3, DurationMs: 12})
	c.Record(query.TraceEvent{Kind: query.TraceEventStoreLookup, Error: "boom"})
	c.Record(query.TraceEvent{Kind: query.TraceEventQueriedEntityTypes, EntityTypes: []string{"Drug", "", "Gene"}})
	c.Record(query.TraceEvent{Kind: query.TraceEventQueryExecuted, Rows: 4, DurationMs: 30})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.rejected.WithLabelValues("no_subjects")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.flipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lookups.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lookups.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.entityTypeQuery.WithLabelValues("Drug")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queries.WithLabelValues("ok")))
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector()
	c.Record(query.TraceEvent{Kind: query.TraceEventPatternFlipped})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "factgraph_patterns_flipped_total 1")
}
