package query

import (
	"sort"
	"sync"
)

type TraceEventKind string

const (
	TraceEventPatternRejected    TraceEventKind = "pattern_rejected"
	TraceEventPatternFlipped     TraceEventKind = "pattern_flipped"
	TraceEventStoreLookup        TraceEventKind = "store_lookup"
	TraceEventPatternMatched     TraceEventKind = "pattern_matched"
	TraceEventQueriedEntityTypes TraceEventKind = "queried_entity_types"
	TraceEventQueryExecuted      TraceEventKind = "query_executed"
)

// TraceEvent is an extensible event envelope for query tracing.
// Additive changes to this struct are backward compatible for implementers.
type TraceEvent struct {
	Kind TraceEventKind

	Pattern      string
	PatternIndex int
	Reason       string
	Predicate    string
	EntityTypes  []string

	Records    int
	Documents  int
	Rows       int
	DurationMs int64
	Error      string
}

// Tracer is a sink for query tracing events.
//
// Implementers can forward events to logs, metrics, or custom post-processing
// pipelines. Record may be called from several goroutines at once.
type Tracer interface {
	Record(event TraceEvent)
}

// MultiTracer fan-outs trace events to multiple tracers.
type MultiTracer []Tracer

func (m MultiTracer) Record(event TraceEvent) {
	for _, t := range m {
		if t == nil {
			continue
		}
		t.Record(event)
	}
}

func RecordPatternRejected(t Tracer, pattern FactPattern, reason string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventPatternRejected, Pattern: pattern.Key(), Reason: reason})
}

func RecordPatternFlipped(t Tracer, pattern FactPattern) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventPatternFlipped, Pattern: pattern.Key()})
}

func RecordStoreLookup(t Tracer, predicate string, records int, durationMs int64, err error) {
	if t == nil {
		return
	}
	ev := TraceEvent{Kind: TraceEventStoreLookup, Predicate: predicate, Records: records, DurationMs: durationMs}
	if err != nil {
		ev.Error = err.Error()
	}
	t.Record(ev)
}

func RecordPatternMatched(t Tracer, index int, pattern FactPattern, documents int) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventPatternMatched, PatternIndex: index, Pattern: pattern.Key(), Documents: documents})
}

func RecordQueriedEntityTypes(t Tracer, types ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventQueriedEntityTypes, EntityTypes: types})
}

func RecordQueryExecuted(t Tracer, documents, rows int, durationMs int64, err error) {
	if t == nil {
		return
	}
	ev := TraceEvent{Kind: TraceEventQueryExecuted, Documents: documents, Rows: rows, DurationMs: durationMs}
	if err != nil {
		ev.Error = err.Error()
	}
	t.Record(ev)
}

// QueryTrace collects what happened during one query run: which patterns the
// optimizer rejected or flipped, which predicates were looked up and how many
// documents each pattern matched.
//
// QueryTrace is safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	rejected         map[string]string
	flipped          map[string]struct{}
	lookups          int
	predicates       map[string]struct{}
	patternDocuments map[int]int
	entityTypes      map[string]struct{}
	rows             int
}

type QueryTraceSnapshot struct {
	RejectedPatterns   map[string]string
	FlippedPatterns    []string
	Lookups            int
	LookedUpPredicates []string
	PatternDocuments   map[int]int
	QueriedEntityTypes []string
	Rows               int
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{
		rejected:         make(map[string]string),
		flipped:          make(map[string]struct{}),
		predicates:       make(map[string]struct{}),
		patternDocuments: make(map[int]int),
		entityTypes:      make(map[string]struct{}),
	}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventPatternRejected:
		t.rejected[event.Pattern] = event.Reason
	case TraceEventPatternFlipped:
		t.flipped[event.Pattern] = struct{}{}
	case TraceEventStoreLookup:
		t.lookups++
		if event.Predicate != "" {
			t.predicates[event.Predicate] = struct{}{}
		}
	case TraceEventPatternMatched:
		t.patternDocuments[event.PatternIndex] = event.Documents
	case TraceEventQueriedEntityTypes:
		for _, typ := range event.EntityTypes {
			if typ == "" {
				continue
			}
			t.entityTypes[typ] = struct{}{}
		}
	case TraceEventQueryExecuted:
		t.rows = event.Rows
	default:
		return
	}
}

func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		RejectedPatterns:   make(map[string]string, len(t.rejected)),
		FlippedPatterns:    make([]string, 0, len(t.flipped)),
		Lookups:            t.lookups,
		LookedUpPredicates: make([]string, 0, len(t.predicates)),
		PatternDocuments:   make(map[int]int, len(t.patternDocuments)),
		QueriedEntityTypes: make([]string, 0, len(t.entityTypes)),
		Rows:               t.rows,
	}

	for k, v := range t.rejected {
		s.RejectedPatterns[k] = v
	}
	for k := range t.flipped {
		s.FlippedPatterns = append(s.FlippedPatterns, k)
	}
	for p := range t.predicates {
		s.LookedUpPredicates = append(s.LookedUpPredicates, p)
	}
	for i, n := range t.patternDocuments {
		s.PatternDocuments[i] = n
	}
	for typ := range t.entityTypes {
		s.QueriedEntityTypes = append(s.QueriedEntityTypes, typ)
	}

	sort.Strings(s.FlippedPatterns)
	sort.Strings(s.LookedUpPredicates)
	sort.Strings(s.QueriedEntityTypes)

	return s
}
