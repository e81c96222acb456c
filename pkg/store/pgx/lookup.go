package pgx

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/factgraph/pkg/store"
)

const lookupSQL = `
SELECT subject_id, subject_type, relation, object_id, object_type, support, provenance_mapping
FROM predication_inverted_index
WHERE relation = $1`

// lookupQuery appends the slot and collection conditions of req to
// lookupSQL.
type lookupQuery struct {
	sql  strings.Builder
	args []any
}

func (q *lookupQuery) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *lookupQuery) slot(column string, f store.SlotFilter) {
	switch {
	case len(f.Entities) > 0:
		ids := make([]string, 0, len(f.Entities))
		types := make([]string, 0, len(f.Entities))
		for _, e := range f.Entities {
			ids = append(ids, e.ID)
			types = append(types, e.Type)
		}
		fmt.Fprintf(&q.sql, "\n  AND (%[1]s_id, %[1]s_type) IN (SELECT * FROM unnest(%[2]s::text[], %[3]s::text[]))",
			column, q.arg(ids), q.arg(types))
	case len(f.Types) > 0:
		fmt.Fprintf(&q.sql, "\n  AND %s_type = ANY(%s::text[])", column, q.arg(f.Types))
	}
}

func buildLookup(req store.LookupRequest) (string, []any) {
	q := &lookupQuery{}
	q.sql.WriteString(lookupSQL)
	q.args = append(q.args, req.Predicate)
	q.slot("subject", req.Subject)
	q.slot("object", req.Object)
	if req.Collection != "" {
		fmt.Fprintf(&q.sql, "\n  AND provenance_mapping ? %s", q.arg(req.Collection))
	}
	return q.sql.String(), q.args
}

// Lookup returns every inverted index record of req.Predicate whose subject
// and object pass the slot filters.
func (s *FactDBStorage) Lookup(ctx context.Context, req store.LookupRequest) ([]store.InvertedIndexRecord, error) {
	sql, args := buildLookup(req)
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []store.InvertedIndexRecord
	for rows.Next() {
		var (
			r   store.InvertedIndexRecord
			raw []byte
		)
		if err := rows.Scan(&r.SubjectID, &r.SubjectType, &r.Predicate, &r.ObjectID, &r.ObjectType, &r.Support, &raw); err != nil {
			return nil, err
		}
		prov, err := store.ParseProvenanceMapping(raw)
		if err != nil {
			return nil, fmt.Errorf("record %s -%s-> %s: %w", r.SubjectID, r.Predicate, r.ObjectID, err)
		}
		r.Provenance = prov.Restrict(req.Collection)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
