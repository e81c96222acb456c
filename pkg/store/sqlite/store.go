// Package sqlite implements store.Store on an embedded SQLite database. It is
// meant for local use and tests; the schema matches the PostgreSQL one with
// the provenance mapping kept as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/store"
)

//go:embed schema.sql
var schemaSQL string

// maxParams keeps batch lookups below SQLITE_MAX_VARIABLE_NUMBER.
const maxParams = 500

type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies the schema. Use
// ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	logger.Debug("[Store][SQLite] Opened fact store", "path", path)
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func buildLookup(req store.LookupRequest) (string, []any) {
	var b strings.Builder
	args := []any{req.Predicate}
	b.WriteString(`SELECT subject_id, subject_type, relation, object_id, object_type, support, provenance_mapping
FROM predication_inverted_index
WHERE relation = ?`)

	slot := func(column string, f store.SlotFilter) {
		switch {
		case len(f.Entities) > 0:
			pairs := make([]string, 0, len(f.Entities))
			for _, e := range f.Entities {
				pairs = append(pairs, "(?, ?)")
				args = append(args, e.ID, e.Type)
			}
			fmt.Fprintf(&b, "\n  AND (%[1]s_id, %[1]s_type) IN (VALUES %[2]s)", column, strings.Join(pairs, ", "))
		case len(f.Types) > 0:
			fmt.Fprintf(&b, "\n  AND %s_type IN (%s)", column, placeholders(len(f.Types)))
			for _, t := range f.Types {
				args = append(args, t)
			}
		}
	}
	slot("subject", req.Subject)
	slot("object", req.Object)

	if req.Collection != "" {
		b.WriteString("\n  AND EXISTS (SELECT 1 FROM json_each(provenance_mapping) WHERE key = ?)")
		args = append(args, req.Collection)
	}
	return b.String(), args
}

func (s *Store) Lookup(ctx context.Context, req store.LookupRequest) ([]store.InvertedIndexRecord, error) {
	q, args := buildLookup(req)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []store.InvertedIndexRecord
	for rows.Next() {
		var (
			r   store.InvertedIndexRecord
			raw string
		)
		if err := rows.Scan(&r.SubjectID, &r.SubjectType, &r.Predicate, &r.ObjectID, &r.ObjectType, &r.Support, &raw); err != nil {
			return nil, err
		}
		prov, err := store.ParseProvenanceMapping([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("record %s -%s-> %s: %w", r.SubjectID, r.Predicate, r.ObjectID, err)
		}
		r.Provenance = prov.Restrict(req.Collection)
		records = append(records, r)
	}
	return records, rows.Err()
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func (s *Store) FetchDocumentMetadata(ctx context.Context, collection string, docIDs []int64) (map[int64]query.DocumentMetadata, error) {
	ids := store.Dedupe(docIDs)
	out := make(map[int64]query.DocumentMetadata, len(ids))
	err := store.ChunkRange(len(ids), maxParams, func(start, end int) error {
		q := `SELECT id, COALESCE(title, ''), COALESCE(authors, ''), COALESCE(journal, ''), COALESCE(publication_year, 0)
FROM document
WHERE collection = ? AND id IN (` + placeholders(end-start) + `)`
		args := append([]any{collection}, int64Args(ids[start:end])...)
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id int64
				m  query.DocumentMetadata
			)
			if err := rows.Scan(&id, &m.Title, &m.Authors, &m.Journal, &m.Year); err != nil {
				return err
			}
			out[id] = m
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FetchSentences(ctx context.Context, sentenceIDs []int64) (map[int64]string, error) {
	ids := store.Dedupe(sentenceIDs)
	out := make(map[int64]string, len(ids))
	err := store.ChunkRange(len(ids), maxParams, func(start, end int) error {
		q := `SELECT id, text FROM sentence WHERE id IN (` + placeholders(end-start) + `)`
		rows, err := s.db.QueryContext(ctx, q, int64Args(ids[start:end])...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id   int64
				text string
			)
			if err := rows.Scan(&id, &text); err != nil {
				return err
			}
			out[id] = text
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) FetchProvenanceDetails(ctx context.Context, provenanceIDs []int64) ([]store.ProvenanceDetail, error) {
	ids := store.Dedupe(provenanceIDs)
	out := make([]store.ProvenanceDetail, 0, len(ids))
	err := store.ChunkRange(len(ids), maxParams, func(start, end int) error {
		q := `SELECT id, sentence_id, predicate, relation, subject_str, object_str, COALESCE(confidence, 0)
FROM predication
WHERE id IN (` + placeholders(end-start) + `)
ORDER BY id`
		rows, err := s.db.QueryContext(ctx, q, int64Args(ids[start:end])...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d store.ProvenanceDetail
			if err := rows.Scan(&d.ID, &d.SentenceID, &d.Predicate, &d.Relation, &d.SubjectStr, &d.ObjectStr, &d.Confidence); err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
