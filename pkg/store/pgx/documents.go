package pgx

import (
	"context"

	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	graphquery "github.com/OFFIS-RIT/factgraph/pkg/query"
	"github.com/OFFIS-RIT/factgraph/pkg/store"
)

const fetchDocumentMetadataSQL = `
SELECT id, COALESCE(title, ''), COALESCE(authors, ''), COALESCE(journal, ''), COALESCE(publication_year, 0)
FROM document
WHERE collection = $1 AND id = ANY($2::bigint[])`

const fetchSentencesSQL = `
SELECT id, text
FROM sentence
WHERE id = ANY($1::bigint[])`

const fetchProvenanceDetailsSQL = `
SELECT id, sentence_id, predicate, relation, subject_str, object_str, COALESCE(confidence, 0)
FROM predication
WHERE id = ANY($1::bigint[])
ORDER BY id`

func (s *FactDBStorage) FetchDocumentMetadata(
	ctx context.Context,
	collection string,
	docIDs []int64,
) (map[int64]graphquery.DocumentMetadata, error) {
	ids := store.Dedupe(docIDs)
	out := make(map[int64]graphquery.DocumentMetadata, len(ids))
	err := store.ChunkRange(len(ids), s.chunkSize, func(start, end int) error {
		rows, err := s.conn.Query(ctx, fetchDocumentMetadataSQL, collection, ids[start:end])
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id int64
				m  graphquery.DocumentMetadata
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

	logger.Debug("[Store][FetchDocumentMetadata] Fetched metadata", "collection", collection, "requested", len(ids), "found", len(out))
	return out, nil
}

func (s *FactDBStorage) FetchSentences(ctx context.Context, sentenceIDs []int64) (map[int64]string, error) {
	ids := store.Dedupe(sentenceIDs)
	out := make(map[int64]string, len(ids))
	err := store.ChunkRange(len(ids), s.chunkSize, func(start, end int) error {
		rows, err := s.conn.Query(ctx, fetchSentencesSQL, ids[start:end])
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

func (s *FactDBStorage) FetchProvenanceDetails(ctx context.Context, provenanceIDs []int64) ([]store.ProvenanceDetail, error) {
	ids := store.Dedupe(provenanceIDs)
	out := make([]store.ProvenanceDetail, 0, len(ids))
	err := store.ChunkRange(len(ids), s.chunkSize, func(start, end int) error {
		rows, err := s.conn.Query(ctx, fetchProvenanceDetailsSQL, ids[start:end])
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
