package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/resumind/internal/docstore"
)

// DocumentStore implements docstore.Backend on the feedback_documents table.
// The user id and match score are copied out of the JSON body into indexed columns.
type DocumentStore struct {
	pool *pgxpool.Pool
}

var _ docstore.Backend = (*DocumentStore)(nil)

// Insert implements docstore.Backend. analysisTimestamp is assigned by NOW().
func (s *DocumentStore) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	body := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == docstore.FieldAnalysisTimestamp {
			continue
		}
		body[k] = v
	}
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	userID, _ := fields[docstore.FieldUserID].(string)
	var matchScore *float64
	if score, ok := fields[docstore.FieldMatchScore].(float64); ok {
		matchScore = &score
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO feedback_documents (collection, user_id, match_score, body)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id::text`,
		collection, userID, matchScore, jsonBytes,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert document into %s: %w", collection, err)
	}
	return id, nil
}

// ListByUser implements docstore.Backend.
func (s *DocumentStore) ListByUser(ctx context.Context, collection, userID string) ([]docstore.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, analysis_ts, body FROM feedback_documents
		 WHERE collection = $1 AND user_id = $2
		 ORDER BY analysis_ts DESC`,
		collection, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return scanSnapshots(rows)
}

// ListByMinMatchScore implements docstore.Backend.
func (s *DocumentStore) ListByMinMatchScore(ctx context.Context, collection string, min float64) ([]docstore.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, analysis_ts, body FROM feedback_documents
		 WHERE collection = $1 AND match_score >= $2
		 ORDER BY match_score DESC, analysis_ts DESC`,
		collection, min,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return scanSnapshots(rows)
}

// Close is a no-op; the pool belongs to DB.
func (s *DocumentStore) Close() error {
	return nil
}

// DeleteCollection removes every document of a collection. Used by tests and the seed command.
func (s *DocumentStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM feedback_documents WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", collection, err)
	}
	return nil
}

func scanSnapshots(rows pgx.Rows) ([]docstore.Snapshot, error) {
	defer rows.Close()

	var snaps []docstore.Snapshot
	for rows.Next() {
		var (
			id   string
			ts   time.Time
			body []byte
		)
		if err := rows.Scan(&id, &ts, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		data := map[string]any{}
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		data[docstore.FieldAnalysisTimestamp] = ts.UTC()
		snaps = append(snaps, docstore.Snapshot{ID: id, Data: data})
	}
	return snaps, rows.Err()
}
