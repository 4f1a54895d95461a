package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/canopy-network/course-indexer/pkg/db"
	"github.com/canopy-network/course-indexer/pkg/db/postgres"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// initEntities creates the document table. The GIN index serves containment filters.
func (s *DB) initEntities(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			body JSONB NOT NULL,
			event_id TEXT NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		);

		CREATE INDEX IF NOT EXISTS idx_entities_body ON %[1]s USING GIN (body jsonb_path_ops);
	`, s.SchemaTable("entities"))

	return s.Exec(ctx, query)
}

// Get returns the body of one document.
func (s *DB) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	query := fmt.Sprintf(`SELECT body FROM %s WHERE collection = $1 AND id = $2`, s.SchemaTable("entities"))

	var body []byte
	if err := s.QueryRow(ctx, query, collection, id).Scan(&body); err != nil {
		if postgres.IsNoRows(err) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query %s/%s: %w", collection, id, err)
	}
	return body, nil
}

// List returns the documents of a collection that contain filter, ordered by id.
func (s *DB) List(ctx context.Context, collection string, filter db.Filter) ([]json.RawMessage, error) {
	query := fmt.Sprintf(`SELECT body FROM %s WHERE collection = $1`, s.SchemaTable("entities"))
	args := []any{collection}
	if len(filter) > 0 {
		contains, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("encode filter: %w", err)
		}
		query += ` AND body @> $2::jsonb`
		args = append(args, string(contains))
	}
	query += ` ORDER BY id`

	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, body)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// Apply writes one event's changeset in a single transaction.
// Any failure rolls back every statement.
func (s *DB) Apply(ctx context.Context, cs *db.Changeset) error {
	if cs == nil || cs.EventID == "" {
		return fmt.Errorf("changeset without event id")
	}

	start := time.Now()
	s.Logger.Debug("pg transaction: BEGIN", zap.String("event_id", cs.EventID))

	err := s.BeginFunc(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}

		// The processed marker goes first so a replay fails before touching documents.
		s.queueProcessed(batch, cs)
		s.queueDocuments(batch, cs)
		s.queueProgress(batch, cs)

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("batch statement %d: %w", i, err)
			}
		}
		return nil
	})

	if err != nil {
		s.Logger.Debug("pg transaction: ROLLBACK",
			zap.String("event_id", cs.EventID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("event %s already applied: %w", cs.EventID, err)
		}
		return err
	}

	s.Logger.Debug("pg transaction: COMMIT",
		zap.String("event_id", cs.EventID),
		zap.Int("documents", len(cs.Docs)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *DB) queueDocuments(batch *pgx.Batch, cs *db.Changeset) {
	query := fmt.Sprintf(`
		INSERT INTO %s (collection, id, body, event_id, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, NOW())
		ON CONFLICT (collection, id) DO UPDATE SET
			body = EXCLUDED.body,
			event_id = EXCLUDED.event_id,
			updated_at = EXCLUDED.updated_at
	`, s.SchemaTable("entities"))

	for _, d := range cs.Docs {
		batch.Queue(query, d.Collection, d.ID, string(d.Body), cs.EventID)
	}
}
