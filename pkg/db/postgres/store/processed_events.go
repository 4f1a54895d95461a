package store

import (
	"context"
	"fmt"

	"github.com/canopy-network/course-indexer/pkg/db"
	"github.com/jackc/pgx/v5"
)

// initProcessedEvents creates the idempotence ledger.
func (s *DB) initProcessedEvents(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			event_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			block_number BIGINT NOT NULL,
			tx_index INTEGER NOT NULL,
			log_index INTEGER NOT NULL,
			processed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_processed_events_position ON %[1]s(block_number, tx_index, log_index);
	`, s.SchemaTable("processed_events"))

	return s.Exec(ctx, query)
}

// Processed reports whether eventID has been applied.
func (s *DB) Processed(ctx context.Context, eventID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE event_id = $1)`, s.SchemaTable("processed_events"))

	var ok bool
	if err := s.QueryRow(ctx, query, eventID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to query processed event %s: %w", eventID, err)
	}
	return ok, nil
}

// queueProcessed inserts without ON CONFLICT: a duplicate aborts the transaction.
func (s *DB) queueProcessed(batch *pgx.Batch, cs *db.Changeset) {
	query := fmt.Sprintf(`
		INSERT INTO %s (event_id, kind, block_number, tx_index, log_index, processed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, s.SchemaTable("processed_events"))

	batch.Queue(query, cs.EventID, cs.Kind,
		int64(cs.Position.BlockNumber), int32(cs.Position.TransactionIndex), int32(cs.Position.LogIndex))
}
