package store

import (
	"context"
	"fmt"

	"github.com/canopy-network/course-indexer/pkg/db"
	"github.com/canopy-network/course-indexer/pkg/db/postgres"
	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/jackc/pgx/v5"
)

// initIndexProgress creates the single-row cursor table.
func (s *DB) initIndexProgress(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			block_number BIGINT NOT NULL,
			tx_index INTEGER NOT NULL,
			log_index INTEGER NOT NULL,
			event_id TEXT NOT NULL,
			events_processed BIGINT NOT NULL DEFAULT 0,
			indexed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, s.SchemaTable("index_progress"))

	return s.Exec(ctx, query)
}

// Progress returns the cursor of the last applied event.
func (s *DB) Progress(ctx context.Context) (db.Progress, error) {
	query := fmt.Sprintf(`
		SELECT block_number, tx_index, log_index, event_id, events_processed, indexed_at
		FROM %s
		WHERE id = 1
	`, s.SchemaTable("index_progress"))

	var (
		p                 db.Progress
		block             int64
		txIndex, logIndex int32
	)
	err := s.QueryRow(ctx, query).Scan(&block, &txIndex, &logIndex, &p.LastEventID, &p.EventsProcessed, &p.UpdatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return db.Progress{}, nil
		}
		return db.Progress{}, fmt.Errorf("failed to query index progress: %w", err)
	}

	p.HasCursor = true
	p.Cursor = ident.Position{
		BlockNumber:      uint64(block),
		TransactionIndex: uint32(txIndex),
		LogIndex:         uint32(logIndex),
	}
	return p, nil
}

// queueProgress advances the cursor inside the changeset transaction.
func (s *DB) queueProgress(batch *pgx.Batch, cs *db.Changeset) {
	query := fmt.Sprintf(`
		INSERT INTO %s AS p (id, block_number, tx_index, log_index, event_id, events_processed, indexed_at)
		VALUES (1, $1, $2, $3, $4, 1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			block_number = EXCLUDED.block_number,
			tx_index = EXCLUDED.tx_index,
			log_index = EXCLUDED.log_index,
			event_id = EXCLUDED.event_id,
			events_processed = p.events_processed + 1,
			indexed_at = EXCLUDED.indexed_at
	`, s.SchemaTable("index_progress"))

	batch.Queue(query,
		int64(cs.Position.BlockNumber), int32(cs.Position.TransactionIndex), int32(cs.Position.LogIndex), cs.EventID)
}
