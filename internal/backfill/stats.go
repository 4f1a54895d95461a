package backfill

import (
	"context"
	"fmt"
)

// Stats compares the store cursor with the source head.
type Stats struct {
	HeadBlock       uint64 `json:"headBlock"`
	CursorBlock     uint64 `json:"cursorBlock"`
	BlocksBehind    uint64 `json:"blocksBehind"`
	EventsProcessed int64  `json:"eventsProcessed"`
	LastEventID     string `json:"lastEventId"`
}

// CheckHealth reports how far the store lags behind the source.
func (b *Backfiller) CheckHealth(ctx context.Context) (*Stats, error) {
	head, err := b.source.ChainHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain head: %w", err)
	}
	progress, err := b.indexer.Store().Progress(ctx)
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}

	stats := &Stats{
		HeadBlock:       head.BlockNumber,
		EventsProcessed: progress.EventsProcessed,
		LastEventID:     progress.LastEventID,
	}
	if progress.HasCursor {
		stats.CursorBlock = progress.Cursor.BlockNumber
	}
	if stats.HeadBlock > stats.CursorBlock {
		stats.BlocksBehind = stats.HeadBlock - stats.CursorBlock
	}
	return stats, nil
}
