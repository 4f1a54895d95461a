package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/canopy-network/course-indexer/pkg/blob"
	"github.com/canopy-network/course-indexer/pkg/db"
)

// Indexer applies contract events to the entity store, one at a time and in
// source order. It is not safe for concurrent use: callers feed it from a
// single goroutine.
type Indexer struct {
	store db.Store
}

// New creates an Indexer over store.
func New(store db.Store) *Indexer {
	return &Indexer{store: store}
}

// Store returns the underlying entity store.
func (idx *Indexer) Store() db.Store {
	return idx.store
}

// IndexRaw decodes one wire envelope and indexes it.
func (idx *Indexer) IndexRaw(ctx context.Context, data []byte) error {
	ev, err := blob.Decode(data)
	if err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return idx.IndexEvent(ctx, ev)
}

// IndexEvent applies one decoded event atomically. A replayed event id is a
// no-op. An unprocessed event at or before the cursor is ErrOutOfOrder.
func (idx *Indexer) IndexEvent(ctx context.Context, ev *blob.Event) error {
	start := time.Now()

	if ev == nil || ev.Payload == nil {
		return fmt.Errorf("%w: empty event", ErrMalformedEvent)
	}

	done, err := idx.store.Processed(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("check processed: %w", err)
	}
	if done {
		slog.Debug("skipping replayed event", "event_id", ev.ID, "kind", ev.Kind)
		return nil
	}

	progress, err := idx.store.Progress(ctx)
	if err != nil {
		return fmt.Errorf("read cursor: %w", err)
	}
	if progress.HasCursor && !ev.Position.After(progress.Cursor) {
		return fmt.Errorf("%w: %s at %s, cursor %s (%s)",
			ErrOutOfOrder, ev.ID, ev.Position, progress.Cursor, progress.LastEventID)
	}

	s := newSession(ctx, idx.store, ev)
	if !ev.Ignored() {
		if err := idx.apply(s, ev); err != nil {
			return fmt.Errorf("%s %s: %w", ev.Kind, ev.ID, err)
		}
	}

	if err := idx.commit(s); err != nil {
		return fmt.Errorf("commit %s: %w", ev.ID, err)
	}

	slog.Debug("indexed event",
		"event_id", ev.ID,
		"kind", ev.Kind,
		"block", ev.Position.BlockNumber,
		"ignored", ev.Ignored(),
		"duration", time.Since(start),
	)
	return nil
}

// apply runs the shared counters and the kind's handler inside the session.
func (idx *Indexer) apply(s *session, ev *blob.Event) error {
	agg, err := loadAggregates(s)
	if err != nil {
		return err
	}
	agg.countEvent(ev)
	if err := dispatch(s, agg, ev.Payload); err != nil {
		return err
	}
	agg.save(s)
	return nil
}
