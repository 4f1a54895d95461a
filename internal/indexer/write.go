package indexer

import (
	"log/slog"
	"time"
)

// commit hands the session's writes to the store as one changeset.
// The store applies all of it or none of it.
func (idx *Indexer) commit(s *session) error {
	start := time.Now()

	cs, err := s.changeset()
	if err != nil {
		return err
	}

	slog.Debug("store commit: BEGIN", "event_id", cs.EventID, "documents", len(cs.Docs))

	if err := idx.store.Apply(s.ctx, cs); err != nil {
		slog.Error("store commit: ROLLBACK", "event_id", cs.EventID, "duration", time.Since(start), "err", err)
		return err
	}

	slog.Debug("store commit: COMMIT", "event_id", cs.EventID, "duration", time.Since(start))
	return nil
}
