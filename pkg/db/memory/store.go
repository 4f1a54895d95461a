// Package memory is an in-process db.Store used by tests, backfill dry runs and
// deployments without Postgres.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/canopy-network/course-indexer/pkg/db"
)

// Store keeps documents in maps guarded by a RWMutex. Apply validates the whole
// changeset before writing under the write lock, so readers never see half of it.
type Store struct {
	mu        sync.RWMutex
	docs      map[string]map[string]json.RawMessage
	processed map[string]struct{}
	progress  db.Progress
}

// New returns an empty store.
func New() *Store {
	return &Store{
		docs:      make(map[string]map[string]json.RawMessage),
		processed: make(map[string]struct{}),
	}
}

var _ db.Store = (*Store)(nil)

func (s *Store) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.docs[collection][id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return body, nil
}

func (s *Store) List(_ context.Context, collection string, filter db.Filter) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll := s.docs[collection]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		if db.Matches(coll[id], filter) {
			out = append(out, coll[id])
		}
	}
	return out, nil
}

func (s *Store) Processed(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.processed[eventID]
	return ok, nil
}

func (s *Store) Progress(_ context.Context) (db.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress, nil
}

func (s *Store) Apply(_ context.Context, cs *db.Changeset) error {
	if cs == nil || cs.EventID == "" {
		return fmt.Errorf("changeset without event id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.processed[cs.EventID]; ok {
		return fmt.Errorf("event %s already applied", cs.EventID)
	}

	for _, d := range cs.Docs {
		if d.Collection == "" || d.ID == "" || !json.Valid(d.Body) {
			return fmt.Errorf("invalid document %s/%s in event %s", d.Collection, d.ID, cs.EventID)
		}
	}

	for _, d := range cs.Docs {
		coll, ok := s.docs[d.Collection]
		if !ok {
			coll = make(map[string]json.RawMessage)
			s.docs[d.Collection] = coll
		}
		coll[d.ID] = append(json.RawMessage(nil), d.Body...)
	}
	s.processed[cs.EventID] = struct{}{}
	s.progress = db.Progress{
		Cursor:          cs.Position,
		HasCursor:       true,
		LastEventID:     cs.EventID,
		EventsProcessed: s.progress.EventsProcessed + 1,
		UpdatedAt:       time.Now().UTC(),
	}
	return nil
}

// Snapshot returns a deep copy of every document, keyed by collection then id.
// Two stores fed the same event log produce equal snapshots.
func (s *Store) Snapshot() map[string]map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]string, len(s.docs))
	for name, coll := range s.docs {
		c := make(map[string]string, len(coll))
		for id, body := range coll {
			c[id] = string(body)
		}
		out[name] = c
	}
	return out
}
