package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/canopy-network/course-indexer/pkg/ident"
)

// ErrNotFound is returned by stores when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is one stored entity body.
type Document struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Body       json.RawMessage `json:"body"`
}

// Changeset holds every write produced by processing one event.
// A store applies it atomically: all documents, the processed marker and the cursor, or nothing.
type Changeset struct {
	EventID  string
	Kind     string
	Position ident.Position
	Docs     []Document
}

// Filter selects documents whose top-level fields equal the given values.
type Filter map[string]any

// Progress reports how far the store has been advanced.
type Progress struct {
	Cursor          ident.Position `json:"cursor"`
	HasCursor       bool           `json:"hasCursor"`
	LastEventID     string         `json:"lastEventId"`
	EventsProcessed int64          `json:"eventsProcessed"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Store persists the entity graph. Reads only ever observe applied changesets.
type Store interface {
	// Get returns the body of one document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	// List returns every document of a collection matching filter, ordered by id.
	List(ctx context.Context, collection string, filter Filter) ([]json.RawMessage, error)
	// Processed reports whether an event id has already been applied.
	Processed(ctx context.Context, eventID string) (bool, error)
	// Progress returns the current cursor.
	Progress(ctx context.Context) (Progress, error)
	// Apply commits a changeset atomically.
	Apply(ctx context.Context, cs *Changeset) error
}

// Matches reports whether a JSON object satisfies filter. Values compare by
// their JSON encoding, so 1 and "1" differ.
func Matches(body json.RawMessage, filter Filter) bool {
	if len(filter) == 0 {
		return true
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}
	for k, want := range filter {
		got, ok := fields[k]
		if !ok {
			return false
		}
		enc, err := json.Marshal(want)
		if err != nil {
			return false
		}
		if !bytes.Equal(compact(got), enc) {
			return false
		}
	}
	return true
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
