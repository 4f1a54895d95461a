package store

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/canopy-network/course-indexer/pkg/db"
	"github.com/canopy-network/course-indexer/pkg/db/postgres"
	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestDB opens a throwaway schema on TEST_POSTGRES_URL.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	s, err := New(ctx, zap.NewNop(), url, schema, postgres.DefaultPoolConfig("test"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Exec(context.Background(), "DROP SCHEMA "+s.Schema+" CASCADE")
		s.Close()
	})
	return s
}

func doc(coll, id, body string) db.Document {
	return db.Document{Collection: coll, ID: id, Body: json.RawMessage(body)}
}

func TestApplyAndRead(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	progress, err := s.Progress(ctx)
	require.NoError(t, err)
	assert.False(t, progress.HasCursor)

	require.NoError(t, s.Apply(ctx, &db.Changeset{
		EventID:  "0xaa-0",
		Kind:     "CourseCreated",
		Position: ident.Position{BlockNumber: 10, TransactionIndex: 1, LogIndex: 2},
		Docs: []db.Document{
			doc("courses", "2", `{"id":"2","creator":"0xb","isDeleted":false}`),
			doc("courses", "1", `{"id":"1","creator":"0xa","isDeleted":true}`),
		},
	}))

	body, err := s.Get(ctx, "courses", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","creator":"0xa","isDeleted":true}`, string(body))

	_, err = s.Get(ctx, "courses", "3")
	assert.ErrorIs(t, err, db.ErrNotFound)

	all, err := s.List(ctx, "courses", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.JSONEq(t, `{"id":"1","creator":"0xa","isDeleted":true}`, string(all[0]))

	live, err := s.List(ctx, "courses", db.Filter{"isDeleted": false})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Contains(t, string(live[0]), `"0xb"`)

	done, err := s.Processed(ctx, "0xaa-0")
	require.NoError(t, err)
	assert.True(t, done)

	progress, err = s.Progress(ctx)
	require.NoError(t, err)
	assert.True(t, progress.HasCursor)
	assert.Equal(t, ident.Position{BlockNumber: 10, TransactionIndex: 1, LogIndex: 2}, progress.Cursor)
	assert.Equal(t, int64(1), progress.EventsProcessed)
}

func TestApplyIsAtomic(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	cs := &db.Changeset{
		EventID:  "0xbb-0",
		Position: ident.Position{BlockNumber: 1},
		Docs:     []db.Document{doc("courses", "1", `{"id":"1","title":"first"}`)},
	}
	require.NoError(t, s.Apply(ctx, cs))

	// A replayed event id aborts the whole transaction.
	cs.Docs = []db.Document{doc("courses", "1", `{"id":"1","title":"second"}`)}
	require.Error(t, s.Apply(ctx, cs))

	// An invalid document rolls back the marker and cursor too.
	err := s.Apply(ctx, &db.Changeset{
		EventID:  "0xcc-0",
		Position: ident.Position{BlockNumber: 2},
		Docs: []db.Document{
			doc("courses", "2", `{"id":"2"}`),
			doc("courses", "3", `{not json`),
		},
	})
	require.Error(t, err)

	body, err := s.Get(ctx, "courses", "1")
	require.NoError(t, err)
	assert.Contains(t, string(body), "first")

	_, err = s.Get(ctx, "courses", "2")
	assert.ErrorIs(t, err, db.ErrNotFound)

	done, err := s.Processed(ctx, "0xcc-0")
	require.NoError(t, err)
	assert.False(t, done)

	progress, err := s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), progress.Cursor.BlockNumber)
	assert.Equal(t, int64(1), progress.EventsProcessed)
}
