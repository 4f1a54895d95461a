package query

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/canopy-network/course-indexer/pkg/db"
	"github.com/canopy-network/course-indexer/pkg/db/memory"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *memory.Store {
	t.Helper()
	docs := []db.Document{
		{Collection: models.CoursesCollection, ID: "1", Body: json.RawMessage(`{"id":"1","creator":"0xaa","title":"Intro to Go","isDeleted":false,"totalRevenue":"100","totalEnrollments":3}`)},
		{Collection: models.CoursesCollection, ID: "2", Body: json.RawMessage(`{"id":"2","creator":"0xaa","title":"Advanced Rust","isDeleted":false,"totalRevenue":"20","totalEnrollments":1}`)},
		{Collection: models.CoursesCollection, ID: "10", Body: json.RawMessage(`{"id":"10","creator":"0xbb","title":"go concurrency","isDeleted":true,"totalRevenue":"3","totalEnrollments":0}`)},
		{Collection: models.CourseSectionsCollection, ID: "1-0", Body: json.RawMessage(`{"id":"1-0","course":"1","orderIndex":0}`)},
		{Collection: models.CourseSectionsCollection, ID: "1-1", Body: json.RawMessage(`{"id":"1-1","course":"1","orderIndex":1}`)},
		{Collection: models.CourseSectionsCollection, ID: "2-0", Body: json.RawMessage(`{"id":"2-0","course":"2","orderIndex":0}`)},
		{Collection: models.UserProfilesCollection, ID: "0xaa", Body: json.RawMessage(`{"id":"0xaa","coursesCreated":2}`)},
	}
	s := memory.New()
	require.NoError(t, s.Apply(context.Background(), &db.Changeset{
		EventID:  "0x01-0",
		Position: ident.Position{BlockNumber: 1},
		Docs:     docs,
	}))
	return s
}

func ids(items []map[string]any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item["id"].(string))
	}
	return out
}

func TestRunFilters(t *testing.T) {
	e := New(seed(t), 50)
	ctx := context.Background()

	tests := []struct {
		name  string
		where []Condition
		want  []string
	}{
		{"no conditions orders ids numerically", nil, []string{"1", "2", "10"}},
		{"bool equality", []Condition{{Field: "isDeleted", Op: OpEq, Value: false}}, []string{"1", "2"}},
		{"string equality", []Condition{{Field: "creator", Op: OpEq, Value: "0xbb"}}, []string{"10"}},
		{"numeric strings compare as numbers", []Condition{{Field: "totalRevenue", Op: OpGt, Value: "10"}}, []string{"1", "2"}},
		{"numbers compare with numbers", []Condition{{Field: "totalEnrollments", Op: OpGte, Value: 1}}, []string{"1", "2"}},
		{"lte", []Condition{{Field: "totalRevenue", Op: OpLte, Value: 20.0}}, []string{"2", "10"}},
		{"neq", []Condition{{Field: "creator", Op: OpNeq, Value: "0xaa"}}, []string{"10"}},
		{"in", []Condition{{Field: "id", Op: OpIn, Value: []any{"2", "10", "99"}}}, []string{"2", "10"}},
		{"contains ignores case", []Condition{{Field: "title", Op: OpContains, Value: "GO"}}, []string{"1", "10"}},
		{"conditions combine", []Condition{
			{Field: "title", Op: OpContains, Value: "go"},
			{Field: "isDeleted", Op: OpEq, Value: false},
		}, []string{"1"}},
		{"kind mismatch never matches", []Condition{{Field: "title", Op: OpGt, Value: 5}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Run(ctx, Query{Collection: models.CoursesCollection, Where: tt.where})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(res.Items))
			assert.Equal(t, len(tt.want), res.Total)
		})
	}
}

func TestRunOrderingAndPaging(t *testing.T) {
	e := New(seed(t), 2)
	ctx := context.Background()

	res, err := e.Run(ctx, Query{Collection: models.CoursesCollection, OrderBy: "totalRevenue", OrderDirection: OrderDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(res.Items))
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.First)
	assert.Equal(t, models.SchemaVersion, res.SchemaVersion)

	res, err = e.Run(ctx, Query{Collection: models.CoursesCollection, OrderBy: "totalRevenue", First: 1, Skip: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(res.Items))

	res, err = e.Run(ctx, Query{Collection: models.CoursesCollection, First: 100})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	res, err = e.Run(ctx, Query{Collection: models.CoursesCollection, Skip: 7})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 3, res.Total)

	res, err = e.Run(ctx, Query{Collection: models.CoursesCollection, OrderBy: "creator"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(res.Items))
}

func TestRunIncludes(t *testing.T) {
	e := New(seed(t), 0)
	ctx := context.Background()

	res, err := e.Run(ctx, Query{
		Collection: models.CoursesCollection,
		Include:    []string{"sections", "creatorProfile"},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)

	first := res.Items[0]
	sections, ok := first["sections"].([]map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{"1-0", "1-1"}, ids(sections))
	profile, ok := first["creatorProfile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0xaa", profile["id"])

	last := res.Items[2]
	assert.Empty(t, last["sections"])
	assert.Nil(t, last["creatorProfile"])

	section, err := e.Get(ctx, models.CourseSectionsCollection, "2-0", []string{"course"})
	require.NoError(t, err)
	course, ok := section["course"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Advanced Rust", course["title"])
}

func TestGet(t *testing.T) {
	e := New(seed(t), 0)
	ctx := context.Background()

	item, err := e.Get(ctx, models.CoursesCollection, "1", nil)
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", item["title"])

	_, err = e.Get(ctx, models.CoursesCollection, "404", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.Get(ctx, "nope", "1", nil)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = e.Get(ctx, models.CoursesCollection, "1", []string{"nope"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestRunRejectsInvalid(t *testing.T) {
	e := New(seed(t), 0)
	ctx := context.Background()

	tests := []struct {
		name string
		q    Query
	}{
		{"missing collection", Query{}},
		{"unknown collection", Query{Collection: "widgets"}},
		{"unknown field", Query{Collection: models.CoursesCollection, Where: []Condition{{Field: "color", Op: OpEq, Value: "red"}}}},
		{"unknown op", Query{Collection: models.CoursesCollection, Where: []Condition{{Field: "title", Op: "like", Value: "x"}}}},
		{"in needs a list", Query{Collection: models.CoursesCollection, Where: []Condition{{Field: "id", Op: OpIn, Value: "1"}}}},
		{"unknown order field", Query{Collection: models.CoursesCollection, OrderBy: "color"}},
		{"bad direction", Query{Collection: models.CoursesCollection, OrderDirection: "up"}},
		{"negative skip", Query{Collection: models.CoursesCollection, Skip: -1}},
		{"unknown include", Query{Collection: models.CoursesCollection, Include: []string{"students"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Run(ctx, tt.q)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, compareValues("9", "10"))
	assert.Equal(t, 1, compareValues("0xb", "0xa"))
	assert.Equal(t, -1, compareValues(false, true))
	assert.Equal(t, -1, compareValues(nil, "a"))
	assert.Equal(t, 0, compareValues("1.50", 1.5))
	assert.Equal(t, -1, compareValues("2024-01-05", "2024-01-06"))
}
