package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/canopy-network/course-indexer/internal/indexer"
	"github.com/canopy-network/course-indexer/internal/query"
	"github.com/canopy-network/course-indexer/internal/worker"
	"github.com/canopy-network/course-indexer/pkg/db/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	creator = "0x1111111111111111111111111111111111111111"
	alice   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	token   = "secret"
)

type fakeQueue struct {
	stats worker.QueueStats
	err   error
}

func (f fakeQueue) QueueStats(context.Context) (worker.QueueStats, error) {
	return f.stats, f.err
}

var seedEvents = []string{
	`{"kind":"CourseCreated","payload":{"courseId":1,"creator":"` + creator + `","creatorName":"Ada","title":"Go 101","description":"learn go","thumbnailCID":"bafy1","pricePerMonth":"1000","category":0,"difficulty":0}}`,
	`{"kind":"SectionAdded","payload":{"courseId":1,"sectionId":0,"title":"Basics","contentCID":"bafy2","duration":60}}`,
	`{"kind":"SectionAdded","payload":{"courseId":1,"sectionId":1,"title":"Channels","contentCID":"bafy3","duration":90}}`,
	`{"kind":"LicenseMinted","payload":{"courseId":1,"student":"` + alice + `","tokenId":1,"durationMonths":1,"expiryTimestamp":1800000000,"pricePaid":"1000"}}`,
}

func newTestRouter(t *testing.T, queue QueueInspector) http.Handler {
	t.Helper()
	store := memory.New()
	idx := indexer.New(store)
	ctx := context.Background()
	for i, raw := range seedEvents {
		// Splice the envelope position into each seed event.
		pos := fmt.Sprintf(`{"blockNumber":%d,"blockTimestamp":%d,"transactionHash":"0x%064x","logIndex":0,"from":"%s",`,
			10+i, 1_700_000_000+12*i, i+1, creator)
		require.NoError(t, idx.IndexRaw(ctx, []byte(pos+raw[1:])))
	}
	return NewHandler(store, query.New(store, 50), queue, zap.NewNop(), token).NewRouter()
}

func do(t *testing.T, router http.Handler, method, path, body string, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthAndRequestID(t *testing.T) {
	router := newTestRouter(t, nil)

	rec, body := do(t, router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec, _ = do(t, router, http.MethodGet, "/api/health", "", requestIDHeader, "abc")
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))
}

func TestStatus(t *testing.T) {
	rec, body := do(t, newTestRouter(t, nil), http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["hasCursor"])
	assert.EqualValues(t, 4, body["eventsProcessed"])
	assert.Equal(t, "v1", body["schemaVersion"])
	cursor := body["cursor"].(map[string]any)
	assert.EqualValues(t, 13, cursor["blockNumber"])
	assert.Equal(t, fmt.Sprintf("0x%064x", 4), body["lastTransactionHash"])
	assert.EqualValues(t, 0, body["lastLogIndex"])
}

func TestGetEntity(t *testing.T) {
	router := newTestRouter(t, nil)

	rec, body := do(t, router, http.MethodGet, "/api/v1/courses/1?include=sections,creatorProfile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Go 101", body["title"])
	assert.Equal(t, "1000", body["pricePerMonth"])
	assert.Len(t, body["sections"], 2)
	assert.Equal(t, creator, body["creatorProfile"].(map[string]any)["id"])

	rec, _ = do(t, router, http.MethodGet, "/api/v1/courses/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/api/v1/widgets/1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, router, http.MethodGet, "/api/v1/userProfiles/"+strings.ToUpper(alice), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice, body["id"])
}

func TestListEntities(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name  string
		path  string
		total float64
	}{
		{"all", "/api/v1/courseSections", 2},
		{"equality", "/api/v1/courseSections?course=1&title=Channels", 1},
		{"address is normalized", "/api/v1/courses?creator=0X" + strings.ToUpper(creator[2:]), 1},
		{"numeric operator", "/api/v1/courseSections?duration.gt=60", 1},
		{"in operator", "/api/v1/courseSections?id.in=1-0,1-1,9-9", 2},
		{"bool value", "/api/v1/courses?isDeleted=true", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, router, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code, body)
			assert.Equal(t, tt.total, body["total"])
		})
	}

	rec, body := do(t, router, http.MethodGet, "/api/v1/courseSections?orderBy=duration&orderDirection=desc&first=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Channels", items[0].(map[string]any)["title"])

	rec, _ = do(t, router, http.MethodGet, "/api/v1/courses?first=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/api/v1/courses?color=red", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostQuery(t *testing.T) {
	router := newTestRouter(t, nil)

	rec, body := do(t, router, http.MethodPost, "/api/v1/query",
		`{"collection":"enrollments","where":[{"field":"student","op":"eq","value":"`+alice+`"}],"include":["course"]}`)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.EqualValues(t, 1, body["total"])
	item := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "Go 101", item["course"].(map[string]any)["title"])

	rec, body = do(t, router, http.MethodPost, "/api/v1/query",
		`{"collection":"courses","where":[{"field":"pricePerMonth","op":"gte","value":1000}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])

	rec, body = do(t, router, http.MethodPost, "/api/v1/query",
		`{"collection":"courses","where":[{"field":"pricePerMonth","op":"gt","value":1000}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["total"])

	mixedCase := "0x" + strings.ToUpper(alice[2:])
	for _, where := range []string{
		`{"field":"student","op":"eq","value":"` + mixedCase + `"}`,
		`{"field":"student","op":"in","value":["0xdead","` + mixedCase + `"]}`,
	} {
		rec, body = do(t, router, http.MethodPost, "/api/v1/query", `{"collection":"enrollments","where":[`+where+`]}`)
		require.Equal(t, http.StatusOK, rec.Code, body)
		assert.EqualValues(t, 1, body["total"], where)
	}

	rec, _ = do(t, router, http.MethodPost, "/api/v1/query", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/v1/query", `{"collection":"courses","include":["nope"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchemaAndAuditGaps(t *testing.T) {
	router := newTestRouter(t, nil)

	rec, body := do(t, router, http.MethodGet, "/api/v1/schema", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", body["version"])
	assert.NotEmpty(t, body["collections"])

	rec, _ = do(t, router, http.MethodGet, "/api/v1/audit-gaps", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var gaps []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gaps))
	assert.NotEmpty(t, gaps)
	assert.Equal(t, "maxSectionsPerCourse", gaps[0]["parameter"])
}

func TestAdminQueue(t *testing.T) {
	router := newTestRouter(t, fakeQueue{stats: worker.QueueStats{StreamLength: 7, Pending: 2, Consumers: 1}})

	rec, _ := do(t, router, http.MethodGet, "/api/v1/admin/queue", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/api/v1/admin/queue", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := do(t, router, http.MethodGet, "/api/v1/admin/queue", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, body["streamLength"])
	assert.EqualValues(t, 2, body["pending"])

	router = newTestRouter(t, fakeQueue{err: errors.New("redis down")})
	rec, _ = do(t, router, http.MethodGet, "/api/v1/admin/queue", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	router = newTestRouter(t, nil)
	rec, _ = do(t, router, http.MethodGet, "/api/v1/admin/queue", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
