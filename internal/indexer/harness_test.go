package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/canopy-network/course-indexer/pkg/blob"
	"github.com/canopy-network/course-indexer/pkg/db/memory"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/canopy-network/course-indexer/pkg/numeric"
	"github.com/stretchr/testify/require"
)

const (
	creator  = "0x1111111111111111111111111111111111111111"
	alice    = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	bob      = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	carol    = "0xcccccccccccccccccccccccccccccccccccccccc"
	operator = "0x9999999999999999999999999999999999999999"

	startTime = int64(1_700_000_000)
	month     = int64(30 * 24 * 3600)
)

// harness feeds events to an indexer over an in-memory store. Each event lands
// in its own block, twelve seconds after the previous one.
type harness struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	idx   *Indexer
	block uint64
	seq   uint64
	ts    int64
}

func newHarness(t *testing.T) *harness {
	store := memory.New()
	return &harness{
		t:     t,
		ctx:   context.Background(),
		store: store,
		idx:   New(store),
		block: 100,
		ts:    startTime,
	}
}

// event builds the next event without indexing it.
func (h *harness) event(p blob.Payload) *blob.Event {
	h.t.Helper()
	h.block++
	h.ts += 12
	return h.eventAt(h.block, p)
}

func (h *harness) eventAt(block uint64, p blob.Payload) *blob.Event {
	h.t.Helper()
	h.seq++

	raw, err := json.Marshal(p)
	require.NoError(h.t, err)

	ev, err := blob.FromEnvelope(&blob.Envelope{
		Kind:            p.Kind(),
		BlockNumber:     block,
		BlockTimestamp:  h.ts,
		TransactionHash: fmt.Sprintf("0x%064x", h.seq),
		LogIndex:        0,
		From:            operator,
		Payload:         raw,
	})
	require.NoError(h.t, err)
	return ev
}

// emit builds and indexes the next event.
func (h *harness) emit(p blob.Payload) *blob.Event {
	h.t.Helper()
	ev := h.event(p)
	require.NoError(h.t, h.idx.IndexEvent(h.ctx, ev))
	return ev
}

// later moves the clock forward without emitting.
func (h *harness) later(seconds int64) {
	h.ts += seconds
}

func load[T any](h *harness, coll, id string) *T {
	h.t.Helper()
	raw, err := h.store.Get(h.ctx, coll, id)
	require.NoError(h.t, err, "%s/%s", coll, id)
	v := new(T)
	require.NoError(h.t, json.Unmarshal(raw, v))
	return v
}

func (h *harness) course(id uint64) *models.Course {
	return load[models.Course](h, models.CoursesCollection, ident.CourseID(id))
}

func (h *harness) enrollment(student string, course uint64) *models.Enrollment {
	return load[models.Enrollment](h, models.EnrollmentsCollection, ident.EnrollmentID(student, course))
}

func (h *harness) profile(addr string) *models.UserProfile {
	return load[models.UserProfile](h, models.UserProfilesCollection, addr)
}

func (h *harness) network() *models.NetworkStats {
	return load[models.NetworkStats](h, models.NetworkStatsCollection, ident.NetworkStatsID)
}

func (h *harness) platform() *models.PlatformStats {
	return load[models.PlatformStats](h, models.PlatformStatsCollection, ident.PlatformStatsID)
}

func wei(n int64) numeric.BigInt {
	return numeric.NewBigInt(n)
}

func courseCreated(id uint64, price int64) *blob.CourseCreated {
	return &blob.CourseCreated{
		CourseID:      id,
		Creator:       creator,
		CreatorName:   "Ada",
		Title:         fmt.Sprintf("Course %d", id),
		Description:   "desc",
		ThumbnailCID:  "bafythumb",
		PricePerMonth: wei(price),
		Category:      5,
		Difficulty:    1,
	}
}

func sectionAdded(course, section uint64) *blob.SectionAdded {
	return &blob.SectionAdded{
		CourseID:   course,
		SectionID:  section,
		Title:      fmt.Sprintf("Section %d", section),
		ContentCID: "bafysection",
		Duration:   600,
	}
}

func (h *harness) licenseMinted(student string, course uint64, price int64) *blob.LicenseMinted {
	return &blob.LicenseMinted{
		CourseID:        course,
		Student:         student,
		TokenID:         course,
		DurationMonths:  1,
		ExpiryTimestamp: h.ts + month,
		PricePaid:       wei(price),
	}
}

func (h *harness) licenseRenewed(student string, course uint64, price int64) *blob.LicenseRenewed {
	return &blob.LicenseRenewed{
		CourseID:        course,
		Student:         student,
		TokenID:         course,
		DurationMonths:  1,
		ExpiryTimestamp: h.ts + 2*month,
		PricePaid:       wei(price),
	}
}
