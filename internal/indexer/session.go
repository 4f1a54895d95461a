package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/canopy-network/course-indexer/pkg/blob"
	"github.com/canopy-network/course-indexer/pkg/db"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
)

// session is the unit of work of one event. Loaded entities are cached so every
// handler sees the same instance, and nothing reaches the store until commit.
type session struct {
	ctx     context.Context
	store   db.Store
	ev      *blob.Event
	entries map[string]*entry
	dirty   []*entry
}

type entry struct {
	coll  string
	id    string
	val   any
	dirty bool
}

func newSession(ctx context.Context, store db.Store, ev *blob.Event) *session {
	return &session{
		ctx:     ctx,
		store:   store,
		ev:      ev,
		entries: make(map[string]*entry),
	}
}

func entryKey(coll, id string) string {
	return coll + "\x00" + id
}

func (s *session) markDirty(e *entry) {
	if !e.dirty {
		e.dirty = true
		s.dirty = append(s.dirty, e)
	}
}

// changeset renders every saved entity in first-save order.
func (s *session) changeset() (*db.Changeset, error) {
	cs := &db.Changeset{
		EventID:  s.ev.ID,
		Kind:     string(s.ev.Kind),
		Position: s.ev.Position,
		Docs:     make([]db.Document, 0, len(s.dirty)),
	}
	for _, e := range s.dirty {
		body, err := json.Marshal(e.val)
		if err != nil {
			return nil, fmt.Errorf("encode %s/%s: %w", e.coll, e.id, err)
		}
		cs.Docs = append(cs.Docs, db.Document{Collection: e.coll, ID: e.id, Body: body})
	}
	return cs, nil
}

// table is typed access to one collection within a session.
type table[T any] struct {
	s      *session
	coll   string
	create func(id string, at time.Time) *T
}

// load returns the entity or nil when it does not exist.
func (t table[T]) load(id string) (*T, error) {
	key := entryKey(t.coll, id)
	if e, ok := t.s.entries[key]; ok {
		return e.val.(*T), nil
	}

	raw, err := t.s.store.Get(t.s.ctx, t.coll, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", t.coll, id, err)
	}

	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrCorruptState, t.coll, id, err)
	}
	t.s.entries[key] = &entry{coll: t.coll, id: id, val: v}
	return v, nil
}

// loadOrCreate returns the entity, creating it zero-initialized at the event
// time when absent. A created entity is persisted even if never saved again.
func (t table[T]) loadOrCreate(id string) (*T, bool, error) {
	v, err := t.load(id)
	if err != nil || v != nil {
		return v, false, err
	}
	v = t.create(id, t.s.ev.Timestamp)
	e := &entry{coll: t.coll, id: id, val: v}
	t.s.entries[entryKey(t.coll, id)] = e
	t.s.markDirty(e)
	return v, true, nil
}

// save schedules v for commit under id.
func (t table[T]) save(id string, v *T) {
	key := entryKey(t.coll, id)
	e, ok := t.s.entries[key]
	if !ok {
		e = &entry{coll: t.coll, id: id, val: v}
		t.s.entries[key] = e
	}
	e.val = v
	t.s.markDirty(e)
}

// list returns the entities matching filter, ordered by id, including writes
// made earlier in this session.
func (t table[T]) list(filter db.Filter) ([]*T, error) {
	raws, err := t.s.store.List(t.s.ctx, t.coll, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.coll, err)
	}

	byID := make(map[string]*T, len(raws))
	for _, raw := range raws {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, t.coll, err)
		}
		v, err := t.load(head.ID)
		if err != nil {
			return nil, err
		}
		byID[head.ID] = v
	}

	// Pending writes may enter or leave the filter.
	for _, e := range t.s.dirty {
		if e.coll != t.coll {
			continue
		}
		body, err := json.Marshal(e.val)
		if err != nil {
			return nil, fmt.Errorf("encode %s/%s: %w", e.coll, e.id, err)
		}
		if db.Matches(body, filter) {
			byID[e.id] = e.val.(*T)
		} else {
			delete(byID, e.id)
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, nil
}

func (s *session) courses() table[models.Course] {
	return table[models.Course]{s, models.CoursesCollection, models.NewCourse}
}

func (s *session) sections() table[models.CourseSection] {
	return table[models.CourseSection]{s, models.CourseSectionsCollection, models.NewCourseSection}
}

func (s *session) ratings() table[models.CourseRating] {
	return table[models.CourseRating]{s, models.CourseRatingsCollection, models.NewCourseRating}
}

func (s *session) enrollments() table[models.Enrollment] {
	return table[models.Enrollment]{s, models.EnrollmentsCollection, models.NewEnrollment}
}

func (s *session) sectionCompletions() table[models.SectionCompletion] {
	return table[models.SectionCompletion]{s, models.SectionCompletionsCollection, models.NewSectionCompletion}
}

func (s *session) certificates() table[models.Certificate] {
	return table[models.Certificate]{s, models.CertificatesCollection, models.NewCertificate}
}

func (s *session) certificateCourses() table[models.CertificateCourse] {
	return table[models.CertificateCourse]{s, models.CertificateCoursesCollection, models.NewCertificateCourse}
}

func (s *session) profiles() table[models.UserProfile] {
	return table[models.UserProfile]{s, models.UserProfilesCollection, models.NewUserProfile}
}

func (s *session) activities() table[models.ActivityEvent] {
	return table[models.ActivityEvent]{s, models.ActivityEventsCollection, models.NewActivityEvent}
}

func (s *session) networkStats() table[models.NetworkStats] {
	return table[models.NetworkStats]{s, models.NetworkStatsCollection, models.NewNetworkStats}
}

func (s *session) platformStats() table[models.PlatformStats] {
	return table[models.PlatformStats]{s, models.PlatformStatsCollection, models.NewPlatformStats}
}

func (s *session) dailyStats() table[models.DailyNetworkStats] {
	return table[models.DailyNetworkStats]{s, models.DailyNetworkStatsCollection, models.NewDailyNetworkStats}
}

func (s *session) configStates() table[models.ContractConfigState] {
	return table[models.ContractConfigState]{s, models.ContractConfigStatesCollection, models.NewContractConfigState}
}

func (s *session) adminConfigEvents() table[models.AdminConfigEvent] {
	return table[models.AdminConfigEvent]{s, models.AdminConfigEventsCollection, models.NewAdminConfigEvent}
}
