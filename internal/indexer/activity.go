package indexer

import (
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
)

// activity describes the timeline entry of one event.
type activity struct {
	kind        models.ActivityType
	user        string
	course      string
	enrollment  string
	certificate string
	description string
	metadata    map[string]string
}

// record appends the immutable timeline entry of the current event, keyed by
// the event id. The actor's profile is created first when there is an actor.
func record(s *session, agg *aggregates, a activity) error {
	if a.user != "" {
		p, err := touchUser(s, agg, a.user)
		if err != nil {
			return err
		}
		p.TotalActivities++
	}

	existing, err := s.activities().load(s.ev.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		// Entries are never rewritten.
		return nil
	}

	e := models.NewActivityEvent(s.ev.ID, s.ev.Timestamp)
	e.Type = a.kind
	e.User = a.user
	e.Course = a.course
	e.Enrollment = a.enrollment
	e.Certificate = a.certificate
	e.Description = a.description
	e.Metadata = a.metadata
	e.BlockNumber = s.ev.Position.BlockNumber
	e.TransactionHash = s.ev.TxHash
	e.LogIndex = s.ev.Position.LogIndex
	s.activities().save(e.ID, e)
	return nil
}

// actorOr returns the first non-empty address.
func actorOr(addrs ...string) string {
	for _, a := range addrs {
		if a != "" {
			return a
		}
	}
	return ""
}
