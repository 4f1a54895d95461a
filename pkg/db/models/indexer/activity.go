package indexer

import "time"

const ActivityEventsCollection = "activityEvents"

// ActivityType classifies a timeline entry.
type ActivityType string

const (
	ActivityCourseCreated      ActivityType = "COURSE_CREATED"
	ActivityCourseUpdated      ActivityType = "COURSE_UPDATED"
	ActivityCourseDeleted      ActivityType = "COURSE_DELETED"
	ActivityCourseDeactivated  ActivityType = "COURSE_EMERGENCY_DEACTIVATED"
	ActivitySectionAdded       ActivityType = "SECTION_ADDED"
	ActivitySectionUpdated     ActivityType = "SECTION_UPDATED"
	ActivitySectionDeleted     ActivityType = "SECTION_DELETED"
	ActivitySectionMoved       ActivityType = "SECTION_MOVED"
	ActivityCourseRated        ActivityType = "COURSE_RATED"
	ActivityRatingUpdated      ActivityType = "RATING_UPDATED"
	ActivityRatingDeleted      ActivityType = "RATING_DELETED"
	ActivityLicenseMinted      ActivityType = "LICENSE_MINTED"
	ActivityLicenseRenewed     ActivityType = "LICENSE_RENEWED"
	ActivityLicenseExpired     ActivityType = "LICENSE_EXPIRED"
	ActivitySectionStarted     ActivityType = "SECTION_STARTED"
	ActivitySectionCompleted   ActivityType = "SECTION_COMPLETED"
	ActivityCourseCompleted    ActivityType = "COURSE_COMPLETED"
	ActivityProgressReset      ActivityType = "PROGRESS_RESET"
	ActivityCertificateMinted  ActivityType = "CERTIFICATE_MINTED"
	ActivityCertificateCourse  ActivityType = "CERTIFICATE_COURSE_ADDED"
	ActivityCertificateUpdated ActivityType = "CERTIFICATE_UPDATED"
	ActivityCertificateRevoked ActivityType = "CERTIFICATE_REVOKED"
	ActivityAdminConfigChanged ActivityType = "ADMIN_CONFIG_CHANGED"
)

// ActivityEvent is an immutable timeline entry keyed by the event id.
// Corrections are new entries; an entry is never rewritten.
type ActivityEvent struct {
	ID              string            `json:"id"`
	Type            ActivityType      `json:"type"`
	User            string            `json:"user"`
	Course          string            `json:"course,omitempty"`
	Enrollment      string            `json:"enrollment,omitempty"`
	Certificate     string            `json:"certificate,omitempty"`
	Description     string            `json:"description"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Timestamp       int64             `json:"timestamp"`
	BlockNumber     uint64            `json:"blockNumber"`
	TransactionHash string            `json:"transactionHash"`
	LogIndex        uint32            `json:"logIndex"`
}

// NewActivityEvent returns an entry stamped with the event time.
func NewActivityEvent(id string, at time.Time) *ActivityEvent {
	return &ActivityEvent{ID: id, Timestamp: at.Unix()}
}
