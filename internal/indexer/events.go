package indexer

import (
	"fmt"

	"github.com/canopy-network/course-indexer/pkg/blob"
)

// dispatch routes a decoded payload to its handler. Every blob payload type has
// a case; a payload without one is an unknown kind and halts ingestion.
func dispatch(s *session, agg *aggregates, payload blob.Payload) error {
	switch p := payload.(type) {
	// CourseFactory
	case *blob.CourseCreated:
		return onCourseCreated(s, agg, p)
	case *blob.CourseUpdated:
		return onCourseUpdated(s, agg, p)
	case *blob.CourseDeleted:
		return onCourseDeleted(s, agg, p)
	case *blob.CourseEmergencyDeactivated:
		return onCourseEmergencyDeactivated(s, agg, p)
	case *blob.SectionAdded:
		return onSectionAdded(s, agg, p)
	case *blob.SectionUpdated:
		return onSectionUpdated(s, agg, p)
	case *blob.SectionDeleted:
		return onSectionDeleted(s, agg, p)
	case *blob.SectionMoved:
		return onSectionMoved(s, agg, p)
	case *blob.CourseRated:
		return onCourseRated(s, agg, p)
	case *blob.RatingUpdated:
		return onRatingUpdated(s, agg, p)
	case *blob.RatingDeleted:
		return onRatingDeleted(s, agg, p)

	// CourseLicense
	case *blob.LicenseMinted:
		return onLicenseMinted(s, agg, p)
	case *blob.LicenseRenewed:
		return onLicenseRenewed(s, agg, p)
	case *blob.LicenseExpired:
		return onLicenseExpired(s, agg, p)
	case *blob.PlatformFeeUpdated:
		return onPlatformFeeUpdated(s, agg, p)
	case *blob.PlatformWalletUpdated:
		return onPlatformWalletUpdated(s, agg, p)
	case *blob.BaseURIUpdated:
		return onBaseURIUpdated(s, agg, p)

	// ProgressTracker
	case *blob.SectionStarted:
		return onSectionStarted(s, agg, p)
	case *blob.SectionCompleted:
		return onSectionCompleted(s, agg, p)
	case *blob.CourseCompleted:
		return onCourseCompleted(s, agg, p)
	case *blob.ProgressReset:
		return onProgressReset(s, agg, p)

	// CertificateManager
	case *blob.CertificateMinted:
		return onCertificateMinted(s, agg, p)
	case *blob.CourseAddedToCertificate:
		return onCourseAddedToCertificate(s, agg, p)
	case *blob.CertificateUpdated:
		return onCertificateUpdated(s, agg, p)
	case *blob.CertificateRevoked:
		return onCertificateRevoked(s, agg, p)
	case *blob.CertificateFeeUpdated:
		return onCertificateFeeUpdated(s, agg, p)
	case *blob.DefaultBaseRouteUpdated:
		return onDefaultBaseRouteUpdated(s, agg, p)
	case *blob.PlatformNameUpdated:
		return onPlatformNameUpdated(s, agg, p)

	default:
		return fmt.Errorf("%w: no handler for %T", ErrUnknownKind, payload)
	}
}
