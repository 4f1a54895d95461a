package indexer

import (
	"testing"

	"github.com/canopy-network/course-indexer/pkg/blob"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) certificate(token uint64) *models.Certificate {
	return load[models.Certificate](h, models.CertificatesCollection, ident.TokenID(token))
}

func (h *harness) certificateCourse(token, course uint64) *models.CertificateCourse {
	return load[models.CertificateCourse](h, models.CertificateCoursesCollection, ident.CertificateCourseID(ident.TokenID(token), course))
}

func TestCertificateFirstCourse(t *testing.T) {
	h := newHarness(t)
	h.emit(courseCreated(1, 10))
	h.emit(courseCreated(2, 10))
	h.emit(h.licenseMinted(alice, 1, 10))
	h.emit(&blob.CourseCompleted{Student: alice, CourseID: 1})

	h.emit(&blob.CertificateMinted{TokenID: 7, Owner: alice, RecipientName: "Alice", CourseID: 1, IpfsCID: "bafy1", PricePaid: wei(5)})
	first := h.certificateCourse(7, 1)
	assert.True(t, first.IsFirstCourse)
	assert.Equal(t, ident.EnrollmentID(alice, 1), first.Enrollment)
	assert.Equal(t, "7", h.enrollment(alice, 1).Certificate)

	h.emit(&blob.CourseAddedToCertificate{TokenID: 7, Owner: alice, CourseID: 2, IpfsCID: "bafy2", PricePaid: wei(3)})
	second := h.certificateCourse(7, 2)
	assert.False(t, second.IsFirstCourse)
	assert.Empty(t, second.Enrollment)

	cert := h.certificate(7)
	assert.Equal(t, int64(2), cert.TotalCourses)
	assert.True(t, cert.IsValid)
	assert.Equal(t, alice, cert.Recipient)
	assert.Equal(t, "bafy2", cert.IpfsCID)
	assert.Equal(t, "8", cert.TotalRevenue.String())

	p := h.profile(alice)
	assert.True(t, p.HasCertificate)
	assert.Equal(t, "7", p.Certificate)
	assert.Equal(t, int64(2), p.CertificateCourses)

	pl := h.platform()
	assert.Equal(t, int64(1), pl.TotalCertificates)
	assert.Equal(t, int64(2), pl.CertificateCourseAdditions)
	assert.Equal(t, "8", pl.CertificateRevenue.String())
	// 2% of the 10 wei license floors to 0; certificate payments are all platform fee.
	assert.Equal(t, "8", pl.PlatformFees.String())
	assert.Equal(t, "18", pl.TotalRevenue.String())
}

func TestCertificateCourseAttachedOnce(t *testing.T) {
	h := newHarness(t)
	h.emit(&blob.CertificateMinted{TokenID: 7, Owner: alice, RecipientName: "Alice", CourseID: 1, IpfsCID: "bafy1", PricePaid: wei(0)})
	h.emit(&blob.CourseAddedToCertificate{TokenID: 7, Owner: alice, CourseID: 1, IpfsCID: "bafy1", PricePaid: wei(0)})

	assert.Equal(t, int64(1), h.certificate(7).TotalCourses)
	assert.True(t, h.certificateCourse(7, 1).IsFirstCourse)
}

func TestCertificateRevokedAndUpdated(t *testing.T) {
	h := newHarness(t)
	h.emit(&blob.CertificateMinted{TokenID: 7, Owner: alice, RecipientName: "Alice", CourseID: 1, IpfsCID: "bafy1", PricePaid: wei(1)})
	h.emit(&blob.CertificateUpdated{TokenID: 7, IpfsCID: "bafy9", PricePaid: wei(4)})

	cert := h.certificate(7)
	assert.Equal(t, "bafy9", cert.IpfsCID)
	assert.Equal(t, "5", cert.TotalRevenue.String())

	ev := h.emit(&blob.CertificateRevoked{TokenID: 7, Reason: "fraud"})
	cert = h.certificate(7)
	assert.False(t, cert.IsValid)
	assert.Equal(t, "fraud", cert.RevocationReason)
	assert.Equal(t, ev.Timestamp.Unix(), cert.RevokedAt)
	assert.False(t, h.profile(alice).HasCertificate)
	assert.Equal(t, int64(1), h.platform().CertificatesRevoked)

	act := load[models.ActivityEvent](h, models.ActivityEventsCollection, ev.ID)
	require.Equal(t, models.ActivityCertificateRevoked, act.Type)
	assert.Equal(t, alice, act.User)
}
