package indexer

import (
	"fmt"

	"github.com/canopy-network/course-indexer/pkg/blob"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/canopy-network/course-indexer/pkg/numeric"
)

// Certificate payments go wholly to the platform.
const certificateFeePercent = numeric.MaxFeePercent

func loadCertificate(s *session, tokenID uint64) (*models.Certificate, bool, error) {
	cert, created, err := s.certificates().loadOrCreate(ident.TokenID(tokenID))
	if err != nil {
		return nil, false, err
	}
	s.certificates().save(cert.ID, cert)
	return cert, created, nil
}

// bookCertificatePayment adds a certificate payment to the certificate and the platform.
func bookCertificatePayment(agg *aggregates, cert *models.Certificate, owner *models.UserProfile, amount numeric.BigInt) payment {
	pay := splitPayment(amount, certificateFeePercent)
	cert.TotalRevenue = cert.TotalRevenue.Add(amount)
	cert.TotalRevenueEth = numeric.ToEther(cert.TotalRevenue)

	agg.addRevenue(pay)
	agg.platform.CertificateRevenue = agg.platform.CertificateRevenue.Add(amount)
	agg.platform.CertificateRevenueEth = numeric.ToEther(agg.platform.CertificateRevenue)
	if owner != nil {
		addSpend(owner, amount)
	}
	return pay
}

// attachCourse links courseID to the certificate. The first-course flag is read
// from the course counter before it is incremented. An existing link is left as is.
func attachCourse(s *session, agg *aggregates, cert *models.Certificate, owner *models.UserProfile, courseID uint64, price numeric.BigInt) (*models.CertificateCourse, bool, error) {
	id := ident.CertificateCourseID(cert.ID, courseID)
	existing, err := s.certificateCourses().load(id)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	cc, _, err := s.certificateCourses().loadOrCreate(id)
	if err != nil {
		return nil, false, err
	}
	cc.Certificate = cert.ID
	cc.Course = ident.CourseID(courseID)
	cc.PricePaid = price
	cc.PricePaidEth = numeric.ToEther(price)
	cc.TransactionHash = s.ev.TxHash
	cc.IsFirstCourse = cert.TotalCourses == 0
	cert.TotalCourses++

	if cert.Recipient != "" {
		e, err := s.enrollments().load(ident.EnrollmentID(cert.Recipient, courseID))
		if err != nil {
			return nil, false, err
		}
		if e != nil {
			e.Certificate = cert.ID
			cc.Enrollment = e.ID
			s.enrollments().save(e.ID, e)
		}
	}

	if owner != nil {
		owner.CertificateCourses++
	}
	agg.platform.CertificateCourseAdditions++
	return cc, true, nil
}

func onCertificateMinted(s *session, agg *aggregates, p *blob.CertificateMinted) error {
	cert, created, err := loadCertificate(s, p.TokenID)
	if err != nil {
		return err
	}
	owner, err := touchUser(s, agg, p.Owner)
	if err != nil {
		return err
	}

	cert.Recipient = p.Owner
	cert.RecipientName = p.RecipientName
	cert.IsValid = true
	cert.IpfsCID = p.IpfsCID
	cert.MintTransaction = s.ev.TxHash
	cert.LastUpdatedAt = s.ev.Timestamp.Unix()
	if created {
		cert.MintedAt = s.ev.Timestamp.Unix()
	}

	owner.HasCertificate = true
	owner.Certificate = cert.ID

	cc, _, err := attachCourse(s, agg, cert, owner, p.CourseID, p.PricePaid)
	if err != nil {
		return err
	}
	pay := bookCertificatePayment(agg, cert, owner, p.PricePaid)

	agg.platform.TotalCertificates++
	agg.daily.CertificatesMinted++

	meta := paymentMetadata(pay)
	meta["firstCourse"] = cc.Course
	return record(s, agg, activity{
		kind:        models.ActivityCertificateMinted,
		user:        p.Owner,
		course:      cc.Course,
		enrollment:  cc.Enrollment,
		certificate: cert.ID,
		description: fmt.Sprintf("Minted certificate for %s", p.RecipientName),
		metadata:    meta,
	})
}

func onCourseAddedToCertificate(s *session, agg *aggregates, p *blob.CourseAddedToCertificate) error {
	cert, _, err := loadCertificate(s, p.TokenID)
	if err != nil {
		return err
	}
	owner, err := touchUser(s, agg, p.Owner)
	if err != nil {
		return err
	}
	if cert.Recipient == "" {
		cert.Recipient = p.Owner
		cert.IsValid = true
	}
	owner.HasCertificate = true
	owner.Certificate = cert.ID

	cert.IpfsCID = p.IpfsCID
	cert.LastUpdatedAt = s.ev.Timestamp.Unix()

	cc, _, err := attachCourse(s, agg, cert, owner, p.CourseID, p.PricePaid)
	if err != nil {
		return err
	}
	pay := bookCertificatePayment(agg, cert, owner, p.PricePaid)

	meta := paymentMetadata(pay)
	meta["isFirstCourse"] = fmt.Sprint(cc.IsFirstCourse)
	return record(s, agg, activity{
		kind:        models.ActivityCertificateCourse,
		user:        p.Owner,
		course:      cc.Course,
		enrollment:  cc.Enrollment,
		certificate: cert.ID,
		description: fmt.Sprintf("Added course %s to certificate %s", cc.Course, cert.ID),
		metadata:    meta,
	})
}

func onCertificateUpdated(s *session, agg *aggregates, p *blob.CertificateUpdated) error {
	cert, _, err := loadCertificate(s, p.TokenID)
	if err != nil {
		return err
	}
	var owner *models.UserProfile
	if cert.Recipient != "" {
		if owner, err = touchUser(s, agg, cert.Recipient); err != nil {
			return err
		}
	}
	cert.IpfsCID = p.IpfsCID
	cert.LastUpdatedAt = s.ev.Timestamp.Unix()
	pay := bookCertificatePayment(agg, cert, owner, p.PricePaid)

	return record(s, agg, activity{
		kind:        models.ActivityCertificateUpdated,
		user:        actorOr(cert.Recipient, s.ev.From),
		certificate: cert.ID,
		description: fmt.Sprintf("Updated certificate %s", cert.ID),
		metadata:    paymentMetadata(pay),
	})
}

func onCertificateRevoked(s *session, agg *aggregates, p *blob.CertificateRevoked) error {
	cert, _, err := loadCertificate(s, p.TokenID)
	if err != nil {
		return err
	}
	if cert.IsValid || cert.RevokedAt == 0 {
		agg.platform.CertificatesRevoked++
	}
	cert.IsValid = false
	cert.RevokedAt = s.ev.Timestamp.Unix()
	cert.RevocationReason = p.Reason
	cert.LastUpdatedAt = s.ev.Timestamp.Unix()

	if cert.Recipient != "" {
		owner, err := touchUser(s, agg, cert.Recipient)
		if err != nil {
			return err
		}
		owner.HasCertificate = false
	}

	return record(s, agg, activity{
		kind:        models.ActivityCertificateRevoked,
		user:        actorOr(cert.Recipient, s.ev.From),
		certificate: cert.ID,
		description: fmt.Sprintf("Revoked certificate %s", cert.ID),
		metadata:    map[string]string{"reason": p.Reason},
	})
}
