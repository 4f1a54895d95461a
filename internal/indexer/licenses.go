package indexer

import (
	"fmt"
	"strconv"

	"github.com/canopy-network/course-indexer/pkg/blob"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/canopy-network/course-indexer/pkg/numeric"
)

// licenseFeePercent is the CourseLicense platform fee in effect for this event.
func licenseFeePercent(s *session) (uint64, error) {
	cfg, err := s.configStates().load(string(blob.ContractCourseLicense))
	if err != nil {
		return 0, err
	}
	if cfg == nil {
		return models.DefaultPlatformFeePercent, nil
	}
	return cfg.PlatformFeePercent, nil
}

// loadEnrollment returns the enrollment of student in course. A missing row is
// created and registered on the course so completion rates stay bounded.
func loadEnrollment(s *session, c *models.Course, student string, courseID uint64) (*models.Enrollment, bool, error) {
	e, created, err := s.enrollments().loadOrCreate(ident.EnrollmentID(student, courseID))
	if err != nil {
		return nil, false, err
	}
	if created {
		e.Student = student
		e.Course = c.ID
		c.TotalEnrollments++
		refreshCompletionRate(c)
	}
	s.enrollments().save(e.ID, e)
	return e, created, nil
}

// expireIfDue moves an ACTIVE enrollment past its expiry to EXPIRED.
func expireIfDue(s *session, agg *aggregates, c *models.Course, e *models.Enrollment) {
	if e.ExpiryAt != 0 && e.ExpiryAt < s.ev.Timestamp.Unix() {
		expire(s, agg, c, e)
	}
}

// expire ends the license. COMPLETED enrollments keep their status.
func expire(s *session, agg *aggregates, c *models.Course, e *models.Enrollment) {
	if e.IsActive {
		e.IsActive = false
		c.ActiveEnrollments--
	}
	if e.Status == models.StatusActive {
		e.Status = models.StatusExpired
		e.ExpiredAt = s.ev.Timestamp.Unix()
		agg.platform.TotalExpirations++
	}
}

// activate marks the license live until expiry; EXPIRED returns to ACTIVE.
func activate(c *models.Course, e *models.Enrollment, expiry int64) {
	e.ExpiryAt = expiry
	if !e.IsActive {
		e.IsActive = true
		c.ActiveEnrollments++
	}
	if e.Status == models.StatusExpired {
		e.Status = models.StatusActive
		e.ExpiredAt = 0
	}
}

// bookPayment splits a license payment and adds it to every rollup it feeds.
func bookPayment(s *session, agg *aggregates, c *models.Course, e *models.Enrollment, student *models.UserProfile, amount numeric.BigInt) (payment, error) {
	percent, err := licenseFeePercent(s)
	if err != nil {
		return payment{}, err
	}
	pay := splitPayment(amount, percent)

	e.PlatformFee = e.PlatformFee.Add(pay.fee)
	e.PlatformFeeEth = numeric.ToEther(e.PlatformFee)
	e.CreatorRevenue = e.CreatorRevenue.Add(pay.creator)
	e.CreatorRevenueEth = numeric.ToEther(e.CreatorRevenue)
	e.TotalSpent = e.TotalSpent.Add(amount)
	e.TotalSpentEth = numeric.ToEther(e.TotalSpent)

	c.TotalRevenue = c.TotalRevenue.Add(amount)
	c.TotalRevenueEth = numeric.ToEther(c.TotalRevenue)

	agg.addRevenue(pay)
	addSpend(student, amount)

	if c.Creator != "" {
		creator, err := touchUser(s, agg, c.Creator)
		if err != nil {
			return payment{}, err
		}
		addCreatorRevenue(creator, pay.creator)
	}
	return pay, nil
}

func paymentMetadata(pay payment) map[string]string {
	return map[string]string{
		"amount":         pay.amount.String(),
		"platformFee":    pay.fee.String(),
		"creatorRevenue": pay.creator.String(),
	}
}

func onLicenseMinted(s *session, agg *aggregates, p *blob.LicenseMinted) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	e, _, err := loadEnrollment(s, c, p.Student, p.CourseID)
	if err != nil {
		return err
	}
	student, err := touchUser(s, agg, p.Student)
	if err != nil {
		return err
	}
	markStudent(agg, student)

	// The row may predate the license when progress events arrived first.
	firstMint := e.LicenseTokenID == ""
	if firstMint {
		student.CoursesEnrolled++
		student.MonthlyEnrollments++
		if c.Creator != "" {
			creator, err := touchUser(s, agg, c.Creator)
			if err != nil {
				return err
			}
			creator.StudentsTaught++
		}
	}

	e.LicenseTokenID = ident.TokenID(p.TokenID)
	e.DurationMonths = p.DurationMonths
	e.PricePaid = p.PricePaid
	e.PricePaidEth = numeric.ToEther(p.PricePaid)
	e.MintedAt = s.ev.Timestamp.Unix()
	e.LastActivityAt = s.ev.Timestamp.Unix()
	activate(c, e, p.ExpiryTimestamp)

	pay, err := bookPayment(s, agg, c, e, student, p.PricePaid)
	if err != nil {
		return err
	}

	if firstMint {
		agg.platform.TotalEnrollments++
	}
	agg.network.TotalLicenseMints++
	agg.daily.LicenseMints++
	c.UpdatedAt = s.ev.Timestamp.Unix()

	meta := paymentMetadata(pay)
	meta["durationMonths"] = strconv.FormatUint(p.DurationMonths, 10)
	meta["tokenId"] = e.LicenseTokenID
	return record(s, agg, activity{
		kind:        models.ActivityLicenseMinted,
		user:        p.Student,
		course:      c.ID,
		enrollment:  e.ID,
		description: fmt.Sprintf("Enrolled in %q for %d month(s)", c.Title, p.DurationMonths),
		metadata:    meta,
	})
}

func onLicenseRenewed(s *session, agg *aggregates, p *blob.LicenseRenewed) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	e, _, err := loadEnrollment(s, c, p.Student, p.CourseID)
	if err != nil {
		return err
	}
	student, err := touchUser(s, agg, p.Student)
	if err != nil {
		return err
	}
	markStudent(agg, student)
	expireIfDue(s, agg, c, e)

	e.LicenseTokenID = ident.TokenID(p.TokenID)
	e.DurationMonths += p.DurationMonths
	e.TotalRenewals++
	e.TotalRenewalSpent = e.TotalRenewalSpent.Add(p.PricePaid)
	e.TotalRenewalSpentEth = numeric.ToEther(e.TotalRenewalSpent)
	e.LastRenewedAt = s.ev.Timestamp.Unix()
	e.LastActivityAt = s.ev.Timestamp.Unix()
	if p.ExpiryTimestamp > s.ev.Timestamp.Unix() {
		activate(c, e, p.ExpiryTimestamp)
	} else {
		e.ExpiryAt = p.ExpiryTimestamp
	}

	pay, err := bookPayment(s, agg, c, e, student, p.PricePaid)
	if err != nil {
		return err
	}

	student.LicenseRenewals++
	agg.platform.TotalRenewals++
	agg.network.TotalLicenseRenewals++
	agg.daily.LicenseRenewals++
	c.UpdatedAt = s.ev.Timestamp.Unix()

	meta := paymentMetadata(pay)
	meta["durationMonths"] = strconv.FormatUint(p.DurationMonths, 10)
	return record(s, agg, activity{
		kind:        models.ActivityLicenseRenewed,
		user:        p.Student,
		course:      c.ID,
		enrollment:  e.ID,
		description: fmt.Sprintf("Renewed %q for %d month(s)", c.Title, p.DurationMonths),
		metadata:    meta,
	})
}

func onLicenseExpired(s *session, agg *aggregates, p *blob.LicenseExpired) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	e, _, err := loadEnrollment(s, c, p.Student, p.CourseID)
	if err != nil {
		return err
	}
	expire(s, agg, c, e)
	e.LastActivityAt = s.ev.Timestamp.Unix()
	agg.network.TotalLicenseExpirations++
	c.UpdatedAt = s.ev.Timestamp.Unix()

	return record(s, agg, activity{
		kind:        models.ActivityLicenseExpired,
		user:        p.Student,
		course:      c.ID,
		enrollment:  e.ID,
		description: fmt.Sprintf("License for %q expired", c.Title),
		metadata:    map[string]string{"tokenId": ident.TokenID(p.TokenID)},
	})
}
