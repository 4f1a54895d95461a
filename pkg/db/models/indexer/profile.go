package indexer

import (
	"time"

	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/canopy-network/course-indexer/pkg/numeric"
	"github.com/shopspring/decimal"
)

const UserProfilesCollection = "userProfiles"

// UserProfile is keyed by the lower-cased address. One profile carries both the
// learner-side and creator-side rollups of an address.
type UserProfile struct {
	ID              string `json:"id"`
	FirstSeenAt     int64  `json:"firstSeenAt"`
	FirstSeenBlock  uint64 `json:"firstSeenBlock"`
	LastActivityAt  int64  `json:"lastActivityAt"`
	TotalActivities int64  `json:"totalActivities"`

	// Learner side.
	IsStudent         bool            `json:"isStudent"`
	CoursesEnrolled   int64           `json:"coursesEnrolled"`
	CoursesCompleted  int64           `json:"coursesCompleted"`
	SectionsCompleted int64           `json:"sectionsCompleted"`
	LicenseRenewals   int64           `json:"licenseRenewals"`
	RatingsGiven      int64           `json:"ratingsGiven"`
	TotalSpent        numeric.BigInt  `json:"totalSpent"`
	TotalSpentEth     decimal.Decimal `json:"totalSpentEth"`

	// Creator side.
	IsCreator            bool            `json:"isCreator"`
	CoursesCreated       int64           `json:"coursesCreated"`
	StudentsTaught       int64           `json:"studentsTaught"`
	CreatorRevenue       numeric.BigInt  `json:"creatorRevenue"`
	CreatorRevenueEth    decimal.Decimal `json:"creatorRevenueEth"`
	CreatorRatingSum     int64           `json:"creatorRatingSum"`
	CreatorTotalRatings  int64           `json:"creatorTotalRatings"`
	CreatorAverageRating decimal.Decimal `json:"creatorAverageRating"`

	// Certificate summary.
	HasCertificate     bool   `json:"hasCertificate"`
	Certificate        string `json:"certificate"`
	CertificateCourses int64  `json:"certificateCourses"`

	// Rolling counters for CurrentMonth; reset when an event lands in a new month.
	CurrentMonth          string         `json:"currentMonth"`
	MonthlyEnrollments    int64          `json:"monthlyEnrollments"`
	MonthlyCompletions    int64          `json:"monthlyCompletions"`
	MonthlySpent          numeric.BigInt `json:"monthlySpent"`
	MonthlyCreatorRevenue numeric.BigInt `json:"monthlyCreatorRevenue"`
}

// NewUserProfile returns a zero-initialized profile.
func NewUserProfile(id string, at time.Time) *UserProfile {
	return &UserProfile{
		ID:                   id,
		FirstSeenAt:          at.Unix(),
		LastActivityAt:       at.Unix(),
		TotalSpentEth:        decimal.Zero,
		CreatorRevenueEth:    decimal.Zero,
		CreatorAverageRating: decimal.Zero,
		CurrentMonth:         ident.MonthKey(at),
	}
}

// RollMonth resets the monthly counters when at falls outside CurrentMonth.
func (p *UserProfile) RollMonth(at time.Time) {
	month := ident.MonthKey(at)
	if p.CurrentMonth == month {
		return
	}
	p.CurrentMonth = month
	p.MonthlyEnrollments = 0
	p.MonthlyCompletions = 0
	p.MonthlySpent = numeric.BigInt{}
	p.MonthlyCreatorRevenue = numeric.BigInt{}
}
