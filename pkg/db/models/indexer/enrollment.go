package indexer

import (
	"time"

	"github.com/canopy-network/course-indexer/pkg/numeric"
	"github.com/shopspring/decimal"
)

const (
	EnrollmentsCollection        = "enrollments"
	SectionCompletionsCollection = "sectionCompletions"
)

// EnrollmentStatus is the lifecycle state of a license.
type EnrollmentStatus string

const (
	StatusActive    EnrollmentStatus = "ACTIVE"
	StatusExpired   EnrollmentStatus = "EXPIRED"
	StatusCompleted EnrollmentStatus = "COMPLETED"
)

// Enrollment is keyed by "{student}-{courseId}".
type Enrollment struct {
	ID             string           `json:"id"`
	Student        string           `json:"student"`
	Course         string           `json:"course"`
	LicenseTokenID string           `json:"licenseTokenId"`
	DurationMonths uint64           `json:"durationMonths"`
	ExpiryAt       int64            `json:"expiryTimestamp"`
	IsActive       bool             `json:"isActive"`
	Status         EnrollmentStatus `json:"status"`

	PricePaid         numeric.BigInt  `json:"pricePaid"`
	PricePaidEth      decimal.Decimal `json:"pricePaidEth"`
	PlatformFee       numeric.BigInt  `json:"platformFee"`
	PlatformFeeEth    decimal.Decimal `json:"platformFeeEth"`
	CreatorRevenue    numeric.BigInt  `json:"creatorRevenue"`
	CreatorRevenueEth decimal.Decimal `json:"creatorRevenueEth"`

	TotalRenewals        int64           `json:"totalRenewals"`
	TotalRenewalSpent    numeric.BigInt  `json:"totalRenewalSpent"`
	TotalRenewalSpentEth decimal.Decimal `json:"totalRenewalSpentEth"`
	TotalSpent           numeric.BigInt  `json:"totalSpent"`
	TotalSpentEth        decimal.Decimal `json:"totalSpentEth"`

	CompletedSections    int64           `json:"completedSections"`
	CompletionPercentage decimal.Decimal `json:"completionPercentage"`
	Certificate          string          `json:"certificate"`

	MintedAt       int64 `json:"mintedAt"`
	LastRenewedAt  int64 `json:"lastRenewedAt"`
	ExpiredAt      int64 `json:"expiredAt"`
	CompletedAt    int64 `json:"completedAt"`
	LastActivityAt int64 `json:"lastActivityAt"`
}

// NewEnrollment returns a zero-initialized, ACTIVE enrollment.
func NewEnrollment(id string, at time.Time) *Enrollment {
	return &Enrollment{
		ID:                   id,
		Status:               StatusActive,
		PricePaidEth:         decimal.Zero,
		PlatformFeeEth:       decimal.Zero,
		CreatorRevenueEth:    decimal.Zero,
		TotalRenewalSpentEth: decimal.Zero,
		TotalSpentEth:        decimal.Zero,
		CompletionPercentage: decimal.Zero,
		MintedAt:             at.Unix(),
		LastActivityAt:       at.Unix(),
	}
}

// SectionCompletion links an enrollment to one section, keyed "{enrollmentId}-{sectionId}".
// A row exists once the section is started; IsCompleted flips at most once per reset cycle.
type SectionCompletion struct {
	ID          string `json:"id"`
	Enrollment  string `json:"enrollment"`
	Section     string `json:"section"`
	Student     string `json:"student"`
	Course      string `json:"course"`
	IsCompleted bool   `json:"isCompleted"`
	IsReset     bool   `json:"isReset"`
	StartedAt   int64  `json:"startedAt"`
	CompletedAt int64  `json:"completedAt"`
}

// NewSectionCompletion returns a zero-initialized section completion row.
func NewSectionCompletion(id string, at time.Time) *SectionCompletion {
	return &SectionCompletion{ID: id, StartedAt: at.Unix()}
}
