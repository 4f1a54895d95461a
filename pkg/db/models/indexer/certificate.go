package indexer

import (
	"time"

	"github.com/canopy-network/course-indexer/pkg/numeric"
	"github.com/shopspring/decimal"
)

const (
	CertificatesCollection       = "certificates"
	CertificateCoursesCollection = "certificateCourses"
)

// Certificate is the lifetime certificate of one recipient, keyed by token id.
type Certificate struct {
	ID               string          `json:"id"`
	Recipient        string          `json:"recipient"`
	RecipientName    string          `json:"recipientName"`
	IsValid          bool            `json:"isValid"`
	TotalCourses     int64           `json:"totalCourses"`
	TotalRevenue     numeric.BigInt  `json:"totalRevenue"`
	TotalRevenueEth  decimal.Decimal `json:"totalRevenueEth"`
	IpfsCID          string          `json:"ipfsCID"`
	MintedAt         int64           `json:"mintedAt"`
	LastUpdatedAt    int64           `json:"lastUpdatedAt"`
	RevokedAt        int64           `json:"revokedAt"`
	RevocationReason string          `json:"revocationReason"`
	MintTransaction  string          `json:"mintTransaction"`
}

// NewCertificate returns a zero-initialized certificate.
func NewCertificate(id string, at time.Time) *Certificate {
	return &Certificate{
		ID:              id,
		TotalRevenueEth: decimal.Zero,
		MintedAt:        at.Unix(),
		LastUpdatedAt:   at.Unix(),
	}
}

// CertificateCourse is the junction between a certificate and a completed course,
// keyed "{certificateId}-{courseId}".
type CertificateCourse struct {
	ID              string          `json:"id"`
	Certificate     string          `json:"certificate"`
	Course          string          `json:"course"`
	Enrollment      string          `json:"enrollment"`
	AddedAt         int64           `json:"addedAt"`
	PricePaid       numeric.BigInt  `json:"pricePaid"`
	PricePaidEth    decimal.Decimal `json:"pricePaidEth"`
	IsFirstCourse   bool            `json:"isFirstCourse"`
	TransactionHash string          `json:"transactionHash"`
}

// NewCertificateCourse returns a zero-initialized junction row.
func NewCertificateCourse(id string, at time.Time) *CertificateCourse {
	return &CertificateCourse{ID: id, PricePaidEth: decimal.Zero, AddedAt: at.Unix()}
}
