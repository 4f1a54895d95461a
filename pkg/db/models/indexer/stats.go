package indexer

import (
	"time"

	"github.com/canopy-network/course-indexer/pkg/numeric"
	"github.com/shopspring/decimal"
)

const (
	NetworkStatsCollection      = "networkStats"
	PlatformStatsCollection     = "platformStats"
	DailyNetworkStatsCollection = "dailyNetworkStats"
)

// NetworkStats is the singleton of chain-level counters. Counters only grow.
type NetworkStats struct {
	ID                        string `json:"id"`
	TotalEvents               int64  `json:"totalEvents"`
	TotalTransactions         int64  `json:"totalTransactions"`
	TotalBlocks               int64  `json:"totalBlocks"`
	CourseFactoryEvents       int64  `json:"courseFactoryEvents"`
	CourseLicenseInteractions int64  `json:"courseLicenseInteractions"`
	ProgressTrackerEvents     int64  `json:"progressTrackerEvents"`
	CertificateManagerEvents  int64  `json:"certificateManagerEvents"`
	AdminEvents               int64  `json:"adminEvents"`
	TotalLicenseMints         int64  `json:"totalLicenseMints"`
	TotalLicenseRenewals      int64  `json:"totalLicenseRenewals"`
	TotalLicenseExpirations   int64  `json:"totalLicenseExpirations"`

	FirstBlockNumber    uint64 `json:"firstBlockNumber"`
	LastBlockNumber     uint64 `json:"lastBlockNumber"`
	LastBlockTimestamp  int64  `json:"lastBlockTimestamp"`
	LastTransactionHash string `json:"lastTransactionHash"`

	// AverageBlockTime is the gap in seconds between the last two processed
	// events' timestamps. It is an instantaneous gap, not a mean over time.
	AverageBlockTime int64 `json:"averageBlockTime"`
}

// NewNetworkStats returns the zero-initialized singleton.
func NewNetworkStats(id string, at time.Time) *NetworkStats {
	return &NetworkStats{ID: id}
}

// PlatformStats is the singleton of marketplace-level counters. Counters only grow.
type PlatformStats struct {
	ID                         string `json:"id"`
	TotalCourses               int64  `json:"totalCourses"`
	CoursesDeleted             int64  `json:"coursesDeleted"`
	CoursesDeactivated         int64  `json:"coursesDeactivated"`
	TotalSections              int64  `json:"totalSections"`
	TotalEnrollments           int64  `json:"totalEnrollments"`
	TotalRenewals              int64  `json:"totalRenewals"`
	TotalExpirations           int64  `json:"totalExpirations"`
	TotalCompletions           int64  `json:"totalCompletions"`
	TotalSectionCompletions    int64  `json:"totalSectionCompletions"`
	RatingsSubmitted           int64  `json:"ratingsSubmitted"`
	TotalCertificates          int64  `json:"totalCertificates"`
	CertificateCourseAdditions int64  `json:"certificateCourseAdditions"`
	CertificatesRevoked        int64  `json:"certificatesRevoked"`
	TotalUsers                 int64  `json:"totalUsers"`
	TotalStudents              int64  `json:"totalStudents"`
	TotalCreators              int64  `json:"totalCreators"`

	TotalRevenue          numeric.BigInt  `json:"totalRevenue"`
	TotalRevenueEth       decimal.Decimal `json:"totalRevenueEth"`
	PlatformFees          numeric.BigInt  `json:"platformFees"`
	PlatformFeesEth       decimal.Decimal `json:"platformFeesEth"`
	CreatorRevenue        numeric.BigInt  `json:"creatorRevenue"`
	CreatorRevenueEth     decimal.Decimal `json:"creatorRevenueEth"`
	CertificateRevenue    numeric.BigInt  `json:"certificateRevenue"`
	CertificateRevenueEth decimal.Decimal `json:"certificateRevenueEth"`

	UpdatedAt int64 `json:"updatedAt"`
}

// NewPlatformStats returns the zero-initialized singleton.
func NewPlatformStats(id string, at time.Time) *PlatformStats {
	return &PlatformStats{
		ID:                    id,
		TotalRevenueEth:       decimal.Zero,
		PlatformFeesEth:       decimal.Zero,
		CreatorRevenueEth:     decimal.Zero,
		CertificateRevenueEth: decimal.Zero,
		UpdatedAt:             at.Unix(),
	}
}

// DailyNetworkStats holds the counters of one UTC day, keyed "YYYY-MM-DD".
type DailyNetworkStats struct {
	ID                 string          `json:"id"`
	DayStart           int64           `json:"dayStart"`
	Events             int64           `json:"events"`
	Transactions       int64           `json:"transactions"`
	NewCourses         int64           `json:"newCourses"`
	LicenseMints       int64           `json:"licenseMints"`
	LicenseRenewals    int64           `json:"licenseRenewals"`
	Completions        int64           `json:"completions"`
	CertificatesMinted int64           `json:"certificatesMinted"`
	NewUsers           int64           `json:"newUsers"`
	Revenue            numeric.BigInt  `json:"revenue"`
	RevenueEth         decimal.Decimal `json:"revenueEth"`
	PlatformFees       numeric.BigInt  `json:"platformFees"`
	PlatformFeesEth    decimal.Decimal `json:"platformFeesEth"`
	FirstBlock         uint64          `json:"firstBlock"`
	LastBlock          uint64          `json:"lastBlock"`
}

// NewDailyNetworkStats returns the zero-initialized row of the day containing at.
func NewDailyNetworkStats(id string, at time.Time) *DailyNetworkStats {
	day := at.UTC().Truncate(24 * time.Hour)
	return &DailyNetworkStats{
		ID:              id,
		DayStart:        day.Unix(),
		RevenueEth:      decimal.Zero,
		PlatformFeesEth: decimal.Zero,
	}
}
