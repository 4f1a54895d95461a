package indexer

import (
	"time"

	"github.com/canopy-network/course-indexer/pkg/numeric"
)

const (
	ContractConfigStatesCollection = "contractConfigStates"
	AdminConfigEventsCollection    = "adminConfigEvents"
)

// DefaultPlatformFeePercent applies to license payments until a PlatformFeeUpdated event.
const DefaultPlatformFeePercent = 2

// ContractConfigState is the current administrative snapshot of one contract area,
// keyed by the contract name.
type ContractConfigState struct {
	ID                   string         `json:"id"`
	PlatformFeePercent   uint64         `json:"platformFeePercent"`
	PlatformWallet       string         `json:"platformWallet"`
	BaseURI              string         `json:"baseURI"`
	CertificateMintFee   numeric.BigInt `json:"certificateMintFee"`
	CertificateUpdateFee numeric.BigInt `json:"certificateUpdateFee"`
	DefaultBaseRoute     string         `json:"defaultBaseRoute"`
	PlatformName         string         `json:"platformName"`
	ChangeCount          int64          `json:"changeCount"`
	LastUpdatedAt        int64          `json:"lastUpdatedAt"`
	LastUpdatedBlock     uint64         `json:"lastUpdatedBlock"`
}

// NewContractConfigState returns the default snapshot of a contract area.
func NewContractConfigState(id string, at time.Time) *ContractConfigState {
	return &ContractConfigState{
		ID:                 id,
		PlatformFeePercent: DefaultPlatformFeePercent,
		LastUpdatedAt:      at.Unix(),
	}
}

// AdminConfigEvent is one audited parameter change, keyed by the event id.
type AdminConfigEvent struct {
	ID              string `json:"id"`
	Contract        string `json:"contract"`
	Parameter       string `json:"parameter"`
	OldValue        string `json:"oldValue"`
	NewValue        string `json:"newValue"`
	Actor           string `json:"actor"`
	Timestamp       int64  `json:"timestamp"`
	BlockNumber     uint64 `json:"blockNumber"`
	TransactionHash string `json:"transactionHash"`
}

// NewAdminConfigEvent returns an audit row stamped with the event time.
func NewAdminConfigEvent(id string, at time.Time) *AdminConfigEvent {
	return &AdminConfigEvent{ID: id, Timestamp: at.Unix()}
}

// AuditGap names an administrative parameter whose changes are not emitted as
// events. Its history cannot be reconstructed from the event log.
type AuditGap struct {
	Contract  string `json:"contract"`
	Parameter string `json:"parameter"`
	Note      string `json:"note"`
}

// AuditGaps lists the parameters whose AdminConfigEvent trail is structurally incomplete.
var AuditGaps = []AuditGap{
	{Contract: "CourseFactory", Parameter: "maxSectionsPerCourse", Note: "set by owner call, no event emitted"},
	{Contract: "CourseFactory", Parameter: "maxPricePerMonth", Note: "set by owner call, no event emitted"},
	{Contract: "CourseFactory", Parameter: "ratingCooldown", Note: "set by owner call, no event emitted"},
	{Contract: "CourseLicense", Parameter: "maxLicenseDurationMonths", Note: "set by owner call, no event emitted"},
	{Contract: "CertificateManager", Parameter: "creatorBaseRoute", Note: "per-creator override, no event emitted"},
}
