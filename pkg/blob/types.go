package blob

import (
	"encoding/json"
	"time"

	"github.com/canopy-network/course-indexer/pkg/ident"
)

// Contract names the contract area that emits an event kind.
type Contract string

const (
	ContractCourseFactory      Contract = "CourseFactory"
	ContractCourseLicense      Contract = "CourseLicense"
	ContractProgressTracker    Contract = "ProgressTracker"
	ContractCertificateManager Contract = "CertificateManager"
)

// Kind is the event name as emitted by the contracts.
type Kind string

const (
	// CourseFactory
	KindCourseCreated              Kind = "CourseCreated"
	KindCourseUpdated              Kind = "CourseUpdated"
	KindCourseDeleted              Kind = "CourseDeleted"
	KindCourseEmergencyDeactivated Kind = "CourseEmergencyDeactivated"
	KindSectionAdded               Kind = "SectionAdded"
	KindSectionUpdated             Kind = "SectionUpdated"
	KindSectionDeleted             Kind = "SectionDeleted"
	KindSectionMoved               Kind = "SectionMoved"
	KindCourseRated                Kind = "CourseRated"
	KindRatingUpdated              Kind = "RatingUpdated"
	KindRatingDeleted              Kind = "RatingDeleted"

	// CourseLicense
	KindLicenseMinted         Kind = "LicenseMinted"
	KindLicenseRenewed        Kind = "LicenseRenewed"
	KindLicenseExpired        Kind = "LicenseExpired"
	KindPlatformFeeUpdated    Kind = "PlatformFeeUpdated"
	KindPlatformWalletUpdated Kind = "PlatformWalletUpdated"
	KindBaseURIUpdated        Kind = "BaseURIUpdated"

	// ProgressTracker
	KindSectionStarted   Kind = "SectionStarted"
	KindSectionCompleted Kind = "SectionCompleted"
	KindCourseCompleted  Kind = "CourseCompleted"
	KindProgressReset    Kind = "ProgressReset"

	// CertificateManager
	KindCertificateMinted        Kind = "CertificateMinted"
	KindCourseAddedToCertificate Kind = "CourseAddedToCertificate"
	KindCertificateUpdated       Kind = "CertificateUpdated"
	KindCertificateRevoked       Kind = "CertificateRevoked"
	KindCertificateFeeUpdated    Kind = "CertificateFeeUpdated"
	KindDefaultBaseRouteUpdated  Kind = "DefaultBaseRouteUpdated"
	KindPlatformNameUpdated      Kind = "PlatformNameUpdated"
)

// IgnoredKinds are emitted by the contracts but have no mapped aggregate effect.
// They are acknowledged (the cursor advances) instead of failing as unknown.
var IgnoredKinds = map[Kind]bool{
	"Paused":               true,
	"Unpaused":             true,
	"RatingsPaused":        true,
	"RatingsUnpaused":      true,
	"OwnershipTransferred": true,
	"TransferSingle":       true,
	"TransferBatch":        true,
	"ApprovalForAll":       true,
	"URI":                  true,
}

// Envelope is the wire form of one contract event.
type Envelope struct {
	Kind             Kind            `json:"kind"`
	Contract         Contract        `json:"contract,omitempty"`
	BlockNumber      uint64          `json:"blockNumber"`
	BlockTimestamp   int64           `json:"blockTimestamp"`
	TransactionHash  string          `json:"transactionHash"`
	TransactionIndex uint32          `json:"transactionIndex"`
	LogIndex         uint32          `json:"logIndex"`
	From             string          `json:"from,omitempty"`
	Payload          json.RawMessage `json:"payload"`
}

// Event is a decoded, validated envelope. Addresses and hashes are normalized.
type Event struct {
	ID        string
	Kind      Kind
	Contract  Contract
	Position  ident.Position
	Timestamp time.Time
	TxHash    string
	From      string
	Payload   Payload
}

// Ignored reports whether the event is on the ignore list.
func (e *Event) Ignored() bool {
	_, ok := e.Payload.(*Ignored)
	return ok
}
