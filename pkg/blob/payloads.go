package blob

import (
	"encoding/json"
	"fmt"

	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/canopy-network/course-indexer/pkg/numeric"
)

// Payload is the decoded body of one event kind. The set of implementations is
// closed: normalize is unexported, so only this package can add kinds.
type Payload interface {
	Kind() Kind
	normalize() error
}

// CourseFactory payloads.

type CourseCreated struct {
	CourseID      uint64         `json:"courseId"`
	Creator       string         `json:"creator" validate:"eth_addr"`
	CreatorName   string         `json:"creatorName"`
	Title         string         `json:"title" validate:"required"`
	Description   string         `json:"description"`
	ThumbnailCID  string         `json:"thumbnailCID"`
	PricePerMonth numeric.BigInt `json:"pricePerMonth"`
	Category      uint8          `json:"category" validate:"max=9"`
	Difficulty    uint8          `json:"difficulty" validate:"max=2"`
}

type CourseUpdated struct {
	CourseID      uint64         `json:"courseId"`
	Creator       string         `json:"creator" validate:"eth_addr"`
	Title         string         `json:"title" validate:"required"`
	PricePerMonth numeric.BigInt `json:"pricePerMonth"`
	IsActive      bool           `json:"isActive"`
}

type CourseDeleted struct {
	CourseID uint64 `json:"courseId"`
	Creator  string `json:"creator" validate:"eth_addr"`
}

type CourseEmergencyDeactivated struct {
	CourseID uint64 `json:"courseId"`
	Reason   string `json:"reason"`
}

type SectionAdded struct {
	CourseID   uint64 `json:"courseId"`
	SectionID  uint64 `json:"sectionId"`
	Title      string `json:"title" validate:"required"`
	ContentCID string `json:"contentCID"`
	Duration   uint64 `json:"duration"`
}

type SectionUpdated struct {
	CourseID   uint64 `json:"courseId"`
	SectionID  uint64 `json:"sectionId"`
	Title      string `json:"title" validate:"required"`
	ContentCID string `json:"contentCID"`
	Duration   uint64 `json:"duration"`
}

type SectionDeleted struct {
	CourseID  uint64 `json:"courseId"`
	SectionID uint64 `json:"sectionId"`
}

type SectionMoved struct {
	CourseID  uint64 `json:"courseId"`
	SectionID uint64 `json:"sectionId"`
	FromIndex uint64 `json:"fromIndex"`
	ToIndex   uint64 `json:"toIndex"`
}

type CourseRated struct {
	CourseID uint64 `json:"courseId"`
	User     string `json:"user" validate:"eth_addr"`
	Rating   uint8  `json:"rating" validate:"min=1,max=5"`
}

type RatingUpdated struct {
	CourseID  uint64 `json:"courseId"`
	User      string `json:"user" validate:"eth_addr"`
	OldRating uint8  `json:"oldRating" validate:"min=1,max=5"`
	NewRating uint8  `json:"newRating" validate:"min=1,max=5"`
}

type RatingDeleted struct {
	CourseID       uint64 `json:"courseId"`
	User           string `json:"user" validate:"eth_addr"`
	PreviousRating uint8  `json:"previousRating" validate:"min=1,max=5"`
}

// CourseLicense payloads.

type LicenseMinted struct {
	CourseID        uint64         `json:"courseId"`
	Student         string         `json:"student" validate:"eth_addr"`
	TokenID         uint64         `json:"tokenId"`
	DurationMonths  uint64         `json:"durationMonths" validate:"min=1"`
	ExpiryTimestamp int64          `json:"expiryTimestamp"`
	PricePaid       numeric.BigInt `json:"pricePaid"`
}

type LicenseRenewed struct {
	CourseID        uint64         `json:"courseId"`
	Student         string         `json:"student" validate:"eth_addr"`
	TokenID         uint64         `json:"tokenId"`
	DurationMonths  uint64         `json:"durationMonths" validate:"min=1"`
	ExpiryTimestamp int64          `json:"expiryTimestamp"`
	PricePaid       numeric.BigInt `json:"pricePaid"`
}

type LicenseExpired struct {
	CourseID uint64 `json:"courseId"`
	Student  string `json:"student" validate:"eth_addr"`
	TokenID  uint64 `json:"tokenId"`
}

type PlatformFeeUpdated struct {
	PreviousPercent uint64 `json:"previousPercent" validate:"max=100"`
	NewPercent      uint64 `json:"newPercent" validate:"max=100"`
}

type PlatformWalletUpdated struct {
	PreviousWallet string `json:"previousWallet" validate:"eth_addr"`
	NewWallet      string `json:"newWallet" validate:"eth_addr"`
}

type BaseURIUpdated struct {
	NewURI string `json:"newURI"`
}

// ProgressTracker payloads.

type SectionStarted struct {
	Student   string `json:"student" validate:"eth_addr"`
	CourseID  uint64 `json:"courseId"`
	SectionID uint64 `json:"sectionId"`
}

type SectionCompleted struct {
	Student   string `json:"student" validate:"eth_addr"`
	CourseID  uint64 `json:"courseId"`
	SectionID uint64 `json:"sectionId"`
}

type CourseCompleted struct {
	Student  string `json:"student" validate:"eth_addr"`
	CourseID uint64 `json:"courseId"`
}

type ProgressReset struct {
	Student  string `json:"student" validate:"eth_addr"`
	CourseID uint64 `json:"courseId"`
}

// CertificateManager payloads.

type CertificateMinted struct {
	TokenID       uint64         `json:"tokenId"`
	Owner         string         `json:"owner" validate:"eth_addr"`
	RecipientName string         `json:"recipientName"`
	CourseID      uint64         `json:"courseId"`
	IpfsCID       string         `json:"ipfsCID"`
	PricePaid     numeric.BigInt `json:"pricePaid"`
}

type CourseAddedToCertificate struct {
	TokenID   uint64         `json:"tokenId"`
	Owner     string         `json:"owner" validate:"eth_addr"`
	CourseID  uint64         `json:"courseId"`
	IpfsCID   string         `json:"ipfsCID"`
	PricePaid numeric.BigInt `json:"pricePaid"`
}

type CertificateUpdated struct {
	TokenID   uint64         `json:"tokenId"`
	IpfsCID   string         `json:"ipfsCID"`
	PricePaid numeric.BigInt `json:"pricePaid"`
}

type CertificateRevoked struct {
	TokenID uint64 `json:"tokenId"`
	Reason  string `json:"reason"`
}

type CertificateFeeUpdated struct {
	FeeType     string         `json:"feeType" validate:"oneof=mint update"`
	PreviousFee numeric.BigInt `json:"previousFee"`
	NewFee      numeric.BigInt `json:"newFee"`
}

type DefaultBaseRouteUpdated struct {
	PreviousRoute string `json:"previousRoute"`
	NewRoute      string `json:"newRoute"`
}

type PlatformNameUpdated struct {
	PreviousName string `json:"previousName"`
	NewName      string `json:"newName"`
}

// Ignored carries an ignore-listed kind verbatim.
type Ignored struct {
	Name Kind
	Raw  json.RawMessage
}

func (p *CourseCreated) Kind() Kind              { return KindCourseCreated }
func (p *CourseUpdated) Kind() Kind              { return KindCourseUpdated }
func (p *CourseDeleted) Kind() Kind              { return KindCourseDeleted }
func (p *CourseEmergencyDeactivated) Kind() Kind { return KindCourseEmergencyDeactivated }
func (p *SectionAdded) Kind() Kind               { return KindSectionAdded }
func (p *SectionUpdated) Kind() Kind             { return KindSectionUpdated }
func (p *SectionDeleted) Kind() Kind             { return KindSectionDeleted }
func (p *SectionMoved) Kind() Kind               { return KindSectionMoved }
func (p *CourseRated) Kind() Kind                { return KindCourseRated }
func (p *RatingUpdated) Kind() Kind              { return KindRatingUpdated }
func (p *RatingDeleted) Kind() Kind              { return KindRatingDeleted }
func (p *LicenseMinted) Kind() Kind              { return KindLicenseMinted }
func (p *LicenseRenewed) Kind() Kind             { return KindLicenseRenewed }
func (p *LicenseExpired) Kind() Kind             { return KindLicenseExpired }
func (p *PlatformFeeUpdated) Kind() Kind         { return KindPlatformFeeUpdated }
func (p *PlatformWalletUpdated) Kind() Kind      { return KindPlatformWalletUpdated }
func (p *BaseURIUpdated) Kind() Kind             { return KindBaseURIUpdated }
func (p *SectionStarted) Kind() Kind             { return KindSectionStarted }
func (p *SectionCompleted) Kind() Kind           { return KindSectionCompleted }
func (p *CourseCompleted) Kind() Kind            { return KindCourseCompleted }
func (p *ProgressReset) Kind() Kind              { return KindProgressReset }
func (p *CertificateMinted) Kind() Kind          { return KindCertificateMinted }
func (p *CourseAddedToCertificate) Kind() Kind   { return KindCourseAddedToCertificate }
func (p *CertificateUpdated) Kind() Kind         { return KindCertificateUpdated }
func (p *CertificateRevoked) Kind() Kind         { return KindCertificateRevoked }
func (p *CertificateFeeUpdated) Kind() Kind      { return KindCertificateFeeUpdated }
func (p *DefaultBaseRouteUpdated) Kind() Kind    { return KindDefaultBaseRouteUpdated }
func (p *PlatformNameUpdated) Kind() Kind        { return KindPlatformNameUpdated }
func (p *Ignored) Kind() Kind                    { return p.Name }

func (p *CourseCreated) normalize() error {
	return firstErr(addr(&p.Creator), nonNegative("pricePerMonth", p.PricePerMonth))
}

func (p *CourseUpdated) normalize() error {
	return firstErr(addr(&p.Creator), nonNegative("pricePerMonth", p.PricePerMonth))
}

func (p *CourseDeleted) normalize() error              { return addr(&p.Creator) }
func (p *CourseEmergencyDeactivated) normalize() error { return nil }
func (p *SectionAdded) normalize() error               { return nil }
func (p *SectionUpdated) normalize() error             { return nil }
func (p *SectionDeleted) normalize() error             { return nil }
func (p *SectionMoved) normalize() error               { return nil }
func (p *CourseRated) normalize() error                { return addr(&p.User) }
func (p *RatingUpdated) normalize() error              { return addr(&p.User) }
func (p *RatingDeleted) normalize() error              { return addr(&p.User) }

func (p *LicenseMinted) normalize() error {
	return firstErr(addr(&p.Student), nonNegative("pricePaid", p.PricePaid))
}

func (p *LicenseRenewed) normalize() error {
	return firstErr(addr(&p.Student), nonNegative("pricePaid", p.PricePaid))
}

func (p *LicenseExpired) normalize() error     { return addr(&p.Student) }
func (p *PlatformFeeUpdated) normalize() error { return nil }

func (p *PlatformWalletUpdated) normalize() error {
	return firstErr(addr(&p.PreviousWallet), addr(&p.NewWallet))
}

func (p *BaseURIUpdated) normalize() error   { return nil }
func (p *SectionStarted) normalize() error   { return addr(&p.Student) }
func (p *SectionCompleted) normalize() error { return addr(&p.Student) }
func (p *CourseCompleted) normalize() error  { return addr(&p.Student) }
func (p *ProgressReset) normalize() error    { return addr(&p.Student) }

func (p *CertificateMinted) normalize() error {
	return firstErr(addr(&p.Owner), nonNegative("pricePaid", p.PricePaid))
}

func (p *CourseAddedToCertificate) normalize() error {
	return firstErr(addr(&p.Owner), nonNegative("pricePaid", p.PricePaid))
}

func (p *CertificateUpdated) normalize() error {
	return nonNegative("pricePaid", p.PricePaid)
}

func (p *CertificateRevoked) normalize() error { return nil }

func (p *CertificateFeeUpdated) normalize() error {
	return firstErr(nonNegative("previousFee", p.PreviousFee), nonNegative("newFee", p.NewFee))
}

func (p *DefaultBaseRouteUpdated) normalize() error { return nil }
func (p *PlatformNameUpdated) normalize() error     { return nil }
func (p *Ignored) normalize() error                 { return nil }

func addr(s *string) error {
	n, err := ident.NormalizeAddress(*s)
	if err != nil {
		return err
	}
	*s = n
	return nil
}

func nonNegative(field string, v numeric.BigInt) error {
	if v.Sign() < 0 {
		return fmt.Errorf("%s is negative: %s", field, v)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
