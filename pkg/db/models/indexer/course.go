package indexer

import (
	"time"

	"github.com/canopy-network/course-indexer/pkg/numeric"
	"github.com/shopspring/decimal"
)

const (
	CoursesCollection        = "courses"
	CourseSectionsCollection = "courseSections"
	CourseRatingsCollection  = "courseRatings"
)

// Categories maps the on-chain category enum to its name.
var Categories = []string{
	"PROGRAMMING", "DESIGN", "BUSINESS", "MARKETING", "DATA_SCIENCE",
	"BLOCKCHAIN", "LANGUAGE", "MUSIC", "PHOTOGRAPHY", "OTHER",
}

// Difficulties maps the on-chain difficulty enum to its name.
var Difficulties = []string{"BEGINNER", "INTERMEDIATE", "ADVANCED"}

// CategoryName returns the name of an on-chain category, or OTHER when out of range.
func CategoryName(c uint8) string {
	if int(c) < len(Categories) {
		return Categories[c]
	}
	return "OTHER"
}

// DifficultyName returns the name of an on-chain difficulty, or BEGINNER when out of range.
func DifficultyName(d uint8) string {
	if int(d) < len(Difficulties) {
		return Difficulties[d]
	}
	return Difficulties[0]
}

// Course is keyed by the on-chain course id. It is never removed; deletion only sets IsDeleted.
type Course struct {
	ID           string `json:"id"`
	Creator      string `json:"creator"`
	CreatorName  string `json:"creatorName"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailCID string `json:"thumbnailCID"`

	PricePerMonth    numeric.BigInt  `json:"pricePerMonth"`
	PricePerMonthEth decimal.Decimal `json:"pricePerMonthEth"`
	Category         string          `json:"category"`
	Difficulty       string          `json:"difficulty"`

	IsActive               bool   `json:"isActive"`
	IsDeleted              bool   `json:"isDeleted"`
	IsEmergencyDeactivated bool   `json:"isEmergencyDeactivated"`
	EmergencyReason        string `json:"emergencyReason"`

	TotalEnrollments  int64           `json:"totalEnrollments"`
	ActiveEnrollments int64           `json:"activeEnrollments"`
	CompletedStudents int64           `json:"completedStudents"`
	CompletionRate    decimal.Decimal `json:"completionRate"`
	TotalRevenue      numeric.BigInt  `json:"totalRevenue"`
	TotalRevenueEth   decimal.Decimal `json:"totalRevenueEth"`
	RatingSum         int64           `json:"ratingSum"`
	TotalRatings      int64           `json:"totalRatings"`
	AverageRating     decimal.Decimal `json:"averageRating"`
	SectionsCount     int64           `json:"sectionsCount"`
	TotalDuration     uint64          `json:"totalDuration"`

	CreatedAt      int64  `json:"createdAt"`
	CreatedAtBlock uint64 `json:"createdAtBlock"`
	UpdatedAt      int64  `json:"updatedAt"`
	DeletedAt      int64  `json:"deletedAt"`
}

// NewCourse returns a zero-initialized course stamped with the creating event's time.
func NewCourse(id string, at time.Time) *Course {
	return &Course{
		ID:               id,
		Category:         CategoryName(0),
		Difficulty:       DifficultyName(0),
		PricePerMonthEth: decimal.Zero,
		CompletionRate:   decimal.Zero,
		TotalRevenueEth:  decimal.Zero,
		AverageRating:    decimal.Zero,
		CreatedAt:        at.Unix(),
		UpdatedAt:        at.Unix(),
	}
}

// CourseSection is keyed by "{courseId}-{sectionId}".
type CourseSection struct {
	ID         string `json:"id"`
	Course     string `json:"course"`
	SectionID  uint64 `json:"sectionId"`
	OrderIndex uint64 `json:"orderIndex"`
	Title      string `json:"title"`
	ContentCID string `json:"contentCID"`
	Duration   uint64 `json:"duration"`
	IsDeleted  bool   `json:"isDeleted"`

	StartedCount   int64           `json:"startedCount"`
	CompletedCount int64           `json:"completedCount"`
	DropOffRate    decimal.Decimal `json:"dropOffRate"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// NewCourseSection returns a zero-initialized section.
func NewCourseSection(id string, at time.Time) *CourseSection {
	return &CourseSection{
		ID:          id,
		DropOffRate: decimal.Zero,
		CreatedAt:   at.Unix(),
		UpdatedAt:   at.Unix(),
	}
}

// CourseRating is keyed by "{courseId}-{user}" and holds a user's current rating.
type CourseRating struct {
	ID        string `json:"id"`
	Course    string `json:"course"`
	User      string `json:"user"`
	Rating    int64  `json:"rating"`
	IsDeleted bool   `json:"isDeleted"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// NewCourseRating returns a zero-initialized rating.
func NewCourseRating(id string, at time.Time) *CourseRating {
	return &CourseRating{ID: id, CreatedAt: at.Unix(), UpdatedAt: at.Unix()}
}
