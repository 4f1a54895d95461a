package indexer

import (
	"fmt"
	"strconv"

	"github.com/canopy-network/course-indexer/pkg/blob"
	"github.com/canopy-network/course-indexer/pkg/db"
	models "github.com/canopy-network/course-indexer/pkg/db/models/indexer"
	"github.com/canopy-network/course-indexer/pkg/ident"
	"github.com/canopy-network/course-indexer/pkg/numeric"
)

func loadCourse(s *session, courseID uint64) (*models.Course, error) {
	c, _, err := s.courses().loadOrCreate(ident.CourseID(courseID))
	if err != nil {
		return nil, err
	}
	s.courses().save(c.ID, c)
	return c, nil
}

func refreshCompletionRate(c *models.Course) {
	c.CompletionRate = numeric.Ratio(c.CompletedStudents, c.TotalEnrollments)
}

func refreshRating(c *models.Course) {
	c.AverageRating = numeric.Ratio(c.RatingSum, c.TotalRatings)
}

func onCourseCreated(s *session, agg *aggregates, p *blob.CourseCreated) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	c.Creator = p.Creator
	c.CreatorName = p.CreatorName
	c.Title = p.Title
	c.Description = p.Description
	c.ThumbnailCID = p.ThumbnailCID
	c.PricePerMonth = p.PricePerMonth
	c.PricePerMonthEth = numeric.ToEther(p.PricePerMonth)
	c.Category = models.CategoryName(p.Category)
	c.Difficulty = models.DifficultyName(p.Difficulty)
	c.IsActive = true
	c.CreatedAt = s.ev.Timestamp.Unix()
	c.CreatedAtBlock = s.ev.Position.BlockNumber
	c.UpdatedAt = s.ev.Timestamp.Unix()

	creator, err := touchUser(s, agg, p.Creator)
	if err != nil {
		return err
	}
	markCreator(agg, creator)
	creator.CoursesCreated++

	agg.platform.TotalCourses++
	agg.daily.NewCourses++

	return record(s, agg, activity{
		kind:        models.ActivityCourseCreated,
		user:        p.Creator,
		course:      c.ID,
		description: fmt.Sprintf("Created course %q", p.Title),
		metadata: map[string]string{
			"pricePerMonth": p.PricePerMonth.String(),
			"category":      c.Category,
			"difficulty":    c.Difficulty,
		},
	})
}

func onCourseUpdated(s *session, agg *aggregates, p *blob.CourseUpdated) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	if c.Creator == "" {
		c.Creator = p.Creator
	}
	c.Title = p.Title
	c.PricePerMonth = p.PricePerMonth
	c.PricePerMonthEth = numeric.ToEther(p.PricePerMonth)
	c.IsActive = p.IsActive && !c.IsDeleted && !c.IsEmergencyDeactivated
	c.UpdatedAt = s.ev.Timestamp.Unix()

	return record(s, agg, activity{
		kind:        models.ActivityCourseUpdated,
		user:        p.Creator,
		course:      c.ID,
		description: fmt.Sprintf("Updated course %q", p.Title),
		metadata: map[string]string{
			"pricePerMonth": p.PricePerMonth.String(),
			"isActive":      strconv.FormatBool(p.IsActive),
		},
	})
}

func onCourseDeleted(s *session, agg *aggregates, p *blob.CourseDeleted) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	if !c.IsDeleted {
		c.IsDeleted = true
		c.DeletedAt = s.ev.Timestamp.Unix()
	}
	c.IsActive = false
	c.UpdatedAt = s.ev.Timestamp.Unix()
	agg.platform.CoursesDeleted++

	return record(s, agg, activity{
		kind:        models.ActivityCourseDeleted,
		user:        actorOr(p.Creator, c.Creator),
		course:      c.ID,
		description: fmt.Sprintf("Deleted course %q", c.Title),
	})
}

func onCourseEmergencyDeactivated(s *session, agg *aggregates, p *blob.CourseEmergencyDeactivated) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	c.IsEmergencyDeactivated = true
	c.EmergencyReason = p.Reason
	c.IsActive = false
	c.UpdatedAt = s.ev.Timestamp.Unix()
	agg.platform.CoursesDeactivated++

	return record(s, agg, activity{
		kind:        models.ActivityCourseDeactivated,
		user:        actorOr(s.ev.From, c.Creator),
		course:      c.ID,
		description: fmt.Sprintf("Emergency deactivated course %q", c.Title),
		metadata:    map[string]string{"reason": p.Reason},
	})
}

// sectionLive reports whether a section counts toward its course totals.
// Rows created only to recover a missing parent have no title yet.
func sectionLive(sec *models.CourseSection) bool {
	return !sec.IsDeleted && sec.Title != ""
}

// appendSection lists a section that is not live yet at the end of the course.
// Live order indexes stay dense, so the next free slot is the section count.
func appendSection(c *models.Course, sec *models.CourseSection) {
	sec.OrderIndex = uint64(c.SectionsCount)
	c.SectionsCount++
}

// liveSiblings returns the live sections of the course other than skip.
func liveSiblings(s *session, c *models.Course, skip string) ([]*models.CourseSection, error) {
	all, err := s.sections().list(db.Filter{"course": c.ID, "isDeleted": false})
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, sec := range all {
		if sec.ID != skip && sectionLive(sec) {
			out = append(out, sec)
		}
	}
	return out, nil
}

func loadSection(s *session, courseID, sectionID uint64) (*models.CourseSection, error) {
	sec, created, err := s.sections().loadOrCreate(ident.SectionID(courseID, sectionID))
	if err != nil {
		return nil, err
	}
	if created {
		sec.Course = ident.CourseID(courseID)
		sec.SectionID = sectionID
	}
	s.sections().save(sec.ID, sec)
	return sec, nil
}

func onSectionAdded(s *session, agg *aggregates, p *blob.SectionAdded) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	sec, err := loadSection(s, p.CourseID, p.SectionID)
	if err != nil {
		return err
	}

	if sectionLive(sec) {
		c.TotalDuration = subFloor(c.TotalDuration, sec.Duration)
	} else {
		appendSection(c, sec)
	}
	sec.IsDeleted = false
	sec.Title = p.Title
	sec.ContentCID = p.ContentCID
	sec.Duration = p.Duration
	sec.UpdatedAt = s.ev.Timestamp.Unix()
	c.TotalDuration += p.Duration
	c.UpdatedAt = s.ev.Timestamp.Unix()
	agg.platform.TotalSections++

	return record(s, agg, activity{
		kind:        models.ActivitySectionAdded,
		user:        actorOr(c.Creator, s.ev.From),
		course:      c.ID,
		description: fmt.Sprintf("Added section %q", p.Title),
		metadata:    map[string]string{"sectionId": strconv.FormatUint(p.SectionID, 10)},
	})
}

func onSectionUpdated(s *session, agg *aggregates, p *blob.SectionUpdated) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	sec, err := loadSection(s, p.CourseID, p.SectionID)
	if err != nil {
		return err
	}

	switch {
	case sectionLive(sec):
		c.TotalDuration = subFloor(c.TotalDuration, sec.Duration) + p.Duration
	case !sec.IsDeleted:
		// Update of a section never seen as added.
		appendSection(c, sec)
		c.TotalDuration += p.Duration
	}
	sec.Title = p.Title
	sec.ContentCID = p.ContentCID
	sec.Duration = p.Duration
	sec.UpdatedAt = s.ev.Timestamp.Unix()
	c.UpdatedAt = s.ev.Timestamp.Unix()

	return record(s, agg, activity{
		kind:        models.ActivitySectionUpdated,
		user:        actorOr(c.Creator, s.ev.From),
		course:      c.ID,
		description: fmt.Sprintf("Updated section %q", p.Title),
		metadata:    map[string]string{"sectionId": strconv.FormatUint(p.SectionID, 10)},
	})
}

func onSectionDeleted(s *session, agg *aggregates, p *blob.SectionDeleted) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	sec, err := loadSection(s, p.CourseID, p.SectionID)
	if err != nil {
		return err
	}

	if sectionLive(sec) {
		siblings, err := liveSiblings(s, c, sec.ID)
		if err != nil {
			return err
		}
		for _, sib := range siblings {
			if sib.OrderIndex > sec.OrderIndex {
				sib.OrderIndex--
				sib.UpdatedAt = s.ev.Timestamp.Unix()
				s.sections().save(sib.ID, sib)
			}
		}
		c.SectionsCount--
		c.TotalDuration = subFloor(c.TotalDuration, sec.Duration)
	}
	sec.IsDeleted = true
	sec.UpdatedAt = s.ev.Timestamp.Unix()
	c.UpdatedAt = s.ev.Timestamp.Unix()

	return record(s, agg, activity{
		kind:        models.ActivitySectionDeleted,
		user:        actorOr(c.Creator, s.ev.From),
		course:      c.ID,
		description: fmt.Sprintf("Deleted section %q", sec.Title),
		metadata:    map[string]string{"sectionId": strconv.FormatUint(p.SectionID, 10)},
	})
}

// onSectionMoved places the section at ToIndex and shifts the live sections in between.
func onSectionMoved(s *session, agg *aggregates, p *blob.SectionMoved) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	moved, err := loadSection(s, p.CourseID, p.SectionID)
	if err != nil {
		return err
	}

	siblings, err := liveSiblings(s, c, moved.ID)
	if err != nil {
		return err
	}
	from, to := p.FromIndex, p.ToIndex
	for _, sec := range siblings {
		switch {
		case from < to && sec.OrderIndex > from && sec.OrderIndex <= to:
			sec.OrderIndex--
		case to < from && sec.OrderIndex >= to && sec.OrderIndex < from:
			sec.OrderIndex++
		default:
			continue
		}
		sec.UpdatedAt = s.ev.Timestamp.Unix()
		s.sections().save(sec.ID, sec)
	}
	moved.OrderIndex = to
	moved.UpdatedAt = s.ev.Timestamp.Unix()
	c.UpdatedAt = s.ev.Timestamp.Unix()

	return record(s, agg, activity{
		kind:        models.ActivitySectionMoved,
		user:        actorOr(c.Creator, s.ev.From),
		course:      c.ID,
		description: fmt.Sprintf("Moved section %q", moved.Title),
		metadata: map[string]string{
			"sectionId": strconv.FormatUint(p.SectionID, 10),
			"fromIndex": strconv.FormatUint(from, 10),
			"toIndex":   strconv.FormatUint(to, 10),
		},
	})
}

func loadRating(s *session, courseID uint64, user string) (*models.CourseRating, error) {
	r, created, err := s.ratings().loadOrCreate(ident.RatingID(courseID, user))
	if err != nil {
		return nil, err
	}
	if created {
		r.Course = ident.CourseID(courseID)
		r.User = user
	}
	s.ratings().save(r.ID, r)
	return r, nil
}

// applyRating moves a rating from its current value to next (0 removes it) and
// keeps the course and creator sums in step.
func applyRating(s *session, agg *aggregates, c *models.Course, r *models.CourseRating, next int64) error {
	live := !r.IsDeleted && r.Rating > 0
	var dSum, dCount int64
	if live {
		dSum -= r.Rating
		dCount--
	}
	if next > 0 {
		dSum += next
		dCount++
		r.Rating = next
		r.IsDeleted = false
	} else {
		r.IsDeleted = true
	}
	r.UpdatedAt = s.ev.Timestamp.Unix()

	c.RatingSum += dSum
	c.TotalRatings += dCount
	refreshRating(c)

	if c.Creator == "" {
		return nil
	}
	creator, err := touchUser(s, agg, c.Creator)
	if err != nil {
		return err
	}
	creator.CreatorRatingSum += dSum
	creator.CreatorTotalRatings += dCount
	refreshCreatorRating(creator)
	return nil
}

func onCourseRated(s *session, agg *aggregates, p *blob.CourseRated) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	r, err := loadRating(s, p.CourseID, p.User)
	if err != nil {
		return err
	}
	if err := applyRating(s, agg, c, r, int64(p.Rating)); err != nil {
		return err
	}

	rater, err := touchUser(s, agg, p.User)
	if err != nil {
		return err
	}
	rater.RatingsGiven++
	agg.platform.RatingsSubmitted++

	return record(s, agg, activity{
		kind:        models.ActivityCourseRated,
		user:        p.User,
		course:      c.ID,
		description: fmt.Sprintf("Rated course %q %d/5", c.Title, p.Rating),
		metadata:    map[string]string{"rating": strconv.Itoa(int(p.Rating))},
	})
}

func onRatingUpdated(s *session, agg *aggregates, p *blob.RatingUpdated) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	r, err := loadRating(s, p.CourseID, p.User)
	if err != nil {
		return err
	}
	if err := applyRating(s, agg, c, r, int64(p.NewRating)); err != nil {
		return err
	}

	return record(s, agg, activity{
		kind:        models.ActivityRatingUpdated,
		user:        p.User,
		course:      c.ID,
		description: fmt.Sprintf("Changed rating of %q from %d to %d", c.Title, p.OldRating, p.NewRating),
		metadata: map[string]string{
			"oldRating": strconv.Itoa(int(p.OldRating)),
			"newRating": strconv.Itoa(int(p.NewRating)),
		},
	})
}

func onRatingDeleted(s *session, agg *aggregates, p *blob.RatingDeleted) error {
	c, err := loadCourse(s, p.CourseID)
	if err != nil {
		return err
	}
	r, err := loadRating(s, p.CourseID, p.User)
	if err != nil {
		return err
	}
	if err := applyRating(s, agg, c, r, 0); err != nil {
		return err
	}

	return record(s, agg, activity{
		kind:        models.ActivityRatingDeleted,
		user:        p.User,
		course:      c.ID,
		description: fmt.Sprintf("Removed rating of %q", c.Title),
		metadata:    map[string]string{"previousRating": strconv.Itoa(int(p.PreviousRating))},
	})
}

func subFloor(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
