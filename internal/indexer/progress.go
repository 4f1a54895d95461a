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

// progressTarget is what every progress event touches.
type progressTarget struct {
	course     *models.Course
	enrollment *models.Enrollment
	student    *models.UserProfile
}

func loadProgressTarget(s *session, agg *aggregates, student string, courseID uint64) (progressTarget, error) {
	c, err := loadCourse(s, courseID)
	if err != nil {
		return progressTarget{}, err
	}
	e, _, err := loadEnrollment(s, c, student, courseID)
	if err != nil {
		return progressTarget{}, err
	}
	p, err := touchUser(s, agg, student)
	if err != nil {
		return progressTarget{}, err
	}
	expireIfDue(s, agg, c, e)
	e.LastActivityAt = s.ev.Timestamp.Unix()
	return progressTarget{course: c, enrollment: e, student: p}, nil
}

func loadCompletion(s *session, e *models.Enrollment, sec *models.CourseSection) (*models.SectionCompletion, bool, error) {
	sc, created, err := s.sectionCompletions().loadOrCreate(ident.SectionCompletionID(e.ID, sec.SectionID))
	if err != nil {
		return nil, false, err
	}
	if created {
		sc.Enrollment = e.ID
		sc.Section = sec.ID
		sc.Student = e.Student
		sc.Course = e.Course
	}
	s.sectionCompletions().save(sc.ID, sc)
	return sc, created, nil
}

func refreshDropOff(sec *models.CourseSection) {
	sec.DropOffRate = numeric.Ratio(sec.StartedCount-sec.CompletedCount, sec.StartedCount)
}

func refreshPercentage(t progressTarget) {
	e := t.enrollment
	if e.Status == models.StatusCompleted {
		e.CompletionPercentage = numeric.Percent(1, 1)
		return
	}
	done, total := e.CompletedSections, t.course.SectionsCount
	if done > total {
		done = total
	}
	e.CompletionPercentage = numeric.Percent(done, total)
}

// completeEnrollment moves the enrollment to COMPLETED once. It reports whether it did.
func completeEnrollment(s *session, agg *aggregates, t progressTarget) bool {
	e := t.enrollment
	if e.Status == models.StatusCompleted {
		return false
	}
	e.Status = models.StatusCompleted
	e.CompletedAt = s.ev.Timestamp.Unix()
	refreshPercentage(t)

	t.course.CompletedStudents++
	refreshCompletionRate(t.course)
	t.student.CoursesCompleted++
	t.student.MonthlyCompletions++
	agg.platform.TotalCompletions++
	agg.daily.Completions++
	return true
}

func onSectionStarted(s *session, agg *aggregates, p *blob.SectionStarted) error {
	t, err := loadProgressTarget(s, agg, p.Student, p.CourseID)
	if err != nil {
		return err
	}
	sec, err := loadSection(s, p.CourseID, p.SectionID)
	if err != nil {
		return err
	}
	sc, created, err := loadCompletion(s, t.enrollment, sec)
	if err != nil {
		return err
	}
	if created {
		sec.StartedCount++
		refreshDropOff(sec)
	}
	sc.IsReset = false
	sc.StartedAt = s.ev.Timestamp.Unix()

	return record(s, agg, activity{
		kind:        models.ActivitySectionStarted,
		user:        p.Student,
		course:      t.course.ID,
		enrollment:  t.enrollment.ID,
		description: fmt.Sprintf("Started section %q of %q", sec.Title, t.course.Title),
		metadata:    map[string]string{"sectionId": strconv.FormatUint(p.SectionID, 10)},
	})
}

// onSectionCompleted counts a section at most once per reset cycle. The section
// funnel only counts the first completion ever.
func onSectionCompleted(s *session, agg *aggregates, p *blob.SectionCompleted) error {
	t, err := loadProgressTarget(s, agg, p.Student, p.CourseID)
	if err != nil {
		return err
	}
	sec, err := loadSection(s, p.CourseID, p.SectionID)
	if err != nil {
		return err
	}
	sc, created, err := loadCompletion(s, t.enrollment, sec)
	if err != nil {
		return err
	}
	if created {
		sec.StartedCount++
	}

	courseCompleted := false
	if !sc.IsCompleted {
		if sc.CompletedAt == 0 {
			sec.CompletedCount++
			t.student.SectionsCompleted++
		}
		sc.IsCompleted = true
		sc.IsReset = false
		sc.CompletedAt = s.ev.Timestamp.Unix()

		t.enrollment.CompletedSections++
		agg.platform.TotalSectionCompletions++
		refreshPercentage(t)

		if n := t.course.SectionsCount; n > 0 && t.enrollment.CompletedSections >= n {
			courseCompleted = completeEnrollment(s, agg, t)
		}
	}
	refreshDropOff(sec)
	sec.UpdatedAt = s.ev.Timestamp.Unix()

	return record(s, agg, activity{
		kind:        models.ActivitySectionCompleted,
		user:        p.Student,
		course:      t.course.ID,
		enrollment:  t.enrollment.ID,
		description: fmt.Sprintf("Completed section %q of %q", sec.Title, t.course.Title),
		metadata: map[string]string{
			"sectionId":       strconv.FormatUint(p.SectionID, 10),
			"courseCompleted": strconv.FormatBool(courseCompleted),
		},
	})
}

func onCourseCompleted(s *session, agg *aggregates, p *blob.CourseCompleted) error {
	t, err := loadProgressTarget(s, agg, p.Student, p.CourseID)
	if err != nil {
		return err
	}
	completeEnrollment(s, agg, t)

	return record(s, agg, activity{
		kind:        models.ActivityCourseCompleted,
		user:        p.Student,
		course:      t.course.ID,
		enrollment:  t.enrollment.ID,
		description: fmt.Sprintf("Completed course %q", t.course.Title),
	})
}

// onProgressReset clears the progress of a non-completed enrollment.
func onProgressReset(s *session, agg *aggregates, p *blob.ProgressReset) error {
	t, err := loadProgressTarget(s, agg, p.Student, p.CourseID)
	if err != nil {
		return err
	}

	cleared := 0
	if t.enrollment.Status != models.StatusCompleted {
		rows, err := s.sectionCompletions().list(db.Filter{"enrollment": t.enrollment.ID})
		if err != nil {
			return err
		}
		for _, sc := range rows {
			if sc.IsCompleted {
				cleared++
			}
			sc.IsCompleted = false
			sc.IsReset = true
			s.sectionCompletions().save(sc.ID, sc)
		}
		t.enrollment.CompletedSections = 0
		refreshPercentage(t)
	}

	return record(s, agg, activity{
		kind:        models.ActivityProgressReset,
		user:        p.Student,
		course:      t.course.ID,
		enrollment:  t.enrollment.ID,
		description: fmt.Sprintf("Reset progress in %q", t.course.Title),
		metadata:    map[string]string{"sectionsCleared": strconv.Itoa(cleared)},
	})
}
