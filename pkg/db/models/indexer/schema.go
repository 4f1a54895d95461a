package indexer

import (
	"fmt"
	"reflect"
	"strings"
)

// SchemaVersion is the version of the exposed read schema. Renaming or removing a
// field or relation below is a breaking change and requires a new major version.
const SchemaVersion = "v1"

// RelationDef declares a navigable link from one collection to another.
// A to-one relation joins LocalField to the target's ForeignField (usually "id");
// a to-many relation selects every target whose ForeignField equals LocalField.
// An included relation replaces a field of the same name in the result.
type RelationDef struct {
	Name         string `json:"name"`
	Target       string `json:"target"`
	LocalField   string `json:"localField"`
	ForeignField string `json:"foreignField"`
	Many         bool   `json:"many"`
}

// CollectionDef is the single source of truth for one queryable collection.
type CollectionDef struct {
	Name      string        `json:"name"`
	Fields    []string      `json:"fields"`
	Relations []RelationDef `json:"relations"`
}

// HasField reports whether field is declared on the collection.
func (c CollectionDef) HasField(field string) bool {
	for _, f := range c.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Relation looks up a relation by name.
func (c CollectionDef) Relation(name string) (RelationDef, bool) {
	for _, r := range c.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return RelationDef{}, false
}

func one(name, target, local string) RelationDef {
	return RelationDef{Name: name, Target: target, LocalField: local, ForeignField: "id"}
}

func many(name, target, foreign string) RelationDef {
	return RelationDef{Name: name, Target: target, LocalField: "id", ForeignField: foreign, Many: true}
}

var collections = []CollectionDef{
	{
		Name:   CoursesCollection,
		Fields: jsonFields(Course{}),
		Relations: []RelationDef{
			one("creatorProfile", UserProfilesCollection, "creator"),
			many("sections", CourseSectionsCollection, "course"),
			many("enrollments", EnrollmentsCollection, "course"),
			many("ratings", CourseRatingsCollection, "course"),
			many("activities", ActivityEventsCollection, "course"),
		},
	},
	{
		Name:   CourseSectionsCollection,
		Fields: jsonFields(CourseSection{}),
		Relations: []RelationDef{
			one("course", CoursesCollection, "course"),
			many("completions", SectionCompletionsCollection, "section"),
		},
	},
	{
		Name:   CourseRatingsCollection,
		Fields: jsonFields(CourseRating{}),
		Relations: []RelationDef{
			one("course", CoursesCollection, "course"),
			one("userProfile", UserProfilesCollection, "user"),
		},
	},
	{
		Name:   EnrollmentsCollection,
		Fields: jsonFields(Enrollment{}),
		Relations: []RelationDef{
			one("course", CoursesCollection, "course"),
			one("studentProfile", UserProfilesCollection, "student"),
			one("certificate", CertificatesCollection, "certificate"),
			many("sectionCompletions", SectionCompletionsCollection, "enrollment"),
		},
	},
	{
		Name:   SectionCompletionsCollection,
		Fields: jsonFields(SectionCompletion{}),
		Relations: []RelationDef{
			one("enrollment", EnrollmentsCollection, "enrollment"),
			one("section", CourseSectionsCollection, "section"),
		},
	},
	{
		Name:   CertificatesCollection,
		Fields: jsonFields(Certificate{}),
		Relations: []RelationDef{
			one("recipientProfile", UserProfilesCollection, "recipient"),
			many("courses", CertificateCoursesCollection, "certificate"),
		},
	},
	{
		Name:   CertificateCoursesCollection,
		Fields: jsonFields(CertificateCourse{}),
		Relations: []RelationDef{
			one("certificate", CertificatesCollection, "certificate"),
			one("course", CoursesCollection, "course"),
			one("enrollment", EnrollmentsCollection, "enrollment"),
		},
	},
	{
		Name:   UserProfilesCollection,
		Fields: jsonFields(UserProfile{}),
		Relations: []RelationDef{
			one("certificate", CertificatesCollection, "certificate"),
			many("enrollments", EnrollmentsCollection, "student"),
			many("coursesCreated", CoursesCollection, "creator"),
			many("ratings", CourseRatingsCollection, "user"),
			many("activities", ActivityEventsCollection, "user"),
		},
	},
	{
		Name:   ActivityEventsCollection,
		Fields: jsonFields(ActivityEvent{}),
		Relations: []RelationDef{
			one("userProfile", UserProfilesCollection, "user"),
			one("course", CoursesCollection, "course"),
			one("enrollment", EnrollmentsCollection, "enrollment"),
			one("certificate", CertificatesCollection, "certificate"),
		},
	},
	{Name: NetworkStatsCollection, Fields: jsonFields(NetworkStats{})},
	{Name: PlatformStatsCollection, Fields: jsonFields(PlatformStats{})},
	{Name: DailyNetworkStatsCollection, Fields: jsonFields(DailyNetworkStats{})},
	{
		Name:   ContractConfigStatesCollection,
		Fields: jsonFields(ContractConfigState{}),
		Relations: []RelationDef{
			many("changes", AdminConfigEventsCollection, "contract"),
		},
	},
	{
		Name:   AdminConfigEventsCollection,
		Fields: jsonFields(AdminConfigEvent{}),
		Relations: []RelationDef{
			one("config", ContractConfigStatesCollection, "contract"),
		},
	},
}

// Collections returns every queryable collection.
func Collections() []CollectionDef {
	return collections
}

// LookupCollection finds a collection by name.
func LookupCollection(name string) (CollectionDef, bool) {
	for _, c := range collections {
		if c.Name == name {
			return c, true
		}
	}
	return CollectionDef{}, false
}

// ValidateSchema checks that every relation points at declared collections and fields.
func ValidateSchema() error {
	for _, c := range collections {
		for _, r := range c.Relations {
			target, ok := LookupCollection(r.Target)
			if !ok {
				return fmt.Errorf("%s.%s: unknown target %s", c.Name, r.Name, r.Target)
			}
			if !c.HasField(r.LocalField) {
				return fmt.Errorf("%s.%s: unknown local field %s", c.Name, r.Name, r.LocalField)
			}
			if !target.HasField(r.ForeignField) {
				return fmt.Errorf("%s.%s: unknown foreign field %s.%s", c.Name, r.Name, r.Target, r.ForeignField)
			}
		}
	}
	return nil
}

// jsonFields lists the JSON names of a model's exported fields.
func jsonFields(v any) []string {
	t := reflect.TypeOf(v)
	var names []string
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			names = append(names, name)
		}
	}
	return names
}
