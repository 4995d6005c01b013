package models

// SubjectType classifies how a subject is taught.
type SubjectType string

const (
	SubjectTypeLecture  SubjectType = "lecture"
	SubjectTypeLab      SubjectType = "lab"
	SubjectTypeTutorial SubjectType = "tutorial"
)

// Subject is a course taught by a single faculty member.
type Subject struct {
	ID                string      `json:"id" validate:"required"`
	Name              string      `json:"name" validate:"required"`
	Code              string      `json:"code"`
	Credits           int         `json:"credits" validate:"gt=0"`
	Type              SubjectType `json:"type" validate:"required,oneof=lecture lab tutorial"`
	FacultyID         string      `json:"facultyId" validate:"required"`
	MaxClassesPerWeek int         `json:"maxClassesPerWeek" validate:"gt=0"`
	MaxClassesPerDay  int         `json:"maxClassesPerDay" validate:"gt=0"`
	// SessionsPerWeek overrides the credits-derived session count when set.
	SessionsPerWeek int `json:"sessionsPerWeek,omitempty" validate:"gte=0"`
	// SessionUnits is the length of one session in slot units. Zero means one.
	SessionUnits int `json:"sessionUnits,omitempty" validate:"gte=0"`
}

// Units returns the session length in slot units.
func (s Subject) Units() int {
	if s.SessionUnits <= 0 {
		return 1
	}
	return s.SessionUnits
}

// RequiredSessions returns how many sessions a class must receive per week:
// the explicit count when given, otherwise one per credit, never above the
// weekly maximum.
func (s Subject) RequiredSessions() int {
	required := s.SessionsPerWeek
	if required <= 0 {
		required = s.Credits
	}
	if s.MaxClassesPerWeek > 0 && required > s.MaxClassesPerWeek {
		required = s.MaxClassesPerWeek
	}
	return required
}
