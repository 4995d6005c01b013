package models

import "time"

// Shift identifies the part of the day a timetable covers.
type Shift string

const (
	ShiftMorning Shift = "MORNING"
	ShiftEvening Shift = "EVENING"
)

// TimetableSlot is one scheduled session of a subject for a class.
type TimetableSlot struct {
	ID        string      `json:"id" validate:"required"`
	Day       Weekday     `json:"day"`
	Time      ClockTime   `json:"time"`
	Duration  int         `json:"duration" validate:"gt=0"`
	SubjectID string      `json:"subjectId" validate:"required"`
	FacultyID string      `json:"facultyId" validate:"required"`
	RoomID    string      `json:"roomId" validate:"required"`
	ClassID   string      `json:"classId" validate:"required"`
	Type      SubjectType `json:"type"`
}

// Window returns the occupied interval given the slot unit length.
func (s TimetableSlot) Window(slotMinutes int) Interval {
	return Interval{Start: s.Time, End: s.Time + ClockTime(s.Duration*slotMinutes)}
}

// Timetable is a set of slots for one department/semester/shift. The slot set
// may be inconsistent; feasibility is established by auditing it.
type Timetable struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Department  string          `json:"department"`
	Semester    int             `json:"semester"`
	Year        int             `json:"year"`
	Shift       Shift           `json:"shift"`
	Slots       []TimetableSlot `json:"slots"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TimetableMeta carries the descriptive fields of a timetable to generate.
type TimetableMeta struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Department  string `json:"department"`
	Semester    int    `json:"semester"`
	Year        int    `json:"year"`
	Shift       Shift  `json:"shift" validate:"omitempty,oneof=MORNING EVENING"`
}

// TimetableState is the entity snapshot a generation or audit run works on.
type TimetableState struct {
	Classes  []Class   `json:"classes" validate:"dive"`
	Subjects []Subject `json:"subjects" validate:"dive"`
	Faculty  []Faculty `json:"faculty" validate:"dive"`
	Rooms    []Room    `json:"rooms" validate:"dive"`
}
