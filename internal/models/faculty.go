package models

// Faculty is a teaching staff member.
type Faculty struct {
	ID           string             `json:"id" validate:"required"`
	Name         string             `json:"name" validate:"required"`
	Email        string             `json:"email" validate:"omitempty,email"`
	Department   string             `json:"department"`
	SubjectIDs   []string           `json:"subjects" validate:"dive,required"`
	Availability WeeklyAvailability `json:"availability"`
	// LeaveDays are weekdays on which the faculty member cannot teach at all
	// during the timetable's term.
	LeaveDays []Weekday `json:"leaveDays,omitempty"`
}

// OnLeave reports whether the day is a leave day.
func (f Faculty) OnLeave(day Weekday) bool {
	for _, d := range f.LeaveDays {
		if d == day {
			return true
		}
	}
	return false
}

// Teaches reports whether the subject is in the faculty's teachable list.
// An empty list is treated as unrestricted.
func (f Faculty) Teaches(subjectID string) bool {
	if len(f.SubjectIDs) == 0 {
		return true
	}
	for _, id := range f.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}
