package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableStatus represents lifecycle phases for persisted timetables.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
	TimetableStatusArchived  TimetableStatus = "ARCHIVED"
)

// TimetableRecord is a versioned timetable row for a department/semester/year/shift.
type TimetableRecord struct {
	ID          string          `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Department  string          `db:"department" json:"department"`
	Semester    int             `db:"semester" json:"semester"`
	Year        int             `db:"year" json:"year"`
	Shift       Shift           `db:"shift" json:"shift"`
	Version     int             `db:"version" json:"version"`
	Status      TimetableStatus `db:"status" json:"status"`
	Meta        types.JSONText  `db:"meta" json:"meta"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetableSlotRecord is a persisted slot of a timetable.
type TimetableSlotRecord struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	Duration    int       `db:"duration" json:"duration"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	FacultyID   string    `db:"faculty_id" json:"faculty_id"`
	RoomID      string    `db:"room_id" json:"room_id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	SlotType    string    `db:"slot_type" json:"slot_type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TimetableFilter narrows persisted timetable listings.
type TimetableFilter struct {
	Department string
	Semester   int
	Year       int
	Shift      Shift
	Status     TimetableStatus
	Page       int
	PageSize   int
}

// ToSlot converts the row into a domain slot.
func (r TimetableSlotRecord) ToSlot() TimetableSlot {
	return TimetableSlot{
		ID:        r.ID,
		Day:       Weekday(r.DayOfWeek),
		Time:      ClockTime(r.StartMinute),
		Duration:  r.Duration,
		SubjectID: r.SubjectID,
		FacultyID: r.FacultyID,
		RoomID:    r.RoomID,
		ClassID:   r.ClassID,
		Type:      SubjectType(r.SlotType),
	}
}

// SlotRecordFrom converts a domain slot into a row for the given timetable.
func SlotRecordFrom(timetableID string, slot TimetableSlot) TimetableSlotRecord {
	return TimetableSlotRecord{
		ID:          slot.ID,
		TimetableID: timetableID,
		DayOfWeek:   int(slot.Day),
		StartMinute: int(slot.Time),
		Duration:    slot.Duration,
		SubjectID:   slot.SubjectID,
		FacultyID:   slot.FacultyID,
		RoomID:      slot.RoomID,
		ClassID:     slot.ClassID,
		SlotType:    string(slot.Type),
	}
}

// Timetable rebuilds the domain timetable from a record and its slots.
func (r TimetableRecord) Timetable(slots []TimetableSlotRecord) Timetable {
	tt := Timetable{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Department:  r.Department,
		Semester:    r.Semester,
		Year:        r.Year,
		Shift:       r.Shift,
		Slots:       make([]TimetableSlot, 0, len(slots)),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, slot := range slots {
		tt.Slots = append(tt.Slots, slot.ToSlot())
	}
	return tt
}
