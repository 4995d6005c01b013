package export

import (
	"sort"
	"strconv"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// Timetable export columns.
const (
	ColumnDay      = "Day"
	ColumnStart    = "Start"
	ColumnEnd      = "End"
	ColumnClass    = "Class"
	ColumnSubject  = "Subject"
	ColumnFaculty  = "Faculty"
	ColumnRoom     = "Room"
	ColumnType     = "Type"
	ColumnDuration = "Units"
)

// TimetableDataset flattens a timetable into rows ordered by day, start time
// and class.
func TimetableDataset(tt models.Timetable, slotMinutes int) Dataset {
	if slotMinutes <= 0 {
		slotMinutes = 60
	}
	slots := append([]models.TimetableSlot(nil), tt.Slots...)
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.ClassID != b.ClassID {
			return a.ClassID < b.ClassID
		}
		return a.ID < b.ID
	})

	data := Dataset{
		Headers: []string{ColumnDay, ColumnStart, ColumnEnd, ColumnClass, ColumnSubject, ColumnFaculty, ColumnRoom, ColumnType, ColumnDuration},
		Rows:    make([]map[string]string, 0, len(slots)),
	}
	for _, slot := range slots {
		window := slot.Window(slotMinutes)
		data.Rows = append(data.Rows, map[string]string{
			ColumnDay:      slot.Day.String(),
			ColumnStart:    window.Start.String(),
			ColumnEnd:      window.End.String(),
			ColumnClass:    slot.ClassID,
			ColumnSubject:  slot.SubjectID,
			ColumnFaculty:  slot.FacultyID,
			ColumnRoom:     slot.RoomID,
			ColumnType:     string(slot.Type),
			ColumnDuration: strconv.Itoa(slot.Duration),
		})
	}
	return data
}
