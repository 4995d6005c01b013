package scheduler

import (
	"time"

	"github.com/noah-isme/timetable-engine/internal/models"
)

func lecture(id, facultyID string, sessions, perDay int) models.Subject {
	return models.Subject{
		ID:                id,
		Name:              "Subject " + id,
		Code:              id,
		Credits:           sessions,
		Type:              models.SubjectTypeLecture,
		FacultyID:         facultyID,
		MaxClassesPerWeek: sessions,
		MaxClassesPerDay:  perDay,
	}
}

func class(id string, students int, subjects ...string) models.Class {
	return models.Class{
		ID:           id,
		Name:         "Class " + id,
		Semester:     1,
		StudentCount: students,
		SubjectIDs:   subjects,
	}
}

func teacher(id string, availability models.WeeklyAvailability, subjects ...string) models.Faculty {
	return models.Faculty{
		ID:           id,
		Name:         "Faculty " + id,
		Email:        id + "@example.edu",
		SubjectIDs:   subjects,
		Availability: availability,
	}
}

func classroom(id string, capacity int) models.Room {
	return models.Room{ID: id, Name: "Room " + id, Type: models.RoomTypeClassroom, Capacity: capacity}
}

func weekdays(start, end models.ClockTime) models.WeeklyAvailability {
	return models.EveryDay(start, end, models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday)
}

// scenarioA: one class, one subject with three weekly sessions, one faculty
// available 09:00-15:00 on weekdays and one always-open room.
func scenarioA() models.TimetableState {
	return models.TimetableState{
		Classes:  []models.Class{class("c1", 30, "s1")},
		Subjects: []models.Subject{lecture("s1", "f1", 3, 1)},
		Faculty:  []models.Faculty{teacher("f1", weekdays(models.Clock(9, 0), models.Clock(15, 0)), "s1")},
		Rooms:    []models.Room{classroom("r1", 40)},
	}
}

// sharedFaculty: two classes need the same subject whose faculty is free for
// one hour on the listed days only.
func sharedFaculty(days ...models.Weekday) models.TimetableState {
	return models.TimetableState{
		Classes:  []models.Class{class("c1", 25, "s1"), class("c2", 25, "s1")},
		Subjects: []models.Subject{lecture("s1", "f1", 1, 1)},
		Faculty:  []models.Faculty{teacher("f1", models.EveryDay(models.Clock(9, 0), models.Clock(10, 0), days...), "s1")},
		Rooms:    []models.Room{classroom("r1", 60)},
	}
}

// campus is a small department with several classes competing for faculty
// and rooms.
func campus() models.TimetableState {
	hours := weekdays(models.Clock(8, 0), models.Clock(14, 0))
	lunch := hours
	for _, d := range models.Weekdays() {
		if day := lunch.Day(d); day != nil {
			lunch.Set(d, models.DayAvailability{
				Start:  day.Start,
				End:    day.End,
				Breaks: []models.Interval{{Start: models.Clock(11, 0), End: models.Clock(12, 0)}},
			})
		}
	}
	physicsLab := models.Subject{
		ID: "phy-lab", Name: "Physics Lab", Code: "PHY-L", Credits: 1, Type: models.SubjectTypeLab,
		FacultyID: "f-phy", MaxClassesPerWeek: 1, MaxClassesPerDay: 1, SessionUnits: 2,
	}
	return models.TimetableState{
		Classes: []models.Class{
			class("c1", 30, "math", "phy", "phy-lab", "eng"),
			class("c2", 32, "math", "phy", "eng"),
			class("c3", 28, "math", "phy-lab", "eng"),
		},
		Subjects: []models.Subject{
			lecture("math", "f-math", 3, 1),
			lecture("phy", "f-phy", 2, 1),
			physicsLab,
			lecture("eng", "f-eng", 2, 1),
		},
		Faculty: []models.Faculty{
			teacher("f-math", lunch, "math"),
			teacher("f-phy", hours, "phy", "phy-lab"),
			teacher("f-eng", models.EveryDay(models.Clock(8, 0), models.Clock(12, 0), models.Monday, models.Wednesday, models.Friday), "eng"),
		},
		Rooms: []models.Room{
			classroom("r-101", 35),
			classroom("r-102", 40),
			{ID: "lab-1", Name: "Lab 1", Type: models.RoomTypeLab, Capacity: 30},
		},
	}
}

// tickingClock advances by step on every call.
func tickingClock(step time.Duration) func() time.Time {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func slotsByClass(slots []models.TimetableSlot) map[string][]models.TimetableSlot {
	out := map[string][]models.TimetableSlot{}
	for _, slot := range slots {
		out[slot.ClassID] = append(out[slot.ClassID], slot)
	}
	return out
}
