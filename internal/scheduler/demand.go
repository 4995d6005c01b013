package scheduler

import (
	"sort"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// lookup resolves ids to entities for one run.
type lookup struct {
	classes  map[string]*models.Class
	subjects map[string]*models.Subject
	faculty  map[string]*models.Faculty
	rooms    map[string]*models.Room

	classOrder []*models.Class
	roomOrder  []*models.Room
}

func newLookup(state models.TimetableState) *lookup {
	lk := &lookup{
		classes:  make(map[string]*models.Class, len(state.Classes)),
		subjects: make(map[string]*models.Subject, len(state.Subjects)),
		faculty:  make(map[string]*models.Faculty, len(state.Faculty)),
		rooms:    make(map[string]*models.Room, len(state.Rooms)),
	}
	for i := range state.Classes {
		c := &state.Classes[i]
		lk.classes[c.ID] = c
		lk.classOrder = append(lk.classOrder, c)
	}
	for i := range state.Subjects {
		lk.subjects[state.Subjects[i].ID] = &state.Subjects[i]
	}
	for i := range state.Faculty {
		lk.faculty[state.Faculty[i].ID] = &state.Faculty[i]
	}
	for i := range state.Rooms {
		r := &state.Rooms[i]
		lk.rooms[r.ID] = r
		lk.roomOrder = append(lk.roomOrder, r)
	}
	sort.Slice(lk.classOrder, func(i, j int) bool { return lk.classOrder[i].ID < lk.classOrder[j].ID })
	sort.Slice(lk.roomOrder, func(i, j int) bool { return lk.roomOrder[i].ID < lk.roomOrder[j].ID })
	return lk
}

// DemandUnit is one (class, subject) pair and the sessions it needs per week.
type DemandUnit struct {
	ID       string
	Class    *models.Class
	Subject  *models.Subject
	Faculty  *models.Faculty
	Sessions int
	Minutes  int

	domain   int
	blocking map[Rule]int
	deadEnds int
}

func unitID(classID, subjectID string) string {
	return classID + "/" + subjectID
}

// buildDemand expands classes into demand units, sizes each unit's static
// domain and orders them most-constrained-first.
func buildDemand(b *Board, checker *Checker) []*DemandUnit {
	lk := b.lookup
	var units []*DemandUnit
	for _, class := range lk.classOrder {
		for _, subjectID := range class.SubjectIDs {
			subject := lk.subjects[subjectID]
			if subject == nil {
				continue
			}
			sessions := subject.RequiredSessions()
			if sessions <= 0 {
				continue
			}
			unit := &DemandUnit{
				ID:       unitID(class.ID, subject.ID),
				Class:    class,
				Subject:  subject,
				Faculty:  lk.faculty[subject.FacultyID],
				Sessions: sessions,
				Minutes:  subject.Units() * b.slotMinutes,
				blocking: map[Rule]int{},
			}
			sizeDomain(unit, b, checker)
			units = append(units, unit)
		}
	}

	// Fewer options per required session means more constrained.
	sort.SliceStable(units, func(i, j int) bool {
		li := units[i].domain * units[j].Sessions
		lj := units[j].domain * units[i].Sessions
		if li != lj {
			return li < lj
		}
		return units[i].ID < units[j].ID
	})
	return units
}

// sizeDomain counts the (day, time, room) triples that pass the static hard
// constraints, ignoring what other units occupy.
func sizeDomain(unit *DemandUnit, b *Board, checker *Checker) {
	if unit.Faculty == nil {
		unit.blocking[RuleFacultyUnavailable]++
		return
	}
	anyWindow := false
	for _, day := range models.Weekdays() {
		for _, start := range candidateTimes(b.index, unit.Faculty.ID, day, unit.Minutes, b.slotMinutes) {
			anyWindow = true
			for _, room := range b.lookup.roomOrder {
				p := Placement{
					UnitID:    unit.ID,
					Class:     unit.Class,
					Subject:   unit.Subject,
					FacultyID: unit.Faculty.ID,
					Room:      room,
					Day:       day,
					Time:      start,
					Minutes:   unit.Minutes,
				}
				if rule, ok := checker.Static(b, p); !ok {
					unit.blocking[rule]++
					continue
				}
				unit.domain++
			}
		}
	}
	if !anyWindow {
		unit.blocking[RuleFacultyUnavailable]++
	}
	if len(b.lookup.roomOrder) == 0 {
		unit.blocking[RuleRoomUnavailable]++
	}
}

// candidateTimes enumerates session starts inside the faculty's free windows,
// stepping by the slot length from each window start.
func candidateTimes(idx *Index, facultyID string, day models.Weekday, minutes, slotMinutes int) []models.ClockTime {
	if minutes <= 0 || slotMinutes <= 0 {
		return nil
	}
	var out []models.ClockTime
	for _, w := range idx.FreeWindows(KindFaculty, facultyID, day) {
		for t := w.Start; t+models.ClockTime(minutes) <= w.End; t += models.ClockTime(slotMinutes) {
			out = append(out, t)
		}
	}
	return out
}
