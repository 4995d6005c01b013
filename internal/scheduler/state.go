package scheduler

import (
	"github.com/noah-isme/timetable-engine/internal/models"
)

type dayCounts [models.DayCount]int

// Board is the explicit search state: an arena of committed slots, the undo
// log that mirrors it and the counters the constraints read. Commits and
// undos are strictly LIFO.
type Board struct {
	lookup      *lookup
	index       *Index
	occupancy   *Occupancy
	slotMinutes int

	arena []models.TimetableSlot
	log   []Placement

	unitDay    map[string]*dayCounts
	unitWeek   map[string]int
	unitLast   map[string][]Placement
	facultyDay map[string]*dayCounts
}

func newBoard(lk *lookup, idx *Index, slotMinutes int) *Board {
	return &Board{
		lookup:      lk,
		index:       idx,
		occupancy:   NewOccupancy(),
		slotMinutes: slotMinutes,
		unitDay:     map[string]*dayCounts{},
		unitWeek:    map[string]int{},
		unitLast:    map[string][]Placement{},
		facultyDay:  map[string]*dayCounts{},
	}
}

// Commit places a session and records it in the undo log.
func (b *Board) Commit(p Placement) models.TimetableSlot {
	slot := models.TimetableSlot{
		ID:        p.SlotID,
		Day:       p.Day,
		Time:      p.Time,
		Duration:  p.Subject.Units(),
		SubjectID: p.Subject.ID,
		FacultyID: p.FacultyID,
		RoomID:    p.Room.ID,
		ClassID:   p.Class.ID,
		Type:      p.Subject.Type,
	}
	window := p.Window()
	b.occupancy.Reserve(KindFaculty, p.FacultyID, p.Day, window, p.SlotID)
	b.occupancy.Reserve(KindRoom, p.Room.ID, p.Day, window, p.SlotID)
	b.occupancy.Reserve(KindClass, p.Class.ID, p.Day, window, p.SlotID)

	counts(b.unitDay, p.UnitID)[p.Day]++
	counts(b.facultyDay, p.FacultyID)[p.Day]++
	b.unitWeek[p.UnitID]++
	b.unitLast[p.UnitID] = append(b.unitLast[p.UnitID], p)

	b.arena = append(b.arena, slot)
	b.log = append(b.log, p)
	return slot
}

// Undo reverts the most recent commit.
func (b *Board) Undo() (Placement, bool) {
	if len(b.log) == 0 {
		return Placement{}, false
	}
	p := b.log[len(b.log)-1]
	b.log = b.log[:len(b.log)-1]
	b.arena = b.arena[:len(b.arena)-1]

	b.occupancy.Release(KindFaculty, p.FacultyID, p.Day, p.SlotID)
	b.occupancy.Release(KindRoom, p.Room.ID, p.Day, p.SlotID)
	b.occupancy.Release(KindClass, p.Class.ID, p.Day, p.SlotID)

	counts(b.unitDay, p.UnitID)[p.Day]--
	counts(b.facultyDay, p.FacultyID)[p.Day]--
	b.unitWeek[p.UnitID]--
	last := b.unitLast[p.UnitID]
	b.unitLast[p.UnitID] = last[:len(last)-1]
	return p, true
}

// Slots returns a copy of the committed slots in commit order.
func (b *Board) Slots() []models.TimetableSlot {
	return append([]models.TimetableSlot(nil), b.arena...)
}

// Len returns the number of committed slots.
func (b *Board) Len() int {
	return len(b.arena)
}

func (b *Board) placed(unitID string) int {
	return b.unitWeek[unitID]
}

func (b *Board) placedOn(unitID string, day models.Weekday) int {
	c := b.unitDay[unitID]
	if c == nil || !day.Valid() {
		return 0
	}
	return c[day]
}

func (b *Board) facultyLoad(facultyID string, day models.Weekday) int {
	c := b.facultyDay[facultyID]
	if c == nil || !day.Valid() {
		return 0
	}
	return c[day]
}

// lastOf returns the latest committed session of a unit.
func (b *Board) lastOf(unitID string) (Placement, bool) {
	last := b.unitLast[unitID]
	if len(last) == 0 {
		return Placement{}, false
	}
	return last[len(last)-1], true
}

func counts(m map[string]*dayCounts, key string) *dayCounts {
	c := m[key]
	if c == nil {
		c = &dayCounts{}
		m[key] = c
	}
	return c
}
