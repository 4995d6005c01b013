package scheduler

import (
	"sort"
	"strconv"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// EntityKind identifies which collection an id belongs to.
type EntityKind int

const (
	KindFaculty EntityKind = iota
	KindRoom
	KindClass
)

// String returns the lower-case kind name.
func (k EntityKind) String() string {
	switch k {
	case KindFaculty:
		return "faculty"
	case KindRoom:
		return "room"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

type entityKey struct {
	kind EntityKind
	id   string
}

type weekWindows [models.DayCount][]models.Interval

// Index answers free/busy questions about faculty and rooms. It is built once
// per run and never mutated afterwards.
type Index struct {
	free map[entityKey]*weekWindows
}

// NewIndex precomputes free windows for every faculty member and room. Leave
// days are empty and breaks are carved out of the declared windows. Malformed
// availability fails with a *ValidationError.
func NewIndex(state models.TimetableState) (*Index, error) {
	verr := &ValidationError{}
	for i, f := range state.Faculty {
		validateAvailability(verr, "faculty["+strconv.Itoa(i)+"].availability", f.Availability)
	}
	for i, r := range state.Rooms {
		validateAvailability(verr, "rooms["+strconv.Itoa(i)+"].availability", r.Availability)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	idx := &Index{free: make(map[entityKey]*weekWindows, len(state.Faculty)+len(state.Rooms))}
	for _, f := range state.Faculty {
		windows := buildWindows(f.Availability)
		for _, d := range models.Weekdays() {
			if f.OnLeave(d) {
				windows[d] = nil
			}
		}
		idx.free[entityKey{KindFaculty, f.ID}] = windows
	}
	for _, r := range state.Rooms {
		idx.free[entityKey{KindRoom, r.ID}] = buildWindows(r.Availability)
	}
	return idx, nil
}

func buildWindows(week models.WeeklyAvailability) *weekWindows {
	var out weekWindows
	if week.Unrestricted() {
		for i := range out {
			out[i] = []models.Interval{{Start: 0, End: models.EndOfDay}}
		}
		return &out
	}
	for _, d := range models.Weekdays() {
		day := week.Day(d)
		if day == nil {
			continue
		}
		breaks := append([]models.Interval(nil), day.Breaks...)
		sort.Slice(breaks, func(i, j int) bool { return breaks[i].Start < breaks[j].Start })
		cursor := day.Start
		for _, b := range breaks {
			if b.Start > cursor {
				out[d] = append(out[d], models.Interval{Start: cursor, End: b.Start})
			}
			if b.End > cursor {
				cursor = b.End
			}
		}
		if cursor < day.End {
			out[d] = append(out[d], models.Interval{Start: cursor, End: day.End})
		}
	}
	return &out
}

// FreeWindows returns the sorted free intervals of an entity on a day.
// Classes are not indexed and unknown entities have no windows.
func (x *Index) FreeWindows(kind EntityKind, id string, day models.Weekday) []models.Interval {
	w, ok := x.free[entityKey{kind, id}]
	if !ok || !day.Valid() {
		return nil
	}
	return append([]models.Interval(nil), w[day]...)
}

// IsFree reports whether [start, start+minutes) lies inside one free window.
func (x *Index) IsFree(kind EntityKind, id string, day models.Weekday, start models.ClockTime, minutes int) bool {
	w, ok := x.free[entityKey{kind, id}]
	if !ok || !day.Valid() || minutes <= 0 {
		return false
	}
	windows := w[day]
	i := sort.Search(len(windows), func(i int) bool { return windows[i].End > start })
	if i == len(windows) {
		return false
	}
	return windows[i].Contains(models.Interval{Start: start, End: start + models.ClockTime(minutes)})
}

// AvailableDays counts the days on which the entity has any free window.
func (x *Index) AvailableDays(kind EntityKind, id string) int {
	w, ok := x.free[entityKey{kind, id}]
	if !ok {
		return 0
	}
	n := 0
	for _, windows := range w {
		if len(windows) > 0 {
			n++
		}
	}
	return n
}

type booking struct {
	window models.Interval
	slotID string
}

// Occupancy tracks which intervals are taken per entity and day.
type Occupancy struct {
	busy map[entityKey]*[models.DayCount][]booking
}

// NewOccupancy returns empty bookkeeping.
func NewOccupancy() *Occupancy {
	return &Occupancy{busy: make(map[entityKey]*[models.DayCount][]booking)}
}

// Reserve records a booking, keeping the day's list sorted by start.
func (o *Occupancy) Reserve(kind EntityKind, id string, day models.Weekday, window models.Interval, slotID string) {
	if !day.Valid() {
		return
	}
	key := entityKey{kind, id}
	week := o.busy[key]
	if week == nil {
		week = &[models.DayCount][]booking{}
		o.busy[key] = week
	}
	list := week[day]
	i := sort.Search(len(list), func(i int) bool { return list[i].window.Start > window.Start })
	list = append(list, booking{})
	copy(list[i+1:], list[i:])
	list[i] = booking{window: window, slotID: slotID}
	week[day] = list
}

// Release removes the booking made for slotID.
func (o *Occupancy) Release(kind EntityKind, id string, day models.Weekday, slotID string) {
	week := o.busy[entityKey{kind, id}]
	if week == nil || !day.Valid() {
		return
	}
	list := week[day]
	for i := range list {
		if list[i].slotID == slotID {
			week[day] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Overlapping returns the slot ids whose bookings overlap window, skipping ignore.
func (o *Occupancy) Overlapping(kind EntityKind, id string, day models.Weekday, window models.Interval, ignore string) []string {
	week := o.busy[entityKey{kind, id}]
	if week == nil || !day.Valid() {
		return nil
	}
	var out []string
	for _, b := range week[day] {
		if b.window.Start >= window.End {
			break
		}
		if b.slotID != ignore && b.window.Overlaps(window) {
			out = append(out, b.slotID)
		}
	}
	return out
}

// Busy reports whether any booking other than ignore overlaps window.
func (o *Occupancy) Busy(kind EntityKind, id string, day models.Weekday, window models.Interval, ignore string) bool {
	return len(o.Overlapping(kind, id, day, window, ignore)) > 0
}

// Count returns the number of bookings of an entity on a day.
func (o *Occupancy) Count(kind EntityKind, id string, day models.Weekday) int {
	week := o.busy[entityKey{kind, id}]
	if week == nil || !day.Valid() {
		return 0
	}
	return len(week[day])
}
