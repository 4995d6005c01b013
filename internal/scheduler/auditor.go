package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/timetable-engine/internal/models"
)

const defaultLoadSpread = 3

// AuditOptions tunes an audit run.
type AuditOptions struct {
	SlotMinutes int
	// LoadSpread is the largest tolerated difference between a faculty
	// member's busiest and quietest available day.
	LoadSpread int
}

func (o AuditOptions) withDefaults() AuditOptions {
	if o.SlotMinutes <= 0 {
		o.SlotMinutes = defaultSlotMinutes
	}
	if o.LoadSpread <= 0 {
		o.LoadSpread = defaultLoadSpread
	}
	return o
}

type auditor struct {
	opts      AuditOptions
	lk        *lookup
	index     *Index
	occupancy *Occupancy
	slots     []models.TimetableSlot
	byID      map[string]models.TimetableSlot
	conflicts []models.Conflict
}

// Audit inspects a timetable against the entity snapshot and returns the
// conflicts it contains, most severe first. The timetable is never modified.
// Only malformed entities produce an error; everything wrong with the
// timetable itself is reported as a conflict.
func Audit(tt models.Timetable, state models.TimetableState, opts AuditOptions) ([]models.Conflict, error) {
	if err := Validate(state); err != nil {
		return nil, err
	}
	idx, err := NewIndex(state)
	if err != nil {
		return nil, err
	}
	a := &auditor{
		opts:      opts.withDefaults(),
		lk:        newLookup(state),
		index:     idx,
		occupancy: NewOccupancy(),
		byID:      map[string]models.TimetableSlot{},
	}

	a.admit(tt.Slots)
	for _, slot := range a.slots {
		a.occupancy.Reserve(KindFaculty, slot.FacultyID, slot.Day, a.window(slot), slot.ID)
		a.occupancy.Reserve(KindRoom, slot.RoomID, slot.Day, a.window(slot), slot.ID)
		a.occupancy.Reserve(KindClass, slot.ClassID, slot.Day, a.window(slot), slot.ID)
	}
	for _, slot := range a.slots {
		a.checkSlot(slot)
	}
	a.sweep(models.ConflictRoom, RuleRoomDoubleBooking, func(s models.TimetableSlot) string { return s.RoomID })
	a.sweep(models.ConflictFaculty, RuleFacultyDoubleBooking, func(s models.TimetableSlot) string { return s.FacultyID })
	a.sweep(models.ConflictClass, RuleClassDoubleBooking, func(s models.TimetableSlot) string { return s.ClassID })
	a.checkLimits()
	a.checkFacultyLoad()

	a.sortConflicts()
	return a.conflicts, nil
}

func (a *auditor) window(s models.TimetableSlot) models.Interval {
	return s.Window(a.opts.SlotMinutes)
}

// admit filters out slots that cannot be reasoned about and reports them.
// Conflicts raised here are keyed by input position so that id-less or
// duplicated slots still get distinct conflict ids.
func (a *auditor) admit(slots []models.TimetableSlot) {
	for i, slot := range slots {
		position := "#" + strconv.Itoa(i)
		var problems []string
		if slot.ID == "" {
			problems = append(problems, "missing id")
		} else if _, dup := a.byID[slot.ID]; dup {
			problems = append(problems, "duplicate id")
		}
		if !slot.Day.Valid() {
			problems = append(problems, "invalid day")
		}
		switch {
		case slot.Duration <= 0:
			problems = append(problems, "non-positive duration")
		case slot.Duration > int(models.EndOfDay)/a.opts.SlotMinutes:
			problems = append(problems, "duration longer than a day")
		case slot.Time < 0 || slot.Time >= models.EndOfDay || a.window(slot).End > models.EndOfDay:
			problems = append(problems, "time outside the day")
		}
		if len(problems) > 0 {
			a.emitKeyed(position, models.ConflictClass, models.SeverityHigh, RuleInvalidSlot,
				fmt.Sprintf("slot %s is invalid: %s", slot.ID, strings.Join(problems, ", ")),
				[]string{slot.ID}, models.Suggestion{Kind: models.SuggestionNone, Text: "fix or remove the slot"})
			continue
		}

		var unknown []string
		conflictType := models.ConflictClass
		if a.lk.classes[slot.ClassID] == nil {
			unknown = append(unknown, "class "+slot.ClassID)
		}
		if a.lk.subjects[slot.SubjectID] == nil {
			unknown = append(unknown, "subject "+slot.SubjectID)
		}
		if a.lk.faculty[slot.FacultyID] == nil {
			unknown = append(unknown, "faculty "+slot.FacultyID)
			conflictType = models.ConflictFaculty
		}
		if a.lk.rooms[slot.RoomID] == nil {
			unknown = append(unknown, "room "+slot.RoomID)
			conflictType = models.ConflictRoom
		}
		if len(unknown) > 0 {
			a.emitKeyed(position, conflictType, models.SeverityHigh, RuleUnknownReference,
				fmt.Sprintf("slot %s references unknown %s", slot.ID, strings.Join(unknown, ", ")),
				[]string{slot.ID}, models.Suggestion{Kind: models.SuggestionNone, Text: "point the slot at existing entities"})
			continue
		}

		a.byID[slot.ID] = slot
		a.slots = append(a.slots, slot)
	}
}

func (a *auditor) checkSlot(slot models.TimetableSlot) {
	class := a.lk.classes[slot.ClassID]
	subject := a.lk.subjects[slot.SubjectID]
	room := a.lk.rooms[slot.RoomID]
	minutes := slot.Duration * a.opts.SlotMinutes
	ids := []string{slot.ID}

	if slot.FacultyID != subject.FacultyID {
		a.emit(models.ConflictFaculty, models.SeverityHigh, RuleFacultyAssignment,
			fmt.Sprintf("slot %s assigns faculty %s to %s, which is taught by %s", slot.ID, slot.FacultyID, subject.ID, subject.FacultyID),
			ids, models.Suggestion{Kind: models.SuggestionNone, Text: fmt.Sprintf("reassign the slot to faculty %s", subject.FacultyID)})
	}
	if slot.Type != subject.Type {
		a.emit(models.ConflictClass, models.SeverityMedium, RuleSlotType,
			fmt.Sprintf("slot %s is typed %q but %s is a %s subject", slot.ID, slot.Type, subject.ID, subject.Type),
			ids, models.Suggestion{Kind: models.SuggestionNone, Text: fmt.Sprintf("set the slot type to %s", subject.Type)})
	}
	if !a.index.IsFree(KindFaculty, slot.FacultyID, slot.Day, slot.Time, minutes) {
		a.emit(models.ConflictFaculty, models.SeverityHigh, RuleFacultyUnavailable,
			fmt.Sprintf("faculty %s is not available on %s %s for %s in class %s", slot.FacultyID, slot.Day, a.window(slot), subject.ID, class.ID),
			ids, a.suggest(slot, false))
	}
	if !a.index.IsFree(KindRoom, slot.RoomID, slot.Day, slot.Time, minutes) {
		a.emit(models.ConflictRoom, models.SeverityHigh, RuleRoomUnavailable,
			fmt.Sprintf("room %s is not available on %s %s", room.ID, slot.Day, a.window(slot)),
			ids, a.suggest(slot, false))
	}
	if !room.Suits(subject.Type) {
		a.emit(models.ConflictRoom, models.SeverityHigh, RuleRoomTypeMismatch,
			fmt.Sprintf("%s subject %s is placed in %s room %s", subject.Type, subject.ID, room.Type, room.ID),
			ids, a.suggest(slot, false))
	}
	if room.Capacity < class.StudentCount {
		a.emit(models.ConflictRoom, models.SeverityHigh, RuleRoomCapacity,
			fmt.Sprintf("room %s seats %d but class %s has %d students", room.ID, room.Capacity, class.ID, class.StudentCount),
			ids, a.suggest(slot, false))
	}
}

// sweep clusters overlapping slots per (entity, day) with a sort by start
// time and emits one conflict per cluster.
func (a *auditor) sweep(conflictType models.ConflictType, rule Rule, key func(models.TimetableSlot) string) {
	type group struct {
		id  string
		day models.Weekday
	}
	groups := map[group][]models.TimetableSlot{}
	for _, slot := range a.slots {
		g := group{id: key(slot), day: slot.Day}
		groups[g] = append(groups[g], slot)
	}

	for g, slots := range groups {
		if len(slots) < 2 {
			continue
		}
		sort.Slice(slots, func(i, j int) bool {
			if slots[i].Time != slots[j].Time {
				return slots[i].Time < slots[j].Time
			}
			return slots[i].ID < slots[j].ID
		})
		cluster := []models.TimetableSlot{slots[0]}
		end := a.window(slots[0]).End
		flush := func() {
			if len(cluster) > 1 {
				a.emitCluster(conflictType, rule, g.id, g.day, cluster)
			}
		}
		for _, slot := range slots[1:] {
			w := a.window(slot)
			if w.Start < end {
				cluster = append(cluster, slot)
				if w.End > end {
					end = w.End
				}
				continue
			}
			flush()
			cluster = []models.TimetableSlot{slot}
			end = w.End
		}
		flush()
	}
}

func (a *auditor) emitCluster(conflictType models.ConflictType, rule Rule, entityID string, day models.Weekday, cluster []models.TimetableSlot) {
	ids := make([]string, 0, len(cluster))
	parts := make([]string, 0, len(cluster))
	for _, slot := range cluster {
		ids = append(ids, slot.ID)
		parts = append(parts, fmt.Sprintf("%s (%s %s, class %s)", slot.ID, slot.SubjectID, a.window(slot), slot.ClassID))
	}
	description := fmt.Sprintf("%s %s is double-booked on %s: %s", conflictType, entityID, day, strings.Join(parts, ", "))
	a.emit(conflictType, models.SeverityHigh, rule, description, ids, a.suggest(cluster[len(cluster)-1], false))
}

type unitKey struct {
	classID   string
	subjectID string
}

func (a *auditor) checkLimits() {
	byUnit := map[unitKey][]models.TimetableSlot{}
	for _, slot := range a.slots {
		k := unitKey{slot.ClassID, slot.SubjectID}
		byUnit[k] = append(byUnit[k], slot)
	}
	for k, slots := range byUnit {
		subject := a.lk.subjects[k.subjectID]
		SortSlots(slots)

		var perDay [models.DayCount][]models.TimetableSlot
		for _, slot := range slots {
			perDay[slot.Day] = append(perDay[slot.Day], slot)
		}
		stacked := false
		for _, day := range models.Weekdays() {
			daySlots := perDay[day]
			if len(daySlots) > 1 {
				stacked = true
			}
			if len(daySlots) <= subject.MaxClassesPerDay {
				continue
			}
			a.emit(models.ConflictClass, models.SeverityMedium, RuleDailyLimit,
				fmt.Sprintf("class %s has %d sessions of %s on %s, limit is %d", k.classID, len(daySlots), subject.ID, day, subject.MaxClassesPerDay),
				slotIDs(daySlots), a.suggest(daySlots[len(daySlots)-1], true))
		}

		if len(slots) > subject.MaxClassesPerWeek {
			extra := slots[len(slots)-1]
			a.emit(models.ConflictClass, models.SeverityMedium, RuleWeeklyLimit,
				fmt.Sprintf("class %s has %d sessions of %s this week, limit is %d", k.classID, len(slots), subject.ID, subject.MaxClassesPerWeek),
				slotIDs(slots), models.Suggestion{
					Kind:   models.SuggestionRemove,
					SlotID: extra.ID,
					Text:   fmt.Sprintf("remove slot %s on %s %s", extra.ID, extra.Day, extra.Time),
				})
			continue
		}

		if !stacked {
			continue
		}
		// Stacking is only a distribution problem while the faculty member
		// has a day without this subject.
		used := 0
		for _, day := range models.Weekdays() {
			if len(perDay[day]) > 0 {
				used++
			}
		}
		if used >= a.index.AvailableDays(KindFaculty, subject.FacultyID) {
			continue
		}
		for _, day := range models.Weekdays() {
			daySlots := perDay[day]
			if len(daySlots) < 2 || len(daySlots) > subject.MaxClassesPerDay {
				continue
			}
			a.emit(models.ConflictClass, models.SeverityLow, RuleDistribution,
				fmt.Sprintf("class %s has %d sessions of %s stacked on %s", k.classID, len(daySlots), subject.ID, day),
				slotIDs(daySlots), a.suggest(daySlots[len(daySlots)-1], true))
		}
	}
}

func (a *auditor) checkFacultyLoad() {
	byFaculty := map[string]*[models.DayCount][]models.TimetableSlot{}
	for _, slot := range a.slots {
		week := byFaculty[slot.FacultyID]
		if week == nil {
			week = &[models.DayCount][]models.TimetableSlot{}
			byFaculty[slot.FacultyID] = week
		}
		week[slot.Day] = append(week[slot.Day], slot)
	}
	for facultyID, week := range byFaculty {
		busiest, quietest := -1, -1
		for _, day := range models.Weekdays() {
			if len(a.index.FreeWindows(KindFaculty, facultyID, day)) == 0 {
				continue
			}
			if busiest < 0 || len(week[day]) > len(week[busiest]) {
				busiest = int(day)
			}
			if quietest < 0 || len(week[day]) < len(week[quietest]) {
				quietest = int(day)
			}
		}
		if busiest < 0 || len(week[busiest])-len(week[quietest]) <= a.opts.LoadSpread {
			continue
		}
		daySlots := append([]models.TimetableSlot(nil), week[busiest]...)
		SortSlots(daySlots)
		a.emit(models.ConflictFaculty, models.SeverityLow, RuleFacultyLoad,
			fmt.Sprintf("faculty %s teaches %d sessions on %s but %d on %s", facultyID, len(week[busiest]), models.Weekday(busiest), len(week[quietest]), models.Weekday(quietest)),
			slotIDs(daySlots), a.suggest(daySlots[len(daySlots)-1], true))
	}
}

// suggest probes for the nearest placement of slot where faculty, room and
// class are all free: the same day first unless otherDay is set, then the
// following days, times closest to the original first.
func (a *auditor) suggest(slot models.TimetableSlot, otherDay bool) models.Suggestion {
	subject := a.lk.subjects[slot.SubjectID]
	class := a.lk.classes[slot.ClassID]
	minutes := slot.Duration * a.opts.SlotMinutes

	var rooms []*models.Room
	if current := a.lk.rooms[slot.RoomID]; current != nil && current.Suits(subject.Type) && current.Capacity >= class.StudentCount {
		rooms = append(rooms, current)
	}
	for _, room := range a.lk.roomOrder {
		if room.ID != slot.RoomID && room.Suits(subject.Type) && room.Capacity >= class.StudentCount {
			rooms = append(rooms, room)
		}
	}

	for offset := 0; offset < models.DayCount; offset++ {
		if offset == 0 && otherDay {
			continue
		}
		day := models.Weekday((int(slot.Day) + offset) % models.DayCount)
		times := candidateTimes(a.index, slot.FacultyID, day, minutes, a.opts.SlotMinutes)
		sort.SliceStable(times, func(i, j int) bool {
			return distance(times[i], slot.Time) < distance(times[j], slot.Time)
		})
		for _, start := range times {
			window := models.Interval{Start: start, End: start + models.ClockTime(minutes)}
			if a.occupancy.Busy(KindFaculty, slot.FacultyID, day, window, slot.ID) ||
				a.occupancy.Busy(KindClass, slot.ClassID, day, window, slot.ID) {
				continue
			}
			for _, room := range rooms {
				if day == slot.Day && start == slot.Time && room.ID == slot.RoomID {
					continue
				}
				if !a.index.IsFree(KindRoom, room.ID, day, start, minutes) ||
					a.occupancy.Busy(KindRoom, room.ID, day, window, slot.ID) {
					continue
				}
				d, t := day, start
				return models.Suggestion{
					Kind:   models.SuggestionMove,
					SlotID: slot.ID,
					Day:    &d,
					Time:   &t,
					RoomID: room.ID,
					Text: fmt.Sprintf("move slot %s (%s for class %s) to %s %s in room %s, next available slot for faculty %s",
						slot.ID, slot.SubjectID, slot.ClassID, day, start, room.ID, slot.FacultyID),
				}
			}
		}
	}
	return models.Suggestion{
		Kind:   models.SuggestionNone,
		SlotID: slot.ID,
		Text:   fmt.Sprintf("no free alternative found for slot %s with faculty %s", slot.ID, slot.FacultyID),
	}
}

func distance(a, b models.ClockTime) models.ClockTime {
	if a > b {
		return a - b
	}
	return b - a
}

func (a *auditor) emit(conflictType models.ConflictType, severity models.Severity, rule Rule, description string, ids []string, suggestion models.Suggestion) {
	a.emitKeyed(strings.Join(ids, ","), conflictType, severity, rule, description, ids, suggestion)
}

func (a *auditor) emitKeyed(key string, conflictType models.ConflictType, severity models.Severity, rule Rule, description string, ids []string, suggestion models.Suggestion) {
	a.conflicts = append(a.conflicts, models.Conflict{
		ID:          deriveID("conflict", string(conflictType), string(rule), key),
		Type:        conflictType,
		Severity:    severity,
		Rule:        string(rule),
		Description: description,
		SlotIDs:     ids,
		Suggestion:  suggestion,
	})
}

// earliest returns the first (day, time) among the conflict's admitted slots.
func (a *auditor) earliest(c models.Conflict) (models.Weekday, models.ClockTime) {
	day, at := models.Weekday(models.DayCount), models.EndOfDay
	for _, id := range c.SlotIDs {
		slot, ok := a.byID[id]
		if !ok {
			continue
		}
		if slot.Day < day || (slot.Day == day && slot.Time < at) {
			day, at = slot.Day, slot.Time
		}
	}
	return day, at
}

func (a *auditor) sortConflicts() {
	sort.SliceStable(a.conflicts, func(i, j int) bool {
		ci, cj := a.conflicts[i], a.conflicts[j]
		if ci.Severity.Rank() != cj.Severity.Rank() {
			return ci.Severity.Rank() < cj.Severity.Rank()
		}
		di, ti := a.earliest(ci)
		dj, tj := a.earliest(cj)
		if di != dj {
			return di < dj
		}
		if ti != tj {
			return ti < tj
		}
		if ci.Type != cj.Type {
			return ci.Type < cj.Type
		}
		if ci.Rule != cj.Rule {
			return ci.Rule < cj.Rule
		}
		if first(ci.SlotIDs) != first(cj.SlotIDs) {
			return first(ci.SlotIDs) < first(cj.SlotIDs)
		}
		return ci.ID < cj.ID
	})
}

func first(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

func slotIDs(slots []models.TimetableSlot) []string {
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slot.ID)
	}
	return out
}
