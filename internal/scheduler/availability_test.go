package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
)

func TestIndexCarvesBreaksAndLeaveDays(t *testing.T) {
	availability := weekdays(models.Clock(8, 0), models.Clock(16, 0))
	availability.Set(models.Monday, models.DayAvailability{
		Start: models.Clock(8, 0),
		End:   models.Clock(16, 0),
		Breaks: []models.Interval{
			{Start: models.Clock(12, 0), End: models.Clock(13, 0)},
			{Start: models.Clock(10, 0), End: models.Clock(10, 30)},
		},
	})
	f := teacher("f1", availability)
	f.LeaveDays = []models.Weekday{models.Wednesday}

	idx, err := NewIndex(models.TimetableState{Faculty: []models.Faculty{f}})
	require.NoError(t, err)

	assert.Equal(t, []models.Interval{
		{Start: models.Clock(8, 0), End: models.Clock(10, 0)},
		{Start: models.Clock(10, 30), End: models.Clock(12, 0)},
		{Start: models.Clock(13, 0), End: models.Clock(16, 0)},
	}, idx.FreeWindows(KindFaculty, "f1", models.Monday))

	assert.True(t, idx.IsFree(KindFaculty, "f1", models.Monday, models.Clock(9, 0), 60))
	assert.False(t, idx.IsFree(KindFaculty, "f1", models.Monday, models.Clock(9, 30), 60))
	assert.True(t, idx.IsFree(KindFaculty, "f1", models.Monday, models.Clock(11, 0), 60))
	assert.False(t, idx.IsFree(KindFaculty, "f1", models.Monday, models.Clock(11, 30), 60))
	assert.True(t, idx.IsFree(KindFaculty, "f1", models.Monday, models.Clock(15, 0), 60))
	assert.False(t, idx.IsFree(KindFaculty, "f1", models.Monday, models.Clock(15, 30), 60))

	assert.Empty(t, idx.FreeWindows(KindFaculty, "f1", models.Wednesday))
	assert.False(t, idx.IsFree(KindFaculty, "f1", models.Wednesday, models.Clock(9, 0), 60))
	assert.Empty(t, idx.FreeWindows(KindFaculty, "f1", models.Saturday))
	assert.Equal(t, 4, idx.AvailableDays(KindFaculty, "f1"))
}

func TestIndexTreatsEmptyAvailabilityAsUnrestricted(t *testing.T) {
	idx, err := NewIndex(models.TimetableState{Rooms: []models.Room{classroom("r1", 30)}})
	require.NoError(t, err)

	for _, day := range models.Weekdays() {
		assert.True(t, idx.IsFree(KindRoom, "r1", day, models.Clock(0, 0), 24*60))
	}
	assert.False(t, idx.IsFree(KindRoom, "missing", models.Monday, models.Clock(9, 0), 60))
	assert.False(t, idx.IsFree(KindRoom, "r1", models.Monday, models.Clock(9, 0), 0))
}

func TestIndexRejectsMalformedAvailability(t *testing.T) {
	availability := models.WeeklyAvailability{}
	availability.Set(models.Tuesday, models.DayAvailability{
		Start: models.Clock(9, 0),
		End:   models.Clock(15, 0),
		Breaks: []models.Interval{
			{Start: models.Clock(10, 0), End: models.Clock(11, 0)},
			{Start: models.Clock(10, 30), End: models.Clock(12, 0)},
		},
	})
	reversed := models.WeeklyAvailability{}
	reversed.Set(models.Friday, models.DayAvailability{Start: models.Clock(14, 0), End: models.Clock(9, 0)})

	_, err := NewIndex(models.TimetableState{
		Faculty: []models.Faculty{teacher("f1", availability)},
		Rooms:   []models.Room{{ID: "r1", Name: "R1", Type: models.RoomTypeClassroom, Capacity: 10, Availability: reversed}},
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "faculty[0].availability.TUESDAY.breaks[1]")
	assert.Contains(t, fields, "rooms[0].availability.FRIDAY.end")
}

func TestOccupancyTreatsBackToBackAsFree(t *testing.T) {
	occ := NewOccupancy()
	occ.Reserve(KindRoom, "r1", models.Monday, models.Interval{Start: models.Clock(9, 0), End: models.Clock(10, 0)}, "a")
	occ.Reserve(KindRoom, "r1", models.Monday, models.Interval{Start: models.Clock(7, 0), End: models.Clock(8, 0)}, "b")

	assert.False(t, occ.Busy(KindRoom, "r1", models.Monday, models.Interval{Start: models.Clock(10, 0), End: models.Clock(11, 0)}, ""))
	assert.False(t, occ.Busy(KindRoom, "r1", models.Monday, models.Interval{Start: models.Clock(8, 0), End: models.Clock(9, 0)}, ""))
	assert.Equal(t, []string{"a"}, occ.Overlapping(KindRoom, "r1", models.Monday, models.Interval{Start: models.Clock(9, 30), End: models.Clock(10, 30)}, ""))
	assert.False(t, occ.Busy(KindRoom, "r1", models.Monday, models.Interval{Start: models.Clock(9, 30), End: models.Clock(10, 30)}, "a"))
	assert.Equal(t, 2, occ.Count(KindRoom, "r1", models.Monday))

	occ.Release(KindRoom, "r1", models.Monday, "a")
	assert.False(t, occ.Busy(KindRoom, "r1", models.Monday, models.Interval{Start: models.Clock(9, 0), End: models.Clock(10, 0)}, ""))
	assert.Equal(t, 1, occ.Count(KindRoom, "r1", models.Monday))
}

func TestBoardUndoRestoresCounters(t *testing.T) {
	state := scenarioA()
	idx, err := NewIndex(state)
	require.NoError(t, err)
	lk := newLookup(state)
	board := newBoard(lk, idx, 60)

	p := Placement{
		SlotID:    "slot-1",
		UnitID:    "c1/s1",
		Class:     lk.classes["c1"],
		Subject:   lk.subjects["s1"],
		FacultyID: "f1",
		Room:      lk.rooms["r1"],
		Day:       models.Tuesday,
		Time:      models.Clock(9, 0),
		Minutes:   60,
	}
	slot := board.Commit(p)
	assert.Equal(t, "slot-1", slot.ID)
	assert.Equal(t, 1, board.placed("c1/s1"))
	assert.Equal(t, 1, board.placedOn("c1/s1", models.Tuesday))
	assert.Equal(t, 1, board.facultyLoad("f1", models.Tuesday))
	assert.True(t, board.occupancy.Busy(KindClass, "c1", models.Tuesday, p.Window(), ""))

	undone, ok := board.Undo()
	require.True(t, ok)
	assert.Equal(t, "slot-1", undone.SlotID)
	assert.Zero(t, board.Len())
	assert.Zero(t, board.placed("c1/s1"))
	assert.Zero(t, board.facultyLoad("f1", models.Tuesday))
	assert.False(t, board.occupancy.Busy(KindRoom, "r1", models.Tuesday, p.Window(), ""))

	_, ok = board.Undo()
	assert.False(t, ok)
}
