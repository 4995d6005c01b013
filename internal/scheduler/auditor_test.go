package scheduler

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
)

func slot(id, classID, subjectID, facultyID, roomID string, day models.Weekday, at models.ClockTime) models.TimetableSlot {
	return models.TimetableSlot{
		ID:        id,
		Day:       day,
		Time:      at,
		Duration:  1,
		SubjectID: subjectID,
		FacultyID: facultyID,
		RoomID:    roomID,
		ClassID:   classID,
		Type:      models.SubjectTypeLecture,
	}
}

func twoClassState() models.TimetableState {
	return models.TimetableState{
		Classes:  []models.Class{class("c1", 20, "s1"), class("c2", 20, "s2")},
		Subjects: []models.Subject{lecture("s1", "f1", 2, 1), lecture("s2", "f2", 2, 1)},
		Faculty: []models.Faculty{
			teacher("f1", weekdays(models.Clock(8, 0), models.Clock(16, 0)), "s1"),
			teacher("f2", weekdays(models.Clock(8, 0), models.Clock(16, 0)), "s2"),
		},
		Rooms: []models.Room{classroom("r1", 30), classroom("r2", 30)},
	}
}

func TestAuditFlagsSharedRoomOnce(t *testing.T) {
	tt := models.Timetable{Slots: []models.TimetableSlot{
		slot("x1", "c1", "s1", "f1", "r1", models.Monday, models.Clock(9, 0)),
		slot("x2", "c2", "s2", "f2", "r1", models.Monday, models.Clock(9, 30)),
	}}

	conflicts, err := Audit(tt, twoClassState(), AuditOptions{})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, models.ConflictRoom, c.Type)
	assert.Equal(t, models.SeverityHigh, c.Severity)
	assert.Equal(t, string(RuleRoomDoubleBooking), c.Rule)
	assert.ElementsMatch(t, []string{"x1", "x2"}, c.SlotIDs)
	assert.Contains(t, c.Description, "r1")
	assert.Equal(t, models.SuggestionMove, c.Suggestion.Kind)
	assert.Equal(t, "x2", c.Suggestion.SlotID)
}

func TestAuditIgnoresBackToBackSlots(t *testing.T) {
	tt := models.Timetable{Slots: []models.TimetableSlot{
		slot("x1", "c1", "s1", "f1", "r1", models.Monday, models.Clock(9, 0)),
		slot("x2", "c2", "s2", "f2", "r1", models.Monday, models.Clock(10, 0)),
	}}

	conflicts, err := Audit(tt, twoClassState(), AuditOptions{})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestAuditSuggestsAlternativeForLeaveDay(t *testing.T) {
	state := scenarioA()
	state.Faculty[0].LeaveDays = []models.Weekday{models.Wednesday}
	tt := models.Timetable{Slots: []models.TimetableSlot{
		slot("x1", "c1", "s1", "f1", "r1", models.Wednesday, models.Clock(10, 0)),
	}}

	conflicts, err := Audit(tt, state, AuditOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, conflicts)

	c := conflicts[0]
	assert.Equal(t, models.ConflictFaculty, c.Type)
	assert.Equal(t, models.SeverityHigh, c.Severity)
	assert.Equal(t, string(RuleFacultyUnavailable), c.Rule)
	assert.Equal(t, []string{"x1"}, c.SlotIDs)

	require.True(t, c.Suggestion.Available())
	require.NotNil(t, c.Suggestion.Day)
	require.NotNil(t, c.Suggestion.Time)
	assert.Equal(t, models.Thursday, *c.Suggestion.Day)
	assert.Equal(t, models.Clock(10, 0), *c.Suggestion.Time)
	assert.Contains(t, c.Suggestion.Text, "THURSDAY")
}

func TestAuditReportsNoneWhenNothingIsFree(t *testing.T) {
	state := scenarioA()
	state.Faculty[0].Availability = models.EveryDay(models.Clock(9, 0), models.Clock(10, 0), models.Monday)
	tt := models.Timetable{Slots: []models.TimetableSlot{
		slot("x1", "c1", "s1", "f1", "r1", models.Monday, models.Clock(9, 0)),
		slot("x2", "c1", "s1", "f1", "r1", models.Monday, models.Clock(9, 0)),
	}}

	conflicts, err := Audit(tt, state, AuditOptions{})
	require.NoError(t, err)

	var faculty *models.Conflict
	for i := range conflicts {
		if conflicts[i].Rule == string(RuleFacultyDoubleBooking) {
			faculty = &conflicts[i]
		}
	}
	require.NotNil(t, faculty)
	assert.Equal(t, models.SuggestionNone, faculty.Suggestion.Kind)
	assert.False(t, faculty.Suggestion.Available())
}

func TestAuditReportsLimitsAndReferences(t *testing.T) {
	state := twoClassState()
	bad := slot("x4", "c1", "s1", "f9", "r1", models.Friday, models.Clock(9, 0))
	tt := models.Timetable{Slots: []models.TimetableSlot{
		slot("x1", "c1", "s1", "f1", "r1", models.Monday, models.Clock(9, 0)),
		slot("x2", "c1", "s1", "f1", "r1", models.Monday, models.Clock(11, 0)),
		slot("x3", "c1", "s1", "f1", "r1", models.Tuesday, models.Clock(9, 0)),
		bad,
		{ID: "x5", Day: models.Monday, Time: models.Clock(9, 0), Duration: 0, SubjectID: "s2", FacultyID: "f2", RoomID: "r2", ClassID: "c2"},
	}}

	conflicts, err := Audit(tt, state, AuditOptions{})
	require.NoError(t, err)

	rules := map[string]models.Conflict{}
	for _, c := range conflicts {
		rules[c.Rule] = c
	}
	require.Contains(t, rules, string(RuleUnknownReference))
	assert.Equal(t, models.ConflictFaculty, rules[string(RuleUnknownReference)].Type)
	require.Contains(t, rules, string(RuleInvalidSlot))
	assert.Equal(t, []string{"x5"}, rules[string(RuleInvalidSlot)].SlotIDs)

	require.Contains(t, rules, string(RuleDailyLimit))
	assert.Equal(t, models.SeverityMedium, rules[string(RuleDailyLimit)].Severity)
	assert.Equal(t, []string{"x1", "x2"}, rules[string(RuleDailyLimit)].SlotIDs)

	require.Contains(t, rules, string(RuleWeeklyLimit))
	weekly := rules[string(RuleWeeklyLimit)]
	assert.Equal(t, models.SuggestionRemove, weekly.Suggestion.Kind)
	assert.Equal(t, "x3", weekly.Suggestion.SlotID)

	assert.NotContains(t, rules, string(RuleDistribution))

	for i := 1; i < len(conflicts); i++ {
		assert.LessOrEqual(t, conflicts[i-1].Severity.Rank(), conflicts[i].Severity.Rank())
	}
}

func TestAuditReportsSlotsThatDoNotFitInADay(t *testing.T) {
	huge := slot("x1", "c1", "s1", "f1", "r1", models.Monday, models.Clock(9, 0))
	huge.Duration = math.MaxInt64/60 + 1
	late := slot("x2", "c1", "s1", "f1", "r1", models.Tuesday, models.EndOfDay)
	tt := models.Timetable{Slots: []models.TimetableSlot{huge, late}}

	conflicts, err := Audit(tt, scenarioA(), AuditOptions{})
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	for _, c := range conflicts {
		assert.Equal(t, string(RuleInvalidSlot), c.Rule)
		assert.Equal(t, models.SuggestionNone, c.Suggestion.Kind)
	}
	assert.Contains(t, conflicts[0].Description, "duration longer than a day")
	assert.Contains(t, conflicts[1].Description, "time outside the day")
}

func TestAuditGivesUnnamedSlotsDistinctConflicts(t *testing.T) {
	unnamed := slot("", "c1", "s1", "f1", "r1", models.Monday, models.Clock(9, 0))
	tt := models.Timetable{Slots: []models.TimetableSlot{unnamed, unnamed}}

	conflicts, err := Audit(tt, scenarioA(), AuditOptions{})
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, string(RuleInvalidSlot), conflicts[0].Rule)
	assert.Equal(t, string(RuleInvalidSlot), conflicts[1].Rule)
	assert.NotEqual(t, conflicts[0].ID, conflicts[1].ID)

	again, err := Audit(tt, scenarioA(), AuditOptions{})
	require.NoError(t, err)
	assert.Equal(t, conflicts, again)
}

func TestAuditFlagsRoomMismatchAndWrongFaculty(t *testing.T) {
	state := campus()
	tt := models.Timetable{Slots: []models.TimetableSlot{
		{ID: "lab", Day: models.Monday, Time: models.Clock(8, 0), Duration: 2, SubjectID: "phy-lab", FacultyID: "f-phy", RoomID: "r-101", ClassID: "c1", Type: models.SubjectTypeLab},
		{ID: "crowd", Day: models.Tuesday, Time: models.Clock(8, 0), Duration: 1, SubjectID: "math", FacultyID: "f-math", RoomID: "lab-1", ClassID: "c2", Type: models.SubjectTypeLecture},
		{ID: "swap", Day: models.Wednesday, Time: models.Clock(8, 0), Duration: 1, SubjectID: "eng", FacultyID: "f-phy", RoomID: "r-102", ClassID: "c3", Type: models.SubjectTypeLab},
	}}

	conflicts, err := Audit(tt, state, AuditOptions{})
	require.NoError(t, err)

	byRule := map[string]models.Conflict{}
	for _, c := range conflicts {
		byRule[c.Rule] = c
	}
	mismatch := byRule[string(RuleRoomTypeMismatch)]
	assert.Equal(t, []string{"lab"}, mismatch.SlotIDs)
	require.NotNil(t, mismatch.Suggestion.Day)
	assert.Equal(t, "lab-1", mismatch.Suggestion.RoomID)
	assert.Equal(t, []string{"crowd"}, byRule[string(RuleRoomCapacity)].SlotIDs)
	assert.Equal(t, []string{"swap"}, byRule[string(RuleFacultyAssignment)].SlotIDs)
	assert.Equal(t, models.SeverityMedium, byRule[string(RuleSlotType)].Severity)
}

func TestAuditIsIdempotent(t *testing.T) {
	state := campus()
	result, err := Generate(context.Background(), state, Options{})
	require.NoError(t, err)

	tt := *result.Timetable
	tt.Slots = append(tt.Slots,
		slot("extra-1", "c2", "math", "f-math", "r-101", models.Monday, models.Clock(8, 0)),
		slot("extra-2", "c3", "eng", "f-eng", "r-101", models.Monday, models.Clock(8, 30)),
	)

	first, err := Audit(tt, state, AuditOptions{})
	require.NoError(t, err)
	second, err := Audit(tt, state, AuditOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, models.SeverityHigh, first[0].Severity)
}

func TestAuditRejectsInvalidEntities(t *testing.T) {
	state := scenarioA()
	state.Rooms[0].Capacity = -4

	conflicts, err := Audit(models.Timetable{}, state, AuditOptions{})
	assert.Nil(t, conflicts)
	assert.Error(t, err)
}
