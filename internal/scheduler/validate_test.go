package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestValidateAcceptsConsistentState(t *testing.T) {
	assert.NoError(t, Validate(scenarioA()))
	assert.NoError(t, Validate(campus()))
}

func TestValidateReportsStructuralFields(t *testing.T) {
	state := scenarioA()
	state.Rooms[0].Capacity = 0
	state.Subjects[0].Type = "seminar"
	state.Classes[0].StudentCount = -1
	state.Faculty[0].Email = "not-an-email"

	fields := fieldsOf(t, Validate(state))
	assert.Equal(t, "must be greater than 0", fields["rooms[0].capacity"])
	assert.Contains(t, fields["subjects[0].type"], "must be one of")
	assert.Equal(t, "must be at least 0", fields["classes[0].studentCount"])
	assert.Equal(t, "must be a valid email address", fields["faculty[0].email"])
}

func TestValidateReportsCrossReferences(t *testing.T) {
	state := scenarioA()
	state.Classes[0].SubjectIDs = []string{"s1", "s1", "ghost"}
	state.Subjects = append(state.Subjects, lecture("s2", "nobody", 2, 1))
	state.Faculty[0].SubjectIDs = []string{"other"}
	state.Rooms = append(state.Rooms, classroom("r1", 10))

	fields := fieldsOf(t, Validate(state))
	assert.Contains(t, fields["classes[0].subjects[1]"], "listed twice")
	assert.Contains(t, fields["classes[0].subjects[2]"], "unknown subject")
	assert.Contains(t, fields["subjects[0].facultyId"], "not qualified")
	assert.Contains(t, fields["subjects[1].facultyId"], "unknown faculty")
	assert.Contains(t, fields["rooms[1].id"], "duplicate room id")
}

func TestValidateReportsBreaksOutsideWindow(t *testing.T) {
	state := scenarioA()
	state.Faculty[0].Availability.Set(models.Thursday, models.DayAvailability{
		Start:  models.Clock(9, 0),
		End:    models.Clock(15, 0),
		Breaks: []models.Interval{{Start: models.Clock(14, 30), End: models.Clock(15, 30)}},
	})

	fields := fieldsOf(t, Validate(state))
	assert.Contains(t, fields["faculty[0].availability.THURSDAY.breaks[0]"], "outside")
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{{Field: "rooms[0].capacity", Message: "must be greater than 0"}}}
	assert.Equal(t, "validation failed: rooms[0].capacity: must be greater than 0", err.Error())
}
