package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
)

func TestTimetableSlotRepositoryInsertBatch(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableSlotRepository(db)

	slots := []models.TimetableSlotRecord{
		{ID: "slot-1", TimetableID: "tt-1", DayOfWeek: 0, StartMinute: 540, Duration: 1, SubjectID: "s1", FacultyID: "f1", RoomID: "r1", ClassID: "c1", SlotType: "lecture"},
		{TimetableID: "tt-1", DayOfWeek: 2, StartMinute: 600, Duration: 2, SubjectID: "s2", FacultyID: "f2", RoomID: "lab", ClassID: "c1", SlotType: "lab"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_slots")).
		WithArgs("slot-1", "tt-1", 0, 540, 1, "s1", "f1", "r1", "c1", "lecture", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_slots")).
		WithArgs(sqlmock.AnyArg(), "tt-1", 2, 600, 2, "s2", "f2", "lab", "c1", "lab", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.InsertBatch(context.Background(), tx, slots))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, slots[1].ID)
	assert.False(t, slots[1].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableSlotRepositoryInsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableSlotRepository(db)

	require.NoError(t, repo.InsertBatch(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableSlotRepositoryListByTimetable(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "timetable_id", "day_of_week", "start_minute", "duration", "subject_id", "faculty_id", "room_id", "class_id", "slot_type", "created_at"}).
		AddRow("slot-1", "tt-1", 0, 540, 1, "s1", "f1", "r1", "c1", "lecture", time.Now()).
		AddRow("slot-2", "tt-1", 1, 600, 2, "s2", "f2", "lab", "c1", "lab", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_slots WHERE timetable_id = $1 ORDER BY day_of_week ASC, start_minute ASC, class_id ASC, id ASC")).
		WithArgs("tt-1").
		WillReturnRows(rows)

	slots, err := repo.ListByTimetable(context.Background(), "tt-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	slot := slots[1].ToSlot()
	assert.Equal(t, models.Tuesday, slot.Day)
	assert.Equal(t, models.Clock(10, 0), slot.Time)
	assert.Equal(t, models.SubjectTypeLab, slot.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
