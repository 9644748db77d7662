package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutorcrm-api/internal/models"
)

func TestAvailabilityBlockRepositoryListInRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityBlockRepository(db)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "type", "date", "start_time", "end_time", "reason", "recurring", "recurrence_pattern", "recurrence_until", "created_at", "updated_at"}).
		AddRow("b-1", "teacher-1", "blocked", "2024-01-15", "12:00", "13:00", "Dentist", false, nil, nil, time.Now(), time.Now()).
		AddRow("b-2", "teacher-1", "blocked", "2023-12-04", "08:00", "09:00", nil, true, "weekly", "2024-06-30", time.Now(), time.Now())
	mock.ExpectQuery("(?s)FROM teacher_availability_blocks.*recurrence_until IS NULL").
		WithArgs("teacher-1", "2024-01-15", "2024-01-21").
		WillReturnRows(rows)

	blocks, err := repo.ListInRange(context.Background(), models.BlockFilter{TeacherID: "teacher-1", StartDate: "2024-01-15", EndDate: "2024-01-21"})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.NotNil(t, blocks[0].Reason)
	assert.Equal(t, "Dentist", *blocks[0].Reason)
	assert.Nil(t, blocks[0].RecurrencePattern)
	require.NotNil(t, blocks[1].RecurrencePattern)
	assert.Equal(t, models.RecurrenceWeekly, *blocks[1].RecurrencePattern)
	assert.Equal(t, "2024-06-30", *blocks[1].RecurrenceUntil)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityBlockRepositoryListInRangeError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityBlockRepository(db)

	mock.ExpectQuery("FROM teacher_availability_blocks").WillReturnError(errors.New("timeout"))

	_, err := repo.ListInRange(context.Background(), models.BlockFilter{TeacherID: "teacher-1", StartDate: "2024-01-15", EndDate: "2024-01-21"})
	assert.ErrorContains(t, err, "list availability blocks")
}

func TestAvailabilityBlockRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityBlockRepository(db)

	mock.ExpectExec("INSERT INTO teacher_availability_blocks").
		WithArgs(sqlmock.AnyArg(), "teacher-1", "blocked", "2024-01-15", "12:00", "13:00", nil, false, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	block := &models.AvailabilityBlock{TeacherID: "teacher-1", Type: models.AvailabilityBlockBlocked, Date: "2024-01-15", StartTime: "12:00", EndTime: "13:00"}
	require.NoError(t, repo.Create(context.Background(), block))
	assert.NotEmpty(t, block.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityBlockRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityBlockRepository(db)

	mock.ExpectExec("DELETE FROM teacher_availability_blocks WHERE teacher_id = \\$1 AND id = \\$2").
		WithArgs("teacher-1", "b-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM teacher_availability_blocks").
		WithArgs("teacher-1", "b-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Delete(context.Background(), "teacher-1", "b-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Delete(context.Background(), "teacher-1", "b-9")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
