package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTeacherRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "school_id", "email", "full_name", "phone", "active", "created_at", "updated_at"}).
		AddRow("t1", "school-1", "a@example.com", "Teacher A", nil, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, email, full_name, phone, active, created_at, updated_at FROM teachers WHERE id = $1")).
		WithArgs("t1").
		WillReturnRows(rows)

	teacher, err := repo.FindByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "school-1", teacher.SchoolID)
	assert.True(t, teacher.Active)
	assert.Nil(t, teacher.Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery("FROM teachers WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
