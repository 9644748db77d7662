package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorcrm-api/internal/models"
)

// SessionRepository reads and writes tutoring sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionSelect = `SELECT s.id, s.school_id, s.teacher_id, s.student_id, to_char(s.date, 'YYYY-MM-DD') AS date, to_char(s.start_time, 'HH24:MI') AS start_time, s.duration, s.status, s.notes, s.created_at, s.updated_at
FROM tutoring_sessions s`

const (
	listByTeacherQuery = sessionSelect + `
WHERE s.teacher_id = $1 AND s.date BETWEEN $2 AND $3 AND s.status <> $4
ORDER BY s.date ASC, s.start_time ASC`

	listByRosterQuery = sessionSelect + `
JOIN teacher_students ts ON ts.student_id = s.student_id
WHERE ts.teacher_id = $1 AND (s.teacher_id IS NULL OR s.teacher_id = $1)
  AND s.date BETWEEN $2 AND $3 AND s.status <> $4
ORDER BY s.date ASC, s.start_time ASC`
)

// ListByTeacher returns active sessions assigned directly to the teacher.
func (r *SessionRepository) ListByTeacher(ctx context.Context, teacherID, startDate, endDate string) ([]models.TutoringSession, error) {
	return r.ListByTeacherTx(ctx, nil, teacherID, startDate, endDate)
}

// ListByTeacherTx is ListByTeacher read through tx when tx is non-nil.
func (r *SessionRepository) ListByTeacherTx(ctx context.Context, tx *sqlx.Tx, teacherID, startDate, endDate string) ([]models.TutoringSession, error) {
	var sessions []models.TutoringSession
	if err := sqlx.SelectContext(ctx, r.queryer(tx), &sessions, listByTeacherQuery, teacherID, startDate, endDate, models.SessionStatusCancelled); err != nil {
		return nil, fmt.Errorf("list teacher sessions: %w", err)
	}
	return sessions, nil
}

// ListByRoster returns active sessions of students on the teacher's roster that are either
// unassigned or assigned to this teacher.
func (r *SessionRepository) ListByRoster(ctx context.Context, teacherID, startDate, endDate string) ([]models.TutoringSession, error) {
	return r.ListByRosterTx(ctx, nil, teacherID, startDate, endDate)
}

// ListByRosterTx is ListByRoster read through tx when tx is non-nil.
func (r *SessionRepository) ListByRosterTx(ctx context.Context, tx *sqlx.Tx, teacherID, startDate, endDate string) ([]models.TutoringSession, error) {
	var sessions []models.TutoringSession
	if err := sqlx.SelectContext(ctx, r.queryer(tx), &sessions, listByRosterQuery, teacherID, startDate, endDate, models.SessionStatusCancelled); err != nil {
		return nil, fmt.Errorf("list roster sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) queryer(tx *sqlx.Tx) sqlx.QueryerContext {
	if tx != nil {
		return tx
	}
	return r.db
}

// FindByID fetches a session.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.TutoringSession, error) {
	query := sessionSelect + ` WHERE s.id = $1`
	var session models.TutoringSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// teacherLockTimeout bounds how long a booking waits behind another booking for the same teacher.
const teacherLockTimeout = "5s"

// WithTeacherLock runs fn in a transaction holding a per-teacher advisory lock, so concurrent
// bookings for one teacher are checked and written one at a time. fn must do all of its reads
// through tx; waiting bookings each hold a pool connection.
func (r *SessionRepository) WithTeacherLock(ctx context.Context, teacherID string, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SET LOCAL lock_timeout = '`+teacherLockTimeout+`'`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("set lock timeout: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, teacherID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("acquire teacher lock: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking tx: %w", err)
	}
	return nil
}

// CreateTx inserts a session inside tx.
func (r *SessionRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, session *models.TutoringSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = models.SessionStatusScheduled
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO tutoring_sessions (id, school_id, teacher_id, student_id, date, start_time, duration, status, notes, created_at, updated_at)
VALUES (:id, :school_id, :teacher_id, :student_id, :date, :start_time, :duration, :status, :notes, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// RescheduleTx moves an existing session to a new date and time inside tx.
func (r *SessionRepository) RescheduleTx(ctx context.Context, tx *sqlx.Tx, session *models.TutoringSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tutoring_sessions SET date = :date, start_time = :start_time, duration = :duration, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("reschedule session: %w", err)
	}
	return nil
}
