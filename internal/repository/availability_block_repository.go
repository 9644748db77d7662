package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorcrm-api/internal/models"
)

// AvailabilityBlockRepository persists one-off availability overrides.
type AvailabilityBlockRepository struct {
	db *sqlx.DB
}

// NewAvailabilityBlockRepository constructs a block repository.
func NewAvailabilityBlockRepository(db *sqlx.DB) *AvailabilityBlockRepository {
	return &AvailabilityBlockRepository{db: db}
}

const blockSelect = `SELECT id, teacher_id, type, to_char(date, 'YYYY-MM-DD') AS date, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time, reason,
recurring, recurrence_pattern, to_char(recurrence_until, 'YYYY-MM-DD') AS recurrence_until, created_at, updated_at
FROM teacher_availability_blocks`

// ListInRange returns blocks dated inside [start, end] plus recurring series anchored on or before
// end that have not expired before start. Recurring rows are returned as stored; expansion is the
// caller's job.
func (r *AvailabilityBlockRepository) ListInRange(ctx context.Context, filter models.BlockFilter) ([]models.AvailabilityBlock, error) {
	query := blockSelect + `
WHERE teacher_id = $1
  AND ((date BETWEEN $2 AND $3)
       OR (recurring AND date <= $3 AND (recurrence_until IS NULL OR recurrence_until >= $2)))
ORDER BY date ASC, start_time ASC`
	var blocks []models.AvailabilityBlock
	if err := r.db.SelectContext(ctx, &blocks, query, filter.TeacherID, filter.StartDate, filter.EndDate); err != nil {
		return nil, fmt.Errorf("list availability blocks: %w", err)
	}
	return blocks, nil
}

// Create inserts a block.
func (r *AvailabilityBlockRepository) Create(ctx context.Context, block *models.AvailabilityBlock) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if block.CreatedAt.IsZero() {
		block.CreatedAt = now
	}
	block.UpdatedAt = now

	const query = `INSERT INTO teacher_availability_blocks (id, teacher_id, type, date, start_time, end_time, reason, recurring, recurrence_pattern, recurrence_until, created_at, updated_at)
VALUES (:id, :teacher_id, :type, :date, :start_time, :end_time, :reason, :recurring, :recurrence_pattern, :recurrence_until, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("create availability block: %w", err)
	}
	return nil
}

// Delete removes a block. It reports whether a row was removed.
func (r *AvailabilityBlockRepository) Delete(ctx context.Context, teacherID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teacher_availability_blocks WHERE teacher_id = $1 AND id = $2`, teacherID, id)
	if err != nil {
		return false, fmt.Errorf("delete availability block: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete availability block: %w", err)
	}
	return affected > 0, nil
}
