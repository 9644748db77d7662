package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/tutorcrm-api/internal/models"
)

// AvailabilityTemplateRepository persists weekly availability templates.
type AvailabilityTemplateRepository struct {
	db *sqlx.DB
}

// NewAvailabilityTemplateRepository constructs the repository.
func NewAvailabilityTemplateRepository(db *sqlx.DB) *AvailabilityTemplateRepository {
	return &AvailabilityTemplateRepository{db: db}
}

const templateColumns = `id, teacher_id, school_id, working_hours, timezone, buffer_time, min_booking_notice, max_booking_advance, created_at, updated_at`

// GetByTeacher returns the template for a teacher or sql.ErrNoRows.
func (r *AvailabilityTemplateRepository) GetByTeacher(ctx context.Context, teacherID string) (*models.WeeklyAvailabilityTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM teacher_availability_templates WHERE teacher_id = $1`
	var tpl models.WeeklyAvailabilityTemplate
	if err := r.db.GetContext(ctx, &tpl, query, teacherID); err != nil {
		return nil, err
	}
	tpl.WorkingHours = models.WorkingHours{}
	if len(tpl.WorkingHoursRaw) > 0 {
		if err := json.Unmarshal(tpl.WorkingHoursRaw, &tpl.WorkingHours); err != nil {
			return nil, fmt.Errorf("decode working hours for teacher %s: %w", teacherID, err)
		}
	}
	return &tpl, nil
}

// Upsert creates or replaces the template for a teacher.
func (r *AvailabilityTemplateRepository) Upsert(ctx context.Context, tpl *models.WeeklyAvailabilityTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	hours := tpl.WorkingHours
	if hours == nil {
		hours = models.WorkingHours{}
	}
	raw, err := json.Marshal(hours)
	if err != nil {
		return fmt.Errorf("encode working hours: %w", err)
	}
	tpl.WorkingHoursRaw = types.JSONText(raw)

	const query = `INSERT INTO teacher_availability_templates (` + templateColumns + `)
		VALUES (:id, :teacher_id, :school_id, :working_hours, :timezone, :buffer_time, :min_booking_notice, :max_booking_advance, :created_at, :updated_at)
		ON CONFLICT (teacher_id) DO UPDATE
		SET school_id = EXCLUDED.school_id,
		    working_hours = EXCLUDED.working_hours,
		    timezone = EXCLUDED.timezone,
		    buffer_time = EXCLUDED.buffer_time,
		    min_booking_notice = EXCLUDED.min_booking_notice,
		    max_booking_advance = EXCLUDED.max_booking_advance,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return fmt.Errorf("upsert availability template: %w", err)
	}
	return nil
}
