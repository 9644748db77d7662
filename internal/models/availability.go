package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// BreakWindow is an unavailable gap inside a working day.
type BreakWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DaySchedule describes one weekday of a teacher's recurring hours.
type DaySchedule struct {
	Enabled bool          `json:"enabled"`
	Start   string        `json:"start"`
	End     string        `json:"end"`
	Breaks  []BreakWindow `json:"breaks"`
}

// WorkingHours maps a lower-case weekday name to its schedule.
type WorkingHours map[string]DaySchedule

// WeeklyAvailabilityTemplate is a teacher's weekly working-hours template.
type WeeklyAvailabilityTemplate struct {
	ID                string         `db:"id" json:"id"`
	TeacherID         string         `db:"teacher_id" json:"teacher_id"`
	SchoolID          string         `db:"school_id" json:"school_id"`
	WorkingHoursRaw   types.JSONText `db:"working_hours" json:"-"`
	WorkingHours      WorkingHours   `db:"-" json:"working_hours"`
	Timezone          string         `db:"timezone" json:"timezone"`
	BufferTime        int            `db:"buffer_time" json:"buffer_time"`
	MinBookingNotice  int            `db:"min_booking_notice" json:"min_booking_notice"`
	MaxBookingAdvance int            `db:"max_booking_advance" json:"max_booking_advance"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// Day returns the schedule for a weekday key; a missing key is a disabled day.
func (t *WeeklyAvailabilityTemplate) Day(weekday string) DaySchedule {
	if t == nil || t.WorkingHours == nil {
		return DaySchedule{}
	}
	return t.WorkingHours[weekday]
}

// AvailabilityBlockType distinguishes blocked intervals from forced-available overrides.
type AvailabilityBlockType string

const (
	AvailabilityBlockBlocked   AvailabilityBlockType = "blocked"
	AvailabilityBlockAvailable AvailabilityBlockType = "available"
)

// RecurrencePattern controls how a recurring block repeats.
type RecurrencePattern string

const (
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

// AvailabilityBlock is a one-off override on a teacher's calendar.
type AvailabilityBlock struct {
	ID                string                `db:"id" json:"id"`
	TeacherID         string                `db:"teacher_id" json:"teacher_id"`
	Type              AvailabilityBlockType `db:"type" json:"type"`
	Date              string                `db:"date" json:"date"`
	StartTime         string                `db:"start_time" json:"start_time"`
	EndTime           string                `db:"end_time" json:"end_time"`
	Reason            *string               `db:"reason" json:"reason,omitempty"`
	Recurring         bool                  `db:"recurring" json:"recurring"`
	RecurrencePattern *RecurrencePattern    `db:"recurrence_pattern" json:"recurrence_pattern,omitempty"`
	RecurrenceUntil   *string               `db:"recurrence_until" json:"recurrence_until,omitempty"`
	// OccurrenceOf is set on virtual instances expanded from a recurring block.
	OccurrenceOf string    `db:"-" json:"occurrence_of,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// BlockFilter narrows block listings.
type BlockFilter struct {
	TeacherID string
	StartDate string
	EndDate   string
}

// BookedSession is the minimal view of a lesson the engine checks against.
type BookedSession struct {
	ID        string `db:"id" json:"id"`
	Date      string `db:"date" json:"date"`
	StartTime string `db:"start_time" json:"start_time"`
	Duration  int    `db:"duration" json:"duration"`
}

// SlotLabel is a slot rendered in a caller's display timezone.
type SlotLabel struct {
	Date     string `json:"date"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// AvailableSlot is one fixed-duration candidate interval in the template timezone.
type AvailableSlot struct {
	Date        string     `json:"date"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	IsAvailable bool       `json:"is_available"`
	Display     *SlotLabel `json:"display,omitempty"`
}

// SlotCheckResult is the verdict for a single proposed booking.
type SlotCheckResult struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}
