package models

import "time"

// SessionStatus tracks the lifecycle of a tutoring session.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// TutoringSession is a booked lesson between a teacher and a student.
type TutoringSession struct {
	ID        string        `db:"id" json:"id"`
	SchoolID  string        `db:"school_id" json:"school_id"`
	TeacherID *string       `db:"teacher_id" json:"teacher_id,omitempty"`
	StudentID string        `db:"student_id" json:"student_id"`
	Date      string        `db:"date" json:"date"`
	StartTime string        `db:"start_time" json:"start_time"`
	Duration  int           `db:"duration" json:"duration"`
	Status    SessionStatus `db:"status" json:"status"`
	Notes     *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// Booked projects the session onto the shape the availability engine consumes.
func (s TutoringSession) Booked() BookedSession {
	return BookedSession{ID: s.ID, Date: s.Date, StartTime: s.StartTime, Duration: s.Duration}
}
