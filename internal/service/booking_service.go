package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorcrm-api/internal/models"
	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
)

type sessionStore interface {
	FindByID(ctx context.Context, id string) (*models.TutoringSession, error)
	WithTeacherLock(ctx context.Context, teacherID string, fn func(tx *sqlx.Tx) error) error
	ListByTeacherTx(ctx context.Context, tx *sqlx.Tx, teacherID, startDate, endDate string) ([]models.TutoringSession, error)
	ListByRosterTx(ctx context.Context, tx *sqlx.Tx, teacherID, startDate, endDate string) ([]models.TutoringSession, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, session *models.TutoringSession) error
	RescheduleTx(ctx context.Context, tx *sqlx.Tx, session *models.TutoringSession) error
}

type slotChecker interface {
	PrepareBookingCheck(ctx context.Context, q SlotCheck) (*BookingCheck, error)
}

// txSessions reads a teacher's sessions through the booking transaction.
type txSessions struct {
	store sessionStore
	tx    *sqlx.Tx
}

func (t txSessions) ListByTeacher(ctx context.Context, teacherID, startDate, endDate string) ([]models.TutoringSession, error) {
	return t.store.ListByTeacherTx(ctx, t.tx, teacherID, startDate, endDate)
}

func (t txSessions) ListByRoster(ctx context.Context, teacherID, startDate, endDate string) ([]models.TutoringSession, error) {
	return t.store.ListByRosterTx(ctx, t.tx, teacherID, startDate, endDate)
}

// BookSessionRequest books a lesson with a teacher.
type BookSessionRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Date      string  `json:"date" validate:"required,ymd"`
	StartTime string  `json:"start_time" validate:"required,hhmm"`
	Duration  int     `json:"duration" validate:"required,min=1,max=600"`
	Notes     *string `json:"notes" validate:"omitempty,max=1000"`
}

// RescheduleSessionRequest moves an existing lesson.
type RescheduleSessionRequest struct {
	Date      string `json:"date" validate:"required,ymd"`
	StartTime string `json:"start_time" validate:"required,hhmm"`
	Duration  int    `json:"duration" validate:"required,min=1,max=600"`
}

// BookingService writes sessions after re-checking availability under a per-teacher lock, so
// two concurrent requests cannot both take the same slot.
type BookingService struct {
	teachers  teacherRepository
	sessions  sessionStore
	checker   slotChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookingService builds the service.
func NewBookingService(teachers teacherRepository, sessions sessionStore, checker slotChecker, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		teachers:  teachers,
		sessions:  sessions,
		checker:   checker,
		validator: newAvailabilityValidator(validate),
		logger:    logger,
	}
}

// Book creates a scheduled session for the teacher.
func (s *BookingService) Book(ctx context.Context, teacherID string, req BookSessionRequest) (*models.TutoringSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking")
	}
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher is inactive")
	}

	session := &models.TutoringSession{
		SchoolID:  teacher.SchoolID,
		TeacherID: &teacherID,
		StudentID: req.StudentID,
		Date:      req.Date,
		StartTime: req.StartTime,
		Duration:  req.Duration,
		Status:    models.SessionStatusScheduled,
		Notes:     req.Notes,
	}

	err = s.reserve(ctx, SlotCheck{
		TeacherID:       teacherID,
		Date:            req.Date,
		StartTime:       req.StartTime,
		DurationMinutes: req.Duration,
	}, func(tx *sqlx.Tx) error {
		return s.sessions.CreateTx(ctx, tx, session)
	})
	if err != nil {
		return nil, bookingError(err, "failed to book session")
	}

	s.logger.Info("session booked",
		zap.String("teacher_id", teacherID),
		zap.String("session_id", session.ID),
		zap.String("date", session.Date),
		zap.String("start_time", session.StartTime))
	return session, nil
}

// Reschedule moves a session, ignoring its current slot when checking for conflicts.
func (s *BookingService) Reschedule(ctx context.Context, teacherID, sessionID string, req RescheduleSessionRequest) (*models.TutoringSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.TeacherID != nil && *session.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	if session.Status != models.SessionStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only scheduled sessions can be rescheduled")
	}

	err = s.reserve(ctx, SlotCheck{
		TeacherID:        teacherID,
		Date:             req.Date,
		StartTime:        req.StartTime,
		DurationMinutes:  req.Duration,
		ExcludeSessionID: sessionID,
	}, func(tx *sqlx.Tx) error {
		session.Date = req.Date
		session.StartTime = req.StartTime
		session.Duration = req.Duration
		return s.sessions.RescheduleTx(ctx, tx, session)
	})
	if err != nil {
		return nil, bookingError(err, "failed to reschedule session")
	}

	s.logger.Info("session rescheduled",
		zap.String("teacher_id", teacherID),
		zap.String("session_id", sessionID),
		zap.String("date", session.Date),
		zap.String("start_time", session.StartTime))
	return session, nil
}

// reserve resolves the template and blocks first, then takes the teacher lock and re-reads
// sessions through the transaction before calling write. Every read under the lock goes
// through tx, and a failed session read aborts the booking.
func (s *BookingService) reserve(ctx context.Context, check SlotCheck, write func(tx *sqlx.Tx) error) error {
	prepared, err := s.checker.PrepareBookingCheck(ctx, check)
	if err != nil {
		return err
	}
	return s.sessions.WithTeacherLock(ctx, check.TeacherID, func(tx *sqlx.Tx) error {
		source := NewStrictTeacherSessionSource(txSessions{store: s.sessions, tx: tx}, s.logger)
		result, err := prepared.Verify(ctx, source)
		if err != nil {
			return err
		}
		if !result.Available {
			return appErrors.Clone(appErrors.ErrConflict, result.Reason)
		}
		return write(tx)
	})
}

func bookingError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
