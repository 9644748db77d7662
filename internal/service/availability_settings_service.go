package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorcrm-api/internal/models"
	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
	"github.com/noah-isme/tutorcrm-api/pkg/timeslot"
)

type teacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type templateWriter interface {
	GetByTeacher(ctx context.Context, teacherID string) (*models.WeeklyAvailabilityTemplate, error)
	Upsert(ctx context.Context, tpl *models.WeeklyAvailabilityTemplate) error
}

type blockWriter interface {
	ListInRange(ctx context.Context, filter models.BlockFilter) ([]models.AvailabilityBlock, error)
	Create(ctx context.Context, block *models.AvailabilityBlock) error
	Delete(ctx context.Context, teacherID, id string) (bool, error)
}

type templateInvalidator interface {
	Invalidate(ctx context.Context, teacherID string)
}

// BreakRequest is one break inside a working day.
type BreakRequest struct {
	Start string `json:"start" validate:"required,hhmm"`
	End   string `json:"end" validate:"required,hhmm"`
}

// DayScheduleRequest configures one weekday.
type DayScheduleRequest struct {
	Enabled bool           `json:"enabled"`
	Start   string         `json:"start" validate:"required_if=Enabled true,omitempty,hhmm"`
	End     string         `json:"end" validate:"required_if=Enabled true,omitempty,hhmm"`
	Breaks  []BreakRequest `json:"breaks" validate:"dive"`
}

// UpsertAvailabilityTemplateRequest replaces a teacher's weekly template.
type UpsertAvailabilityTemplateRequest struct {
	WorkingHours      map[string]DayScheduleRequest `json:"working_hours" validate:"required,dive,keys,weekday,endkeys"`
	Timezone          string                        `json:"timezone" validate:"required,iana_tz"`
	BufferTime        int                           `json:"buffer_time" validate:"min=0,max=240"`
	MinBookingNotice  int                           `json:"min_booking_notice" validate:"min=0"`
	MaxBookingAdvance int                           `json:"max_booking_advance" validate:"min=0"`
}

// CreateAvailabilityBlockRequest adds a block or a forced-available window.
type CreateAvailabilityBlockRequest struct {
	Type              models.AvailabilityBlockType `json:"type" validate:"required,oneof=blocked available"`
	Date              string                       `json:"date" validate:"required,ymd"`
	StartTime         string                       `json:"start_time" validate:"required,hhmm"`
	EndTime           string                       `json:"end_time" validate:"required,hhmm"`
	Reason            *string                      `json:"reason" validate:"omitempty,max=255"`
	Recurring         bool                         `json:"recurring"`
	RecurrencePattern *models.RecurrencePattern    `json:"recurrence_pattern" validate:"required_if=Recurring true,omitempty,oneof=weekly monthly"`
	RecurrenceUntil   *string                      `json:"recurrence_until" validate:"omitempty,ymd"`
}

// AvailabilitySettingsService manages the data the engine reads: templates and blocks.
type AvailabilitySettingsService struct {
	teachers    teacherRepository
	templates   templateWriter
	blocks      blockWriter
	invalidator templateInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	defaultTZ   string
}

// NewAvailabilitySettingsService builds the service.
func NewAvailabilitySettingsService(teachers teacherRepository, templates templateWriter, blocks blockWriter, invalidator templateInvalidator, validate *validator.Validate, logger *zap.Logger, defaultTZ string) *AvailabilitySettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &AvailabilitySettingsService{
		teachers:    teachers,
		templates:   templates,
		blocks:      blocks,
		invalidator: invalidator,
		validator:   newAvailabilityValidator(validate),
		logger:      logger,
		defaultTZ:   defaultTZ,
	}
}

// GetTemplate returns the stored template, or an unsaved all-days-off template when none exists.
func (s *AvailabilitySettingsService) GetTemplate(ctx context.Context, teacherID string) (*models.WeeklyAvailabilityTemplate, error) {
	teacher, err := s.loadTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.GetByTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			hours := models.WorkingHours{}
			for _, day := range timeslot.Weekdays() {
				hours[day] = models.DaySchedule{Breaks: []models.BreakWindow{}}
			}
			return &models.WeeklyAvailabilityTemplate{
				TeacherID:    teacherID,
				SchoolID:     teacher.SchoolID,
				WorkingHours: hours,
				Timezone:     s.defaultTZ,
			}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability template")
	}
	return tpl, nil
}

// UpsertTemplate validates and stores a template, then evicts the cached copy.
func (s *AvailabilitySettingsService) UpsertTemplate(ctx context.Context, teacherID string, req UpsertAvailabilityTemplateRequest) (*models.WeeklyAvailabilityTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability template")
	}
	hours, err := buildWorkingHours(req.WorkingHours)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	teacher, err := s.loadTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	payload := &models.WeeklyAvailabilityTemplate{
		TeacherID:         teacherID,
		SchoolID:          teacher.SchoolID,
		WorkingHours:      hours,
		Timezone:          req.Timezone,
		BufferTime:        req.BufferTime,
		MinBookingNotice:  req.MinBookingNotice,
		MaxBookingAdvance: req.MaxBookingAdvance,
	}

	existing, err := s.templates.GetByTeacher(ctx, teacherID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability template")
	}
	if existing != nil {
		payload.ID = existing.ID
		payload.CreatedAt = existing.CreatedAt
	}

	if err := s.templates.Upsert(ctx, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability template")
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, teacherID)
	}
	s.logger.Info("availability template saved", zap.String("teacher_id", teacherID), zap.String("timezone", payload.Timezone))
	return payload, nil
}

// ListBlocks returns the blocks in range with recurring series expanded.
func (s *AvailabilitySettingsService) ListBlocks(ctx context.Context, teacherID, startDate, endDate string) ([]models.AvailabilityBlock, error) {
	start, err := timeslot.ParseDate(startDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_date")
	}
	end, err := timeslot.ParseDate(endDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	if _, err := s.loadTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	rows, err := s.blocks.ListInRange(ctx, models.BlockFilter{TeacherID: teacherID, StartDate: startDate, EndDate: endDate})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability blocks")
	}
	return ExpandBlocks(rows, start, end), nil
}

// CreateBlock stores a new block.
func (s *AvailabilitySettingsService) CreateBlock(ctx context.Context, teacherID string, req CreateAvailabilityBlockRequest) (*models.AvailabilityBlock, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability block")
	}
	if _, err := timeslot.ParseInterval(req.StartTime, req.EndTime); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if !req.Recurring && (req.RecurrencePattern != nil || req.RecurrenceUntil != nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recurrence fields require recurring=true")
	}
	if req.RecurrenceUntil != nil && *req.RecurrenceUntil < req.Date {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recurrence_until must not be before date")
	}
	if _, err := s.loadTeacher(ctx, teacherID); err != nil {
		return nil, err
	}

	block := &models.AvailabilityBlock{
		TeacherID:         teacherID,
		Type:              req.Type,
		Date:              req.Date,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		Reason:            req.Reason,
		Recurring:         req.Recurring,
		RecurrencePattern: req.RecurrencePattern,
		RecurrenceUntil:   req.RecurrenceUntil,
	}
	if err := s.blocks.Create(ctx, block); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability block")
	}
	return block, nil
}

// DeleteBlock removes a block. Deleting a recurring block removes the whole series.
func (s *AvailabilitySettingsService) DeleteBlock(ctx context.Context, teacherID, blockID string) error {
	removed, err := s.blocks.Delete(ctx, teacherID, blockID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability block")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "availability block not found")
	}
	return nil
}

func (s *AvailabilitySettingsService) loadTeacher(ctx context.Context, teacherID string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// buildWorkingHours checks each enabled day: hours must be ordered, breaks must sit inside
// the hours and must not overlap each other. Missing weekdays are stored as days off.
func buildWorkingHours(days map[string]DayScheduleRequest) (models.WorkingHours, error) {
	hours := models.WorkingHours{}
	for _, name := range timeslot.Weekdays() {
		req, ok := days[name]
		if !ok || !req.Enabled {
			hours[name] = models.DaySchedule{Breaks: []models.BreakWindow{}}
			continue
		}
		window, err := timeslot.ParseInterval(req.Start, req.End)
		if err != nil {
			return nil, fmt.Errorf("%s: end must be after start", name)
		}
		breaks := make([]timeslot.Interval, 0, len(req.Breaks))
		for _, br := range req.Breaks {
			interval, err := timeslot.ParseInterval(br.Start, br.End)
			if err != nil {
				return nil, fmt.Errorf("%s: break end must be after break start", name)
			}
			if !window.Contains(interval) {
				return nil, fmt.Errorf("%s: break %s-%s lies outside working hours", name, br.Start, br.End)
			}
			breaks = append(breaks, interval)
		}
		sort.Slice(breaks, func(i, j int) bool { return breaks[i].Start < breaks[j].Start })
		for i := 1; i < len(breaks); i++ {
			if breaks[i].Overlaps(breaks[i-1]) {
				return nil, fmt.Errorf("%s: breaks overlap", name)
			}
		}

		schedule := models.DaySchedule{Enabled: true, Start: req.Start, End: req.End, Breaks: make([]models.BreakWindow, 0, len(breaks))}
		for _, br := range breaks {
			schedule.Breaks = append(schedule.Breaks, models.BreakWindow{Start: br.Start.String(), End: br.End.String()})
		}
		hours[name] = schedule
	}
	return hours, nil
}
