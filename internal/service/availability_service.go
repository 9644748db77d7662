package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorcrm-api/internal/models"
	appErrors "github.com/noah-isme/tutorcrm-api/pkg/errors"
	"github.com/noah-isme/tutorcrm-api/pkg/timeslot"
)

const (
	reasonNotConfigured   = "Teacher availability is not configured"
	reasonDayOff          = "Teacher does not work on this day"
	reasonOutsideHours    = "Requested time is outside of working hours"
	reasonBreak           = "Requested time overlaps with break time"
	reasonBlockedFallback = "Teacher is unavailable during this time"
	reasonSessionConflict = "Conflicts with another session"

	defaultMaxRangeDays = 92
)

type templateSource interface {
	GetWeeklyTemplate(ctx context.Context, teacherID string) (*models.WeeklyAvailabilityTemplate, error)
}

type blockSource interface {
	GetBlocks(ctx context.Context, teacherID, startDate, endDate string) ([]models.AvailabilityBlock, error)
}

type bookedSessionSource interface {
	GetBookedSessions(ctx context.Context, teacherID, startDate, endDate string) ([]models.BookedSession, error)
}

// SlotQuery lists candidate slots for a teacher over an inclusive date range.
type SlotQuery struct {
	TeacherID       string `validate:"required"`
	StartDate       string `validate:"required,ymd"`
	EndDate         string `validate:"required,ymd"`
	DurationMinutes int    `validate:"required,min=1,max=1440"`
	DisplayTimezone string `validate:"omitempty,iana_tz"`
}

// SlotCheck asks whether a single proposed booking fits.
type SlotCheck struct {
	TeacherID        string `json:"-" validate:"required"`
	Date             string `json:"date" validate:"required,ymd"`
	StartTime        string `json:"start_time" validate:"required,hhmm"`
	DurationMinutes  int    `json:"duration" validate:"required,min=1,max=1440"`
	ExcludeSessionID string `json:"exclude_session_id,omitempty"`
}

// AvailabilityConfig tunes the engine.
type AvailabilityConfig struct {
	MaxRangeDays int
}

// AvailabilityService computes bookable slots from a teacher's weekly template, blocks and sessions.
type AvailabilityService struct {
	templates templateSource
	blocks    blockSource
	sessions  bookedSessionSource
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       AvailabilityConfig
}

// NewAvailabilityService wires the engine to its collaborators.
func NewAvailabilityService(templates templateSource, blocks blockSource, sessions bookedSessionSource, metrics *MetricsService, logger *zap.Logger, cfg AvailabilityConfig) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = defaultMaxRangeDays
	}
	return &AvailabilityService{
		templates: templates,
		blocks:    blocks,
		sessions:  sessions,
		metrics:   metrics,
		validator: newAvailabilityValidator(nil),
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// WithClock replaces the wall clock used for booking notice and horizon checks.
func (s *AvailabilityService) WithClock(now func() time.Time) *AvailabilityService {
	if now != nil {
		s.now = now
	}
	return s
}

// dayPlan holds the busy intervals of one calendar date in template-local minutes.
type dayPlan struct {
	breaks   []timeslot.Interval
	blocked  []blockedInterval
	sessions []timeslot.Interval
}

type blockedInterval struct {
	timeslot.Interval
	reason string
}

// conflict returns the reason a slot cannot be booked, or "" when it is free. Breaks are
// checked first, then blocks, then sessions.
func (p dayPlan) conflict(slot timeslot.Interval) string {
	for _, br := range p.breaks {
		if slot.Overlaps(br) {
			return reasonBreak
		}
	}
	for _, block := range p.blocked {
		if slot.Overlaps(block.Interval) {
			if block.reason != "" {
				return block.reason
			}
			return reasonBlockedFallback
		}
	}
	for _, session := range p.sessions {
		if slot.Overlaps(session) {
			return reasonSessionConflict
		}
	}
	return ""
}

// GetAvailableSlots returns every candidate slot inside working hours between StartDate and
// EndDate, ordered by date then start time, each flagged with whether it is free. Slots are
// stepped by duration plus the template buffer. Notice and horizon limits are not applied here.
func (s *AvailabilityService) GetAvailableSlots(ctx context.Context, q SlotQuery) ([]models.AvailableSlot, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveAvailabilityEngine("slots", time.Since(started)) }()

	start, end, err := s.validateRange(q)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSlotQuery()

	slots := make([]models.AvailableSlot, 0)

	tpl, err := s.templates.GetWeeklyTemplate(ctx, q.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability template")
	}
	if tpl == nil {
		return slots, nil
	}
	zone, err := timeslot.LoadZone(tpl.Timezone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "availability template has an invalid timezone")
	}

	var display *timeslot.Zone
	if q.DisplayTimezone != "" {
		dz, err := timeslot.LoadZone(q.DisplayTimezone)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid display timezone")
		}
		if !dz.Same(zone) {
			display = &dz
		}
	}

	plans := s.loadPlans(ctx, q.TeacherID, q.StartDate, q.EndDate, tpl.BufferTime, "")

	for _, date := range timeslot.DatesBetween(start, end) {
		day, _ := timeslot.ParseDate(date)
		schedule := tpl.Day(timeslot.WeekdayName(day.Weekday()))
		if !schedule.Enabled {
			continue
		}
		hours, ok := s.workingInterval(q.TeacherID, date, schedule)
		if !ok {
			continue
		}
		plan := plans[date]
		plan.breaks = s.breakIntervals(q.TeacherID, schedule)

		for _, candidate := range candidateSlots(hours, q.DurationMinutes, tpl.BufferTime) {
			slot := models.AvailableSlot{
				Date:        date,
				Start:       candidate.Start.String(),
				End:         candidate.End.String(),
				IsAvailable: plan.conflict(candidate) == "",
			}
			if display != nil {
				slot.Display = displayLabel(zone, *display, date, candidate)
			}
			slots = append(slots, slot)
		}
	}

	return slots, nil
}

// CheckSlotAvailability decides whether one proposed booking fits. An unavailable verdict is
// not an error; the reason explains the first rule that rejected the booking.
func (s *AvailabilityService) CheckSlotAvailability(ctx context.Context, q SlotCheck) (*models.SlotCheckResult, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveAvailabilityEngine("check", time.Since(started)) }()

	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot check")
	}

	result, err := s.checkSlot(ctx, q)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAvailabilityCheck(result.Available)
	return result, nil
}

func (s *AvailabilityService) checkSlot(ctx context.Context, q SlotCheck) (*models.SlotCheckResult, error) {
	p, err := s.prepareCheck(ctx, q)
	if err != nil {
		return nil, err
	}
	if p.verdict != nil {
		return p.verdict, nil
	}
	sessions, err := s.sessions.GetBookedSessions(ctx, q.TeacherID, q.Date, q.Date)
	if err != nil {
		s.logger.Warn("booked sessions unavailable, continuing without them",
			zap.String("teacher_id", q.TeacherID), zap.Error(err))
		sessions = nil
	}
	return s.finishCheck(p, sessions)
}

// preparedCheck is a slot check resolved up to, but not including, the session read.
type preparedCheck struct {
	q         SlotCheck
	tpl       *models.WeeklyAvailabilityTemplate
	zone      timeslot.Zone
	requested timeslot.Interval
	plan      dayPlan
	verdict   *models.SlotCheckResult
}

func (s *AvailabilityService) prepareCheck(ctx context.Context, q SlotCheck) (*preparedCheck, error) {
	tpl, err := s.templates.GetWeeklyTemplate(ctx, q.TeacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability template")
	}
	if tpl == nil {
		return &preparedCheck{q: q, verdict: unavailable(reasonNotConfigured)}, nil
	}
	zone, err := timeslot.LoadZone(tpl.Timezone)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "availability template has an invalid timezone")
	}
	p := &preparedCheck{q: q, tpl: tpl, zone: zone}

	day, _ := timeslot.ParseDate(q.Date)
	schedule := tpl.Day(timeslot.WeekdayName(day.Weekday()))
	if !schedule.Enabled {
		p.verdict = unavailable(reasonDayOff)
		return p, nil
	}

	startClock, _ := timeslot.ParseClock(q.StartTime)
	p.requested = timeslot.Interval{Start: startClock, End: startClock.Add(q.DurationMinutes)}

	hours, ok := s.workingInterval(q.TeacherID, q.Date, schedule)
	if !ok || !hours.Contains(p.requested) {
		p.verdict = unavailable(reasonOutsideHours)
		return p, nil
	}

	plans := make(map[string]dayPlan)
	s.planBlocks(plans, q.TeacherID, s.readBlocks(ctx, q.TeacherID, q.Date, q.Date))
	p.plan = plans[q.Date]
	p.plan.breaks = s.breakIntervals(q.TeacherID, schedule)
	if reason := p.plan.conflict(p.requested); reason != "" {
		p.verdict = unavailable(reason)
	}
	return p, nil
}

// finishCheck applies booked sessions, then the notice and horizon limits.
func (s *AvailabilityService) finishCheck(p *preparedCheck, sessions []models.BookedSession) (*models.SlotCheckResult, error) {
	if p.verdict != nil {
		return p.verdict, nil
	}
	plans := map[string]dayPlan{p.q.Date: p.plan}
	s.planSessions(plans, p.q.TeacherID, sessions, p.tpl.BufferTime, p.q.ExcludeSessionID)
	if reason := plans[p.q.Date].conflict(p.requested); reason != "" {
		return unavailable(reason), nil
	}

	local, err := p.zone.At(p.q.Date, p.requested.Start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot check")
	}
	hoursAhead := local.Time().Sub(s.now()).Hours()
	if p.tpl.MinBookingNotice > 0 && hoursAhead < float64(p.tpl.MinBookingNotice) {
		return unavailable(fmt.Sprintf("Booking requires %d hours advance notice", p.tpl.MinBookingNotice)), nil
	}
	if p.tpl.MaxBookingAdvance > 0 && hoursAhead/24 > float64(p.tpl.MaxBookingAdvance) {
		return unavailable(fmt.Sprintf("Cannot book more than %d days in advance", p.tpl.MaxBookingAdvance)), nil
	}

	return &models.SlotCheckResult{Available: true}, nil
}

// BookingCheck is a slot check whose template and blocks were resolved before the booking
// transaction began. Verify completes it against sessions read inside that transaction.
type BookingCheck struct {
	svc      *AvailabilityService
	prepared *preparedCheck
}

// PrepareBookingCheck validates q and resolves everything but the booked sessions.
func (s *AvailabilityService) PrepareBookingCheck(ctx context.Context, q SlotCheck) (*BookingCheck, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot check")
	}
	p, err := s.prepareCheck(ctx, q)
	if err != nil {
		return nil, err
	}
	return &BookingCheck{svc: s, prepared: p}, nil
}

// Verify finishes the check with sessions from source. A failed session read is returned as
// an internal error instead of being treated as an empty calendar.
func (c *BookingCheck) Verify(ctx context.Context, sessions bookedSessionSource) (*models.SlotCheckResult, error) {
	p := c.prepared
	var booked []models.BookedSession
	if p.verdict == nil {
		var err error
		booked, err = sessions.GetBookedSessions(ctx, p.q.TeacherID, p.q.Date, p.q.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked sessions")
		}
	}
	result, err := c.svc.finishCheck(p, booked)
	if err != nil {
		return nil, err
	}
	c.svc.metrics.RecordAvailabilityCheck(result.Available)
	return result, nil
}

func unavailable(reason string) *models.SlotCheckResult {
	return &models.SlotCheckResult{Available: false, Reason: reason}
}

func (s *AvailabilityService) validateRange(q SlotQuery) (time.Time, time.Time, error) {
	if err := s.validator.Struct(q); err != nil {
		return time.Time{}, time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot query")
	}
	start, _ := timeslot.ParseDate(q.StartDate)
	end, _ := timeslot.ParseDate(q.EndDate)
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > s.cfg.MaxRangeDays {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range must not exceed %d days", s.cfg.MaxRangeDays))
	}
	return start, end, nil
}

// loadPlans fetches blocks and sessions for the range and buckets them per date. Either read
// failing degrades to an empty list so the template alone still drives the result.
func (s *AvailabilityService) loadPlans(ctx context.Context, teacherID, startDate, endDate string, buffer int, excludeSessionID string) map[string]dayPlan {
	plans := make(map[string]dayPlan)
	s.planBlocks(plans, teacherID, s.readBlocks(ctx, teacherID, startDate, endDate))

	sessions, err := s.sessions.GetBookedSessions(ctx, teacherID, startDate, endDate)
	if err != nil {
		s.logger.Warn("booked sessions unavailable, continuing without them",
			zap.String("teacher_id", teacherID), zap.Error(err))
		sessions = nil
	}
	s.planSessions(plans, teacherID, sessions, buffer, excludeSessionID)
	return plans
}

func (s *AvailabilityService) readBlocks(ctx context.Context, teacherID, startDate, endDate string) []models.AvailabilityBlock {
	blocks, err := s.blocks.GetBlocks(ctx, teacherID, startDate, endDate)
	if err != nil {
		s.logger.Warn("availability blocks unavailable, continuing without them",
			zap.String("teacher_id", teacherID), zap.Error(err))
		return nil
	}
	return blocks
}

func (s *AvailabilityService) planBlocks(plans map[string]dayPlan, teacherID string, blocks []models.AvailabilityBlock) {
	for _, block := range blocks {
		if block.Type != models.AvailabilityBlockBlocked {
			continue
		}
		interval, err := timeslot.ParseInterval(block.StartTime, block.EndTime)
		if err != nil {
			s.logger.Warn("skipping malformed availability block",
				zap.String("teacher_id", teacherID), zap.String("block_id", block.ID), zap.Error(err))
			continue
		}
		reason := ""
		if block.Reason != nil {
			reason = *block.Reason
		}
		plan := plans[block.Date]
		plan.blocked = append(plan.blocked, blockedInterval{Interval: interval, reason: reason})
		plans[block.Date] = plan
	}
}

// planSessions adds each session's occupied window, extended by the buffer.
func (s *AvailabilityService) planSessions(plans map[string]dayPlan, teacherID string, sessions []models.BookedSession, buffer int, excludeSessionID string) {
	for _, session := range sessions {
		if excludeSessionID != "" && session.ID == excludeSessionID {
			continue
		}
		start, err := timeslot.ParseClock(session.StartTime)
		if err != nil || session.Duration <= 0 {
			s.logger.Warn("skipping malformed session",
				zap.String("teacher_id", teacherID), zap.String("session_id", session.ID))
			continue
		}
		plan := plans[session.Date]
		plan.sessions = append(plan.sessions, timeslot.Interval{Start: start, End: start.Add(session.Duration)}.Extend(buffer))
		plans[session.Date] = plan
	}
}

func (s *AvailabilityService) workingInterval(teacherID, date string, schedule models.DaySchedule) (timeslot.Interval, bool) {
	hours, err := timeslot.ParseInterval(schedule.Start, schedule.End)
	if err != nil {
		s.logger.Warn("skipping day with malformed working hours",
			zap.String("teacher_id", teacherID), zap.String("date", date), zap.Error(err))
		return timeslot.Interval{}, false
	}
	return hours, true
}

func (s *AvailabilityService) breakIntervals(teacherID string, schedule models.DaySchedule) []timeslot.Interval {
	breaks := make([]timeslot.Interval, 0, len(schedule.Breaks))
	for _, br := range schedule.Breaks {
		interval, err := timeslot.ParseInterval(br.Start, br.End)
		if err != nil {
			s.logger.Warn("skipping malformed break", zap.String("teacher_id", teacherID), zap.Error(err))
			continue
		}
		breaks = append(breaks, interval)
	}
	return breaks
}

// candidateSlots walks the working window from its start. A slot is emitted only when it ends
// within the window, and the next one starts duration+buffer later.
func candidateSlots(hours timeslot.Interval, duration, buffer int) []timeslot.Interval {
	if buffer < 0 {
		buffer = 0
	}
	var out []timeslot.Interval
	for t := hours.Start; t.Add(duration) <= hours.End; t = t.Add(duration + buffer) {
		out = append(out, timeslot.Interval{Start: t, End: t.Add(duration)})
	}
	return out
}

func displayLabel(native, display timeslot.Zone, date string, slot timeslot.Interval) *models.SlotLabel {
	start, err := native.At(date, slot.Start)
	if err != nil {
		return nil
	}
	end, _ := native.At(date, slot.End)
	startLocal := start.In(display)
	endLocal := end.In(display)
	return &models.SlotLabel{
		Date:     startLocal.Date,
		Start:    startLocal.Clock.String(),
		End:      endLocal.Clock.String(),
		Timezone: display.Name(),
	}
}
