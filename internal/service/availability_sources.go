package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutorcrm-api/internal/models"
)

type availabilityTemplateRepository interface {
	GetByTeacher(ctx context.Context, teacherID string) (*models.WeeklyAvailabilityTemplate, error)
}

// TemplateCacheKey is the cache key holding a teacher's weekly template.
func TemplateCacheKey(teacherID string) string {
	return fmt.Sprintf("availability:template:%s", teacherID)
}

// TemplateSource reads weekly templates through the cache.
type TemplateSource struct {
	repo   availabilityTemplateRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewTemplateSource constructs a TemplateSource. A nil cache reads straight from storage.
func NewTemplateSource(repo availabilityTemplateRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *TemplateSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateSource{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// GetWeeklyTemplate returns the teacher's template, or nil when none is configured.
func (s *TemplateSource) GetWeeklyTemplate(ctx context.Context, teacherID string) (*models.WeeklyAvailabilityTemplate, error) {
	key := TemplateCacheKey(teacherID)
	if s.cache.Enabled() {
		var cached models.WeeklyAvailabilityTemplate
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	tpl, err := s.repo.GetByTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, tpl, s.ttl)
	}
	return tpl, nil
}

type teacherSessionRepository interface {
	ListByTeacher(ctx context.Context, teacherID, startDate, endDate string) ([]models.TutoringSession, error)
	ListByRoster(ctx context.Context, teacherID, startDate, endDate string) ([]models.TutoringSession, error)
}

// TeacherSessionSource collects the lessons that occupy a teacher: sessions assigned to them
// and unassigned sessions of students on their roster.
type TeacherSessionSource struct {
	repo   teacherSessionRepository
	logger *zap.Logger
	strict bool
}

// NewTeacherSessionSource constructs a TeacherSessionSource.
func NewTeacherSessionSource(repo teacherSessionRepository, logger *zap.Logger) *TeacherSessionSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherSessionSource{repo: repo, logger: logger}
}

// NewStrictTeacherSessionSource returns a source that fails when either lookup fails. Booking
// uses it so a partial read can never hide an existing lesson.
func NewStrictTeacherSessionSource(repo teacherSessionRepository, logger *zap.Logger) *TeacherSessionSource {
	source := NewTeacherSessionSource(repo, logger)
	source.strict = true
	return source
}

// GetBookedSessions merges both lookups, dropping duplicates by id. One failing lookup is
// logged and skipped unless the source is strict; an error is returned when both fail.
func (s *TeacherSessionSource) GetBookedSessions(ctx context.Context, teacherID, startDate, endDate string) ([]models.BookedSession, error) {
	direct, directErr := s.repo.ListByTeacher(ctx, teacherID, startDate, endDate)
	if directErr != nil {
		if s.strict {
			return nil, directErr
		}
		s.logger.Warn("list teacher sessions failed", zap.String("teacher_id", teacherID), zap.Error(directErr))
	}
	roster, rosterErr := s.repo.ListByRoster(ctx, teacherID, startDate, endDate)
	if rosterErr != nil {
		if s.strict {
			return nil, rosterErr
		}
		s.logger.Warn("list roster sessions failed", zap.String("teacher_id", teacherID), zap.Error(rosterErr))
	}
	if directErr != nil && rosterErr != nil {
		return nil, errors.Join(directErr, rosterErr)
	}

	seen := make(map[string]struct{}, len(direct)+len(roster))
	booked := make([]models.BookedSession, 0, len(direct)+len(roster))
	for _, group := range [][]models.TutoringSession{direct, roster} {
		for _, session := range group {
			if session.Status == models.SessionStatusCancelled {
				continue
			}
			if _, ok := seen[session.ID]; ok {
				continue
			}
			seen[session.ID] = struct{}{}
			booked = append(booked, session.Booked())
		}
	}

	sort.SliceStable(booked, func(i, j int) bool {
		if booked[i].Date != booked[j].Date {
			return booked[i].Date < booked[j].Date
		}
		return booked[i].StartTime < booked[j].StartTime
	})
	return booked, nil
}
