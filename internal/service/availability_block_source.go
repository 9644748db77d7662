package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutorcrm-api/internal/models"
	"github.com/noah-isme/tutorcrm-api/pkg/timeslot"
)

type availabilityBlockRepository interface {
	ListInRange(ctx context.Context, filter models.BlockFilter) ([]models.AvailabilityBlock, error)
}

// BlockSource feeds the engine the blocks that fall inside a date range, with recurring
// series expanded into one instance per occurrence.
type BlockSource struct {
	repo   availabilityBlockRepository
	logger *zap.Logger
}

// NewBlockSource constructs a BlockSource.
func NewBlockSource(repo availabilityBlockRepository, logger *zap.Logger) *BlockSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlockSource{repo: repo, logger: logger}
}

// GetBlocks never fails: a storage error is logged and yields no blocks.
func (s *BlockSource) GetBlocks(ctx context.Context, teacherID, startDate, endDate string) ([]models.AvailabilityBlock, error) {
	rows, err := s.repo.ListInRange(ctx, models.BlockFilter{TeacherID: teacherID, StartDate: startDate, EndDate: endDate})
	if err != nil {
		s.logger.Warn("list availability blocks failed", zap.String("teacher_id", teacherID), zap.Error(err))
		return []models.AvailabilityBlock{}, nil
	}
	start, err := timeslot.ParseDate(startDate)
	if err != nil {
		return []models.AvailabilityBlock{}, nil
	}
	end, err := timeslot.ParseDate(endDate)
	if err != nil {
		return []models.AvailabilityBlock{}, nil
	}
	return ExpandBlocks(rows, start, end), nil
}

// ExpandBlocks returns the blocks dated within [start, end]. A recurring block yields a copy
// for every occurrence in range, with OccurrenceOf pointing at the stored series. Weekly
// series repeat on the anchor weekday; monthly series repeat on the anchor day of month and
// skip months without that day. RecurrenceUntil is inclusive.
func ExpandBlocks(blocks []models.AvailabilityBlock, start, end time.Time) []models.AvailabilityBlock {
	out := make([]models.AvailabilityBlock, 0, len(blocks))
	for _, block := range blocks {
		anchor, err := timeslot.ParseDate(block.Date)
		if err != nil {
			continue
		}
		if !block.Recurring || block.RecurrencePattern == nil {
			if !anchor.Before(start) && !anchor.After(end) {
				out = append(out, block)
			}
			continue
		}

		last := end
		if block.RecurrenceUntil != nil {
			if until, err := timeslot.ParseDate(*block.RecurrenceUntil); err == nil && until.Before(last) {
				last = until
			}
		}

		for _, day := range occurrences(*block.RecurrencePattern, anchor, start, last) {
			instance := block
			instance.Date = day.Format(timeslot.DateLayout)
			instance.OccurrenceOf = block.ID
			out = append(out, instance)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func occurrences(pattern models.RecurrencePattern, anchor, start, last time.Time) []time.Time {
	var days []time.Time
	switch pattern {
	case models.RecurrenceWeekly:
		day := anchor
		if day.Before(start) {
			weeks := int(start.Sub(anchor).Hours()/24+6) / 7
			day = anchor.AddDate(0, 0, weeks*7)
		}
		for ; !day.After(last); day = day.AddDate(0, 0, 7) {
			days = append(days, day)
		}
	case models.RecurrenceMonthly:
		offset := 0
		if anchor.Before(start) {
			offset = (start.Year()-anchor.Year())*12 + int(start.Month()-anchor.Month())
			if offset > 0 {
				offset--
			}
		}
		for ; ; offset++ {
			first := time.Date(anchor.Year(), anchor.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
			if first.After(last) {
				break
			}
			day := first.AddDate(0, 0, anchor.Day()-1)
			if day.Month() != first.Month() || day.Before(start) || day.After(last) {
				continue
			}
			days = append(days, day)
		}
	default:
		if !anchor.Before(start) && !anchor.After(last) {
			days = append(days, anchor)
		}
	}
	return days
}
