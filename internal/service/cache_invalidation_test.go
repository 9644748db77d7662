package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorcrm-api/pkg/jobs"
)

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestTemplateInvalidatorEvictsImmediately(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.items[TemplateCacheKey("teacher-1")] = []byte(`{}`)
	invalidator := NewTemplateInvalidator(NewCacheService(repo, nil, 0, zap.NewNop(), true), zap.NewNop())
	queue := &queueStub{}
	invalidator.UseQueue(queue)

	invalidator.Invalidate(context.Background(), "teacher-1")
	assert.NotContains(t, repo.items, TemplateCacheKey("teacher-1"))
	assert.Empty(t, queue.jobs)
}

func TestTemplateInvalidatorQueuesRetryOnFailure(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.items[TemplateCacheKey("teacher-1")] = []byte(`{}`)
	repo.delErr = errors.New("redis timeout")
	invalidator := NewTemplateInvalidator(NewCacheService(repo, nil, 0, nil, true), nil)
	queue := &queueStub{}
	invalidator.UseQueue(queue)

	invalidator.Invalidate(context.Background(), "teacher-1")
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, jobTypeInvalidateTemplate, queue.jobs[0].Type)
	assert.Equal(t, "teacher-1", queue.jobs[0].Payload)

	repo.delErr = nil
	require.NoError(t, invalidator.Handle(context.Background(), queue.jobs[0]))
	assert.NotContains(t, repo.items, TemplateCacheKey("teacher-1"))
}

func TestTemplateInvalidatorRetryNotQueued(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.items[TemplateCacheKey("teacher-1")] = []byte(`{}`)
	repo.delErr = errors.New("redis timeout")
	invalidator := NewTemplateInvalidator(NewCacheService(repo, nil, 0, nil, true), nil)
	invalidator.UseQueue(&queueStub{err: jobs.ErrQueueFull})

	invalidator.Invalidate(context.Background(), "teacher-1")
	assert.Contains(t, repo.items, TemplateCacheKey("teacher-1"))
}

func TestTemplateUpsertVisibleToNextCheck(t *testing.T) {
	teacherID := "teacher-1"
	templates := &templateRepoStub{tpl: weekdayTemplate("09:00", "17:00", 0, "monday")}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Hour, nil, true)
	invalidator := NewTemplateInvalidator(cache, nil)
	invalidator.UseQueue(&queueStub{})

	engine := NewAvailabilityService(
		NewTemplateSource(templates, cache, time.Hour, nil),
		&fakeBlockSource{}, &fakeSessionSource{}, nil, nil, AvailabilityConfig{},
	).WithClock(longAgo)
	settings := NewAvailabilitySettingsService(activeTeachers(), templates, &blockRepoStub{}, invalidator, nil, nil, "UTC")

	check := SlotCheck{TeacherID: teacherID, Date: testMonday, StartTime: "10:00", DurationMinutes: 60}
	before, err := engine.CheckSlotAvailability(context.Background(), check)
	require.NoError(t, err)
	require.True(t, before.Available)

	_, err = settings.UpsertTemplate(context.Background(), teacherID, UpsertAvailabilityTemplateRequest{
		WorkingHours: map[string]DayScheduleRequest{"monday": {Enabled: false}},
		Timezone:     "UTC",
	})
	require.NoError(t, err)

	after, err := engine.CheckSlotAvailability(context.Background(), check)
	require.NoError(t, err)
	assert.False(t, after.Available)
	assert.Equal(t, reasonDayOff, after.Reason)
}

func TestTemplateInvalidatorFallsBackInline(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.items[TemplateCacheKey("teacher-1")] = []byte(`{}`)
	invalidator := NewTemplateInvalidator(NewCacheService(repo, nil, 0, nil, true), nil)
	invalidator.UseQueue(&queueStub{err: jobs.ErrQueueFull})

	invalidator.Invalidate(context.Background(), "teacher-1")
	assert.Equal(t, []string{TemplateCacheKey("teacher-1")}, repo.deleted)
}

func TestTemplateInvalidatorRejectsBadPayload(t *testing.T) {
	invalidator := NewTemplateInvalidator(NewCacheService(newMemoryCacheRepo(), nil, 0, nil, true), nil)
	err := invalidator.Handle(context.Background(), jobs.Job{Payload: 42})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, jobs.ErrQueueFull))
}

func TestTemplateInvalidatorNoopWhenCacheDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	queue := &queueStub{}
	invalidator := NewTemplateInvalidator(NewCacheService(repo, nil, 0, nil, false), nil)
	invalidator.UseQueue(queue)

	invalidator.Invalidate(context.Background(), "teacher-1")
	assert.Empty(t, queue.jobs)
	assert.Empty(t, repo.deleted)
}
