package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorcrm-api/pkg/jobs"
)

const jobTypeInvalidateTemplate = "availability.template.invalidate"

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// TemplateInvalidator evicts cached templates after a write. The eviction runs inline so the
// next read sees the new template; a failed eviction is retried through the job queue.
type TemplateInvalidator struct {
	cache  *CacheService
	queue  jobQueue
	logger *zap.Logger
}

// NewTemplateInvalidator constructs an invalidator. Attach a queue with UseQueue.
func NewTemplateInvalidator(cache *CacheService, logger *zap.Logger) *TemplateInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateInvalidator{cache: cache, logger: logger}
}

// UseQueue sets the queue that retries failed evictions.
func (i *TemplateInvalidator) UseQueue(queue jobQueue) {
	i.queue = queue
}

// Invalidate evicts the teacher's cached template, queueing a retry when the cache refuses.
func (i *TemplateInvalidator) Invalidate(ctx context.Context, teacherID string) {
	if i == nil || !i.cache.Enabled() {
		return
	}
	err := i.cache.Invalidate(ctx, TemplateCacheKey(teacherID))
	if err == nil {
		return
	}
	if i.queue == nil {
		i.logger.Error("template eviction failed", zap.String("teacher_id", teacherID), zap.Error(err))
		return
	}
	if qErr := i.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeInvalidateTemplate, Payload: teacherID}); qErr != nil {
		i.logger.Error("template eviction failed and retry not queued",
			zap.String("teacher_id", teacherID), zap.Error(err), zap.NamedError("queue_error", qErr))
		return
	}
	i.logger.Warn("template eviction failed, retry queued", zap.String("teacher_id", teacherID), zap.Error(err))
}

// Handle is the queue handler for invalidation jobs.
func (i *TemplateInvalidator) Handle(ctx context.Context, job jobs.Job) error {
	teacherID, ok := job.Payload.(string)
	if !ok || teacherID == "" {
		return fmt.Errorf("invalid invalidation payload %T", job.Payload)
	}
	return i.cache.Invalidate(ctx, TemplateCacheKey(teacherID))
}
