package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hirewell/interview-reminders/internal/domain"
)

// Queue is the single entry point for producing jobs and reading queue
// state. Retry and retention behavior is configured here, not in the
// producers or the worker handler.
type Queue struct {
	storage   Storage
	retry     RetryPolicy
	retention RetentionPolicy
}

// New creates a queue over the given storage.
func New(storage Storage, retry RetryPolicy, retention RetentionPolicy) *Queue {
	return &Queue{
		storage:   storage,
		retry:     retry,
		retention: retention,
	}
}

// Enqueue inserts a job for the given key. The insert is idempotent: if a
// job with the same key is still pending, nothing is inserted and Enqueue
// returns false. Keys are deterministic for scheduler-originated jobs and
// nonce-suffixed for manual sends.
func (q *Queue) Enqueue(ctx context.Context, key, interviewID string, role domain.RecipientRole) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("enqueue %s: unknown recipient role %q", interviewID, role)
	}

	now := time.Now()
	job := &Job{
		ID:            uuid.New(),
		Key:           key,
		InterviewID:   interviewID,
		Role:          role,
		Status:        JobStatusWaiting,
		MaxAttempts:   q.retry.MaxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	inserted, err := q.storage.Insert(ctx, job)
	if err != nil {
		return false, fmt.Errorf("insert job %s: %w", key, err)
	}

	if !inserted {
		slog.Debug("job already pending, enqueue skipped", "key", key)
	}
	return inserted, nil
}

// Stats returns per-state job counts without mutating queue state.
func (q *Queue) Stats(ctx context.Context) (*Stats, error) {
	stats, err := q.storage.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return stats, nil
}

// RetryPolicy returns the retry policy applied to jobs in this queue.
func (q *Queue) RetryPolicy() RetryPolicy {
	return q.retry
}

// RetentionPolicy returns the retention policy applied to finished jobs.
func (q *Queue) RetentionPolicy() RetentionPolicy {
	return q.retention
}

// Storage exposes the underlying storage for the worker.
func (q *Queue) Storage() Storage {
	return q.storage
}
