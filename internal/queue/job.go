// Package queue provides the durable reminder job queue: idempotent enqueue
// by deduplication key, retry with exponential backoff, and bounded retention
// of finished jobs.
package queue

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hirewell/interview-reminders/internal/domain"
)

// JobStatus represents the state of a job in the queue.
type JobStatus string

// Job statuses.
const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusActive    JobStatus = "active"
	JobStatusDelayed   JobStatus = "delayed"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Storage errors.
var (
	// ErrNoJob is returned by Claim when no job is eligible for processing.
	ErrNoJob = errors.New("no job to claim")
	// ErrJobNotFound is returned when a job id does not exist.
	ErrJobNotFound = errors.New("job not found")
)

// Job is a unit of queued work: send a reminder to one recipient role for
// one interview. A job is owned exclusively by the queue once created.
type Job struct {
	ID            uuid.UUID
	Key           string
	InterviewID   string
	Role          domain.RecipientRole
	Status        JobStatus
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	Reason        string
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	FinishedAt    *time.Time
}

// Stats holds per-state job counts. Counts are read without blocking
// claim or enqueue operations.
type Stats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Delayed   int64 `json:"delayed"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// RetryPolicy controls how failed jobs are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy returns the default retry policy: three attempts with
// exponential backoff starting at one minute and doubling each retry.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 60 * time.Second,
		Multiplier:     2.0,
		MaxBackoff:     30 * time.Minute,
	}
}

// NextDelay returns the backoff delay before the given retry.
// attempt is the number of attempts already made (1 after the first failure).
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	backoff := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= p.Multiplier
	}

	if backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}

	return time.Duration(backoff)
}

// RetentionPolicy bounds how many finished jobs are kept for inspection.
type RetentionPolicy struct {
	MaxCompleted int
	MaxFailed    int
}

// DefaultRetentionPolicy returns the default retention policy.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		MaxCompleted: 100,
		MaxFailed:    50,
	}
}

// RetryableError wraps an error and marks it as retryable or not.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// IsRetryable returns whether the error is retryable.
func (e *RetryableError) IsRetryable() bool {
	return e.Retryable
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a retryable error.
func NewRetryableError(err error) *RetryableError {
	return &RetryableError{Err: err, Retryable: true}
}

// NewNonRetryableError creates a non-retryable error.
func NewNonRetryableError(err error) *RetryableError {
	return &RetryableError{Err: err, Retryable: false}
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	type retryable interface {
		IsRetryable() bool
	}
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	// Default: retry unknown errors
	return true
}
