package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage defines the persistence contract for queue jobs.
//
// Implementations must guarantee that Insert is atomic with respect to
// concurrent inserts for the same key, and that a claimed job is never
// delivered to two workers at once.
type Storage interface {
	// Insert adds a job in waiting state. If another job with the same key
	// is still pending (waiting, active or delayed), the insert is a no-op
	// and Insert returns false.
	Insert(ctx context.Context, job *Job) (bool, error)

	// Claim atomically selects one eligible job (waiting, or delayed with
	// an elapsed next-attempt time), moves it to active and increments its
	// attempt counter. Returns ErrNoJob when nothing is eligible.
	Claim(ctx context.Context, workerID uuid.UUID) (*Job, error)

	// MarkCompleted finishes a job successfully with a reason code.
	MarkCompleted(ctx context.Context, id uuid.UUID, reason string) error

	// MarkFailed finishes a job terminally after its attempts are exhausted
	// or the error is not retryable.
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error

	// MarkForRetry returns a job to the delayed state until nextAttemptAt.
	MarkForRetry(ctx context.Context, id uuid.UUID, lastError string, nextAttemptAt time.Time) error

	// Stats returns per-state job counts.
	Stats(ctx context.Context) (*Stats, error)

	// PruneFinished removes the oldest finished jobs beyond the retention
	// caps and returns the number of rows removed.
	PruneFinished(ctx context.Context, keepCompleted, keepFailed int) (int64, error)
}
