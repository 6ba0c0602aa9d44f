package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage in memory. It is used in tests and for
// local development without a database.
type MemoryStorage struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		jobs: make(map[uuid.UUID]*Job),
	}
}

func isPending(status JobStatus) bool {
	switch status {
	case JobStatusWaiting, JobStatusActive, JobStatusDelayed:
		return true
	}
	return false
}

// Insert adds a job unless another job with the same key is still pending.
func (ms *MemoryStorage) Insert(ctx context.Context, job *Job) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, existing := range ms.jobs {
		if existing.Key == job.Key && isPending(existing.Status) {
			return false, nil
		}
	}

	jobCopy := *job
	ms.jobs[job.ID] = &jobCopy
	return true, nil
}

// Claim selects the oldest eligible job, moves it to active and increments
// its attempt counter.
func (ms *MemoryStorage) Claim(ctx context.Context, workerID uuid.UUID) (*Job, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Job
	for _, job := range ms.jobs {
		eligible := job.Status == JobStatusWaiting ||
			(job.Status == JobStatusDelayed && !job.NextAttemptAt.After(now))
		if !eligible {
			continue
		}
		if best == nil || job.CreatedAt.Before(best.CreatedAt) {
			best = job
		}
	}

	if best == nil {
		return nil, ErrNoJob
	}

	best.Status = JobStatusActive
	best.Attempts++
	best.UpdatedAt = now

	jobCopy := *best
	return &jobCopy, nil
}

// MarkCompleted finishes a job successfully with a reason code.
func (ms *MemoryStorage) MarkCompleted(ctx context.Context, id uuid.UUID, reason string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[id]
	if !ok {
		return ErrJobNotFound
	}

	now := time.Now()
	job.Status = JobStatusCompleted
	job.Reason = reason
	job.UpdatedAt = now
	job.FinishedAt = &now
	return nil
}

// MarkFailed finishes a job terminally.
func (ms *MemoryStorage) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[id]
	if !ok {
		return ErrJobNotFound
	}

	now := time.Now()
	job.Status = JobStatusFailed
	job.LastError = lastError
	job.UpdatedAt = now
	job.FinishedAt = &now
	return nil
}

// MarkForRetry returns a job to the delayed state until nextAttemptAt.
func (ms *MemoryStorage) MarkForRetry(ctx context.Context, id uuid.UUID, lastError string, nextAttemptAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	job, ok := ms.jobs[id]
	if !ok {
		return ErrJobNotFound
	}

	job.Status = JobStatusDelayed
	job.LastError = lastError
	job.NextAttemptAt = nextAttemptAt
	job.UpdatedAt = time.Now()
	return nil
}

// Stats returns per-state job counts.
func (ms *MemoryStorage) Stats(ctx context.Context) (*Stats, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	stats := &Stats{}
	for _, job := range ms.jobs {
		switch job.Status {
		case JobStatusWaiting:
			stats.Waiting++
		case JobStatusActive:
			stats.Active++
		case JobStatusDelayed:
			stats.Delayed++
		case JobStatusCompleted:
			stats.Completed++
		case JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// PruneFinished removes the oldest finished jobs beyond the retention caps.
func (ms *MemoryStorage) PruneFinished(ctx context.Context, keepCompleted, keepFailed int) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	removed := ms.pruneStatus(JobStatusCompleted, keepCompleted)
	removed += ms.pruneStatus(JobStatusFailed, keepFailed)
	return removed, nil
}

func (ms *MemoryStorage) pruneStatus(status JobStatus, keep int) int64 {
	var finished []*Job
	for _, job := range ms.jobs {
		if job.Status == status {
			finished = append(finished, job)
		}
	}

	if len(finished) <= keep {
		return 0
	}

	// Oldest first by finish time
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].FinishedAt.Before(*finished[j].FinishedAt)
	})

	var removed int64
	for _, job := range finished[:len(finished)-keep] {
		delete(ms.jobs, job.ID)
		removed++
	}
	return removed
}

// Job returns a copy of the job with the given id. Test helper.
func (ms *MemoryStorage) Job(id uuid.UUID) (*Job, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	job, ok := ms.jobs[id]
	if !ok {
		return nil, false
	}
	jobCopy := *job
	return &jobCopy, true
}

// JobsByKeyPrefix returns copies of all jobs whose key starts with prefix.
// Test helper.
func (ms *MemoryStorage) JobsByKeyPrefix(prefix string) []*Job {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*Job
	for _, job := range ms.jobs {
		if len(job.Key) >= len(prefix) && job.Key[:len(prefix)] == prefix {
			jobCopy := *job
			out = append(out, &jobCopy)
		}
	}
	return out
}
