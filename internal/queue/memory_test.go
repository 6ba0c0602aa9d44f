package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewell/interview-reminders/internal/domain"
)

func newTestJob(key string, createdAt time.Time) *Job {
	return &Job{
		ID:            uuid.New(),
		Key:           key,
		InterviewID:   uuid.NewString(),
		Role:          domain.RoleCandidate,
		Status:        JobStatusWaiting,
		MaxAttempts:   3,
		NextAttemptAt: createdAt,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestMemoryStorage_Insert_DeduplicatesPendingKeys(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	inserted, err := storage.Insert(ctx, newTestJob("reminder:a:candidate", now))
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same key while the first job is still pending
	inserted, err = storage.Insert(ctx, newTestJob("reminder:a:candidate", now))
	require.NoError(t, err)
	assert.False(t, inserted)

	// Different key is unaffected
	inserted, err = storage.Insert(ctx, newTestJob("reminder:b:candidate", now))
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestMemoryStorage_Insert_AllowsReinsertAfterFinish(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	first := newTestJob("reminder:a:candidate", now)
	_, err := storage.Insert(ctx, first)
	require.NoError(t, err)
	require.NoError(t, storage.MarkCompleted(ctx, first.ID, ""))

	inserted, err := storage.Insert(ctx, newTestJob("reminder:a:candidate", now))
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestMemoryStorage_Claim_OldestFirstAndExclusive(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	older := newTestJob("reminder:a:candidate", now.Add(-time.Minute))
	newer := newTestJob("reminder:b:candidate", now)
	_, err := storage.Insert(ctx, newer)
	require.NoError(t, err)
	_, err = storage.Insert(ctx, older)
	require.NoError(t, err)

	claimed, err := storage.Claim(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, older.ID, claimed.ID)
	assert.Equal(t, JobStatusActive, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)

	// The active job must not be claimable again
	second, err := storage.Claim(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, newer.ID, second.ID)

	_, err = storage.Claim(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNoJob)
}

func TestMemoryStorage_Claim_DelayedEligibility(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	job := newTestJob("reminder:a:candidate", time.Now())
	_, err := storage.Insert(ctx, job)
	require.NoError(t, err)

	claimed, err := storage.Claim(ctx, uuid.New())
	require.NoError(t, err)

	// Not claimable while the backoff has not elapsed
	require.NoError(t, storage.MarkForRetry(ctx, claimed.ID, "boom", time.Now().Add(time.Hour)))
	_, err = storage.Claim(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNoJob)

	// Claimable once the backoff has elapsed, with attempts accumulating
	require.NoError(t, storage.MarkForRetry(ctx, claimed.ID, "boom", time.Now().Add(-time.Second)))
	claimed, err = storage.Claim(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, 2, claimed.Attempts)
	assert.Equal(t, "boom", claimed.LastError)
}

func TestMemoryStorage_MarkCompleted(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	job := newTestJob("reminder:a:candidate", time.Now())
	_, err := storage.Insert(ctx, job)
	require.NoError(t, err)

	require.NoError(t, storage.MarkCompleted(ctx, job.ID, "already_sent"))

	stored, ok := storage.Job(job.ID)
	require.True(t, ok)
	assert.Equal(t, JobStatusCompleted, stored.Status)
	assert.Equal(t, "already_sent", stored.Reason)
	require.NotNil(t, stored.FinishedAt)

	assert.ErrorIs(t, storage.MarkCompleted(ctx, uuid.New(), ""), ErrJobNotFound)
}

func TestMemoryStorage_MarkFailed(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	job := newTestJob("reminder:a:candidate", time.Now())
	_, err := storage.Insert(ctx, job)
	require.NoError(t, err)

	require.NoError(t, storage.MarkFailed(ctx, job.ID, "smtp 550"))

	stored, ok := storage.Job(job.ID)
	require.True(t, ok)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, "smtp 550", stored.LastError)
	require.NotNil(t, stored.FinishedAt)
}

func TestMemoryStorage_Stats(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	waiting := newTestJob("reminder:a:candidate", now)
	completed := newTestJob("reminder:b:candidate", now)
	failed := newTestJob("reminder:c:candidate", now)

	for _, job := range []*Job{waiting, completed, failed} {
		_, err := storage.Insert(ctx, job)
		require.NoError(t, err)
	}
	require.NoError(t, storage.MarkCompleted(ctx, completed.ID, ""))
	require.NoError(t, storage.MarkFailed(ctx, failed.ID, "boom"))

	stats, err := storage.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Waiting: 1, Completed: 1, Failed: 1}, stats)
}

func TestMemoryStorage_PruneFinished(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Now()

	var completedIDs []uuid.UUID
	for i := 0; i < 5; i++ {
		job := newTestJob(fmt.Sprintf("reminder:c%d:candidate", i), now)
		_, err := storage.Insert(ctx, job)
		require.NoError(t, err)
		require.NoError(t, storage.MarkCompleted(ctx, job.ID, ""))
		completedIDs = append(completedIDs, job.ID)
		time.Sleep(time.Millisecond)
	}

	failedJob := newTestJob("reminder:f:candidate", now)
	_, err := storage.Insert(ctx, failedJob)
	require.NoError(t, err)
	require.NoError(t, storage.MarkFailed(ctx, failedJob.ID, "boom"))

	removed, err := storage.PruneFinished(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	// The oldest completed jobs are gone, the newest two remain
	for _, id := range completedIDs[:3] {
		_, ok := storage.Job(id)
		assert.False(t, ok)
	}
	for _, id := range completedIDs[3:] {
		_, ok := storage.Job(id)
		assert.True(t, ok)
	}

	// Failed retention is within its cap, untouched
	_, ok := storage.Job(failedJob.ID)
	assert.True(t, ok)
}

func TestQueue_Enqueue(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	q := New(storage, DefaultRetryPolicy(), DefaultRetentionPolicy())

	inserted, err := q.Enqueue(ctx, "reminder:a:candidate", "a", domain.RoleCandidate)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = q.Enqueue(ctx, "reminder:a:candidate", "a", domain.RoleCandidate)
	require.NoError(t, err)
	assert.False(t, inserted)

	jobs := storage.JobsByKeyPrefix("reminder:a:")
	require.Len(t, jobs, 1)
	assert.Equal(t, JobStatusWaiting, jobs[0].Status)
	assert.Equal(t, 3, jobs[0].MaxAttempts)
}

func TestQueue_Enqueue_RejectsUnknownRole(t *testing.T) {
	q := New(NewMemoryStorage(), DefaultRetryPolicy(), DefaultRetentionPolicy())

	_, err := q.Enqueue(context.Background(), "reminder:a:hr", "a", domain.RecipientRole("hr"))
	assert.Error(t, err)
}
