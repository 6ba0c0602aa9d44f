package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler processes one claimed job. A non-empty reason with a nil error
// completes the job as a business no-op (nothing was sent, nothing broke).
// A returned error sends the job through the retry policy unless it is
// wrapped as non-retryable.
type Handler func(ctx context.Context, job *Job) (reason string, err error)

// WorkerConfig contains worker pool configuration.
type WorkerConfig struct {
	NumWorkers    int
	PollInterval  time.Duration
	PruneInterval time.Duration
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		NumWorkers:    5,
		PollInterval:  5 * time.Second,
		PruneInterval: time.Minute,
	}
}

// Worker pulls jobs from the queue and executes the registered handler.
// The storage claim is the mutual exclusion point: a job is never delivered
// to two workers concurrently.
type Worker struct {
	config  WorkerConfig
	storage Storage
	retry   RetryPolicy
	keep    RetentionPolicy
	handler Handler

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a worker pool consuming from the given queue.
func NewWorker(config WorkerConfig, q *Queue, handler Handler) *Worker {
	return &Worker{
		config:  config,
		storage: q.Storage(),
		retry:   q.RetryPolicy(),
		keep:    q.RetentionPolicy(),
		handler: handler,
		stopCh:  make(chan struct{}),
	}
}

// Start launches worker goroutines and the retention pruner.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting reminder workers",
		"workers", w.config.NumWorkers,
		"poll_interval", w.config.PollInterval,
	)

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.run(ctx, uuid.New())
	}

	w.wg.Add(1)
	go w.prune(ctx)
}

// Stop gracefully stops all workers. In-flight jobs finish their current
// attempt before the pool shuts down.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	slog.Info("reminder workers stopped")
}

func (w *Worker) run(ctx context.Context, workerID uuid.UUID) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.drain(ctx, workerID)
		}
	}
}

// drain claims and processes jobs until the queue is empty or shutdown
// is requested.
func (w *Worker) drain(ctx context.Context, workerID uuid.UUID) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		job, err := w.storage.Claim(ctx, workerID)
		if err != nil {
			if !errors.Is(err, ErrNoJob) && !errors.Is(err, context.Canceled) {
				slog.Error("failed to claim job", "worker_id", workerID, "error", err)
			}
			return
		}

		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *Job) {
	// A claimed job must reach a terminal or delayed state even when
	// shutdown cancels the parent context mid-attempt; otherwise the job is
	// stranded in active, which Claim never selects. The handler still
	// bounds its own work (dispatch timeout), so this cannot hang Stop.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()

	reason, err := w.handler(ctx, job)
	if err != nil {
		w.handleFailure(ctx, job, err)
		return
	}

	if markErr := w.storage.MarkCompleted(ctx, job.ID, reason); markErr != nil {
		slog.Error("failed to mark job completed", "job_id", job.ID, "error", markErr)
		return
	}

	outcome := reason
	if outcome == "" {
		outcome = OutcomeDelivered
	}
	recordJobProcessed(outcome)
	recordJobDuration(time.Since(start))

	slog.Debug("job completed",
		"job_id", job.ID,
		"key", job.Key,
		"reason", reason,
		"attempt", job.Attempts,
		"duration", time.Since(start),
	)
}

func (w *Worker) handleFailure(ctx context.Context, job *Job, err error) {
	slog.Warn("job attempt failed",
		"job_id", job.ID,
		"key", job.Key,
		"attempt", job.Attempts,
		"max_attempts", job.MaxAttempts,
		"error", err,
	)

	if !isRetryable(err) || job.Attempts >= job.MaxAttempts {
		if markErr := w.storage.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			slog.Error("failed to mark job failed", "job_id", job.ID, "error", markErr)
		}
		recordJobProcessed(OutcomeFailed)
		return
	}

	nextAttempt := time.Now().Add(w.retry.NextDelay(job.Attempts))
	if markErr := w.storage.MarkForRetry(ctx, job.ID, err.Error(), nextAttempt); markErr != nil {
		slog.Error("failed to mark job for retry", "job_id", job.ID, "error", markErr)
	}
	recordJobProcessed(OutcomeRetried)

	slog.Info("job scheduled for retry",
		"job_id", job.ID,
		"next_attempt", nextAttempt,
	)
}

// prune periodically removes finished jobs beyond the retention caps.
func (w *Worker) prune(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			removed, err := w.storage.PruneFinished(ctx, w.keep.MaxCompleted, w.keep.MaxFailed)
			if err != nil {
				slog.Error("failed to prune finished jobs", "error", err)
				continue
			}
			if removed > 0 {
				slog.Debug("pruned finished jobs", "removed", removed)
			}
		}
	}
}
