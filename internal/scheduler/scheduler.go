// Package scheduler periodically discovers interviews that need a reminder
// and enqueues one job per recipient role, idempotently by job key.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hirewell/interview-reminders/internal/domain"
	"github.com/hirewell/interview-reminders/internal/interviews"
	"github.com/hirewell/interview-reminders/internal/queue"
	"github.com/hirewell/interview-reminders/internal/reminders"
)

// Config contains scheduler configuration.
type Config struct {
	TickInterval time.Duration
	WindowLow    time.Duration
	WindowHigh   time.Duration
	TickTimeout  time.Duration
}

// DefaultConfig returns the default scheduler configuration: an hourly tick
// over a two-hour window straddling the 24-hour lead time.
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Hour,
		WindowLow:    23 * time.Hour,
		WindowHigh:   25 * time.Hour,
		TickTimeout:  time.Minute,
	}
}

// Validate checks the window invariant: the slack band must be wider than
// the tick interval, otherwise an interview can slip between ticks.
func (c Config) Validate() error {
	if c.WindowLow >= c.WindowHigh {
		return fmt.Errorf("window low (%s) must be before window high (%s)", c.WindowLow, c.WindowHigh)
	}
	if c.TickInterval >= c.WindowHigh-c.WindowLow {
		return fmt.Errorf("tick interval (%s) must be smaller than the window width (%s)",
			c.TickInterval, c.WindowHigh-c.WindowLow)
	}
	return nil
}

// Window is the time range used to select interviews eligible for a
// reminder on a given tick.
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow derives the selection window from the current time.
func NewWindow(now time.Time, low, high time.Duration) Window {
	return Window{
		From: now.Add(low),
		To:   now.Add(high),
	}
}

// Scheduler is the producer side of the pipeline.
type Scheduler struct {
	config Config
	store  interviews.Store
	queue  *queue.Queue
	now    func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a scheduler over the given interview store and queue.
func New(config Config, store interviews.Store, q *queue.Queue) *Scheduler {
	return &Scheduler{
		config: config,
		store:  store,
		queue:  q,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start runs one immediate tick and then ticks on the configured interval.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("starting reminder scheduler",
		"tick_interval", s.config.TickInterval,
		"window_low", s.config.WindowLow,
		"window_high", s.config.WindowHigh,
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the tick loop. A tick in progress finishes first.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	slog.Info("reminder scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.tick(ctx)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick is exception-isolated: an error aborts this tick only and never the
// timer. Duplicate enqueues across overlapping ticks are prevented by the
// deterministic job key.
func (s *Scheduler) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, s.config.TickTimeout)
	defer cancel()

	window := NewWindow(s.now(), s.config.WindowLow, s.config.WindowHigh)

	list, err := s.store.FindNeedingReminder(tickCtx, window.From, window.To)
	if err != nil {
		slog.Error("scheduler tick failed", "error", err)
		return
	}

	if len(list) == 0 {
		slog.Debug("no interviews in reminder window",
			"from", window.From,
			"to", window.To,
		)
		return
	}

	var enqueued int
	for _, iv := range list {
		for _, role := range domain.RecipientRoles() {
			inserted, err := s.queue.Enqueue(tickCtx, reminders.JobKey(iv.ID, role), iv.ID, role)
			if err != nil {
				slog.Error("failed to enqueue reminder job",
					"interview_id", iv.ID,
					"role", role,
					"error", err,
				)
				continue
			}
			if inserted {
				enqueued++
			}
		}
	}

	slog.Info("scheduler tick finished",
		"interviews", len(list),
		"jobs_enqueued", enqueued,
		"from", window.From,
		"to", window.To,
	)
}
