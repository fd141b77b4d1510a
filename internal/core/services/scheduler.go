package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Scheduler triggers pipeline runs on a fixed interval so the vector
// index keeps tracking source state without manual runs.
type Scheduler struct {
	interval time.Duration
	runner   driving.PipelineRunner
	filter   driving.RunFilter

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	triggerCh chan struct{}
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler that invokes runner every interval.
func NewScheduler(interval time.Duration, runner driving.PipelineRunner, filter driving.RunFilter) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		interval: interval,
		runner:   runner,
		filter:   filter,
	}
}

// Start begins the scheduler loop, running one pass immediately.
// Blocks until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.triggerCh = make(chan struct{}, 1)
	s.mu.Unlock()

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-s.stopCh:
			s.wg.Wait()
			return nil
		case <-s.triggerCh:
			s.runOnce(ctx)
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// Trigger requests a prompt run outside the interval cadence. Triggers
// arriving during an active run coalesce into one follow-up pass;
// triggers before Start are dropped.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	ch := s.triggerCh
	s.mu.Unlock()

	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Stop gracefully shuts down the scheduler and waits for an active
// run to finish draining.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// runOnce executes one pipeline pass. Runs never overlap: the loop
// blocks on the run so a slow pass simply delays the next tick.
func (s *Scheduler) runOnce(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	run, err := s.runner.Run(ctx, s.filter)
	if err != nil {
		logger.Error("scheduled run failed: %v", err)
		return
	}
	logger.Info("scheduled run %s finished: %d processed, %d failed",
		run.RunID, run.Counts.Seen, run.Counts.Failed)
}
