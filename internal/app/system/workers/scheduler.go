// internal/app/system/workers/scheduler.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/system/tasks"
	"go.uber.org/zap"
)

// DefaultJobTimeout bounds one run of a job.
const DefaultJobTimeout = 2 * time.Minute

// Scheduler runs periodic jobs in the background, one goroutine per job.
// A job never overlaps with itself.
type Scheduler struct {
	jobs    []tasks.Job
	log     *zap.Logger
	timeout time.Duration
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler for jobs. Jobs with a non-positive
// interval are ignored.
func NewScheduler(logger *zap.Logger, timeout time.Duration, jobs ...tasks.Job) *Scheduler {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	var kept []tasks.Job
	for _, j := range jobs {
		if j.Interval > 0 {
			kept = append(kept, j)
		}
	}
	return &Scheduler{
		jobs:    kept,
		log:     logger,
		timeout: timeout,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the background loops.
func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(job)
		s.log.Info("background job started",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval))
	}
}

// Stop signals every loop to stop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.log.Info("background jobs stopped")
}

func (s *Scheduler) loop(job tasks.Job) {
	defer s.wg.Done()

	if job.RunAtStart {
		s.runOnce(job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runOnce(job)
		}
	}
}

func (s *Scheduler) runOnce(job tasks.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("background job failed",
			zap.String("job", job.Name),
			zap.Duration("took", time.Since(started)),
			zap.Error(err))
	}
}
