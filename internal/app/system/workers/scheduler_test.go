package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/system/tasks"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestScheduler_RunsJobs(t *testing.T) {
	var ticks, startRuns atomic.Int32
	first := make(chan struct{}, 1)

	s := NewScheduler(zap.NewNop(), time.Second,
		tasks.Job{
			Name:     "tick",
			Interval: 10 * time.Millisecond,
			Run: func(ctx context.Context) error {
				if ticks.Add(1) == 3 {
					first <- struct{}{}
				}
				return nil
			},
		},
		tasks.Job{
			Name:       "once",
			Interval:   time.Hour,
			RunAtStart: true,
			Run: func(ctx context.Context) error {
				startRuns.Add(1)
				return nil
			},
		},
	)
	s.Start()

	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("ticking job did not run three times")
	}
	s.Stop()

	if got := startRuns.Load(); got != 1 {
		t.Errorf("RunAtStart job runs: got %d, want 1", got)
	}
	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != after {
		t.Error("job ran after Stop returned")
	}
}

func TestScheduler_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	done := make(chan struct{})

	s := NewScheduler(zap.New(core), time.Second, tasks.Job{
		Name:       "broken",
		Interval:   time.Hour,
		RunAtStart: true,
		Run: func(ctx context.Context) error {
			defer close(done)
			return errors.New("boom")
		},
	})
	s.Start()
	<-done
	s.Stop()

	entries := logs.FilterMessage("background job failed").All()
	if len(entries) != 1 {
		t.Fatalf("failure logs: got %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["job"]; got != "broken" {
		t.Errorf("job field: got %v, want broken", got)
	}
}

func TestScheduler_IgnoresJobsWithoutInterval(t *testing.T) {
	s := NewScheduler(zap.NewNop(), 0, tasks.Job{Name: "never", Run: func(context.Context) error { return nil }})
	if len(s.jobs) != 0 {
		t.Errorf("jobs: got %d, want 0", len(s.jobs))
	}
	if s.timeout != DefaultJobTimeout {
		t.Errorf("timeout: got %v, want %v", s.timeout, DefaultJobTimeout)
	}
	s.Start()
	s.Stop()
}
