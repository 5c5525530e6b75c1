// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	syncrunstore "github.com/dalemusser/surveytrack/internal/app/store/syncruns"
	"github.com/dalemusser/surveytrack/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Job is a unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	// RunAtStart runs the job once when the scheduler starts, before the
	// first tick.
	RunAtStart bool
	Run        func(ctx context.Context) error
}

// StaleSyncJob creates a job that finalizes sync runs whose heartbeat is
// older than staleAfter, so a crashed process never leaves a campaign
// locked. Abandoned runs are marked failed and audited.
func StaleSyncJob(runs *syncrunstore.Store, audit *auditlog.Logger, logger *zap.Logger, staleAfter time.Duration) Job {
	interval := staleAfter / 4
	if interval < 15*time.Second {
		interval = 15 * time.Second
	}
	return Job{
		Name:       "stale-sync-sweep",
		Interval:   interval,
		RunAtStart: true,
		Run: func(ctx context.Context) error {
			abandoned, err := runs.AbandonStale(ctx, time.Now().UTC().Add(-staleAfter))
			if err != nil {
				return err
			}
			for _, run := range abandoned {
				audit.SyncAbandoned(ctx, run)
				logger.Warn("abandoned stale sync run",
					zap.String("campaign_id", run.CampaignID.Hex()),
					zap.String("run_key", run.RunKey),
					zap.Time("heartbeat_at", run.HeartbeatAt))
			}
			return nil
		},
	}
}

// ProgressReconcileJob creates a job that recounts the daily progress of
// every active campaign and repairs drifted counters. Campaigns with a
// running sync are skipped until the next pass.
func ProgressReconcileJob(campaigns *campaignstore.Store, runs *syncrunstore.Store, counters *progressstore.Store, audit *auditlog.Logger, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "progress-reconcile",
		Interval: interval,
		Run: func(ctx context.Context) error {
			active, err := campaigns.List(ctx, true)
			if err != nil {
				return err
			}
			for _, c := range active {
				running, err := runs.IsRunning(ctx, c.ID)
				if err != nil {
					return err
				}
				if running {
					logger.Debug("progress reconcile skipped, sync running",
						zap.String("campaign_id", c.ID.Hex()))
					continue
				}
				report, err := counters.Recount(ctx, c.ID, true)
				if err != nil {
					return err
				}
				if report.HasDrift() {
					logger.Warn("progress counters drifted",
						zap.String("campaign_id", c.ID.Hex()),
						zap.Int("entries", len(report.Entries)),
						zap.Bool("repaired", report.Repaired))
					audit.ProgressDrift(ctx, report)
				}
			}
			return nil
		},
	}
}
