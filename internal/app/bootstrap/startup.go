// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/surveytrack/internal/app/store/audit"
	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	metricsstore "github.com/dalemusser/surveytrack/internal/app/store/metrics"
	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	regionstore "github.com/dalemusser/surveytrack/internal/app/store/regions"
	syncrunstore "github.com/dalemusser/surveytrack/internal/app/store/syncruns"
	"github.com/dalemusser/surveytrack/internal/app/system/auditlog"
	"github.com/dalemusser/surveytrack/internal/app/system/fieldmap"
	"github.com/dalemusser/surveytrack/internal/app/system/kobo"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/app/system/registry"
	"github.com/dalemusser/surveytrack/internal/app/system/syncer"
	"github.com/dalemusser/surveytrack/internal/app/system/tasks"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/surveytrack/internal/app/system/workers"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// surveytrack seeds the region list, builds the KoBo client and the sync
// orchestrator, and starts the background jobs that abandon stale sync runs
// and recount daily progress.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Runtime == nil {
		return errors.New("startup: runtime not allocated by ConnectDB")
	}
	db := deps.MongoDatabase

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("count", n))
	}
	timeouts.Configure(timeouts.Config{Feed: appCfg.SyncFetchTimeout})

	clock, err := progress.NewClock(appCfg.ProgressTimeZone)
	if err != nil {
		return fmt.Errorf("progress clock: %w", err)
	}

	if err := seedRegions(ctx, deps, logger); err != nil {
		return err
	}

	feed, err := kobo.New(kobo.Config{
		BaseURL:    appCfg.KoboBaseURL,
		Token:      appCfg.KoboToken,
		PageSize:   appCfg.KoboPageSize,
		MaxRetries: appCfg.KoboMaxRetries,
	}, logger.Named("kobo"))
	if err != nil {
		return fmt.Errorf("kobo client: %w", err)
	}

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Sync:     appCfg.AuditLogSync,
		Registry: appCfg.AuditLogRegistry,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metricsstore.NewCollector(db, timeouts.Short()),
	)

	orch := syncer.New(
		syncer.NewStores(db),
		feed,
		fieldmap.NewDefault(),
		clock,
		auditLog,
		syncer.NewMetrics(reg),
		logger.Named("syncer"),
		syncer.Config{Workers: appCfg.SyncWorkers, FetchTimeout: appCfg.SyncFetchTimeout},
	)

	runs := syncrunstore.New(db)
	sched := workers.NewScheduler(logger.Named("jobs"), workers.DefaultJobTimeout,
		tasks.StaleSyncJob(runs, auditLog, logger, appCfg.SyncStaleAfter),
		tasks.ProgressReconcileJob(campaignstore.New(db), runs, progressstore.New(db), auditLog, logger, appCfg.ProgressReconcileInterval),
	)
	sched.Start()

	*deps.Runtime = Runtime{
		Clock:        clock,
		Audit:        auditLog,
		Kobo:         feed,
		Registry:     registry.New(db, clock, auditLog, logger.Named("registry")),
		Orchestrator: orch,
		Metrics:      reg,
		Scheduler:    sched,
	}

	logger.Info("surveytrack started",
		zap.String("time_zone", appCfg.ProgressTimeZone),
		zap.Int("sync_workers", appCfg.SyncWorkers),
		zap.Duration("sync_stale_after", appCfg.SyncStaleAfter),
		zap.Duration("reconcile_interval", appCfg.ProgressReconcileInterval))
	return nil
}

// seedRegions inserts any missing region from the fixed list.
func seedRegions(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	added, err := regionstore.New(deps.MongoDatabase).EnsureSeeded(ctx, models.NamibiaRegions)
	if err != nil {
		logger.Error("seeding regions failed", zap.Error(err))
		return fmt.Errorf("seed regions: %w", err)
	}
	if added > 0 {
		logger.Info("seeded regions", zap.Int("added", added))
	}
	return nil
}
