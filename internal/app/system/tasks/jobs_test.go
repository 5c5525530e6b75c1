package tasks_test

import (
	"testing"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/store/audit"
	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	syncrunstore "github.com/dalemusser/surveytrack/internal/app/store/syncruns"
	"github.com/dalemusser/surveytrack/internal/app/system/auditlog"
	"github.com/dalemusser/surveytrack/internal/app/system/tasks"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/surveytrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestStaleSyncJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	runs := syncrunstore.New(db)
	fx := testutil.NewFixtures(t, db)
	stale := fx.CreateCampaign(ctx, "Stale", "aStale")
	fresh := fx.CreateCampaign(ctx, "Fresh", "aFresh")

	staleRun, err := runs.Begin(ctx, stale.ID)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := runs.Begin(ctx, fresh.ID); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	old := time.Now().UTC().Add(-time.Hour)
	if _, err := db.Collection("sync_runs").UpdateByID(ctx, staleRun.ID, bson.M{"$set": bson.M{"heartbeat_at": old}}); err != nil {
		t.Fatalf("age heartbeat: %v", err)
	}

	audits := auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{})
	job := tasks.StaleSyncJob(runs, audits, zap.NewNop(), 10*time.Minute)
	if !job.RunAtStart || job.Interval != 150*time.Second {
		t.Errorf("job schedule: RunAtStart=%v Interval=%v", job.RunAtStart, job.Interval)
	}
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := runs.Latest(ctx, stale.ID)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if got.Status != models.SyncFailed || got.FailureReason != syncrunstore.ReasonAbandoned {
		t.Errorf("stale run: got %s/%q", got.Status, got.FailureReason)
	}
	if running, _ := runs.IsRunning(ctx, fresh.ID); !running {
		t.Error("fresh run was abandoned")
	}

	n, err := audit.New(db).CountByFilter(ctx, audit.QueryFilter{EventType: audit.EventSyncAbandoned})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 1 {
		t.Errorf("abandon audit events: got %d, want 1", n)
	}
}

func TestProgressReconcileJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	idle := fx.CreateCampaign(ctx, "Idle", "aIdle")
	busy := fx.CreateCampaign(ctx, "Busy", "aBusy")
	inst := fx.CreateInstitution(ctx, "Katutura Health Centre", "KH")

	// Surveys written without counters: both campaigns drift.
	fx.CreateSurvey(ctx, idle.ID, inst.ID, models.StatusCompleted, "2024-03-05")
	fx.CreateSurvey(ctx, busy.ID, inst.ID, models.StatusCompleted, "2024-03-05")

	runs := syncrunstore.New(db)
	if _, err := runs.Begin(ctx, busy.ID); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	counters := progressstore.New(db)
	audits := auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{})
	job := tasks.ProgressReconcileJob(campaignstore.New(db), runs, counters, audits, zap.NewNop(), time.Hour)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	totals, err := counters.Totals(ctx, idle.ID)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.TotalCompleted != 1 {
		t.Errorf("idle campaign completed: got %d, want 1", totals.TotalCompleted)
	}
	totals, err = counters.Totals(ctx, busy.ID)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.TotalCompleted != 0 {
		t.Errorf("busy campaign repaired during a sync: completed=%d", totals.TotalCompleted)
	}

	events := audit.New(db)
	for typ, want := range map[string]int64{
		audit.EventProgressDrift:    1,
		audit.EventProgressRepaired: 1,
	} {
		n, err := events.CountByFilter(ctx, audit.QueryFilter{EventType: typ})
		if err != nil {
			t.Fatalf("CountByFilter failed: %v", err)
		}
		if n != want {
			t.Errorf("%s events: got %d, want %d", typ, n, want)
		}
	}

	// A second pass finds nothing to repair.
	if err := job.Run(ctx); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	n, _ := events.CountByFilter(ctx, audit.QueryFilter{EventType: audit.EventProgressDrift})
	if n != 1 {
		t.Errorf("drift events after second pass: got %d, want 1", n)
	}
}
