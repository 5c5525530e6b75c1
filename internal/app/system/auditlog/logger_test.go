package auditlog_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/store/audit"
	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	"github.com/dalemusser/surveytrack/internal/app/system/auditlog"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/surveytrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testRun(status models.SyncStatus, reason string) models.SyncRun {
	return models.SyncRun{
		ID:            primitive.NewObjectID(),
		CampaignID:    primitive.NewObjectID(),
		RunKey:        "run-key",
		Status:        status,
		StartedAt:     time.Now().UTC(),
		HeartbeatAt:   time.Now().UTC(),
		Counts:        models.SyncCounts{Fetched: 3, New: 2, Errors: 1},
		FailureReason: reason,
	}
}

func TestLogger_NilLogger(t *testing.T) {
	// nil logger should be a no-op (not panic)
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.SyncStarted(ctx, testRun(models.SyncRunning, ""))
	logger.SyncFinished(ctx, testRun(models.SyncCompleted, ""))
	logger.ProgressDrift(ctx, progressstore.DriftReport{})
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Sync: "off", Registry: "off"})
	run := testRun(models.SyncRunning, "")
	logger.SyncStarted(ctx, run)

	n, err := store.CountByFilter(ctx, audit.QueryFilter{CampaignID: &run.CampaignID})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no events when config is 'off', got %d", n)
	}
}

func TestLogger_Log_ConfigLogOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := auditlog.New(store, zap.New(core), auditlog.Config{Sync: "log"})
	run := testRun(models.SyncRunning, "")
	logger.SyncStarted(ctx, run)

	if logs.FilterMessage("audit event").Len() != 1 {
		t.Errorf("expected 1 zap audit entry, got %d", logs.Len())
	}
	n, err := store.CountByFilter(ctx, audit.QueryFilter{CampaignID: &run.CampaignID})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no stored events for 'log', got %d", n)
	}
}

func TestLogger_SyncFinished_EventTypes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Sync: "db"})

	tests := []struct {
		name    string
		run     models.SyncRun
		want    string
		success bool
	}{
		{"completed", testRun(models.SyncCompleted, ""), audit.EventSyncCompleted, true},
		{"failed", testRun(models.SyncFailed, "feed unreachable"), audit.EventSyncFailed, false},
		{"cancelled", testRun(models.SyncFailed, models.ReasonCancelled), audit.EventSyncCancelled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger.SyncFinished(ctx, tt.run)

			events, err := store.Query(ctx, audit.QueryFilter{CampaignID: &tt.run.CampaignID})
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			ev := events[0]
			if ev.EventType != tt.want {
				t.Errorf("EventType = %q, want %q", ev.EventType, tt.want)
			}
			if ev.Success != tt.success {
				t.Errorf("Success = %v, want %v", ev.Success, tt.success)
			}
			if ev.Details["fetched"] != "3" || ev.Details["errors"] != "1" {
				t.Errorf("unexpected details: %v", ev.Details)
			}
		})
	}
}

func TestLogger_ProgressDrift(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Sync: "all"})
	campaignID := primitive.NewObjectID()

	// No drift logs nothing.
	logger.ProgressDrift(ctx, progressstore.DriftReport{CampaignID: campaignID, Days: 2})

	logger.ProgressDrift(ctx, progressstore.DriftReport{
		CampaignID: campaignID,
		Days:       2,
		Entries:    []progressstore.DriftEntry{{Date: "2024-03-01", Field: "total_completed", Stored: 2, Actual: 1}},
		Repaired:   true,
	})

	drift, err := store.CountByFilter(ctx, audit.QueryFilter{CampaignID: &campaignID, EventType: audit.EventProgressDrift})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	repaired, err := store.CountByFilter(ctx, audit.QueryFilter{CampaignID: &campaignID, EventType: audit.EventProgressRepaired})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if drift != 1 || repaired != 1 {
		t.Errorf("drift=%d repaired=%d, want 1 and 1", drift, repaired)
	}
}

func TestLogger_TransitionNotRecorded(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Sync: "log"})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.TransitionNotRecorded(ctx, primitive.NewObjectID(), primitive.NewObjectID(),
		"", models.StatusCompleted, "2024-03-04", errors.New("write failed"))

	entries := logs.FilterField(zap.String("event_type", audit.EventProgressDrift)).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 drift entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["detail_to"] != "completed" || fields["detail_date"] != "2024-03-04" || fields["detail_error"] != "write failed" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level: got %s, want warn", entries[0].Level)
	}
}
