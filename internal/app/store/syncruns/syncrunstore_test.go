package syncrunstore_test

import (
	"errors"
	"testing"
	"time"

	syncrunstore "github.com/dalemusser/surveytrack/internal/app/store/syncruns"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/surveytrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Begin_OnePerCampaign(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := syncrunstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cid := primitive.NewObjectID()
	run, err := store.Begin(ctx, cid)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if run.RunKey == "" || run.Status != models.SyncRunning {
		t.Errorf("unexpected run: %+v", run)
	}

	if _, err := store.Begin(ctx, cid); !errors.Is(err, syncrunstore.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	// Another campaign is unaffected.
	if _, err := store.Begin(ctx, primitive.NewObjectID()); err != nil {
		t.Errorf("Begin for other campaign failed: %v", err)
	}

	run.Status = models.SyncCompleted
	run.Counts = models.SyncCounts{Fetched: 2, New: 2}
	if _, err := store.Finish(ctx, run); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if _, err := store.Begin(ctx, cid); err != nil {
		t.Errorf("Begin after finish failed: %v", err)
	}
}

func TestStore_Finish_AppendOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := syncrunstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	run, err := store.Begin(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	run.Status = models.SyncCompleted
	for i := 0; i < models.MaxStoredDiagnostics+10; i++ {
		run.Diagnostics = append(run.Diagnostics, models.SyncDiagnostic{Severity: models.SeverityError, Cause: "bad"})
	}
	run.Counts.Errors = len(run.Diagnostics)

	done, err := store.Finish(ctx, run)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if len(done.Diagnostics) != models.MaxStoredDiagnostics {
		t.Errorf("stored %d diagnostics, want %d", len(done.Diagnostics), models.MaxStoredDiagnostics)
	}
	if done.Counts.Errors != models.MaxStoredDiagnostics+10 {
		t.Errorf("error count was capped: %d", done.Counts.Errors)
	}
	if done.FinishedAt == nil {
		t.Error("expected FinishedAt to be set")
	}

	run.Status = models.SyncFailed
	if _, err := store.Finish(ctx, run); !errors.Is(err, syncrunstore.ErrFinalized) {
		t.Errorf("expected ErrFinalized, got %v", err)
	}

	latest, err := store.Latest(ctx, run.CampaignID)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Status != models.SyncCompleted {
		t.Errorf("finalized run was reopened: %s", latest.Status)
	}
}

func TestStore_RequestCancel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := syncrunstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cid := primitive.NewObjectID()
	if _, err := store.RequestCancel(ctx, cid); !errors.Is(err, syncrunstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound with nothing running, got %v", err)
	}

	run, err := store.Begin(ctx, cid)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := store.RequestCancel(ctx, cid); err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	requested, err := store.CancelRequested(ctx, run.ID)
	if err != nil {
		t.Fatalf("CancelRequested failed: %v", err)
	}
	if !requested {
		t.Error("expected cancel to be requested")
	}
}

func TestStore_AbandonStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := syncrunstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	stale, err := store.Begin(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	fresh, err := store.Begin(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	old := time.Now().UTC().Add(-2 * time.Hour)
	if _, err := db.Collection("sync_runs").UpdateByID(ctx, stale.ID, bson.M{"$set": bson.M{"heartbeat_at": old}}); err != nil {
		t.Fatalf("age heartbeat: %v", err)
	}

	abandoned, err := store.AbandonStale(ctx, time.Now().UTC().Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("AbandonStale failed: %v", err)
	}
	if len(abandoned) != 1 || abandoned[0].ID != stale.ID {
		t.Fatalf("abandoned %v, want only %s", abandoned, stale.ID.Hex())
	}
	if abandoned[0].Status != models.SyncFailed || abandoned[0].FailureReason != syncrunstore.ReasonAbandoned {
		t.Errorf("unexpected abandoned run: %+v", abandoned[0])
	}

	running, err := store.IsRunning(ctx, fresh.CampaignID)
	if err != nil {
		t.Fatalf("IsRunning failed: %v", err)
	}
	if !running {
		t.Error("fresh run should still be running")
	}
}
