package progressstore_test

import (
	"testing"

	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/surveytrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_RecordTransition_Sequence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := progressstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cid := primitive.NewObjectID()
	steps := []progress.Transition{
		{CampaignID: cid, To: models.StatusPending, Date: "2024-03-01"},
		{CampaignID: cid, To: models.StatusInProgress, Date: "2024-03-01"},
		{CampaignID: cid, From: models.StatusPending, To: models.StatusInProgress, Date: "2024-03-02", PrevDate: "2024-03-01"},
		{CampaignID: cid, From: models.StatusInProgress, To: models.StatusCompleted, Date: "2024-03-03", PrevDate: "2024-03-02"},
	}
	for i, st := range steps {
		floored, err := store.RecordTransition(ctx, st)
		if err != nil {
			t.Fatalf("step %d: RecordTransition failed: %v", i, err)
		}
		if floored != 0 {
			t.Errorf("step %d: unexpected floored decrement", i)
		}
	}

	days, err := store.ListRange(ctx, cid, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	got := map[string][3]int{}
	for _, d := range days {
		got[d.Date] = [3]int{d.TotalCompleted, d.TotalInProgress, d.TotalPending}
	}
	want := map[string][3]int{
		"2024-03-01": {0, 1, 0},
		"2024-03-02": {0, 0, 0},
		"2024-03-03": {1, 0, 0},
	}
	for date, w := range want {
		if got[date] != w {
			t.Errorf("%s: counters %v, want %v", date, got[date], w)
		}
	}

	totals, err := store.Totals(ctx, cid)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if totals.TotalCompleted != 1 || totals.TotalInProgress != 1 || totals.TotalPending != 0 {
		t.Errorf("unexpected totals: %+v", totals)
	}

	before, err := store.CompletedBefore(ctx, cid, "2024-03-04")
	if err != nil {
		t.Fatalf("CompletedBefore failed: %v", err)
	}
	if before != 1 {
		t.Errorf("CompletedBefore = %d, want 1", before)
	}
}

func TestStore_Apply_FloorsAtZero(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := progressstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cid := primitive.NewObjectID()
	if _, err := store.RecordTransition(ctx, progress.Transition{CampaignID: cid, To: models.StatusCompleted, Date: "2024-04-01"}); err != nil {
		t.Fatalf("RecordTransition failed: %v", err)
	}

	// Roll back the same completion three times.
	rollback := progress.Transition{CampaignID: cid, From: models.StatusCompleted, To: models.StatusInProgress, Date: "2024-04-01"}
	floored := 0
	for i := 0; i < 3; i++ {
		n, err := store.RecordTransition(ctx, rollback)
		if err != nil {
			t.Fatalf("rollback %d failed: %v", i, err)
		}
		floored += n
	}
	if floored != 2 {
		t.Errorf("floored = %d, want 2", floored)
	}

	days, err := store.ListRange(ctx, cid, "2024-04-01", "2024-04-01")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(days))
	}
	if days[0].TotalCompleted != 0 {
		t.Errorf("TotalCompleted = %d, want 0", days[0].TotalCompleted)
	}
	if days[0].TotalCompleted < 0 || days[0].TotalInProgress < 0 || days[0].TotalPending < 0 {
		t.Errorf("negative counter: %+v", days[0])
	}
}

func TestStore_Recount_DetectsAndRepairsDrift(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := progressstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cid := primitive.NewObjectID()
	inst := primitive.NewObjectID()

	// Two surveys counted through the store; one inserted behind its back.
	for _, date := range []string{"2024-05-01", "2024-05-02"} {
		fx.CreateSurvey(ctx, cid, inst, models.StatusCompleted, date)
		if _, err := store.RecordTransition(ctx, progress.Transition{CampaignID: cid, To: models.StatusCompleted, Date: date}); err != nil {
			t.Fatalf("RecordTransition failed: %v", err)
		}
	}
	fx.CreateSurvey(ctx, cid, inst, models.StatusPending, "2024-05-02")
	// A stale counter for a day with no surveys.
	if _, err := db.Collection("daily_progress").InsertOne(ctx, bson.M{
		"_id": primitive.NewObjectID(), "campaign_id": cid, "date": "2024-05-03",
		"total_completed": 4, "total_in_progress": 0, "total_pending": 0,
	}); err != nil {
		t.Fatalf("insert stale counter: %v", err)
	}

	report, err := store.Recount(ctx, cid, false)
	if err != nil {
		t.Fatalf("Recount failed: %v", err)
	}
	if len(report.Entries) != 2 {
		t.Fatalf("expected 2 drift entries, got %+v", report.Entries)
	}
	if report.Repaired {
		t.Error("report must not be marked repaired without repair")
	}

	report, err = store.Recount(ctx, cid, true)
	if err != nil {
		t.Fatalf("Recount(repair) failed: %v", err)
	}
	if !report.Repaired {
		t.Error("expected report to be marked repaired")
	}

	report, err = store.Recount(ctx, cid, false)
	if err != nil {
		t.Fatalf("Recount after repair failed: %v", err)
	}
	if report.HasDrift() {
		t.Errorf("drift remains after repair: %+v", report.Entries)
	}

	days, err := store.ListRange(ctx, cid, "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(days) != 2 {
		t.Errorf("expected the empty stale day to be removed, got %d days", len(days))
	}
}
