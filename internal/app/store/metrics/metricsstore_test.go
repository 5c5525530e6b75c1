package metricsstore_test

import (
	"strings"
	"testing"
	"time"

	metricsstore "github.com/dalemusser/surveytrack/internal/app/store/metrics"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/surveytrack/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFetchCounts_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	counts := metricsstore.FetchCounts(ctx, db)

	if counts.Campaigns != 0 || counts.ActiveCampaigns != 0 {
		t.Errorf("Campaigns: got %d/%d, want 0", counts.Campaigns, counts.ActiveCampaigns)
	}
	if counts.Institutions != 0 {
		t.Errorf("Institutions: got %d, want 0", counts.Institutions)
	}
	if counts.RunningSyncs != 0 {
		t.Errorf("RunningSyncs: got %d, want 0", counts.RunningSyncs)
	}
	if len(counts.Surveys) != 3 {
		t.Errorf("Surveys: expected all three statuses, got %v", counts.Surveys)
	}
}

func TestFetchCounts_WithData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c1 := fixtures.CreateCampaign(ctx, "Baseline", "form1")
	fixtures.CreateCampaign(ctx, "Endline", "form2")
	i1 := fixtures.CreateInstitution(ctx, "Katutura Clinic", "KH")
	i2 := fixtures.CreateInstitution(ctx, "Oshakati Police", "ON")
	i3 := fixtures.CreateInstitution(ctx, "Rundu Court", "KE")

	fixtures.CreateSurvey(ctx, c1.ID, i1.ID, models.StatusCompleted, "2024-03-01")
	fixtures.CreateSurvey(ctx, c1.ID, i2.ID, models.StatusCompleted, "2024-03-02")
	fixtures.CreateSurvey(ctx, c1.ID, i3.ID, models.StatusPending, "2024-03-02")

	counts := metricsstore.FetchCounts(ctx, db)

	if counts.Campaigns != 2 || counts.ActiveCampaigns != 2 {
		t.Errorf("Campaigns: got %d/%d, want 2/2", counts.Campaigns, counts.ActiveCampaigns)
	}
	if counts.Institutions != 3 {
		t.Errorf("Institutions: got %d, want 3", counts.Institutions)
	}
	if got := counts.Surveys[models.StatusCompleted]; got != 2 {
		t.Errorf("completed surveys: got %d, want 2", got)
	}
	if got := counts.Surveys[models.StatusPending]; got != 1 {
		t.Errorf("pending surveys: got %d, want 1", got)
	}
	if got := counts.Surveys[models.StatusInProgress]; got != 0 {
		t.Errorf("in-progress surveys: got %d, want 0", got)
	}
}

func TestCollector(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateInstitution(ctx, "Katutura Clinic", "KH")

	c := metricsstore.NewCollector(db, 5*time.Second)
	if n := promtest.CollectAndCount(c); n != 7 {
		t.Errorf("metrics: got %d, want 7", n)
	}

	expected := `
# HELP surveytrack_registry_institutions Institutions in the registry.
# TYPE surveytrack_registry_institutions gauge
surveytrack_registry_institutions 1
`
	if err := promtest.CollectAndCompare(c, strings.NewReader(expected), "surveytrack_registry_institutions"); err != nil {
		t.Error(err)
	}
}
