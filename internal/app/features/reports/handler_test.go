package reports_test

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/features/reports"
	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	regionstore "github.com/dalemusser/surveytrack/internal/app/store/regions"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/surveytrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type runChecker bool

func (r runChecker) IsRunning(context.Context, primitive.ObjectID) (bool, error) {
	return bool(r), nil
}

type env struct {
	handler  *reports.Handler
	fixtures *testutil.Fixtures
	campaign models.Campaign
}

// newEnv seeds the regions, a campaign and two Khomas surveys that were
// inserted without touching the progress counters.
func newEnv(t *testing.T, running bool) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := regionstore.New(db).EnsureSeeded(ctx, models.NamibiaRegions); err != nil {
		t.Fatalf("seed regions: %v", err)
	}
	campaign := fx.CreateCampaign(ctx, "GBV Readiness 2024", "aForm123")
	a := fx.CreateInstitution(ctx, "Katutura Health Centre", "KH")
	b := fx.CreateInstitution(ctx, "Windhoek Police Station", "KH")
	fx.CreateSurvey(ctx, campaign.ID, a.ID, models.StatusCompleted, "2024-03-09")
	fx.CreateSurvey(ctx, campaign.ID, b.ID, models.StatusPending, "2024-03-10")

	loc, _ := time.LoadLocation("Africa/Windhoek")
	clock := progress.FixedClock(loc, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	h := reports.NewHandler(db, clock, runChecker(running), nil, zap.NewNop())
	return env{handler: h, fixtures: fx, campaign: campaign}
}

func (e env) request(method, target string) *http.Request {
	return testutil.WithChiURLParam(testutil.NewRequest(method, target), "id", e.campaign.ID.Hex())
}

func TestServeSummary(t *testing.T) {
	e := newEnv(t, false)
	rec := testutil.NewRecorder()
	e.handler.ServeSummary(rec, e.request("GET", "/summary"))

	rec.AssertStatus(t, http.StatusOK)
	var got struct {
		Target    int     `json:"target_institutions"`
		Total     int     `json:"total_surveys"`
		Completed int     `json:"completed_surveys"`
		Pending   int     `json:"pending_surveys"`
		Rate      float64 `json:"completion_rate"`
	}
	rec.DecodeJSON(t, &got)
	if got.Target != 10 || got.Total != 2 || got.Completed != 1 || got.Pending != 1 {
		t.Errorf("got %+v", got)
	}
	if got.Rate != 10 {
		t.Errorf("completion rate: got %v, want 10", got.Rate)
	}
}

func TestServeSummary_UnknownCampaign(t *testing.T) {
	e := newEnv(t, false)
	req := testutil.WithChiURLParam(testutil.NewRequest("GET", "/summary"), "id", primitive.NewObjectID().Hex())
	rec := testutil.NewRecorder()
	e.handler.ServeSummary(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeReadiness_NoAssessments(t *testing.T) {
	e := newEnv(t, false)
	rec := testutil.NewRecorder()
	e.handler.ServeReadiness(rec, e.request("GET", "/readiness"))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestServeRegions_AllRegions(t *testing.T) {
	e := newEnv(t, false)
	rec := testutil.NewRecorder()
	e.handler.ServeRegions(rec, e.request("GET", "/regions"))

	rec.AssertStatus(t, http.StatusOK)
	var rows []struct {
		Code  string `json:"region_code"`
		Total int    `json:"total_surveys"`
	}
	rec.DecodeJSON(t, &rows)
	if len(rows) != len(models.NamibiaRegions) {
		t.Fatalf("got %d regions, want %d", len(rows), len(models.NamibiaRegions))
	}
	for _, r := range rows {
		want := 0
		if r.Code == "KH" {
			want = 2
		}
		if r.Total != want {
			t.Errorf("%s: got %d surveys, want %d", r.Code, r.Total, want)
		}
	}
}

func TestServeRegionsCSV(t *testing.T) {
	e := newEnv(t, false)
	rec := testutil.NewRecorder()
	e.handler.ServeRegionsCSV(rec, e.request("GET", "/regions.csv"))

	rec.AssertStatus(t, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type: got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "regional_progress_gbv_readiness_2024_2024-03-10.csv") {
		t.Errorf("Content-Disposition: got %q", cd)
	}
	body := strings.TrimPrefix(rec.Body.String(), "\ufeff")
	records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != len(models.NamibiaRegions)+1 {
		t.Errorf("got %d records, want header + %d regions", len(records), len(models.NamibiaRegions))
	}
	if records[0][0] != "region_code" {
		t.Errorf("header: got %v", records[0])
	}
}

func TestServeDaily(t *testing.T) {
	e := newEnv(t, false)

	// The fixture surveys bypass the counters; a recount fills them in.
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := progressstore.New(e.fixtures.DB()).Recount(ctx, e.campaign.ID, true); err != nil {
		t.Fatalf("Recount: %v", err)
	}

	rec := testutil.NewRecorder()
	e.handler.ServeDaily(rec, e.request("GET", "/daily?days=3"))
	rec.AssertStatus(t, http.StatusOK)

	var got struct {
		Days   int    `json:"days"`
		Zone   string `json:"time_zone"`
		Series []struct {
			Date       string `json:"date"`
			Completed  int    `json:"daily_completed"`
			Cumulative int    `json:"cumulative_completed"`
		} `json:"series"`
	}
	rec.DecodeJSON(t, &got)
	if got.Days != 3 || got.Zone != "Africa/Windhoek" || len(got.Series) != 3 {
		t.Fatalf("got %+v", got)
	}
	if got.Series[0].Date != "2024-03-08" || got.Series[2].Date != "2024-03-10" {
		t.Errorf("window: %s..%s", got.Series[0].Date, got.Series[2].Date)
	}
	if got.Series[1].Completed != 1 || got.Series[2].Cumulative != 1 {
		t.Errorf("series: got %+v", got.Series)
	}
}

func TestServeDaily_BadDays(t *testing.T) {
	e := newEnv(t, false)
	for _, q := range []string{"days=0", "days=-4", "days=ten"} {
		rec := testutil.NewRecorder()
		e.handler.ServeDaily(rec, e.request("GET", "/daily?"+q))
		rec.AssertStatus(t, http.StatusBadRequest)
	}
}

func TestHandleRecount_RepairsDrift(t *testing.T) {
	e := newEnv(t, false)

	rec := testutil.NewRecorder()
	e.handler.HandleRecount(rec, e.request("POST", "/recount"))
	rec.AssertStatus(t, http.StatusOK)
	var first struct {
		Drift    bool `json:"drift"`
		Repaired bool `json:"repaired"`
	}
	rec.DecodeJSON(t, &first)
	if !first.Drift || !first.Repaired {
		t.Errorf("first recount: got %+v, want drift repaired", first)
	}

	rec = testutil.NewRecorder()
	e.handler.HandleRecount(rec, e.request("POST", "/recount"))
	var second struct {
		Drift bool `json:"drift"`
	}
	rec.DecodeJSON(t, &second)
	if second.Drift {
		t.Errorf("second recount still reports drift")
	}
}

func TestHandleRecount_ReportOnly(t *testing.T) {
	e := newEnv(t, false)

	for range 2 {
		rec := testutil.NewRecorder()
		e.handler.HandleRecount(rec, e.request("POST", "/recount?repair=false"))
		var got struct {
			Drift    bool `json:"drift"`
			Repaired bool `json:"repaired"`
		}
		rec.DecodeJSON(t, &got)
		if !got.Drift || got.Repaired {
			t.Errorf("got %+v, want unrepaired drift", got)
		}
	}
}

func TestHandleRecount_RefusedWhileSyncing(t *testing.T) {
	e := newEnv(t, true)
	rec := testutil.NewRecorder()
	e.handler.HandleRecount(rec, e.request("POST", "/recount"))
	rec.AssertStatus(t, http.StatusConflict)
}
