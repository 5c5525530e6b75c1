package regions_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/surveytrack/internal/app/features/regions"
	regionstore "github.com/dalemusser/surveytrack/internal/app/store/regions"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/surveytrack/internal/testutil"
	"go.uber.org/zap"
)

func TestServeList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	h := regions.NewHandler(db, zap.NewNop())

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest("GET", "/regions"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "[]")

	if _, err := regionstore.New(db).EnsureSeeded(ctx, models.NamibiaRegions); err != nil {
		t.Fatalf("seed regions: %v", err)
	}

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewRequest("GET", "/regions"))
	rec.AssertStatus(t, http.StatusOK)
	var got []struct {
		ID   string `json:"id"`
		Code string `json:"code"`
		Name string `json:"name"`
	}
	rec.DecodeJSON(t, &got)
	if len(got) != len(models.NamibiaRegions) {
		t.Fatalf("got %d regions, want %d", len(got), len(models.NamibiaRegions))
	}
	if got[0].Code != "CA" || got[0].Name != "Zambezi" || got[0].ID == "" {
		t.Errorf("first region = %+v", got[0])
	}
	if got[5].Code != "KH" || got[5].Name != "Khomas" {
		t.Errorf("sixth region = %+v", got[5])
	}
}
