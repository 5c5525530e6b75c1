package institutions_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/features/institutions"
	regionstore "github.com/dalemusser/surveytrack/internal/app/store/regions"
	"github.com/dalemusser/surveytrack/internal/app/system/indexes"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/app/system/registry"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/surveytrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type view struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Sector     string `json:"sector"`
	RegionCode string `json:"region_code"`
}

func newTestHandler(t *testing.T) (*institutions.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	if _, err := regionstore.New(db).EnsureSeeded(ctx, models.NamibiaRegions); err != nil {
		t.Fatalf("seed regions: %v", err)
	}
	clock := progress.FixedClock(time.UTC, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	reg := registry.New(db, clock, nil, zap.NewNop())
	return institutions.NewHandler(db, reg, zap.NewNop()), testutil.NewFixtures(t, db)
}

func TestHandleCreate(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"created", map[string]any{"name": "Katutura Health Centre", "region_code": "kh", "sector": "health"}, http.StatusCreated},
		{"duplicate folded name", map[string]any{"name": "katutura health centre", "region_code": "KH"}, http.StatusConflict},
		{"same name other region", map[string]any{"name": "Katutura Health Centre", "region_code": "ER"}, http.StatusCreated},
		{"unknown region", map[string]any{"name": "Nowhere Clinic", "region_code": "ZZ"}, http.StatusBadRequest},
		{"blank name", map[string]any{"name": " ", "region_code": "KH"}, http.StatusBadRequest},
		{"unknown sector", map[string]any{"name": "X", "region_code": "KH", "sector": "space"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			handler.HandleCreate(rec, testutil.NewJSONRequest(t, "POST", "/institutions", tt.body))
			rec.AssertStatus(t, tt.want)
		})
	}
}

func TestHandleCreate_DefaultsSector(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := testutil.NewRecorder()
	handler.HandleCreate(rec, testutil.NewJSONRequest(t, "POST", "/institutions",
		map[string]any{"name": "Rundu Shelter", "region_code": "KE"}))

	rec.AssertStatus(t, http.StatusCreated)
	var got view
	rec.DecodeJSON(t, &got)
	if got.Sector != "other" || got.RegionCode != "KE" {
		t.Errorf("got %+v", got)
	}
}

func TestServeList_Filters(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateInstitution(ctx, "Katutura Health Centre", "KH")
	fx.CreateInstitution(ctx, "Katutura Police Station", "KH")
	fx.CreateInstitution(ctx, "Oshakati Police Station", "ON")

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Katutura Health Centre", "Katutura Police Station", "Oshakati Police Station"}},
		{"?region=kh", []string{"Katutura Health Centre", "Katutura Police Station"}},
		{"?q=kat&limit=1&offset=1", []string{"Katutura Police Station"}},
		{"?sector=government&region=ON", []string{"Oshakati Police Station"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := testutil.NewRecorder()
			handler.ServeList(rec, testutil.NewRequest("GET", "/institutions"+tt.query))
			rec.AssertStatus(t, http.StatusOK)
			var got struct {
				Items []view `json:"items"`
			}
			rec.DecodeJSON(t, &got)
			if len(got.Items) != len(tt.want) {
				t.Fatalf("got %d items, want %d", len(got.Items), len(tt.want))
			}
			for i, name := range tt.want {
				if got.Items[i].Name != name {
					t.Errorf("item %d: got %q, want %q", i, got.Items[i].Name, name)
				}
			}
		})
	}
}

func TestServeList_BadParams(t *testing.T) {
	handler, _ := newTestHandler(t)
	for _, q := range []string{"?limit=0", "?offset=-1", "?sector=space"} {
		rec := testutil.NewRecorder()
		handler.ServeList(rec, testutil.NewRequest("GET", "/institutions"+q))
		rec.AssertStatus(t, http.StatusBadRequest)
	}
}

func TestHandleDelete_Cascades(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	campaign := fx.CreateCampaign(ctx, "Baseline", "f1")
	inst := fx.CreateInstitution(ctx, "Katutura Health Centre", "KH")
	fx.CreateSurvey(ctx, campaign.ID, inst.ID, models.StatusPending, "2024-03-10")

	req := testutil.WithChiURLParam(testutil.NewRequest("DELETE", "/institutions/"+inst.ID.Hex()), "id", inst.ID.Hex())
	rec := testutil.NewRecorder()
	handler.HandleDelete(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var got struct {
		Removed int `json:"surveys_removed"`
	}
	rec.DecodeJSON(t, &got)
	if got.Removed != 1 {
		t.Errorf("surveys removed: got %d, want 1", got.Removed)
	}
	n, err := fx.DB().Collection("surveys").CountDocuments(ctx, bson.M{"institution_id": inst.ID})
	if err != nil || n != 0 {
		t.Errorf("surveys left: %d (%v)", n, err)
	}

	rec = testutil.NewRecorder()
	handler.HandleDelete(rec, req)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleImport_RawBody(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx.CreateInstitution(ctx, "Katutura Health Centre", "KH")

	body := "name,region,sector\n" +
		"Katutura Health Centre,KH,health\n" +
		"Oshakati Police Station,ON,police\n" +
		"Swakopmund Shelter,ER,ngo\n"
	req := httptest.NewRequest("POST", "/institutions/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	rec := testutil.NewRecorder()
	handler.HandleImport(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var got struct {
		Created  int `json:"created"`
		Existing int `json:"existing"`
	}
	rec.DecodeJSON(t, &got)
	if got.Created != 2 || got.Existing != 1 {
		t.Errorf("got %+v, want 2 created / 1 existing", got)
	}
}

func TestHandleImport_Multipart(t *testing.T) {
	handler, _ := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("csv", "institutions.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = part.Write([]byte("Rundu Clinic,KE,health\n"))
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/institutions/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := testutil.NewRecorder()
	handler.HandleImport(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"created":1`)
}

func TestHandleImport_RejectsWholeFile(t *testing.T) {
	handler, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name string
		body string
	}{
		{"row error", "Good Clinic,KH\n,KH\n"},
		{"unknown region", "Good Clinic,KH\nBad Clinic,ZZ\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/institutions/import", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "text/csv")
			rec := testutil.NewRecorder()
			handler.HandleImport(rec, req)

			rec.AssertStatus(t, http.StatusUnprocessableEntity)
			rec.AssertContains(t, `"line":2`)
			n, _ := fx.DB().Collection("institutions").CountDocuments(ctx, bson.M{})
			if n != 0 {
				t.Errorf("%d institutions written from a rejected file", n)
			}
		})
	}
}
