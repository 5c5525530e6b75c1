package koboforms_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/surveytrack/internal/app/features/koboforms"
	"github.com/dalemusser/surveytrack/internal/app/system/kobo"
	"github.com/dalemusser/surveytrack/internal/testutil"
	"go.uber.org/zap"
)

type fakeForms struct {
	forms  []kobo.Form
	counts map[string]int
	err    error
}

func (f *fakeForms) ListForms(context.Context) ([]kobo.Form, error) {
	return f.forms, f.err
}

func (f *fakeForms) SubmissionCount(_ context.Context, formID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, ok := f.counts[formID]
	if !ok {
		return 0, fmt.Errorf("%w: status 404", kobo.ErrFormNotFound)
	}
	return n, nil
}

func serve(t *testing.T, forms koboforms.Forms, target string) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	koboforms.Routes(koboforms.NewHandler(forms, zap.NewNop())).ServeHTTP(rec, testutil.NewRequest("GET", target))
	return rec
}

func TestServeForms(t *testing.T) {
	forms := &fakeForms{forms: []kobo.Form{
		{UID: "aF1", Name: "Readiness 2024", AssetType: "survey", DeploymentActive: true, SubmissionCount: 12},
	}}
	rec := serve(t, forms, "/forms")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var got []kobo.Form
	rec.DecodeJSON(t, &got)
	if len(got) != 1 || got[0].UID != "aF1" || got[0].SubmissionCount != 12 {
		t.Errorf("got %+v", got)
	}

	rec = serve(t, &fakeForms{}, "/forms")
	if rec.Code != http.StatusOK || rec.Body.String() == "null\n" {
		t.Errorf("empty list: status %d body %q", rec.Code, rec.Body.String())
	}
}

func TestServeCount(t *testing.T) {
	forms := &fakeForms{counts: map[string]int{"aF1": 37}}

	rec := serve(t, forms, "/forms/aF1/count")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var got struct {
		UID             string `json:"uid"`
		SubmissionCount int    `json:"submission_count"`
	}
	rec.DecodeJSON(t, &got)
	if got.UID != "aF1" || got.SubmissionCount != 37 {
		t.Errorf("got %+v", got)
	}

	if rec := serve(t, forms, "/forms/missing/count"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown form: status %d, want 404", rec.Code)
	}
}

func TestServe_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", kobo.ErrUnauthorized, http.StatusBadGateway},
		{"rate limited", kobo.ErrRateLimited, http.StatusBadGateway},
		{"unavailable", kobo.ErrUnavailable, http.StatusBadGateway},
		{"malformed", kobo.ErrMalformedPage, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forms := &fakeForms{err: fmt.Errorf("wrapped: %w", tt.err)}
			for _, target := range []string{"/forms", "/forms/aF1/count"} {
				if rec := serve(t, forms, target); rec.Code != tt.want {
					t.Errorf("%s: status %d, want %d", target, rec.Code, tt.want)
				}
			}
		})
	}
}

func TestKoboClientServesForms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/assets/":
			w.Write([]byte(`{"results": [{"uid": "aF1", "name": "Readiness", "asset_type": "survey"}]}`))
		case "/api/v2/assets/aF1/data/":
			w.Write([]byte(`{"count": 5, "results": []}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := kobo.New(kobo.Config{BaseURL: srv.URL, MaxRetries: 0}, zap.NewNop())
	if err != nil {
		t.Fatalf("kobo.New: %v", err)
	}
	if rec := serve(t, client, "/forms"); rec.Code != http.StatusOK {
		t.Errorf("forms: status %d", rec.Code)
	}
	rec := serve(t, client, "/forms/aF1/count")
	if rec.Code != http.StatusOK {
		t.Fatalf("count: status %d", rec.Code)
	}
	rec.AssertContains(t, `"submission_count":5`)
	if rec := serve(t, client, "/forms/nope/count"); rec.Code != http.StatusNotFound {
		t.Errorf("missing form: status %d, want 404", rec.Code)
	}
}
