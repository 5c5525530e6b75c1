package jsonio

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteAndError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusConflict, "already running")

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"already running"}` {
		t.Errorf("body: got %s", body)
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	tests := []struct {
		body    string
		wantErr bool
	}{
		{`{"name":"x"}`, false},
		{``, true},
		{`{"name":`, true},
		{`{"nmae":"x"}`, true},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		err := Decode(httptest.NewRecorder(), req, &v)
		if (err != nil) != tc.wantErr {
			t.Errorf("Decode(%q): err=%v, wantErr=%v", tc.body, err, tc.wantErr)
		}
	}
}

func TestParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?days=7&bad=x&wait=true", nil)

	if n, err := IntParam(req, "days", 30); err != nil || n != 7 {
		t.Errorf("days: got %d, %v", n, err)
	}
	if n, err := IntParam(req, "missing", 30); err != nil || n != 30 {
		t.Errorf("missing: got %d, %v", n, err)
	}
	if _, err := IntParam(req, "bad", 30); err == nil {
		t.Error("expected error for malformed int")
	}
	if !BoolParam(req, "wait", false) {
		t.Error("wait: got false")
	}
	if BoolParam(req, "bad", false) {
		t.Error("malformed bool should fall back to default")
	}
	if _, err := ObjectID("nothex"); err == nil {
		t.Error("expected error for invalid object id")
	}
}
