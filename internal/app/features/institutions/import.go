// internal/app/features/institutions/import.go
package institutions

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	institutionstore "github.com/dalemusser/surveytrack/internal/app/store/institutions"
	"github.com/dalemusser/surveytrack/internal/app/system/csvutil"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/registry"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleImport handles POST /institutions/import. The CSV is sent either
// as the raw body (Content-Type text/csv) or as the "csv" file of a
// multipart form.
//
// The whole file is validated first; if any row is invalid or names an
// unknown region, nothing is written and the response is 422 with the row
// errors. Institutions that already exist are counted, not duplicated.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	// Limit request body size
	r.Body = http.MaxBytesReader(w, r.Body, csvutil.MaxUploadSize)

	src, closeSrc, err := csvSource(r)
	if err != nil {
		msg := "CSV file is required."
		if strings.Contains(err.Error(), "request body too large") {
			msg = "CSV file is too large. Maximum size is 5 MB."
		}
		jsonio.Error(w, http.StatusBadRequest, msg)
		return
	}
	defer closeSrc()

	parsed, err := csvutil.ParseInstitutions(src)
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, "CSV file could not be parsed: "+err.Error())
		return
	}
	if parsed.HasErrors() {
		jsonio.Write(w, http.StatusUnprocessableEntity, importResponse{Errors: parsed.Errors})
		return
	}
	if len(parsed.Rows) == 0 {
		jsonio.Error(w, http.StatusBadRequest, "CSV file has no rows")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "institution CSV import")
	defer cancel()

	// Region codes are checked against the region table before any write.
	var regionErrs []csvutil.RowError
	for _, row := range parsed.Rows {
		if err := h.Registry.CheckRegion(ctx, row.Institution.RegionCode); err != nil {
			if !errors.Is(err, registry.ErrUnknownRegion) {
				h.writeError(w, err)
				return
			}
			regionErrs = append(regionErrs, csvutil.RowError{Line: row.Line, Reason: err.Error()})
		}
	}
	if len(regionErrs) > 0 {
		jsonio.Write(w, http.StatusUnprocessableEntity, importResponse{Errors: regionErrs})
		return
	}

	var out importResponse
	for _, row := range parsed.Rows {
		_, err := h.Registry.RegisterInstitution(ctx, row.Institution)
		switch {
		case err == nil:
			out.Created++
		case errors.Is(err, institutionstore.ErrDuplicateInstitution):
			out.Existing++
		default:
			h.Log.Error("institution import stopped",
				zap.Int("line", row.Line),
				zap.Int("created", out.Created),
				zap.Error(err))
			jsonio.Error(w, http.StatusInternalServerError, "database error")
			return
		}
	}
	h.Log.Info("institutions imported",
		zap.Int("created", out.Created),
		zap.Int("existing", out.Existing))
	jsonio.Write(w, http.StatusOK, out)
}

// csvSource returns the CSV stream of the request.
func csvSource(r *http.Request) (io.Reader, func(), error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		file, _, err := r.FormFile("csv")
		if err != nil {
			return nil, nil, err
		}
		return file, func() { _ = file.Close() }, nil
	}
	if r.Body == nil {
		return nil, nil, errors.New("empty body")
	}
	return r.Body, func() {}, nil
}
