// Package fieldmap resolves loosely-structured survey submissions into the
// canonical readiness record.
//
// Form versions name the same question differently, so every canonical field
// carries an ordered alias list (most specific first). A record is resolved
// once, against the whole table, into a typed Record. Resolution never fails
// as a whole: unparseable values are dropped with a warning diagnostic, and
// only a missing identifier makes the record unusable.
package fieldmap

import (
	"errors"
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
)

var (
	// ErrMissingIdentifier is returned when a submission lacks its id,
	// institution name or region.
	ErrMissingIdentifier = errors.New("missing required identifier")
	// ErrUnknownRegion is returned when the region value matches no region.
	ErrUnknownRegion = errors.New("unknown region")
)

// Identifier field names.
const (
	FieldSubmissionID    = "submission_id"
	FieldSubmissionDate  = "submission_date"
	FieldInstitutionName = "institution_name"
	FieldRegion          = "region"
)

// Diagnostic is a non-fatal problem met while resolving one field.
type Diagnostic struct {
	Field    string
	Severity string
	Cause    string
}

// InstitutionFields are the institution attributes carried by a submission.
type InstitutionFields struct {
	Name          string
	Sector        models.Sector
	RegionCode    string
	Address       string
	ContactPerson string
	ContactEmail  string
	ContactPhone  string
	Latitude      *float64
	Longitude     *float64
}

// Record is the typed result of resolving one submission.
type Record struct {
	SubmissionID string
	SubmittedAt  *time.Time
	Institution  InstitutionFields
	Indicators   models.Indicators

	// Complete is true when every lead indicator was answered.
	Complete    bool
	Diagnostics []Diagnostic
}

// Status is the survey status implied by the record's completeness.
func (r Record) Status() models.SurveyStatus {
	if r.Complete {
		return models.StatusCompleted
	}
	return models.StatusInProgress
}

func (r *Record) warn(field, cause string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Field:    field,
		Severity: models.SeverityWarning,
		Cause:    cause,
	})
}
