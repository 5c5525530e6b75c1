// internal/app/features/surveys/types.go
package surveys

import (
	"time"

	"github.com/dalemusser/surveytrack/internal/app/system/readiness"
	"github.com/dalemusser/surveytrack/internal/domain/models"
)

// surveyView is the JSON shape of a survey.
type surveyView struct {
	ID                   string              `json:"id"`
	CampaignID           string              `json:"campaign_id"`
	InstitutionID        string              `json:"institution_id"`
	Status               models.SurveyStatus `json:"status"`
	ExternalSubmissionID *string             `json:"external_submission_id,omitempty"`
	SubmittedAt          *time.Time          `json:"submitted_at,omitempty"`
	CompletedAt          *time.Time          `json:"completed_at,omitempty"`
	ProgressDate         string              `json:"progress_date"`
	UpdatedAt            time.Time           `json:"updated_at"`

	Readiness *readinessView `json:"readiness,omitempty"`
}

func toView(sv models.Survey) surveyView {
	return surveyView{
		ID:                   sv.ID.Hex(),
		CampaignID:           sv.CampaignID.Hex(),
		InstitutionID:        sv.InstitutionID.Hex(),
		Status:               sv.Status,
		ExternalSubmissionID: sv.ExternalSubmissionID,
		SubmittedAt:          sv.SubmittedAt,
		CompletedAt:          sv.CompletedAt,
		ProgressDate:         sv.ProgressDate,
		UpdatedAt:            sv.UpdatedAt,
	}
}

// listItem is a survey with its institution's name and region.
type listItem struct {
	surveyView
	InstitutionName string `json:"institution_name,omitempty"`
	RegionCode      string `json:"region_code,omitempty"`
}

// listResponse is one page of surveys.
type listResponse struct {
	Items  []listItem `json:"items"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// domainView is one domain's share of the score.
type domainView struct {
	Domain  readiness.Domain `json:"domain"`
	Points  float64          `json:"points"`
	Max     float64          `json:"max_points"`
	Percent float64          `json:"pct"`
}

// readinessView is an indicator record with its score broken down by
// domain.
type readinessView struct {
	SurveyID   string            `json:"survey_id"`
	Score      float64           `json:"readiness_score"`
	Domains    []domainView      `json:"domains"`
	Indicators models.Indicators `json:"indicators"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func toReadinessView(rec models.ReadinessRecord) *readinessView {
	out := &readinessView{
		SurveyID:   rec.SurveyID.Hex(),
		Score:      rec.ReadinessScore,
		Indicators: rec.Indicators,
		UpdatedAt:  rec.UpdatedAt,
	}
	for _, d := range readiness.Breakdown(rec.Indicators) {
		out.Domains = append(out.Domains, domainView{
			Domain:  d.Domain,
			Points:  d.Points,
			Max:     d.Max,
			Percent: d.Percent(),
		})
	}
	return out
}

// plannedInput is the POST body.
type plannedInput struct {
	CampaignID    string `json:"campaign_id"`
	InstitutionID string `json:"institution_id"`
}

// statusInput is the PATCH body.
type statusInput struct {
	Status models.SurveyStatus `json:"status"`
}
