// internal/app/features/campaigns/types.go
package campaigns

import (
	"fmt"
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
)

// campaignView is the JSON shape of a campaign.
type campaignView struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	ExternalFormID     string    `json:"external_form_id,omitempty"`
	StartDate          string    `json:"start_date,omitempty"`
	EndDate            string    `json:"end_date,omitempty"`
	TargetInstitutions int       `json:"target_institutions"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toView(c models.Campaign) campaignView {
	return campaignView{
		ID:                 c.ID.Hex(),
		Name:               c.Name,
		Description:        c.Description,
		ExternalFormID:     c.ExternalFormID,
		StartDate:          formatDate(c.StartDate),
		EndDate:            formatDate(c.EndDate),
		TargetInstitutions: c.TargetInstitutions,
		IsActive:           c.IsActive,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

// createInput is the POST body. Dates are YYYY-MM-DD.
type createInput struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	ExternalFormID     string `json:"external_form_id"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	TargetInstitutions int    `json:"target_institutions"`
	IsActive           *bool  `json:"is_active"`
}

// editInput is the PATCH body; omitted fields are left unchanged.
type editInput struct {
	Name               *string `json:"name"`
	Description        *string `json:"description"`
	ExternalFormID     *string `json:"external_form_id"`
	StartDate          *string `json:"start_date"`
	EndDate            *string `json:"end_date"`
	TargetInstitutions *int    `json:"target_institutions"`
	IsActive           *bool   `json:"is_active"`
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(models.DateLayout)
}

// parseDate parses an optional YYYY-MM-DD value; "" yields nil.
func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return &t, nil
}
