// internal/app/features/institutions/types.go
package institutions

import (
	"time"

	"github.com/dalemusser/surveytrack/internal/app/system/csvutil"
	"github.com/dalemusser/surveytrack/internal/domain/models"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// institutionView is the JSON shape of an institution.
type institutionView struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Sector        models.Sector `json:"sector"`
	RegionCode    string        `json:"region_code"`
	Address       string        `json:"address,omitempty"`
	ContactPerson string        `json:"contact_person,omitempty"`
	ContactEmail  string        `json:"contact_email,omitempty"`
	ContactPhone  string        `json:"contact_phone,omitempty"`
	Latitude      *float64      `json:"latitude,omitempty"`
	Longitude     *float64      `json:"longitude,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

func toView(inst models.Institution) institutionView {
	return institutionView{
		ID:            inst.ID.Hex(),
		Name:          inst.Name,
		Sector:        inst.Sector,
		RegionCode:    inst.RegionCode,
		Address:       inst.Address,
		ContactPerson: inst.ContactPerson,
		ContactEmail:  inst.ContactEmail,
		ContactPhone:  inst.ContactPhone,
		Latitude:      inst.Latitude,
		Longitude:     inst.Longitude,
		CreatedAt:     inst.CreatedAt,
	}
}

// listResponse is one page of institutions.
type listResponse struct {
	Items  []institutionView `json:"items"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// createInput is the POST body.
type createInput struct {
	Name          string   `json:"name"`
	RegionCode    string   `json:"region_code"`
	Sector        string   `json:"sector"`
	Address       string   `json:"address"`
	ContactPerson string   `json:"contact_person"`
	ContactEmail  string   `json:"contact_email"`
	ContactPhone  string   `json:"contact_phone"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

// deleteResponse reports a cascading removal.
type deleteResponse struct {
	Institution    institutionView `json:"institution"`
	SurveysRemoved int             `json:"surveys_removed"`
}

// importResponse summarizes a CSV import. Rejected files carry only
// Errors; nothing is written when any row is invalid.
type importResponse struct {
	Created  int                `json:"created"`
	Existing int                `json:"existing"`
	Errors   []csvutil.RowError `json:"errors,omitempty"`
}
