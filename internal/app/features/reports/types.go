// internal/app/features/reports/types.go
package reports

import (
	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	"github.com/dalemusser/surveytrack/internal/app/store/queries/reportqueries"
)

// dailyResponse wraps the daily series with the window it covers.
type dailyResponse struct {
	CampaignID string                      `json:"campaign_id"`
	Days       int                         `json:"days"`
	TimeZone   string                      `json:"time_zone"`
	Series     []reportqueries.DayProgress `json:"series"`
}

// recountResponse reports drift found by a recount. Entries are the
// counters that differed.
type recountResponse struct {
	CampaignID string                     `json:"campaign_id"`
	Days       int                        `json:"days_checked"`
	Drift      bool                       `json:"drift"`
	Repaired   bool                       `json:"repaired"`
	Entries    []progressstore.DriftEntry `json:"entries"`
}

func toRecountResponse(r progressstore.DriftReport) recountResponse {
	entries := r.Entries
	if entries == nil {
		entries = []progressstore.DriftEntry{}
	}
	return recountResponse{
		CampaignID: r.CampaignID.Hex(),
		Days:       r.Days,
		Drift:      r.HasDrift(),
		Repaired:   r.Repaired,
		Entries:    entries,
	}
}
