// internal/app/features/reports/regionscsv.go
package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dalemusser/surveytrack/internal/app/store/queries/reportqueries"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/text"
)

// ServeRegionsCSV handles GET /campaigns/{id}/reports/regions.csv and
// streams the regional report as a spreadsheet-friendly CSV.
func (h *Handler) ServeRegionsCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	campaign, ok := h.campaign(ctx, w, r)
	if !ok {
		return
	}
	rows, err := reportqueries.RegionalProgress(ctx, h.DB, campaign.ID)
	if err != nil {
		h.fail(w, "regional progress csv", campaign, err)
		return
	}

	filename := csvFilename(campaign.Name, h.Clock.Today())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))

	// UTF-8 BOM so Excel detects the encoding
	_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	defer cw.Flush()

	_ = cw.Write([]string{
		"region_code", "region_name", "total_surveys", "completed", "in_progress", "pending",
		"completion_rate", "institutions_assessed", "avg_readiness_score",
		"policy_adoption_pct", "cms_adoption_pct", "training_pct",
	})
	for _, row := range rows {
		_ = cw.Write([]string{
			row.RegionCode,
			row.RegionName,
			strconv.Itoa(row.Total),
			strconv.Itoa(row.Completed),
			strconv.Itoa(row.InProgress),
			strconv.Itoa(row.Pending),
			formatFloat(&row.CompletionRate),
			strconv.Itoa(row.Assessed),
			formatFloat(row.AvgScore),
			formatFloat(row.PolicyAdoptionPct),
			formatFloat(row.CMSAdoptionPct),
			formatFloat(row.TrainingPct),
		})
	}
}

// csvFilename builds "regional_progress_<campaign>_<date>.csv" with the
// campaign name folded to a safe slug.
func csvFilename(campaign, day string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, text.Fold(campaign))
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "campaign"
	}
	return fmt.Sprintf("regional_progress_%s_%s.csv", slug, day)
}

// formatFloat renders nil as an empty cell.
func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
