// internal/app/features/reports/recount.go
package reports

import (
	"context"
	"net/http"

	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleRecount handles POST /campaigns/{id}/reports/recount. The daily
// counters are rebuilt from the surveys and any drift is reported. Drift is
// repaired unless ?repair=false. A campaign with a running sync is refused
// with 409 because its counters are still moving.
func (h *Handler) HandleRecount(w http.ResponseWriter, r *http.Request) {
	repair := jsonio.BoolParam(r, "repair", true)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	campaign, ok := h.campaign(ctx, w, r)
	if !ok {
		return
	}
	running, err := h.Runs.IsRunning(ctx, campaign.ID)
	if err != nil {
		h.fail(w, "check running sync", campaign, err)
		return
	}
	if running {
		jsonio.Error(w, http.StatusConflict, "a sync is running for this campaign; retry when it finishes")
		return
	}

	report, err := progressstore.New(h.DB).Recount(ctx, campaign.ID, repair)
	if err != nil {
		h.fail(w, "recount", campaign, err)
		return
	}
	if report.HasDrift() {
		h.Log.Warn("progress counters drifted",
			zap.String("campaign_id", campaign.ID.Hex()),
			zap.Int("entries", len(report.Entries)),
			zap.Bool("repaired", report.Repaired))
		h.Audit.ProgressDrift(ctx, report)
	}
	jsonio.Write(w, http.StatusOK, toRecountResponse(report))
}
