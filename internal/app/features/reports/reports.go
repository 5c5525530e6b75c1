// internal/app/features/reports/reports.go
package reports

import (
	"context"
	"errors"
	"net/http"

	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	"github.com/dalemusser/surveytrack/internal/app/store/queries/reportqueries"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeSummary handles GET /campaigns/{id}/reports/summary: status counts
// against the target plus headline readiness figures.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	campaign, ok := h.campaign(ctx, w, r)
	if !ok {
		return
	}
	out, err := reportqueries.NationalSummary(ctx, h.DB, campaign)
	if err != nil {
		h.fail(w, "national summary", campaign, err)
		return
	}
	jsonio.Write(w, http.StatusOK, out)
}

// ServeReadiness handles GET /campaigns/{id}/reports/readiness. A campaign
// with no assessed surveys yields 404.
func (h *Handler) ServeReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	campaign, ok := h.campaign(ctx, w, r)
	if !ok {
		return
	}
	out, err := reportqueries.ReadinessSummary(ctx, h.DB, campaign.ID)
	if errors.Is(err, reportqueries.ErrNoData) {
		jsonio.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.fail(w, "readiness summary", campaign, err)
		return
	}
	jsonio.Write(w, http.StatusOK, out)
}

// ServeRegions handles GET /campaigns/{id}/reports/regions.
func (h *Handler) ServeRegions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	campaign, ok := h.campaign(ctx, w, r)
	if !ok {
		return
	}
	out, err := reportqueries.RegionalProgress(ctx, h.DB, campaign.ID)
	if err != nil {
		h.fail(w, "regional progress", campaign, err)
		return
	}
	jsonio.Write(w, http.StatusOK, out)
}

// ServeDaily handles GET /campaigns/{id}/reports/daily?days=N. days defaults
// to 30 and is capped at 366.
func (h *Handler) ServeDaily(w http.ResponseWriter, r *http.Request) {
	days, err := jsonio.IntParam(r, "days", reportqueries.DefaultDays)
	if err != nil || days < 1 {
		jsonio.Error(w, http.StatusBadRequest, "days must be a positive whole number")
		return
	}
	if days > reportqueries.MaxDays {
		days = reportqueries.MaxDays
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	campaign, ok := h.campaign(ctx, w, r)
	if !ok {
		return
	}
	series, err := reportqueries.DailyProgress(ctx, h.DB, h.Clock, campaign.ID, days)
	if err != nil {
		h.fail(w, "daily progress", campaign, err)
		return
	}
	jsonio.Write(w, http.StatusOK, dailyResponse{
		CampaignID: campaign.ID.Hex(),
		Days:       days,
		TimeZone:   h.Clock.Location().String(),
		Series:     series,
	})
}

// campaign loads the campaign named by the {id} URL parameter, writing the
// error response itself when it cannot.
func (h *Handler) campaign(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Campaign, bool) {
	id, err := jsonio.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return models.Campaign{}, false
	}
	c, err := campaignstore.New(h.DB).GetByID(ctx, id)
	if errors.Is(err, campaignstore.ErrNotFound) {
		jsonio.Error(w, http.StatusNotFound, err.Error())
		return models.Campaign{}, false
	}
	if err != nil {
		h.fail(w, "load campaign", models.Campaign{ID: id}, err)
		return models.Campaign{}, false
	}
	return c, true
}

func (h *Handler) fail(w http.ResponseWriter, what string, c models.Campaign, err error) {
	h.Log.Error(what+" failed",
		zap.String("campaign_id", c.ID.Hex()),
		zap.Error(err))
	jsonio.Error(w, http.StatusInternalServerError, "database error")
}
