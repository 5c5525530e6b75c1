// internal/app/features/campaigns/create.go
package campaigns

import (
	"context"
	"errors"
	"net/http"

	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.uber.org/zap"
)

// HandleCreate handles POST /campaigns. New campaigns are active unless
// is_active is false.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseDate("start_date", in.StartDate)
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDate("end_date", in.EndDate)
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	c := models.Campaign{
		Name:               in.Name,
		Description:        in.Description,
		ExternalFormID:     in.ExternalFormID,
		StartDate:          start,
		EndDate:            end,
		TargetInstitutions: in.TargetInstitutions,
		IsActive:           in.IsActive == nil || *in.IsActive,
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := campaignstore.New(h.DB).Create(ctx, c)
	if err != nil {
		writeStoreError(w, h.Log, err)
		return
	}
	h.Log.Info("campaign created",
		zap.String("campaign_id", created.ID.Hex()),
		zap.String("name", created.Name))
	jsonio.Write(w, http.StatusCreated, toView(created))
}

// writeStoreError maps campaign store errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, campaignstore.ErrNotFound):
		jsonio.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, campaignstore.ErrDuplicateCampaign):
		jsonio.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, campaignstore.ErrInvalidName), errors.Is(err, campaignstore.ErrInvalidDates):
		jsonio.Error(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("campaign store", zap.Error(err))
		jsonio.Error(w, http.StatusInternalServerError, "database error")
	}
}
