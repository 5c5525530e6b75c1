// internal/app/features/campaigns/edit.go
package campaigns

import (
	"context"
	"net/http"

	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleEdit handles PATCH /campaigns/{id}.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var in editInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	u := campaignstore.Update{
		Name:               in.Name,
		Description:        in.Description,
		ExternalFormID:     in.ExternalFormID,
		TargetInstitutions: in.TargetInstitutions,
		IsActive:           in.IsActive,
	}
	if in.StartDate != nil {
		if u.StartDate, err = parseDate("start_date", *in.StartDate); err != nil || u.StartDate == nil {
			jsonio.Error(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
	}
	if in.EndDate != nil {
		if u.EndDate, err = parseDate("end_date", *in.EndDate); err != nil || u.EndDate == nil {
			jsonio.Error(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := campaignstore.New(h.DB).Update(ctx, id, u)
	if err != nil {
		writeStoreError(w, h.Log, err)
		return
	}
	h.Log.Info("campaign updated", zap.String("campaign_id", c.ID.Hex()))
	jsonio.Write(w, http.StatusOK, toView(c))
}
