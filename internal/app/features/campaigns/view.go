// internal/app/features/campaigns/view.go
package campaigns

import (
	"context"
	"net/http"

	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// ServeView handles GET /campaigns/{id}.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := campaignstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		writeStoreError(w, h.Log, err)
		return
	}
	jsonio.Write(w, http.StatusOK, toView(c))
}
