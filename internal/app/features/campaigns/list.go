// internal/app/features/campaigns/list.go
package campaigns

import (
	"context"
	"net/http"

	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeList handles GET /campaigns. ?active=true limits the list to active
// campaigns.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := campaignstore.New(h.DB).List(ctx, jsonio.BoolParam(r, "active", false))
	if err != nil {
		h.Log.Error("list campaigns", zap.Error(err))
		jsonio.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	out := make([]campaignView, 0, len(list))
	for _, c := range list {
		out = append(out, toView(c))
	}
	jsonio.Write(w, http.StatusOK, out)
}
