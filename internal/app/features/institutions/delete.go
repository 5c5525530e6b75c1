// internal/app/features/institutions/delete.go
package institutions

import (
	"net/http"

	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleDelete handles DELETE /institutions/{id}. The institution's surveys
// and indicator records are removed with it and the progress counters are
// adjusted.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := jsonio.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "remove institution")
	defer cancel()

	summary, err := h.Registry.RemoveInstitution(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Log.Info("institution removed",
		zap.String("institution_id", id.Hex()),
		zap.Int("surveys", summary.Surveys))
	jsonio.Write(w, http.StatusOK, deleteResponse{
		Institution:    toView(summary.Institution),
		SurveysRemoved: summary.Surveys,
	})
}
