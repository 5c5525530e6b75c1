// internal/app/features/surveys/surveys.go
package surveys

import (
	"context"
	"errors"
	"net/http"

	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	institutionstore "github.com/dalemusser/surveytrack/internal/app/store/institutions"
	readinessstore "github.com/dalemusser/surveytrack/internal/app/store/readiness"
	surveystore "github.com/dalemusser/surveytrack/internal/app/store/surveys"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/registry"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleCreatePlanned handles POST /surveys. The survey starts pending and
// is counted under today.
func (h *Handler) HandleCreatePlanned(w http.ResponseWriter, r *http.Request) {
	var in plannedInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	campaignID, err := jsonio.ObjectID(in.CampaignID)
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, "campaign_id: "+err.Error())
		return
	}
	institutionID, err := jsonio.ObjectID(in.InstitutionID)
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, "institution_id: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sv, err := h.Registry.CreatePlannedSurvey(ctx, campaignID, institutionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Log.Info("planned survey created",
		zap.String("survey_id", sv.ID.Hex()),
		zap.String("campaign_id", campaignID.Hex()))
	jsonio.Write(w, http.StatusCreated, toView(sv))
}

// ServeView handles GET /surveys/{id}. The indicator record and score are
// included when the survey has been assessed.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, ok := surveyParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sv, err := surveystore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := toView(sv)
	rec, err := readinessstore.New(h.DB).GetBySurveyID(ctx, id)
	switch {
	case err == nil:
		out.Readiness = toReadinessView(rec)
	case !errors.Is(err, readinessstore.ErrNotFound):
		h.writeError(w, err)
		return
	}
	jsonio.Write(w, http.StatusOK, out)
}

// HandleStatus handles PATCH /surveys/{id}/status. The status may move in
// either direction; lowering it is audited as a rollback.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := surveyParam(w, r)
	if !ok {
		return
	}
	var in statusInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sv, err := h.Registry.ChangeStatus(ctx, id, in.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	jsonio.Write(w, http.StatusOK, toView(sv))
}

// HandleIndicators handles PUT /surveys/{id}/indicators. The body replaces
// the survey's indicators; the response carries the recomputed score.
func (h *Handler) HandleIndicators(w http.ResponseWriter, r *http.Request) {
	id, ok := surveyParam(w, r)
	if !ok {
		return
	}
	var in models.Indicators
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rec, err := h.Registry.EditIndicators(ctx, id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Log.Info("indicators edited",
		zap.String("survey_id", id.Hex()),
		zap.Float64("readiness_score", rec.ReadinessScore))
	jsonio.Write(w, http.StatusOK, toReadinessView(rec))
}

func surveyParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := jsonio.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, surveystore.ErrNotFound),
		errors.Is(err, campaignstore.ErrNotFound),
		errors.Is(err, institutionstore.ErrNotFound):
		jsonio.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrAlreadyPlanned), errors.Is(err, registry.ErrConflict):
		jsonio.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrInvalidStatus), errors.Is(err, registry.ErrInvalidConnectivity):
		jsonio.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Error("survey request failed", zap.Error(err))
		jsonio.Error(w, http.StatusInternalServerError, "database error")
	}
}
