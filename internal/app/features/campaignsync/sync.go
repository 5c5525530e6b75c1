// internal/app/features/campaignsync/sync.go
package campaignsync

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/syncer"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultHistory = 20
	maxHistory     = 200
)

// HandleStart handles POST /campaigns/{id}/sync.
//
// By default the run executes in the background and the response is 202
// with the running record. With ?wait=true the request blocks until the run
// is finalized and the response is 200 with the final record.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := campaignParam(w, r)
	if !ok {
		return
	}

	if jsonio.BoolParam(r, "wait", false) {
		run, err := h.Sync.StartSync(r.Context(), campaignID)
		if err != nil {
			h.writeError(w, campaignID, err)
			return
		}
		jsonio.Write(w, http.StatusOK, toView(run))
		return
	}

	run, err := h.Sync.StartAsync(r.Context(), campaignID)
	if err != nil {
		h.writeError(w, campaignID, err)
		return
	}
	jsonio.Write(w, http.StatusAccepted, toView(run))
}

// ServeStatus handles GET /campaigns/{id}/sync and returns the latest run.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := campaignParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	run, err := h.Sync.Status(ctx, campaignID)
	if err != nil {
		h.writeError(w, campaignID, err)
		return
	}
	jsonio.Write(w, http.StatusOK, toView(run))
}

// ServeHistory handles GET /campaigns/{id}/sync/history?limit=N.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := campaignParam(w, r)
	if !ok {
		return
	}
	limit, err := jsonio.IntParam(r, "limit", defaultHistory)
	if err != nil || limit < 1 || limit > maxHistory {
		jsonio.Error(w, http.StatusBadRequest, "limit must be between 1 and 200")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	runs, err := h.History.List(ctx, campaignID, int64(limit))
	if err != nil {
		h.writeError(w, campaignID, err)
		return
	}
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		out = append(out, toView(run))
	}
	jsonio.Write(w, http.StatusOK, out)
}

// HandleCancel handles POST /campaigns/{id}/sync/cancel. The response is 202
// because the run stops asynchronously.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := campaignParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	run, err := h.Sync.Cancel(ctx, campaignID)
	if err != nil {
		h.writeError(w, campaignID, err)
		return
	}
	jsonio.Write(w, http.StatusAccepted, toView(run))
}

func campaignParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := jsonio.ObjectID(chi.URLParam(r, "id"))
	if err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, campaignID primitive.ObjectID, err error) {
	switch {
	case errors.Is(err, syncer.ErrAlreadyRunning), errors.Is(err, syncer.ErrNotRunning):
		jsonio.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, syncer.ErrCampaignNotFound):
		jsonio.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, syncer.ErrNoRuns):
		jsonio.Error(w, http.StatusNotFound, "campaign has never been synced")
	case errors.Is(err, syncer.ErrCampaignMisconfigured):
		jsonio.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.Log.Error("sync request failed",
			zap.String("campaign_id", campaignID.Hex()),
			zap.Error(err))
		jsonio.Error(w, http.StatusInternalServerError, "internal error")
	}
}
