// internal/app/features/koboforms/handler.go
package koboforms

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/kobo"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Forms is the part of the KoBo client used to pick a campaign's form.
type Forms interface {
	ListForms(ctx context.Context) ([]kobo.Form, error)
	SubmissionCount(ctx context.Context, formID string) (int, error)
}

// Handler lets operators browse the forms visible to the configured token
// before creating a campaign.
type Handler struct {
	Forms Forms
	Log   *zap.Logger
}

func NewHandler(forms Forms, logger *zap.Logger) *Handler {
	return &Handler{Forms: forms, Log: logger}
}

type countView struct {
	UID             string `json:"uid"`
	SubmissionCount int    `json:"submission_count"`
}

// ServeForms handles GET /kobo/forms.
func (h *Handler) ServeForms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Feed())
	defer cancel()

	forms, err := h.Forms.ListForms(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if forms == nil {
		forms = []kobo.Form{}
	}
	jsonio.Write(w, http.StatusOK, forms)
}

// ServeCount handles GET /kobo/forms/{uid}/count: the number of submissions
// the server currently holds for the form.
func (h *Handler) ServeCount(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(chi.URLParam(r, "uid"))
	if uid == "" {
		jsonio.Error(w, http.StatusBadRequest, "form uid is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Feed())
	defer cancel()

	n, err := h.Forms.SubmissionCount(ctx, uid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	jsonio.Write(w, http.StatusOK, countView{UID: uid, SubmissionCount: n})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kobo.ErrFormNotFound):
		jsonio.Error(w, http.StatusNotFound, "form not found")
	case errors.Is(err, kobo.ErrUnauthorized),
		errors.Is(err, kobo.ErrRateLimited),
		errors.Is(err, kobo.ErrUnavailable),
		errors.Is(err, kobo.ErrMalformedPage):
		h.Log.Warn("kobo request failed", zap.Error(err))
		jsonio.Error(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		jsonio.Error(w, http.StatusGatewayTimeout, "kobo did not answer in time")
	default:
		h.Log.Error("kobo request failed", zap.Error(err))
		jsonio.Error(w, http.StatusInternalServerError, "internal error")
	}
}
