// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/store/audit"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.uber.org/zap"
)

const pageSize = 50

type listResponse struct {
	Items      []audit.Event `json:"items"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Total      int64         `json:"total"`
}

// ServeList handles GET /audit. Optional filters: category, event_type,
// campaign_id, run_key, start_date and end_date (YYYY-MM-DD, inclusive),
// page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := jsonio.IntParam(r, "page", 1)
	if err != nil || page < 1 {
		jsonio.Error(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}

	filter := audit.QueryFilter{
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		RunKey:    strings.TrimSpace(q.Get("run_key")),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	if raw := strings.TrimSpace(q.Get("campaign_id")); raw != "" {
		id, err := jsonio.ObjectID(raw)
		if err != nil {
			jsonio.Error(w, http.StatusBadRequest, "campaign_id: "+err.Error())
			return
		}
		filter.CampaignID = &id
	}

	loc := h.Clock.Location()
	if raw := strings.TrimSpace(q.Get("start_date")); raw != "" {
		t, err := time.ParseInLocation(models.DateLayout, raw, loc)
		if err != nil {
			jsonio.Error(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
		filter.StartTime = &t
	}
	if raw := strings.TrimSpace(q.Get("end_date")); raw != "" {
		t, err := time.ParseInLocation(models.DateLayout, raw, loc)
		if err != nil {
			jsonio.Error(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
			return
		}
		// End of day
		endOfDay := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.EndTime = &endOfDay
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	auditStore := audit.New(h.DB)
	events, err := auditStore.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		jsonio.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	total, err := auditStore.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		jsonio.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	if events == nil {
		events = []audit.Event{}
	}
	jsonio.Write(w, http.StatusOK, listResponse{
		Items:      events,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	})
}
