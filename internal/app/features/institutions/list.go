// internal/app/features/institutions/list.go
package institutions

import (
	"context"
	"net/http"
	"strings"

	institutionstore "github.com/dalemusser/surveytrack/internal/app/store/institutions"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// ServeList handles GET /institutions.
//
// Filters: region (code), sector, q (name prefix). Paging: limit (default
// 50, max 500) and offset.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	limit, err := jsonio.IntParam(r, "limit", defaultLimit)
	if err != nil || limit < 1 {
		jsonio.Error(w, http.StatusBadRequest, "limit must be a positive whole number")
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err := jsonio.IntParam(r, "offset", 0)
	if err != nil || offset < 0 {
		jsonio.Error(w, http.StatusBadRequest, "offset must be zero or more")
		return
	}

	f := institutionstore.Filter{
		RegionCode: strings.ToUpper(strings.TrimSpace(query.Get(r, "region"))),
		NamePrefix: strings.TrimSpace(query.Get(r, "q")),
		Limit:      int64(limit),
		Offset:     int64(offset),
	}
	if s := strings.TrimSpace(query.Get(r, "sector")); s != "" {
		f.Sector = models.Sector(strings.ToLower(s))
		if !f.Sector.Valid() {
			jsonio.Error(w, http.StatusBadRequest, "unknown sector "+s)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := institutionstore.New(h.DB).List(ctx, f)
	if err != nil {
		h.Log.Error("list institutions", zap.Error(err))
		jsonio.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	out := listResponse{Items: make([]institutionView, 0, len(list)), Limit: limit, Offset: offset}
	for _, inst := range list {
		out.Items = append(out.Items, toView(inst))
	}
	jsonio.Write(w, http.StatusOK, out)
}
