// internal/app/features/surveys/list.go
package surveys

import (
	"context"
	"net/http"
	"strings"

	institutionstore "github.com/dalemusser/surveytrack/internal/app/store/institutions"
	surveystore "github.com/dalemusser/surveytrack/internal/app/store/surveys"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ServeList handles GET /surveys.
//
// Filters: campaign_id, status, institution_id and region (code). Paging:
// limit (default 50, max 500) and offset. Each item carries its
// institution's name and region.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	limit, err := jsonio.IntParam(r, "limit", defaultLimit)
	if err != nil || limit < 1 {
		jsonio.Error(w, http.StatusBadRequest, "limit must be a positive whole number")
		return
	}
	limit = min(limit, maxLimit)
	offset, err := jsonio.IntParam(r, "offset", 0)
	if err != nil || offset < 0 {
		jsonio.Error(w, http.StatusBadRequest, "offset must be zero or more")
		return
	}

	f := surveystore.Filter{Limit: int64(limit), Offset: int64(offset)}
	if raw := query.Get(r, "campaign_id"); raw != "" {
		if f.CampaignID, err = jsonio.ObjectID(raw); err != nil {
			jsonio.Error(w, http.StatusBadRequest, "campaign_id: "+err.Error())
			return
		}
	}
	if raw := strings.TrimSpace(query.Get(r, "status")); raw != "" {
		f.Status = models.SurveyStatus(strings.ToLower(raw))
		if !f.Status.Valid() {
			jsonio.Error(w, http.StatusBadRequest, "unknown status "+raw)
			return
		}
	}
	if raw := query.Get(r, "institution_id"); raw != "" {
		id, err := jsonio.ObjectID(raw)
		if err != nil {
			jsonio.Error(w, http.StatusBadRequest, "institution_id: "+err.Error())
			return
		}
		f.InstitutionIDs = []primitive.ObjectID{id}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	institutions := institutionstore.New(h.DB)
	if region := strings.ToUpper(strings.TrimSpace(query.Get(r, "region"))); region != "" {
		inRegion, err := institutions.List(ctx, institutionstore.Filter{RegionCode: region})
		if err != nil {
			h.writeError(w, err)
			return
		}
		f.InstitutionIDs = narrowTo(f.InstitutionIDs, inRegion)
	}

	list, err := surveystore.New(h.DB).List(ctx, f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(list))
	for _, sv := range list {
		ids = append(ids, sv.InstitutionID)
	}
	byID, err := institutions.GetByIDs(ctx, ids)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := listResponse{Items: make([]listItem, 0, len(list)), Limit: limit, Offset: offset}
	for _, sv := range list {
		item := listItem{surveyView: toView(sv)}
		if inst, ok := byID[sv.InstitutionID]; ok {
			item.InstitutionName = inst.Name
			item.RegionCode = inst.RegionCode
		}
		out.Items = append(out.Items, item)
	}
	h.Log.Debug("surveys listed", zap.Int("count", len(out.Items)))
	jsonio.Write(w, http.StatusOK, out)
}

// narrowTo keeps the ids that belong to insts. A nil ids means no
// institution was named, so every one of insts qualifies.
func narrowTo(ids []primitive.ObjectID, insts []models.Institution) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(insts))
	for _, inst := range insts {
		if ids == nil {
			out = append(out, inst.ID)
			continue
		}
		for _, id := range ids {
			if id == inst.ID {
				out = append(out, id)
			}
		}
	}
	return out
}
