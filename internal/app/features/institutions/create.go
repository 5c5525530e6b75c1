// internal/app/features/institutions/create.go
package institutions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	institutionstore "github.com/dalemusser/surveytrack/internal/app/store/institutions"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/registry"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.uber.org/zap"
)

// HandleCreate handles POST /institutions. An empty sector means "other".
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	inst := models.Institution{
		Name:          in.Name,
		RegionCode:    in.RegionCode,
		Sector:        models.SectorOther,
		Address:       strings.TrimSpace(in.Address),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		ContactEmail:  strings.TrimSpace(in.ContactEmail),
		ContactPhone:  strings.TrimSpace(in.ContactPhone),
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
	}
	if s := strings.TrimSpace(in.Sector); s != "" {
		inst.Sector = models.Sector(strings.ToLower(s))
		if !inst.Sector.Valid() {
			jsonio.Error(w, http.StatusBadRequest, "unknown sector "+s)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Registry.RegisterInstitution(ctx, inst)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Log.Info("institution registered",
		zap.String("institution_id", created.ID.Hex()),
		zap.String("region", created.RegionCode))
	jsonio.Write(w, http.StatusCreated, toView(created))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, institutionstore.ErrNotFound):
		jsonio.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, institutionstore.ErrDuplicateInstitution):
		jsonio.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrInvalidName), errors.Is(err, registry.ErrUnknownRegion):
		jsonio.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Error("institution request failed", zap.Error(err))
		jsonio.Error(w, http.StatusInternalServerError, "database error")
	}
}
