// internal/app/features/regions/handler.go
package regions

import (
	"context"
	"net/http"

	regionstore "github.com/dalemusser/surveytrack/internal/app/store/regions"
	"github.com/dalemusser/surveytrack/internal/app/system/jsonio"
	"github.com/dalemusser/surveytrack/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the seeded region list used to pick and filter by region.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}

type regionView struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ServeList handles GET /regions. Regions are ordered by code.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := regionstore.New(h.DB).List(ctx)
	if err != nil {
		h.Log.Error("list regions", zap.Error(err))
		jsonio.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	out := make([]regionView, 0, len(list))
	for _, rg := range list {
		out = append(out, regionView{ID: rg.ID.Hex(), Code: rg.Code, Name: rg.Name})
	}
	jsonio.Write(w, http.StatusOK, out)
}
