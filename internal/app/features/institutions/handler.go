// internal/app/features/institutions/handler.go
package institutions

import (
	"github.com/dalemusser/surveytrack/internal/app/system/registry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Institutions. Reads go to
// the store directly; writes go through the registry so cascades and
// counters stay consistent.
type Handler struct {
	DB       *mongo.Database
	Registry *registry.Service
	Log      *zap.Logger
}

// NewHandler constructs a new Institutions handler.
func NewHandler(db *mongo.Database, reg *registry.Service, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Registry: reg,
		Log:      logger,
	}
}
