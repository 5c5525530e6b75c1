// internal/app/features/surveys/handler.go
package surveys

import (
	"github.com/dalemusser/surveytrack/internal/app/system/registry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the explicit survey operations: planning, status changes
// and indicator edits.
type Handler struct {
	DB       *mongo.Database
	Registry *registry.Service
	Log      *zap.Logger
}

// NewHandler constructs a surveys Handler.
func NewHandler(db *mongo.Database, reg *registry.Service, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Registry: reg,
		Log:      logger,
	}
}
