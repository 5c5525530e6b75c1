// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB    *mongo.Database
	Clock *progress.Clock
	Log   *zap.Logger
}

// NewHandler constructs an audit log handler. Date filters are read as
// calendar days in the clock's zone.
func NewHandler(db *mongo.Database, clock *progress.Clock, logger *zap.Logger) *Handler {
	return &Handler{
		DB:    db,
		Clock: clock,
		Log:   logger,
	}
}
