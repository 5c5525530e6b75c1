// internal/app/features/reports/handler.go
package reports

import (
	"context"

	"github.com/dalemusser/surveytrack/internal/app/system/auditlog"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// RunChecker reports whether a campaign has a sync in progress.
type RunChecker interface {
	IsRunning(ctx context.Context, campaignID primitive.ObjectID) (bool, error)
}

// Handler owns the campaign report endpoints (JSON summaries, the regional
// CSV export and the progress recount).
//
// It follows the same pattern as the other features: a thin struct
// wrapping the shared Mongo database handle and logger, constructed once at
// startup in bootstrap and passed into Routes().
type Handler struct {
	DB    *mongo.Database
	Clock *progress.Clock
	Runs  RunChecker
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// NewHandler constructs a reports Handler. audit may be nil.
func NewHandler(db *mongo.Database, clock *progress.Clock, runs RunChecker, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:    db,
		Clock: clock,
		Runs:  runs,
		Audit: audit,
		Log:   logger,
	}
}
