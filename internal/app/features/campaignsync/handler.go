// internal/app/features/campaignsync/handler.go
package campaignsync

import (
	"context"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Syncer is the part of the orchestrator the HTTP layer drives.
type Syncer interface {
	StartSync(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error)
	StartAsync(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error)
	Status(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error)
	Cancel(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error)
}

// History lists past runs of a campaign, newest first.
type History interface {
	List(ctx context.Context, campaignID primitive.ObjectID, limit int64) ([]models.SyncRun, error)
}

// Handler serves the sync endpoints of one campaign.
type Handler struct {
	Sync    Syncer
	History History
	Log     *zap.Logger
}

// NewHandler constructs a sync Handler.
func NewHandler(s Syncer, history History, logger *zap.Logger) *Handler {
	return &Handler{
		Sync:    s,
		History: history,
		Log:     logger,
	}
}
