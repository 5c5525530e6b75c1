// internal/app/store/metrics/metricsstore.go
package metricsstore

import (
	"context"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of registry-wide totals exported as gauges.
type Counts struct {
	Campaigns       int64
	ActiveCampaigns int64
	Institutions    int64
	Surveys         map[models.SurveyStatus]int64
	RunningSyncs    int64
}

// FetchCounts returns the registry-wide totals.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	out := Counts{Surveys: make(map[models.SurveyStatus]int64, 3)}

	// campaigns
	if n, err := db.Collection("campaigns").CountDocuments(ctx, bson.M{}); err == nil {
		out.Campaigns = n
	}
	if n, err := db.Collection("campaigns").CountDocuments(ctx, bson.M{"is_active": true}); err == nil {
		out.ActiveCampaigns = n
	}

	// institutions
	if n, err := db.Collection("institutions").CountDocuments(ctx, bson.M{}); err == nil {
		out.Institutions = n
	}

	// surveys by status
	for _, st := range []models.SurveyStatus{models.StatusPending, models.StatusInProgress, models.StatusCompleted} {
		if n, err := db.Collection("surveys").CountDocuments(ctx, bson.M{"status": st}); err == nil {
			out.Surveys[st] = n
		} else {
			out.Surveys[st] = 0
		}
	}

	// sync runs still marked running, across all processes
	if n, err := db.Collection("sync_runs").CountDocuments(ctx, bson.M{"status": models.SyncRunning}); err == nil {
		out.RunningSyncs = n
	}

	return out
}
