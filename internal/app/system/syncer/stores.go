package syncer

import (
	campaignstore "github.com/dalemusser/surveytrack/internal/app/store/campaigns"
	institutionstore "github.com/dalemusser/surveytrack/internal/app/store/institutions"
	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	readinessstore "github.com/dalemusser/surveytrack/internal/app/store/readiness"
	surveystore "github.com/dalemusser/surveytrack/internal/app/store/surveys"
	syncrunstore "github.com/dalemusser/surveytrack/internal/app/store/syncruns"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewStores wires the MongoDB stores.
func NewStores(db *mongo.Database) Stores {
	return Stores{
		Campaigns:    campaignstore.New(db),
		Institutions: institutionstore.New(db),
		Surveys:      surveystore.New(db),
		Readiness:    readinessstore.New(db),
		Progress:     progressstore.New(db),
		Runs:         syncrunstore.New(db),
	}
}
