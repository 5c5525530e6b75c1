// internal/app/store/readiness/readinessstore.go
package readinessstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/system/readiness"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("readiness record not found")

// Store provides access to the readiness_records collection. There is one
// record per survey.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("readiness_records")}
}

// Save creates or replaces the indicator record of rec.SurveyID. The
// readiness score is recomputed from the indicators on every write, so a
// stored record never carries a stale score.
func (s *Store) Save(ctx context.Context, rec models.ReadinessRecord) (models.ReadinessRecord, error) {
	now := time.Now().UTC()
	rec.ReadinessScore = readiness.Score(rec.Indicators)
	rec.UpdatedAt = now

	filter := bson.M{"survey_id": rec.SurveyID}
	update := bson.M{
		"$set": bson.M{
			"campaign_id":     rec.CampaignID,
			"institution_id":  rec.InstitutionID,
			"region_code":     rec.RegionCode,
			"indicators":      rec.Indicators,
			"readiness_score": rec.ReadinessScore,
			"updated_at":      now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"survey_id":  rec.SurveyID,
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.ReadinessRecord
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return models.ReadinessRecord{}, err
	}
	return out, nil
}

func (s *Store) GetBySurveyID(ctx context.Context, surveyID primitive.ObjectID) (models.ReadinessRecord, error) {
	var rec models.ReadinessRecord
	err := s.c.FindOne(ctx, bson.M{"survey_id": surveyID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ReadinessRecord{}, ErrNotFound
	}
	return rec, err
}

// ListByCampaign returns all indicator records of a campaign.
func (s *Store) ListByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]models.ReadinessRecord, error) {
	cur, err := s.c.Find(ctx, bson.M{"campaign_id": campaignID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ReadinessRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBySurveyID removes the record of one survey.
func (s *Store) DeleteBySurveyID(ctx context.Context, surveyID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"survey_id": surveyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// SetInstitution rewrites the denormalized institution reference of a survey's record.
func (s *Store) SetInstitution(ctx context.Context, surveyID, institutionID primitive.ObjectID, regionCode string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"survey_id": surveyID},
		bson.M{"$set": bson.M{
			"institution_id": institutionID,
			"region_code":    regionCode,
			"updated_at":     time.Now().UTC(),
		}},
	)
	return err
}
