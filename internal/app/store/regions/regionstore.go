// internal/app/store/regions/regionstore.go
package regionstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("region not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("regions")}
}

// EnsureSeeded inserts any missing region from seeds. Existing regions are
// left untouched. Returns the number of regions inserted.
func (s *Store) EnsureSeeded(ctx context.Context, seeds []models.RegionSeed) (int, error) {
	now := time.Now().UTC()
	inserted := 0
	for _, r := range seeds {
		res, err := s.c.UpdateOne(ctx,
			bson.M{"code": r.Code},
			bson.M{"$setOnInsert": bson.M{
				"_id":        primitive.NewObjectID(),
				"code":       r.Code,
				"name":       r.Name,
				"created_at": now,
			}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return inserted, err
		}
		if res.UpsertedCount > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// List returns all regions ordered by code.
func (s *Store) List(ctx context.Context) ([]models.Region, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var regions []models.Region
	if err := cur.All(ctx, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

func (s *Store) GetByCode(ctx context.Context, code string) (models.Region, error) {
	var r models.Region
	err := s.c.FindOne(ctx, bson.M{"code": code}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Region{}, ErrNotFound
	}
	return r, err
}
