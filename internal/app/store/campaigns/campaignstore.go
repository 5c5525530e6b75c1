// internal/app/store/campaigns/campaignstore.go
package campaignstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateCampaign = errors.New("a campaign with this name already exists")
	ErrNotFound          = errors.New("campaign not found")
	ErrInvalidName       = errors.New("campaign name is required")
	ErrInvalidDates      = errors.New("campaign end date is before its start date")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("campaigns")}
}

func (s *Store) Create(ctx context.Context, c models.Campaign) (models.Campaign, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.Campaign{}, ErrInvalidName
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return models.Campaign{}, ErrInvalidDates
	}
	if c.TargetInstitutions < 0 {
		c.TargetInstitutions = 0
	}
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.NameCI = text.Fold(c.Name)
	c.ExternalFormID = strings.TrimSpace(c.ExternalFormID)
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, c)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Campaign{}, ErrDuplicateCampaign
		}
		return models.Campaign{}, err
	}
	return c, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Campaign, error) {
	var c models.Campaign
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Campaign{}, ErrNotFound
	}
	return c, err
}

// List returns campaigns, newest first. When activeOnly is set, inactive
// campaigns are skipped.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]models.Campaign, error) {
	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Campaign
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update carries the mutable campaign fields. Nil pointers leave the stored
// value untouched.
type Update struct {
	Name               *string
	Description        *string
	ExternalFormID     *string
	StartDate          *time.Time
	EndDate            *time.Time
	TargetInstitutions *int
	IsActive           *bool
}

// Update applies u to the campaign and returns the stored result.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Campaign, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return models.Campaign{}, ErrInvalidName
		}
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.ExternalFormID != nil {
		set["external_form_id"] = strings.TrimSpace(*u.ExternalFormID)
	}
	if u.StartDate != nil || u.EndDate != nil {
		cur, err := s.GetByID(ctx, id)
		if err != nil {
			return models.Campaign{}, err
		}
		start, end := cur.StartDate, cur.EndDate
		if u.StartDate != nil {
			start = u.StartDate
		}
		if u.EndDate != nil {
			end = u.EndDate
		}
		if start != nil && end != nil && end.Before(*start) {
			return models.Campaign{}, ErrInvalidDates
		}
	}
	if u.StartDate != nil {
		set["start_date"] = u.StartDate.UTC()
	}
	if u.EndDate != nil {
		set["end_date"] = u.EndDate.UTC()
	}
	if u.TargetInstitutions != nil {
		target := *u.TargetInstitutions
		if target < 0 {
			target = 0
		}
		set["target_institutions"] = target
	}
	if u.IsActive != nil {
		set["is_active"] = *u.IsActive
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out models.Campaign
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&out)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Campaign{}, ErrNotFound
	case wafflemongo.IsDup(err):
		return models.Campaign{}, ErrDuplicateCampaign
	case err != nil:
		return models.Campaign{}, err
	}
	return out, nil
}
