// internal/app/store/surveys/surveystore.go
package surveystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateSubmission = errors.New("a survey with this external submission id already exists")
	ErrNotFound            = errors.New("survey not found")
	ErrInvalidStatus       = errors.New("invalid survey status")
	// ErrConflict means the stored status or progress date no longer match
	// what the caller read.
	ErrConflict = errors.New("survey was changed concurrently")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("surveys")}
}

// Create inserts a new survey. ID and timestamps are assigned here.
func (s *Store) Create(ctx context.Context, sv models.Survey) (models.Survey, error) {
	if !sv.Status.Valid() {
		return models.Survey{}, ErrInvalidStatus
	}
	now := time.Now().UTC()
	sv.ID = primitive.NewObjectID()
	sv.CreatedAt = now
	sv.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, sv); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Survey{}, ErrDuplicateSubmission
		}
		return models.Survey{}, err
	}
	return sv, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Survey, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByExternalID returns the survey created from the given external submission.
func (s *Store) GetByExternalID(ctx context.Context, externalID string) (models.Survey, error) {
	return s.findOne(ctx, bson.M{"external_submission_id": externalID})
}

// GetPlanned returns the survey without an external submission that was
// planned for the institution within the campaign.
func (s *Store) GetPlanned(ctx context.Context, campaignID, institutionID primitive.ObjectID) (models.Survey, error) {
	return s.findOne(ctx, bson.M{
		"campaign_id":            campaignID,
		"institution_id":         institutionID,
		"external_submission_id": bson.M{"$exists": false},
	})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Survey, error) {
	var sv models.Survey
	err := s.c.FindOne(ctx, filter).Decode(&sv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Survey{}, ErrNotFound
	}
	return sv, err
}

// Update writes the mutable fields of sv, provided the stored survey still
// has the status and progress date of prev. Nil timestamps are removed from
// the stored document. A survey that changed since prev was read yields
// ErrConflict, so each status transition is applied to counters once.
func (s *Store) Update(ctx context.Context, prev, sv models.Survey) (models.Survey, error) {
	if !sv.Status.Valid() {
		return models.Survey{}, ErrInvalidStatus
	}
	sv.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"institution_id": sv.InstitutionID,
		"status":         sv.Status,
		"progress_date":  sv.ProgressDate,
		"updated_at":     sv.UpdatedAt,
	}
	unset := bson.M{}
	if sv.SubmittedAt != nil {
		set["submitted_at"] = sv.SubmittedAt.UTC()
	} else {
		unset["submitted_at"] = ""
	}
	if sv.CompletedAt != nil {
		set["completed_at"] = sv.CompletedAt.UTC()
	} else {
		unset["completed_at"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	filter := bson.M{
		"_id":           sv.ID,
		"status":        prev.Status,
		"progress_date": prev.ProgressDate,
	}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return models.Survey{}, err
	}
	if res.MatchedCount == 0 {
		n, err := s.c.CountDocuments(ctx, bson.M{"_id": sv.ID})
		if err != nil {
			return models.Survey{}, err
		}
		if n == 0 {
			return models.Survey{}, ErrNotFound
		}
		return models.Survey{}, ErrConflict
	}
	return sv, nil
}

// Filter narrows List results. Zero fields match everything; a non-nil
// InstitutionIDs restricts to those institutions, so an empty slice matches
// nothing.
type Filter struct {
	CampaignID     primitive.ObjectID
	Status         models.SurveyStatus
	InstitutionIDs []primitive.ObjectID
	Limit          int64
	Offset         int64
}

func (f Filter) query() bson.M {
	q := bson.M{}
	if !f.CampaignID.IsZero() {
		q["campaign_id"] = f.CampaignID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.InstitutionIDs != nil {
		q["institution_id"] = bson.M{"$in": f.InstitutionIDs}
	}
	return q
}

// List returns surveys matching f, oldest first.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Survey, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(f.Offset)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := s.c.Find(ctx, f.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Survey{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of surveys matching f, ignoring paging.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

// ListByCampaign returns every survey in a campaign.
func (s *Store) ListByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]models.Survey, error) {
	return s.find(ctx, bson.M{"campaign_id": campaignID})
}

// ListByInstitution returns every survey of an institution across campaigns.
func (s *Store) ListByInstitution(ctx context.Context, institutionID primitive.ObjectID) ([]models.Survey, error) {
	return s.find(ctx, bson.M{"institution_id": institutionID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Survey, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Survey
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByStatus returns the number of surveys per status in a campaign.
func (s *Store) CountByStatus(ctx context.Context, campaignID primitive.ObjectID) (map[models.SurveyStatus]int64, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"campaign_id": campaignID}},
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[models.SurveyStatus]int64)
	for cur.Next(ctx) {
		var row struct {
			Status models.SurveyStatus `bson:"_id"`
			Count  int64               `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.Count
	}
	return out, cur.Err()
}

// Delete removes a survey by ID and returns it as it was when removed, so
// counters are reversed for the status it actually had.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Survey, error) {
	var sv models.Survey
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&sv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Survey{}, ErrNotFound
	}
	return sv, err
}
