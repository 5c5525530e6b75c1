// internal/app/store/institutions/institutionstore.go
package institutionstore

import (
	"context"
	"errors"
	"regexp"
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
	ErrDuplicateInstitution = errors.New("an institution with this name already exists in the region")
	ErrNotFound             = errors.New("institution not found")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("institutions")}
}

func (s *Store) Create(ctx context.Context, inst models.Institution) (models.Institution, error) {
	now := time.Now().UTC()
	inst.ID = primitive.NewObjectID()
	inst.NameCI = text.Fold(inst.Name)
	if !inst.Sector.Valid() {
		inst.Sector = models.SectorOther
	}
	inst.CreatedAt = now
	inst.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, inst)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Institution{}, ErrDuplicateInstitution
		}
		return models.Institution{}, err
	}
	return inst, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Institution, error) {
	var inst models.Institution
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&inst)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Institution{}, ErrNotFound
	}
	return inst, err
}

// GetByIDs loads multiple institutions keyed by ID.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Institution, error) {
	out := make(map[primitive.ObjectID]models.Institution, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var inst models.Institution
		if err := cur.Decode(&inst); err != nil {
			return nil, err
		}
		out[inst.ID] = inst
	}
	return out, cur.Err()
}

// FindByNameRegion looks an institution up by folded name within a region.
func (s *Store) FindByNameRegion(ctx context.Context, name, regionCode string) (models.Institution, error) {
	var inst models.Institution
	err := s.c.FindOne(ctx, bson.M{"name_ci": text.Fold(name), "region_code": regionCode}).Decode(&inst)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Institution{}, ErrNotFound
	}
	return inst, err
}

// FindOrCreate returns the institution matching inst's name and region,
// creating it when absent. created reports whether a new document was
// inserted. A concurrent insert of the same institution is resolved by
// re-reading the winner.
func (s *Store) FindOrCreate(ctx context.Context, inst models.Institution) (models.Institution, bool, error) {
	found, err := s.FindByNameRegion(ctx, inst.Name, inst.RegionCode)
	if err == nil {
		return found, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Institution{}, false, err
	}

	created, err := s.Create(ctx, inst)
	if errors.Is(err, ErrDuplicateInstitution) {
		found, err = s.FindByNameRegion(ctx, inst.Name, inst.RegionCode)
		return found, false, err
	}
	if err != nil {
		return models.Institution{}, false, err
	}
	return created, true, nil
}

// Update modifies an institution's non-empty fields and refreshes UpdatedAt.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, inst models.Institution) error {
	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	if inst.Name != "" {
		set["name"] = inst.Name
		set["name_ci"] = text.Fold(inst.Name)
	}
	if inst.Sector.Valid() {
		set["sector"] = inst.Sector
	}
	if inst.Address != "" {
		set["address"] = inst.Address
	}
	if inst.ContactPerson != "" {
		set["contact_person"] = inst.ContactPerson
	}
	if inst.ContactEmail != "" {
		set["contact_email"] = inst.ContactEmail
	}
	if inst.ContactPhone != "" {
		set["contact_phone"] = inst.ContactPhone
	}
	if inst.Latitude != nil && inst.Longitude != nil {
		set["latitude"] = *inst.Latitude
		set["longitude"] = *inst.Longitude
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateInstitution
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an institution by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	RegionCode string
	Sector     models.Sector
	NamePrefix string
	Limit      int64
	Offset     int64
}

// List returns institutions ordered by name.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Institution, error) {
	query := bson.M{}
	if f.RegionCode != "" {
		query["region_code"] = f.RegionCode
	}
	if f.Sector != "" {
		query["sector"] = f.Sector
	}
	if f.NamePrefix != "" {
		query["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(text.Fold(f.NamePrefix))}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(f.Offset)
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Institution
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of institutions matching the given filter.
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	return s.c.CountDocuments(ctx, filter)
}
