package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateCampaign creates an active campaign bound to the given external form.
func (f *Fixtures) CreateCampaign(ctx context.Context, name, formID string) models.Campaign {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.Campaign{
		ID:                 primitive.NewObjectID(),
		Name:               name,
		NameCI:             text.Fold(name),
		ExternalFormID:     formID,
		TargetInstitutions: 10,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, err := f.db.Collection("campaigns").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test campaign: %v", err)
	}
	return c
}

// CreateInstitution creates an institution in the given region.
func (f *Fixtures) CreateInstitution(ctx context.Context, name, regionCode string) models.Institution {
	f.t.Helper()

	now := time.Now().UTC()
	inst := models.Institution{
		ID:         primitive.NewObjectID(),
		Name:       name,
		NameCI:     text.Fold(name),
		Sector:     models.SectorGovernment,
		RegionCode: regionCode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("institutions").InsertOne(ctx, inst); err != nil {
		f.t.Fatalf("failed to create test institution: %v", err)
	}
	return inst
}

// CreateSurvey inserts a survey directly, without touching progress counters.
func (f *Fixtures) CreateSurvey(ctx context.Context, campaignID, institutionID primitive.ObjectID, status models.SurveyStatus, date string) models.Survey {
	f.t.Helper()

	now := time.Now().UTC()
	sv := models.Survey{
		ID:            primitive.NewObjectID(),
		CampaignID:    campaignID,
		InstitutionID: institutionID,
		Status:        status,
		ProgressDate:  date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("surveys").InsertOne(ctx, sv); err != nil {
		f.t.Fatalf("failed to create test survey: %v", err)
	}
	return sv
}
