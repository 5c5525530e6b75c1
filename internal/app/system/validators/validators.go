// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/surveytrack/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Registry and campaign collections
	ensure("campaigns", campaignsSchema())
	ensure("institutions", institutionsSchema())
	ensure("surveys", surveysSchema())
	ensure("readiness_records", readinessSchema())

	// Derived counters and sync bookkeeping
	ensure("daily_progress", dailyProgressSchema())
	ensure("sync_runs", syncRunsSchema())

	// These don't strictly need validators; we still ensure the collections exist.
	ensure("regions", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

// nonBlank matches a string with at least one non-space character.
var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

// dayBucket matches a YYYY-MM-DD progress day.
var dayBucket = bson.M{"bsonType": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"}

var counter = bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0}

func statusEnum() bson.A {
	return bson.A{models.StatusPending, models.StatusInProgress, models.StatusCompleted}
}

func campaignsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "target_institutions", "is_active"},
			"properties": bson.M{
				"name":                nonBlank,
				"name_ci":             nonBlank,
				"external_form_id":    bson.M{"bsonType": "string"},
				"start_date":          bson.M{"bsonType": "date"},
				"end_date":            bson.M{"bsonType": "date"},
				"target_institutions": counter,
				"is_active":           bson.M{"bsonType": "bool"},
			},
		},
	}
}

func institutionsSchema() bson.M {
	// Build the enum for the sector field from the canonical list in the domain models.
	sectorEnum := bson.A{}
	for _, s := range models.AllSectors {
		sectorEnum = append(sectorEnum, s)
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "sector", "region_code"},
			"properties": bson.M{
				"name":        nonBlank,
				"name_ci":     nonBlank,
				"sector":      bson.M{"bsonType": "string", "enum": sectorEnum},
				"region_code": bson.M{"bsonType": "string", "pattern": "^[A-Z]{2}$"},
				"latitude":    bson.M{"bsonType": "double", "minimum": -90, "maximum": 90},
				"longitude":   bson.M{"bsonType": "double", "minimum": -180, "maximum": 180},
			},
		},
	}
}

func surveysSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"campaign_id", "institution_id", "status"},
			"properties": bson.M{
				"campaign_id":            bson.M{"bsonType": "objectId"},
				"institution_id":         bson.M{"bsonType": "objectId"},
				"status":                 bson.M{"enum": statusEnum()},
				"external_submission_id": bson.M{"bsonType": "string"},
				"submitted_at":           bson.M{"bsonType": "date"},
				"completed_at":           bson.M{"bsonType": "date"},
				"progress_date":          bson.M{"bsonType": "string"},
			},
		},
	}
}

func readinessSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"survey_id", "campaign_id", "institution_id", "readiness_score"},
			"properties": bson.M{
				"survey_id":       bson.M{"bsonType": "objectId"},
				"campaign_id":     bson.M{"bsonType": "objectId"},
				"institution_id":  bson.M{"bsonType": "objectId"},
				"readiness_score": bson.M{"bsonType": bson.A{"double", "int", "long"}, "minimum": 0, "maximum": 100},
				"indicators":      bson.M{"bsonType": "object"},
			},
		},
	}
}

func dailyProgressSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"campaign_id", "date"},
			"properties": bson.M{
				"campaign_id":       bson.M{"bsonType": "objectId"},
				"date":              dayBucket,
				"total_completed":   counter,
				"total_in_progress": counter,
				"total_pending":     counter,
			},
		},
	}
}

func syncRunsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"campaign_id", "run_key", "status", "started_at"},
			"properties": bson.M{
				"campaign_id":      bson.M{"bsonType": "objectId"},
				"run_key":          nonBlank,
				"status":           bson.M{"enum": bson.A{models.SyncRunning, models.SyncCompleted, models.SyncFailed}},
				"started_at":       bson.M{"bsonType": "date"},
				"finished_at":      bson.M{"bsonType": "date"},
				"cancel_requested": bson.M{"bsonType": "bool"},
			},
		},
	}
}
