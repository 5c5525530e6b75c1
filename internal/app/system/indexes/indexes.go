// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name   string
		ensure func(context.Context, *mongo.Database) error
	}{
		{"regions", ensureRegions},
		{"institutions", ensureInstitutions},
		{"campaigns", ensureCampaigns},
		{"surveys", ensureSurveys},
		{"readiness_records", ensureReadinessRecords},
		{"daily_progress", ensureDailyProgress},
		{"sync_runs", ensureSyncRuns},
		{"audit_events", ensureAuditEvents},
	}
	for _, s := range sets {
		if err := s.ensure(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string   `bson:"name"`
	Key     bson.D   `bson:"key"`
	Unique  *bool    `bson:"unique,omitempty"`
	Partial bson.Raw `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

// partialSig renders a partial filter expression for comparison. Desired
// filters must be bson.D so field order is stable.
func partialSig(v any) string {
	if v == nil {
		return ""
	}
	if raw, ok := v.(bson.Raw); ok {
		if len(raw) == 0 {
			return ""
		}
		return raw.String()
	}
	b, err := bson.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return bson.Raw(b).String()
}

// desired captures the options of an index model that reconcile compares.
type desired struct {
	name    string
	sig     string
	unique  bool
	partial string
}

func describe(m mongo.IndexModel) desired {
	d := desired{sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = boolVal(m.Options.Unique)
		if m.Options.PartialFilterExpression != nil {
			d.partial = partialSig(m.Options.PartialFilterExpression)
		}
	}
	return d
}

func (d desired) matches(ex existingIndex) bool {
	return d.unique == boolVal(ex.Unique) &&
		d.partial == partialSig(ex.Partial) &&
		(d.name == "" || d.name == ex.Name)
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet makes the collection's indexes match models. An index with
// the same keys but different name, uniqueness or partial filter is dropped
// and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A collection that does not exist yet has no indexes to reconcile.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		d := describe(m)
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.unique),
		}
		if d.partial != "" {
			fields = append(fields, zap.String("partial", d.partial))
		}

		if ex, ok := existing[d.sig]; ok {
			if d.matches(ex) {
				zap.L().Debug("reusing existing index", fields...)
				continue
			}
			zap.L().Info("index options differ; recreating",
				append(fields, zap.String("existing_name", ex.Name))...)
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), d.name, err))
				continue
			}
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil {
			zap.L().Warn("index ensure failed", append(fields, zap.Error(err))...)
			if isDuplicateKeyErr(err) && d.unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), d.name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
			}
			continue
		}
		zap.L().Info("index ensured", append(fields,
			zap.String("created_name", created),
			zap.String("took", time.Since(start).String()))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureRegions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("regions"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_regions_code"),
		},
	})
}

func ensureInstitutions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("institutions"), []mongo.IndexModel{
		// Sync matches institutions by folded name within a region.
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "region_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_institutions_nameci_region"),
		},
		// Region lists sorted by name
		{
			Keys:    bson.D{{Key: "region_code", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_institutions_region_nameci__id"),
		},
		{
			Keys:    bson.D{{Key: "sector", Value: 1}},
			Options: options.Index().SetName("idx_institutions_sector"),
		},
	})
}

func ensureCampaigns(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("campaigns"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_campaigns_nameci"),
		},
		{
			Keys:    bson.D{{Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_campaigns_active_created"),
		},
	})
}

func ensureSurveys(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("surveys"), []mongo.IndexModel{
		// External submission ids are globally unique; planned surveys have none.
		{
			Keys: bson.D{{Key: "external_submission_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "external_submission_id", Value: bson.D{{Key: "$type", Value: "string"}}}}).
				SetName("uniq_surveys_external_submission_id"),
		},
		// Recount groups a campaign's surveys by (progress_date, status).
		{
			Keys: bson.D{
				{Key: "campaign_id", Value: 1},
				{Key: "progress_date", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("idx_surveys_campaign_date_status"),
		},
		{
			Keys:    bson.D{{Key: "campaign_id", Value: 1}, {Key: "institution_id", Value: 1}},
			Options: options.Index().SetName("idx_surveys_campaign_institution"),
		},
		{
			Keys:    bson.D{{Key: "institution_id", Value: 1}},
			Options: options.Index().SetName("idx_surveys_institution"),
		},
	})
}

func ensureReadinessRecords(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("readiness_records"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "survey_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_readiness_survey"),
		},
		{
			Keys:    bson.D{{Key: "campaign_id", Value: 1}, {Key: "region_code", Value: 1}},
			Options: options.Index().SetName("idx_readiness_campaign_region"),
		},
	})
}

func ensureDailyProgress(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("daily_progress"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "campaign_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_daily_progress_campaign_date"),
		},
	})
}

func ensureSyncRuns(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("sync_runs"), []mongo.IndexModel{
		// At most one running sync per campaign, across processes.
		{
			Keys: bson.D{{Key: "campaign_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "running"}}).
				SetName("uniq_sync_runs_running_campaign"),
		},
		{
			Keys:    bson.D{{Key: "campaign_id", Value: 1}, {Key: "started_at", Value: -1}},
			Options: options.Index().SetName("idx_sync_runs_campaign_started"),
		},
		// Stale-run sweep
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "heartbeat_at", Value: 1}},
			Options: options.Index().SetName("idx_sync_runs_status_heartbeat"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		// Query by time range (most recent first)
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "campaign_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_campaign_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}
