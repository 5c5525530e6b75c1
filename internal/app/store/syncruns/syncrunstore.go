// internal/app/store/syncruns/syncrunstore.go
package syncrunstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/surveytrack/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrAlreadyRunning is returned by Begin when the campaign already has a
	// running sync. The partial unique index on campaign_id (status running)
	// enforces this across processes.
	ErrAlreadyRunning = errors.New("a sync is already running for this campaign")
	ErrNotFound       = errors.New("sync run not found")
	// ErrFinalized is returned when finishing a run that is no longer running.
	ErrFinalized = errors.New("sync run already finalized")
)

// ReasonAbandoned is the failure reason of runs finalized by AbandonStale.
const ReasonAbandoned = "abandoned: no heartbeat"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sync_runs")}
}

// Begin opens a running sync for the campaign.
func (s *Store) Begin(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error) {
	now := time.Now().UTC()
	run := models.SyncRun{
		ID:          primitive.NewObjectID(),
		CampaignID:  campaignID,
		RunKey:      uuid.NewString(),
		Status:      models.SyncRunning,
		StartedAt:   now,
		HeartbeatAt: now,
	}
	if _, err := s.c.InsertOne(ctx, run); err != nil {
		if wafflemongo.IsDup(err) {
			return models.SyncRun{}, ErrAlreadyRunning
		}
		return models.SyncRun{}, err
	}
	return run, nil
}

// Heartbeat records liveness and the running counts of a run.
func (s *Store) Heartbeat(ctx context.Context, id primitive.ObjectID, counts models.SyncCounts) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.SyncRunning},
		bson.M{"$set": bson.M{"heartbeat_at": time.Now().UTC(), "counts": counts}},
	)
	return err
}

// RequestCancel flags the campaign's running sync for cancellation and
// returns it. ErrNotFound means nothing is running.
func (s *Store) RequestCancel(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error) {
	var run models.SyncRun
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"campaign_id": campaignID, "status": models.SyncRunning},
		bson.M{"$set": bson.M{"cancel_requested": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.SyncRun{}, ErrNotFound
	}
	return run, err
}

// CancelRequested reports whether cancellation was requested for the run.
func (s *Store) CancelRequested(ctx context.Context, id primitive.ObjectID) (bool, error) {
	var row struct {
		CancelRequested bool `bson:"cancel_requested"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"cancel_requested": 1}),
	).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, ErrNotFound
	}
	return row.CancelRequested, err
}

// Finish finalizes a running sync. Diagnostics beyond
// models.MaxStoredDiagnostics are dropped; counts are stored as given.
func (s *Store) Finish(ctx context.Context, run models.SyncRun) (models.SyncRun, error) {
	return s.finish(ctx, run, bson.M{"_id": run.ID, "status": models.SyncRunning})
}

func (s *Store) finish(ctx context.Context, run models.SyncRun, filter bson.M) (models.SyncRun, error) {
	if len(run.Diagnostics) > models.MaxStoredDiagnostics {
		run.Diagnostics = run.Diagnostics[:models.MaxStoredDiagnostics]
	}
	now := time.Now().UTC()
	run.FinishedAt = &now

	set := bson.M{
		"status":       run.Status,
		"finished_at":  now,
		"heartbeat_at": now,
		"counts":       run.Counts,
		"diagnostics":  run.Diagnostics,
	}
	if run.FailureReason != "" {
		set["failure_reason"] = run.FailureReason
	}

	var out models.SyncRun
	err := s.c.FindOneAndUpdate(ctx,
		filter,
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.SyncRun{}, ErrFinalized
	}
	return out, err
}

// Latest returns the most recently started run of the campaign.
func (s *Store) Latest(ctx context.Context, campaignID primitive.ObjectID) (models.SyncRun, error) {
	var run models.SyncRun
	err := s.c.FindOne(ctx,
		bson.M{"campaign_id": campaignID},
		options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}, {Key: "_id", Value: -1}}),
	).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.SyncRun{}, ErrNotFound
	}
	return run, err
}

// IsRunning reports whether the campaign has a running sync.
func (s *Store) IsRunning(ctx context.Context, campaignID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"campaign_id": campaignID, "status": models.SyncRunning})
	return n > 0, err
}

// List returns the campaign's runs, newest first.
func (s *Store) List(ctx context.Context, campaignID primitive.ObjectID, limit int64) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	cur, err := s.c.Find(ctx,
		bson.M{"campaign_id": campaignID},
		options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SyncRun
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AbandonStale finalizes as failed every running sync whose last heartbeat
// is before cutoff, and returns the runs it finalized.
func (s *Store) AbandonStale(ctx context.Context, cutoff time.Time) ([]models.SyncRun, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"status":       models.SyncRunning,
		"heartbeat_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	var stale []models.SyncRun
	err = cur.All(ctx, &stale)
	cur.Close(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.SyncRun
	for _, run := range stale {
		run.Status = models.SyncFailed
		run.FailureReason = ReasonAbandoned
		// A run that heartbeated since the scan is left alone.
		done, err := s.finish(ctx, run, bson.M{
			"_id":          run.ID,
			"status":       models.SyncRunning,
			"heartbeat_at": bson.M{"$lt": cutoff},
		})
		if errors.Is(err, ErrFinalized) {
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, done)
	}
	return out, nil
}
