// internal/app/store/progress/progressstore.go
package progressstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var counterFields = []string{"total_completed", "total_in_progress", "total_pending"}

// Store maintains the daily_progress counters. It reads the surveys
// collection only to recount.
type Store struct {
	c       *mongo.Collection
	surveys *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:       db.Collection("daily_progress"),
		surveys: db.Collection("surveys"),
	}
}

// RecordTransition applies the counter deltas of one survey status change.
// It returns the number of decrements skipped because the counter was
// already zero; a non-zero value means the counters had drifted.
func (s *Store) RecordTransition(ctx context.Context, t progress.Transition) (int, error) {
	return s.Apply(ctx, progress.Plan(t))
}

// Apply applies deltas one counter at a time. Each delta is a single atomic
// document update.
func (s *Store) Apply(ctx context.Context, deltas []progress.Delta) (int, error) {
	floored := 0
	for _, d := range deltas {
		field := models.CounterField(d.Status)
		if field == "" {
			return floored, fmt.Errorf("progress delta: invalid status %q", d.Status)
		}
		switch {
		case d.Change > 0:
			if err := s.increment(ctx, d, field); err != nil {
				return floored, err
			}
		case d.Change < 0:
			ok, err := s.decrement(ctx, d, field)
			if err != nil {
				return floored, err
			}
			if !ok {
				floored++
			}
		}
	}
	return floored, nil
}

func (s *Store) increment(ctx context.Context, d progress.Delta, field string) error {
	setOnInsert := bson.M{"_id": primitive.NewObjectID()}
	for _, f := range counterFields {
		if f != field {
			setOnInsert[f] = 0
		}
	}
	filter := bson.M{"campaign_id": d.CampaignID, "date": d.Date}
	update := bson.M{
		"$inc":         bson.M{field: d.Change},
		"$set":         bson.M{"updated_at": time.Now().UTC()},
		"$setOnInsert": setOnInsert,
	}
	opts := options.Update().SetUpsert(true)

	_, err := s.c.UpdateOne(ctx, filter, update, opts)
	if wafflemongo.IsDup(err) {
		// Lost the race to create the day's document; it exists now.
		_, err = s.c.UpdateOne(ctx, filter, update, opts)
	}
	return err
}

// decrement lowers a counter unless that would take it below zero. It
// reports false when the counter was left untouched.
func (s *Store) decrement(ctx context.Context, d progress.Delta, field string) (bool, error) {
	filter := bson.M{
		"campaign_id": d.CampaignID,
		"date":        d.Date,
		field:         bson.M{"$gte": -d.Change},
	}
	update := bson.M{
		"$inc": bson.M{field: d.Change},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// ListRange returns the campaign's counters for dates in [from, to], ordered
// by date. Days without a document are absent.
func (s *Store) ListRange(ctx context.Context, campaignID primitive.ObjectID, from, to string) ([]models.DailyProgress, error) {
	filter := bson.M{
		"campaign_id": campaignID,
		"date":        bson.M{"$gte": from, "$lte": to},
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.DailyProgress
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompletedBefore sums total_completed over the campaign's days before date.
func (s *Store) CompletedBefore(ctx context.Context, campaignID primitive.ObjectID, date string) (int, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"campaign_id": campaignID, "date": bson.M{"$lt": date}}},
		{"$group": bson.M{"_id": nil, "n": bson.M{"$sum": "$total_completed"}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var row struct {
		N int `bson:"n"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.N, cur.Err()
}

// Totals sums all counters of a campaign.
func (s *Store) Totals(ctx context.Context, campaignID primitive.ObjectID) (models.DailyProgress, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"campaign_id": campaignID}},
		{"$group": bson.M{
			"_id":               nil,
			"total_completed":   bson.M{"$sum": "$total_completed"},
			"total_in_progress": bson.M{"$sum": "$total_in_progress"},
			"total_pending":     bson.M{"$sum": "$total_pending"},
		}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return models.DailyProgress{}, err
	}
	defer cur.Close(ctx)

	out := models.DailyProgress{CampaignID: campaignID}
	if cur.Next(ctx) {
		var row struct {
			Completed  int `bson:"total_completed"`
			InProgress int `bson:"total_in_progress"`
			Pending    int `bson:"total_pending"`
		}
		if err := cur.Decode(&row); err != nil {
			return models.DailyProgress{}, err
		}
		out.TotalCompleted = row.Completed
		out.TotalInProgress = row.InProgress
		out.TotalPending = row.Pending
	}
	return out, cur.Err()
}

// DriftEntry is one counter whose stored value differs from the recount.
type DriftEntry struct {
	Date   string `json:"date"`
	Field  string `json:"field"`
	Stored int    `json:"stored"`
	Actual int    `json:"actual"`
}

// DriftReport is the result of a recount.
type DriftReport struct {
	CampaignID primitive.ObjectID `json:"campaign_id"`
	Days       int                `json:"days"`
	Entries    []DriftEntry       `json:"entries,omitempty"`
	Repaired   bool               `json:"repaired"`
}

// HasDrift reports whether any counter differed from the recount.
func (r DriftReport) HasDrift() bool { return len(r.Entries) > 0 }

type counts [3]int

func (c *counts) add(status models.SurveyStatus, n int) {
	switch status {
	case models.StatusCompleted:
		c[0] += n
	case models.StatusInProgress:
		c[1] += n
	case models.StatusPending:
		c[2] += n
	}
}

// Recount rebuilds the campaign's counters from its surveys and compares
// them with the stored counters. With repair set, drifted days are
// overwritten with the recount and days with no surveys are removed.
func (s *Store) Recount(ctx context.Context, campaignID primitive.ObjectID, repair bool) (DriftReport, error) {
	report := DriftReport{CampaignID: campaignID}

	actual, err := s.recountSurveys(ctx, campaignID)
	if err != nil {
		return report, err
	}
	stored, err := s.storedCounts(ctx, campaignID)
	if err != nil {
		return report, err
	}

	days := make(map[string]struct{}, len(actual)+len(stored))
	for d := range actual {
		days[d] = struct{}{}
	}
	for d := range stored {
		days[d] = struct{}{}
	}
	ordered := make([]string, 0, len(days))
	for d := range days {
		ordered = append(ordered, d)
	}
	sort.Strings(ordered)
	report.Days = len(ordered)

	var drifted []string
	for _, d := range ordered {
		a, st := actual[d], stored[d]
		if a == st {
			continue
		}
		drifted = append(drifted, d)
		for i, f := range counterFields {
			if a[i] != st[i] {
				report.Entries = append(report.Entries, DriftEntry{Date: d, Field: f, Stored: st[i], Actual: a[i]})
			}
		}
	}

	if !repair || len(drifted) == 0 {
		return report, nil
	}

	now := time.Now().UTC()
	for _, d := range drifted {
		a := actual[d]
		filter := bson.M{"campaign_id": campaignID, "date": d}
		if a == (counts{}) {
			if _, err := s.c.DeleteOne(ctx, filter); err != nil {
				return report, err
			}
			continue
		}
		update := bson.M{
			"$set": bson.M{
				"total_completed":   a[0],
				"total_in_progress": a[1],
				"total_pending":     a[2],
				"updated_at":        now,
			},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		}
		if _, err := s.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return report, err
		}
	}
	report.Repaired = true
	return report, nil
}

func (s *Store) recountSurveys(ctx context.Context, campaignID primitive.ObjectID) (map[string]counts, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"campaign_id": campaignID}},
		{"$group": bson.M{
			"_id":   bson.M{"date": "$progress_date", "status": "$status"},
			"count": bson.M{"$sum": 1},
		}},
	}
	cur, err := s.surveys.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]counts)
	for cur.Next(ctx) {
		var row struct {
			Key struct {
				Date   string              `bson:"date"`
				Status models.SurveyStatus `bson:"status"`
			} `bson:"_id"`
			Count int `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		c := out[row.Key.Date]
		c.add(row.Key.Status, row.Count)
		out[row.Key.Date] = c
	}
	return out, cur.Err()
}

func (s *Store) storedCounts(ctx context.Context, campaignID primitive.ObjectID) (map[string]counts, error) {
	cur, err := s.c.Find(ctx, bson.M{"campaign_id": campaignID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]counts)
	for cur.Next(ctx) {
		var dp models.DailyProgress
		if err := cur.Decode(&dp); err != nil {
			return nil, err
		}
		out[dp.Date] = counts{dp.TotalCompleted, dp.TotalInProgress, dp.TotalPending}
	}
	return out, cur.Err()
}
