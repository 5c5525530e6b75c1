package reportqueries

import (
	"context"

	regionstore "github.com/dalemusser/surveytrack/internal/app/store/regions"
	"github.com/dalemusser/surveytrack/internal/app/system/readiness"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// RegionProgress is one region's row of the regional report. Readiness
// fields are nil when the region has no assessments.
type RegionProgress struct {
	RegionCode     string  `json:"region_code"`
	RegionName     string  `json:"region_name"`
	Total          int     `json:"total_surveys"`
	Completed      int     `json:"completed_surveys"`
	InProgress     int     `json:"in_progress_surveys"`
	Pending        int     `json:"pending_surveys"`
	CompletionRate float64 `json:"completion_rate"`

	Assessed          int      `json:"institutions_assessed"`
	AvgScore          *float64 `json:"avg_readiness_score"`
	PolicyAdoptionPct *float64 `json:"policy_adoption_pct"`
	CMSAdoptionPct    *float64 `json:"cms_adoption_pct"`
	TrainingPct       *float64 `json:"training_pct"`
}

// RegionalProgress returns a row for every region, in code order, including
// regions without surveys.
func RegionalProgress(ctx context.Context, db *mongo.Database, campaignID primitive.ObjectID) ([]RegionProgress, error) {
	regions, err := regionstore.New(db).List(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := surveysByRegion(ctx, db, campaignID)
	if err != nil {
		return nil, err
	}
	stats, err := groupReadiness(ctx, db, campaignID, "region_code")
	if err != nil {
		return nil, err
	}
	byRegion := make(map[string]readinessStats, len(stats))
	for _, s := range stats {
		byRegion[s.Key] = s
	}

	out := make([]RegionProgress, 0, len(regions))
	for _, r := range regions {
		c := counts[r.Code]
		row := RegionProgress{
			RegionCode:     r.Code,
			RegionName:     r.Name,
			Total:          c.total(),
			Completed:      c[models.StatusCompleted],
			InProgress:     c[models.StatusInProgress],
			Pending:        c[models.StatusPending],
			CompletionRate: rate(c[models.StatusCompleted], c.total()),
		}
		if s, ok := byRegion[r.Code]; ok && s.Count > 0 {
			row.Assessed = s.Count
			row.AvgScore = ptr(readiness.Round(s.Avg))
			row.PolicyAdoptionPct = ptr(pct(s.Policy, s.Count))
			row.CMSAdoptionPct = ptr(pct(s.CMS, s.Count))
			row.TrainingPct = ptr(pct(s.Trained, s.Count))
		}
		out = append(out, row)
	}
	return out, nil
}

type statusCounts map[models.SurveyStatus]int

func (c statusCounts) total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// surveysByRegion counts the campaign's surveys per institution region and
// status.
func surveysByRegion(ctx context.Context, db *mongo.Database, campaignID primitive.ObjectID) (map[string]statusCounts, error) {
	pipeline := []bson.M{
		{"$match": bson.M{"campaign_id": campaignID}},
		{"$lookup": bson.M{
			"from":         "institutions",
			"localField":   "institution_id",
			"foreignField": "_id",
			"as":           "institution",
		}},
		{"$unwind": "$institution"},
		{"$group": bson.M{
			"_id": bson.M{
				"region": "$institution.region_code",
				"status": "$status",
			},
			"count": bson.M{"$sum": 1},
		}},
	}
	cur, err := db.Collection("surveys").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]statusCounts)
	for cur.Next(ctx) {
		var row struct {
			ID struct {
				Region string              `bson:"region"`
				Status models.SurveyStatus `bson:"status"`
			} `bson:"_id"`
			Count int `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		if out[row.ID.Region] == nil {
			out[row.ID.Region] = make(statusCounts)
		}
		out[row.ID.Region][row.ID.Status] += row.Count
	}
	return out, cur.Err()
}

// rate is part/whole as a percentage with two decimals.
func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return readiness.Round(float64(part) / float64(whole) * 100)
}

func ptr[T any](v T) *T { return &v }
