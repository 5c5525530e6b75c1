// Package reportqueries provides read-only report queries over surveys,
// indicator records and progress counters.
package reportqueries

import (
	"context"
	"errors"
	"math"

	"github.com/dalemusser/surveytrack/internal/app/system/readiness"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoData is returned when a campaign has no indicator records yet.
var ErrNoData = errors.New("no readiness data available")

// ScoreStats summarizes readiness scores.
type ScoreStats struct {
	Average float64 `json:"average"`
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
}

// DomainAverage is the mean points earned in one domain.
type DomainAverage struct {
	Domain  readiness.Domain `json:"domain"`
	Points  float64          `json:"avg_points"`
	Max     float64          `json:"max_points"`
	Percent float64          `json:"avg_pct"`
}

// IndicatorAdoption counts the assessments earning points for one rule.
type IndicatorAdoption struct {
	Domain    readiness.Domain `json:"domain"`
	Indicator string           `json:"indicator"`
	Count     int              `json:"count"`
	Percent   float64          `json:"pct"`
}

// ReadinessReport is the readiness summary of a campaign.
type ReadinessReport struct {
	CampaignID             primitive.ObjectID  `json:"campaign_id"`
	Assessed               int                 `json:"total_institutions_assessed"`
	Scores                 ScoreStats          `json:"readiness_scores"`
	AvgTrainedStaff        float64             `json:"avg_trained_staff_per_institution"`
	AvgFunctionalComputers float64             `json:"avg_functional_computers"`
	Domains                []DomainAverage     `json:"domains"`
	Indicators             []IndicatorAdoption `json:"indicators"`
}

// readinessStats is one $group row over readiness_records.
type readinessStats struct {
	Key          string  `bson:"_id"`
	Count        int     `bson:"count"`
	Avg          float64 `bson:"avg"`
	Min          float64 `bson:"min"`
	Max          float64 `bson:"max"`
	AvgTrained   float64 `bson:"avg_trained"`
	AvgComputers float64 `bson:"avg_computers"`
	Policy       int     `bson:"policy"`
	CMS          int     `bson:"cms"`
	Trained      int     `bson:"trained"`
	Computers    int     `bson:"computers"`
}

func countTrue(field string) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{"$indicators." + field, 1, 0}}}
}

// groupReadiness aggregates the campaign's indicator records grouped by
// key ("" groups everything into one row).
func groupReadiness(ctx context.Context, db *mongo.Database, campaignID primitive.ObjectID, key string) ([]readinessStats, error) {
	var id any
	if key != "" {
		id = "$" + key
	}
	pipeline := []bson.M{
		{"$match": bson.M{"campaign_id": campaignID}},
		{"$group": bson.M{
			"_id":           id,
			"count":         bson.M{"$sum": 1},
			"avg":           bson.M{"$avg": "$readiness_score"},
			"min":           bson.M{"$min": "$readiness_score"},
			"max":           bson.M{"$max": "$readiness_score"},
			"avg_trained":   bson.M{"$avg": "$indicators.num_trained_staff"},
			"avg_computers": bson.M{"$avg": "$indicators.num_functional_computers"},
			"policy":        countTrue("has_gbv_policy"),
			"cms":           countTrue("has_case_management_system"),
			"trained":       countTrue("has_trained_staff"),
			"computers":     countTrue("has_computers"),
		}},
	}
	cur, err := db.Collection("readiness_records").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []readinessStats
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadinessSummary reports score statistics, mean points per domain and
// adoption of every scored indicator across the campaign's assessments.
func ReadinessSummary(ctx context.Context, db *mongo.Database, campaignID primitive.ObjectID) (ReadinessReport, error) {
	rows, err := groupReadiness(ctx, db, campaignID, "")
	if err != nil {
		return ReadinessReport{}, err
	}
	if len(rows) == 0 || rows[0].Count == 0 {
		return ReadinessReport{}, ErrNoData
	}
	st := rows[0]

	report := ReadinessReport{
		CampaignID: campaignID,
		Assessed:   st.Count,
		Scores: ScoreStats{
			Average: readiness.Round(st.Avg),
			Minimum: readiness.Round(st.Min),
			Maximum: readiness.Round(st.Max),
		},
		AvgTrainedStaff:        readiness.Round(st.AvgTrained),
		AvgFunctionalComputers: readiness.Round(st.AvgComputers),
	}

	// Domain points and rule adoption need the rule table, so they are
	// computed here rather than in the pipeline.
	opts := options.Find().SetProjection(bson.M{"indicators": 1})
	cur, err := db.Collection("readiness_records").Find(ctx, bson.M{"campaign_id": campaignID}, opts)
	if err != nil {
		return ReadinessReport{}, err
	}
	defer cur.Close(ctx)

	points := make(map[readiness.Domain]float64, len(readiness.Domains))
	met := make([]int, len(readiness.Rules))
	n := 0
	for cur.Next(ctx) {
		var row struct {
			Indicators models.Indicators `bson:"indicators"`
		}
		if err := cur.Decode(&row); err != nil {
			return ReadinessReport{}, err
		}
		n++
		for _, d := range readiness.Breakdown(row.Indicators) {
			points[d.Domain] += d.Points
		}
		for i, r := range readiness.Rules {
			if r.Met(row.Indicators) {
				met[i]++
			}
		}
	}
	if err := cur.Err(); err != nil {
		return ReadinessReport{}, err
	}
	if n == 0 {
		return ReadinessReport{}, ErrNoData
	}

	maxima := readiness.DomainMax()
	for _, d := range readiness.Domains {
		avg := points[d] / float64(n)
		ds := readiness.DomainScore{Domain: d, Points: avg, Max: maxima[d]}
		report.Domains = append(report.Domains, DomainAverage{
			Domain:  d,
			Points:  readiness.Round(avg),
			Max:     maxima[d],
			Percent: ds.Percent(),
		})
	}
	for i, r := range readiness.Rules {
		report.Indicators = append(report.Indicators, IndicatorAdoption{
			Domain:    r.Domain,
			Indicator: r.Indicator,
			Count:     met[i],
			Percent:   pct(met[i], n),
		})
	}
	return report, nil
}

// pct is part/whole as a percentage with one decimal; zero when whole is 0.
func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}
