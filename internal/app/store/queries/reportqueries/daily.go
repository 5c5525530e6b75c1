package reportqueries

import (
	"context"
	"time"

	progressstore "github.com/dalemusser/surveytrack/internal/app/store/progress"
	"github.com/dalemusser/surveytrack/internal/app/system/progress"
	"github.com/dalemusser/surveytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	DefaultDays = 30
	MaxDays     = 366
)

// DayProgress is one day of the daily progress series.
type DayProgress struct {
	Date       string `json:"date"`
	Completed  int    `json:"daily_completed"`
	InProgress int    `json:"daily_in_progress"`
	Pending    int    `json:"daily_pending"`
	Cumulative int    `json:"cumulative_completed"`
}

// DailyProgress returns one entry per day for the days ending today in the
// clock's zone. Days without counters are zero, and the cumulative count
// includes completions before the window. days outside [1, MaxDays] falls
// back to DefaultDays or MaxDays.
func DailyProgress(ctx context.Context, db *mongo.Database, clock *progress.Clock, campaignID primitive.ObjectID, days int) ([]DayProgress, error) {
	switch {
	case days <= 0:
		days = DefaultDays
	case days > MaxDays:
		days = MaxDays
	}

	end, err := time.ParseInLocation(models.DateLayout, clock.Today(), clock.Location())
	if err != nil {
		return nil, err
	}
	start := end.AddDate(0, 0, -(days - 1))
	from, to := start.Format(models.DateLayout), end.Format(models.DateLayout)

	store := progressstore.New(db)
	stored, err := store.ListRange(ctx, campaignID, from, to)
	if err != nil {
		return nil, err
	}
	cumulative, err := store.CompletedBefore(ctx, campaignID, from)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]models.DailyProgress, len(stored))
	for _, d := range stored {
		byDate[d.Date] = d
	}

	out := make([]DayProgress, 0, days)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(models.DateLayout)
		d := byDate[date]
		cumulative += d.TotalCompleted
		out = append(out, DayProgress{
			Date:       date,
			Completed:  d.TotalCompleted,
			InProgress: d.TotalInProgress,
			Pending:    d.TotalPending,
			Cumulative: cumulative,
		})
	}
	return out, nil
}
