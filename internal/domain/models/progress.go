// internal/domain/models/progress.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DailyProgress holds per-day survey counters for one campaign. The counters
// are derived data: they always equal a recount of surveys grouped by
// (progress_date, status).
type DailyProgress struct {
	ID              primitive.ObjectID `bson:"_id"`
	CampaignID      primitive.ObjectID `bson:"campaign_id"`
	Date            string             `bson:"date"` // YYYY-MM-DD
	TotalCompleted  int                `bson:"total_completed"`
	TotalInProgress int                `bson:"total_in_progress"`
	TotalPending    int                `bson:"total_pending"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

// DateLayout is the layout of DailyProgress.Date and Survey.ProgressDate.
const DateLayout = "2006-01-02"

// CounterField returns the daily_progress field that counts surveys in status s.
func CounterField(s SurveyStatus) string {
	switch s {
	case StatusCompleted:
		return "total_completed"
	case StatusInProgress:
		return "total_in_progress"
	case StatusPending:
		return "total_pending"
	}
	return ""
}
