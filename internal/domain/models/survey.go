// internal/domain/models/survey.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SurveyStatus is the ordered lifecycle of a survey:
// pending < in_progress < completed.
type SurveyStatus string

const (
	StatusPending    SurveyStatus = "pending"
	StatusInProgress SurveyStatus = "in_progress"
	StatusCompleted  SurveyStatus = "completed"
)

// Rank orders statuses; unknown values rank below pending.
func (s SurveyStatus) Rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	}
	return 0
}

// Valid reports whether s is one of the three statuses.
func (s SurveyStatus) Valid() bool { return s.Rank() > 0 }

// Survey links an institution to a campaign. Surveys created by sync carry
// the external submission id; planned surveys do not.
type Survey struct {
	ID                   primitive.ObjectID `bson:"_id"`
	CampaignID           primitive.ObjectID `bson:"campaign_id"`
	InstitutionID        primitive.ObjectID `bson:"institution_id"`
	Status               SurveyStatus       `bson:"status"`
	ExternalSubmissionID *string            `bson:"external_submission_id,omitempty"`
	SubmittedAt          *time.Time         `bson:"submitted_at,omitempty"`
	CompletedAt          *time.Time         `bson:"completed_at,omitempty"`

	// ProgressDate is the day bucket (YYYY-MM-DD) this survey is counted
	// under in daily_progress for its current status.
	ProgressDate string    `bson:"progress_date"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}
