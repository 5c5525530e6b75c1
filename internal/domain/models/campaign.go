// internal/domain/models/campaign.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Campaign is one assessment round tied to a single external survey form.
type Campaign struct {
	ID                 primitive.ObjectID `bson:"_id"`
	Name               string             `bson:"name"`
	NameCI             string             `bson:"name_ci"`
	Description        string             `bson:"description,omitempty"`
	ExternalFormID     string             `bson:"external_form_id,omitempty"` // KoBo asset uid
	StartDate          *time.Time         `bson:"start_date,omitempty"`
	EndDate            *time.Time         `bson:"end_date,omitempty"`
	TargetInstitutions int                `bson:"target_institutions"`
	IsActive           bool               `bson:"is_active"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}
